// SPDX-FileCopyrightText: 2019, 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bpv7

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/dtn7/cboring"
)

const (
	dtnEndpointSchemeName string = "dtn"
	dtnEndpointSchemeNo   uint64 = 1
	dtnEndpointDtnNoneSsp string = "none"
)

// DtnEndpoint describes the dtn URI scheme for EndpointIDs.
//
// The scheme-specific part is either the literal "none" for the null endpoint, or a "//"-prefixed
// authority/path pair; a node-only SSP is canonicalized with a trailing slash, e.g. "//node1/".
type DtnEndpoint struct {
	Ssp string
}

// NewDtnEndpoint parses an URI with the dtn scheme.
func NewDtnEndpoint(uri string) (EndpointType, error) {
	if !strings.HasPrefix(uri, dtnEndpointSchemeName+":") {
		return nil, newEndpointIDError(ErrSchemeMismatch, "%q is not a dtn URI", uri)
	}
	ssp := uri[len(dtnEndpointSchemeName)+1:]

	if ssp == dtnEndpointDtnNoneSsp {
		return DtnEndpoint{Ssp: dtnEndpointDtnNoneSsp}, nil
	}

	if !strings.HasPrefix(ssp, "//") {
		return nil, newEndpointIDError(ErrInvalidUrlFormat, "dtn SSP %q must start with //", ssp)
	}

	rest := ssp[2:]
	node, _, hasSlash := strings.Cut(rest, "/")
	if node == "" {
		return nil, newEndpointIDError(ErrInvalidUrlFormat, "dtn URI %q has no node part", uri)
	}
	if node == dtnEndpointDtnNoneSsp {
		return nil, newEndpointIDError(ErrNoneNotValidHost, "dtn://none is reserved for the null endpoint")
	}

	if !hasSlash {
		rest += "/"
	}

	return DtnEndpoint{Ssp: "//" + rest}, nil
}

// SchemeName is "dtn" for DtnEndpoints.
func (DtnEndpoint) SchemeName() string {
	return dtnEndpointSchemeName
}

// SchemeNo is 1 for DtnEndpoints.
func (DtnEndpoint) SchemeNo() uint64 {
	return dtnEndpointSchemeNo
}

// parseUri splits the SSP into authority and path; dtn:none yields the authority "none" and the
// path "/".
func (e DtnEndpoint) parseUri() (authority, path string) {
	if e.Ssp == dtnEndpointDtnNoneSsp {
		return dtnEndpointDtnNoneSsp, "/"
	}

	u, err := url.Parse(dtnEndpointSchemeName + ":" + e.Ssp)
	if err != nil {
		return
	}

	authority = u.Hostname()
	path = u.RequestURI()
	return
}

// Authority is the authority part of the Endpoint URI, e.g., "foo" for "dtn://foo/bar".
func (e DtnEndpoint) Authority() string {
	authority, _ := e.parseUri()
	return authority
}

// Path is the path part of the Endpoint URI, e.g., "/bar" for "dtn://foo/bar".
func (e DtnEndpoint) Path() string {
	_, path := e.parseUri()
	return path
}

// IsSingleton checks if this Endpoint represents a singleton.
//
// A dtn Endpoint is non-singleton (multicast) if its service path starts with "~". dtn:none is not
// a singleton either.
func (e DtnEndpoint) IsSingleton() bool {
	if e.Ssp == dtnEndpointDtnNoneSsp {
		return false
	}
	return !strings.HasPrefix(e.Path(), "/~")
}

// IsNodeID is true when this Endpoint's SSP has no service part, i.e. it addresses a node.
func (e DtnEndpoint) IsNodeID() bool {
	return e.Path() == "/" || e.Path() == ""
}

// CheckValid returns an error for incorrect data.
func (e DtnEndpoint) CheckValid() error {
	if e.Ssp == dtnEndpointDtnNoneSsp {
		return nil
	}
	if !strings.HasPrefix(e.Ssp, "//") {
		return newEndpointIDError(ErrInvalidUrlFormat, "dtn SSP %q must start with //", e.Ssp)
	}
	if e.Authority() == "" {
		return newEndpointIDError(ErrInvalidUrlFormat, "dtn SSP %q has no authority", e.Ssp)
	}
	return nil
}

func (e DtnEndpoint) String() string {
	return fmt.Sprintf("%s:%s", dtnEndpointSchemeName, e.Ssp)
}

// MarshalCbor writes this DtnEndpoint's CBOR representation: the unsigned integer 0 for dtn:none,
// or a text string for every other SSP.
func (e DtnEndpoint) MarshalCbor(w io.Writer) error {
	if e.Ssp == dtnEndpointDtnNoneSsp {
		return cboring.WriteUInt(0, w)
	}
	return cboring.WriteTextString(e.Ssp, w)
}

// UnmarshalCbor reads a CBOR representation, disambiguating dtn:none (an unsigned integer) from a
// regular SSP (a text string) by its major type.
func (e *DtnEndpoint) UnmarshalCbor(r io.Reader) error {
	m, n, err := cboring.ReadMajors(r)
	if err != nil {
		return err
	}

	switch m {
	case cboring.UInt:
		if n != 0 {
			return newEndpointIDError(ErrNoneNotZero, "dtn:none must encode as 0, got %d", n)
		}
		e.Ssp = dtnEndpointDtnNoneSsp

	case cboring.TextString:
		tmp, err := cboring.ReadRawBytes(n, r)
		if err != nil {
			return err
		}
		e.Ssp = string(tmp)

	default:
		return fmt.Errorf("DtnEndpoint: wrong major type 0x%X for unmarshalling", m)
	}

	return nil
}

// DtnNone returns the null endpoint "dtn:none".
func DtnNone() EndpointID {
	return EndpointID{DtnEndpoint{Ssp: dtnEndpointDtnNoneSsp}}
}
