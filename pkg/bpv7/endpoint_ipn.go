// SPDX-FileCopyrightText: 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bpv7

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dtn7/cboring"
)

const (
	ipnEndpointSchemeName string = "ipn"
	ipnEndpointSchemeNo   uint64 = 2
)

// IpnEndpoint describes the ipn URI scheme for EndpointIDs, as defined in RFC 6260.
//
// Node must be >= 1. Service may be 0, in which case the Endpoint addresses the node itself
// rather than a service running on it.
type IpnEndpoint struct {
	Node    uint64
	Service uint64
}

// NewIpnEndpoint parses an URI with the ipn scheme, "ipn:<node>.<service>".
func NewIpnEndpoint(uri string) (EndpointType, error) {
	if !strings.HasPrefix(uri, ipnEndpointSchemeName+":") {
		return nil, newEndpointIDError(ErrSchemeMismatch, "%q is not an ipn URI", uri)
	}
	ssp := uri[len(ipnEndpointSchemeName)+1:]

	fields := strings.Split(ssp, ".")
	if len(fields) != 2 {
		return nil, newEndpointIDError(ErrWrongNumberOfFieldsIpn, "ipn SSP %q must be node.service", ssp)
	}

	node, err := strconv.ParseUint(fields[0], 10, 64)
	if err != nil {
		return nil, newEndpointIDError(ErrCouldNotParseNumber, "ipn node %q: %v", fields[0], err)
	}
	service, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return nil, newEndpointIDError(ErrCouldNotParseNumber, "ipn service %q: %v", fields[1], err)
	}

	e := IpnEndpoint{Node: node, Service: service}
	if err := e.CheckValid(); err != nil {
		return nil, err
	}

	return e, nil
}

// SchemeName is "ipn" for IpnEndpoints.
func (e IpnEndpoint) SchemeName() string {
	return ipnEndpointSchemeName
}

// SchemeNo is 2 for IpnEndpoints.
func (e IpnEndpoint) SchemeNo() uint64 {
	return ipnEndpointSchemeNo
}

// Authority is the authority part of the Endpoint URI, e.g., "23" for "ipn:23.42".
func (e IpnEndpoint) Authority() string {
	return fmt.Sprintf("%d", e.Node)
}

// Path is the path part of the Endpoint URI, e.g., "42" for "ipn:23.42".
func (e IpnEndpoint) Path() string {
	return fmt.Sprintf("%d", e.Service)
}

// IsSingleton checks if this Endpoint represents a singleton.
//
// All ipn Endpoints are singletons by definition.
func (IpnEndpoint) IsSingleton() bool {
	return true
}

// IsNodeID is true when the service number addresses the node itself, not a service on it.
func (e IpnEndpoint) IsNodeID() bool {
	return e.Service == 0
}

// CheckValid returns an error for incorrect data.
func (e IpnEndpoint) CheckValid() error {
	if e.Node < 1 {
		return newEndpointIDError(ErrInvalidNodeNumber, "ipn node number must be >= 1, got %d", e.Node)
	}
	return nil
}

func (e IpnEndpoint) String() string {
	return fmt.Sprintf("%s:%d.%d", ipnEndpointSchemeName, e.Node, e.Service)
}

// MarshalCbor writes this IpnEndpoint's CBOR representation: the 2-element array [node, service].
func (e IpnEndpoint) MarshalCbor(w io.Writer) error {
	if err := cboring.WriteArrayLength(2, w); err != nil {
		return err
	}

	for _, n := range []uint64{e.Node, e.Service} {
		if err := cboring.WriteUInt(n, w); err != nil {
			return err
		}
	}

	return nil
}

// UnmarshalCbor reads a CBOR representation for an IpnEndpoint.
func (e *IpnEndpoint) UnmarshalCbor(r io.Reader) error {
	if n, err := cboring.ReadArrayLength(r); err != nil {
		return err
	} else if n != 2 {
		return newEndpointIDError(ErrWrongNumberOfFieldsIpn, "ipn array expects 2 elements, got %d", n)
	}

	for _, n := range []*uint64{&e.Node, &e.Service} {
		if i, err := cboring.ReadUInt(r); err != nil {
			return err
		} else {
			*n = i
		}
	}

	return nil
}
