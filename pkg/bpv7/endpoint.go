// SPDX-FileCopyrightText: 2019, 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bpv7

import (
	"fmt"
	"io"
	"reflect"
	"regexp"
	"sync"

	"github.com/dtn7/cboring"
)

// EndpointType describes a discrete EndpointID, e.g. a dtn or ipn URI.
//
// Because of Go's type system, the MarshalCbor function from the cboring library must be
// implemented as a value receiver in this interface. In addition, the UnmarshalCbor function
// MUST be implemented as a pointer receiver; this is not expressible purely in the interface.
type EndpointType interface {
	// SchemeName must return the static URI scheme type for this endpoint, e.g., "dtn" or "ipn".
	SchemeName() string

	// SchemeNo must return the static URI scheme type number for this endpoint, e.g., 1 for "dtn".
	SchemeNo() uint64

	// Authority is the authority part of the Endpoint URI, e.g., "foo" for "dtn://foo/bar".
	Authority() string

	// Path is the path part of the Endpoint URI, e.g., "/bar" for "dtn://foo/bar".
	Path() string

	// IsSingleton checks if this Endpoint represents a singleton.
	IsSingleton() bool

	// MarshalCbor is the marshalling CBOR function from the cboring library.
	MarshalCbor(io.Writer) error

	Valid
	fmt.Stringer
}

type endpointManager struct {
	typeMap map[uint64]reflect.Type
	newMap  map[string]func(string) (EndpointType, error)
}

var (
	endpointMngr  *endpointManager
	endpointMutex sync.Mutex
)

func getEndpointManager() *endpointManager {
	endpointMutex.Lock()
	defer endpointMutex.Unlock()

	if endpointMngr == nil {
		endpointMngr = &endpointManager{
			typeMap: make(map[uint64]reflect.Type),
			newMap:  make(map[string]func(string) (EndpointType, error)),
		}

		epTypes := []struct {
			schemeNo   uint64
			schemeName string
			impl       interface{}
			newFunc    func(string) (EndpointType, error)
		}{
			{dtnEndpointSchemeNo, dtnEndpointSchemeName, DtnEndpoint{}, NewDtnEndpoint},
			{ipnEndpointSchemeNo, ipnEndpointSchemeName, IpnEndpoint{}, NewIpnEndpoint},
		}

		for _, epType := range epTypes {
			endpointMngr.typeMap[epType.schemeNo] = reflect.TypeOf(epType.impl)
			endpointMngr.newMap[epType.schemeName] = epType.newFunc
		}
	}

	return endpointMngr
}

// EndpointID represents an Endpoint ID as defined in BPv7 section 4.2.5.1.
// Its concrete form is given by an EndpointType, e.g., DtnEndpoint or IpnEndpoint.
type EndpointID struct {
	EndpointType EndpointType
}

var schemeUriRegexp = regexp.MustCompile(`^([[:alnum:]]+):(.*)$`)

// NewEndpointID parses an Endpoint ID from its URI form, e.g., "dtn://seven/" or "ipn:23.42".
func NewEndpointID(uri string) (e EndpointID, err error) {
	matches := schemeUriRegexp.FindStringSubmatch(uri)
	if len(matches) == 0 {
		err = newEndpointIDError(ErrSchemeMissing, "%q has no scheme prefix", uri)
		return
	}

	scheme := matches[1]
	f, ok := getEndpointManager().newMap[scheme]
	if !ok {
		err = newEndpointIDError(ErrUnknownScheme, "unknown scheme %q", scheme)
		return
	}

	et, etErr := f(uri)
	if etErr != nil {
		err = etErr
		return
	}

	e = EndpointID{et}
	return
}

// MustNewEndpointID parses an Endpoint ID like NewEndpointID, but panics on error.
func MustNewEndpointID(uri string) EndpointID {
	ep, err := NewEndpointID(uri)
	if err != nil {
		panic(err)
	}
	return ep
}

// MarshalCbor writes the CBOR representation of this Endpoint ID: a 2-element array of the
// scheme number and the scheme-specific part.
func (eid *EndpointID) MarshalCbor(w io.Writer) error {
	if err := cboring.WriteArrayLength(2, w); err != nil {
		return err
	}

	if err := cboring.WriteUInt(eid.EndpointType.SchemeNo(), w); err != nil {
		return err
	}

	return eid.EndpointType.MarshalCbor(w)
}

// UnmarshalCbor creates this Endpoint ID based on a CBOR representation.
func (eid *EndpointID) UnmarshalCbor(r io.Reader) error {
	if l, err := cboring.ReadArrayLength(r); err != nil {
		return err
	} else if l != 2 {
		return fmt.Errorf("EndpointID expects array of 2 elements, not %d", l)
	}

	var epType reflect.Type
	scheme, err := cboring.ReadUInt(r)
	if err != nil {
		return err
	}
	if ept, ok := getEndpointManager().typeMap[scheme]; !ok {
		return newEndpointIDError(ErrUnknownScheme, "no scheme registered for scheme number %d", scheme)
	} else {
		epType = ept
	}

	tmpEt := reflect.New(epType)
	tmpEtUnmarshalCbor := tmpEt.MethodByName("UnmarshalCbor")
	if errVal := tmpEtUnmarshalCbor.Call([]reflect.Value{reflect.ValueOf(r)})[0].Interface(); errVal != nil {
		return errVal.(error)
	}
	eid.EndpointType = tmpEt.Elem().Interface().(EndpointType)

	return nil
}

// Authority is the authority part of the Endpoint URI, e.g., "foo" for "dtn://foo/bar".
func (eid EndpointID) Authority() string {
	return eid.EndpointType.Authority()
}

// Path is the path part of the Endpoint URI, e.g., "/bar" for "dtn://foo/bar".
func (eid EndpointID) Path() string {
	return eid.EndpointType.Path()
}

// IsSingleton checks if this Endpoint represents a singleton.
func (eid EndpointID) IsSingleton() bool {
	return eid.EndpointType.IsSingleton()
}

// SameNode checks if two Endpoints refer to the same node, based on the scheme and authority part.
// An EndpointID without an EndpointType counts as dtn:none, as in String.
func (eid EndpointID) SameNode(other EndpointID) bool {
	if eid.EndpointType == nil {
		eid = DtnNone()
	}
	if other.EndpointType == nil {
		other = DtnNone()
	}

	return eid.EndpointType.SchemeName() == other.EndpointType.SchemeName() &&
		eid.EndpointType.Authority() == other.EndpointType.Authority()
}

// NewEndpoint returns a sibling EID sharing this EID's node but with a new service part.
func (eid EndpointID) NewEndpoint(service string) (EndpointID, error) {
	switch eid.EndpointType.SchemeName() {
	case dtnEndpointSchemeName:
		return NewEndpointID(fmt.Sprintf("dtn://%s/%s", eid.Authority(), service))
	case ipnEndpointSchemeName:
		return NewEndpointID(fmt.Sprintf("ipn:%s.%s", eid.Authority(), service))
	default:
		return EndpointID{}, newEndpointIDError(ErrUnknownScheme, "cannot derive sibling for scheme %q", eid.EndpointType.SchemeName())
	}
}

// CheckValid returns an error for incorrect data.
func (eid EndpointID) CheckValid() error {
	if eid.EndpointType == nil {
		return newEndpointIDError(ErrSchemeMissing, "EndpointID has no EndpointType")
	}
	return eid.EndpointType.CheckValid()
}

func (eid EndpointID) String() string {
	if eid.EndpointType == nil {
		return DtnNone().String()
	}
	return eid.EndpointType.String()
}
