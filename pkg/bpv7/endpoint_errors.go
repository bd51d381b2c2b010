// SPDX-FileCopyrightText: 2019, 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bpv7

import "fmt"

// EndpointIDError describes a class of syntax or semantic violations found while parsing or
// validating an EndpointID. The Kind field lets callers switch on the failure without string
// matching, while Error() still renders a human-readable message.
type EndpointIDError struct {
	Kind    string
	Message string
}

func (e *EndpointIDError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func newEndpointIDError(kind, format string, args ...interface{}) error {
	return &EndpointIDError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Endpoint ID error kinds, matching the exact taxonomy required of any EndpointID parser.
const (
	ErrSchemeMissing          = "SchemeMissing"
	ErrSchemeMismatch         = "SchemeMismatch"
	ErrUnknownScheme          = "UnknownScheme"
	ErrInvalidNodeNumber      = "InvalidNodeNumber"
	ErrWrongNumberOfFieldsIpn = "WrongNumberOfFieldsInIpn"
	ErrInvalidService         = "InvalidService"
	ErrNoneHasNoService       = "NoneHasNoService"
	ErrNoneNotZero            = "NoneNotZero"
	ErrInvalidUrlFormat       = "InvalidUrlFormat"
	ErrNoneNotValidHost       = "NoneNotValidHost"
	ErrCouldNotParseNumber    = "CouldNotParseNumber"
)
