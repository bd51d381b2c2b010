// SPDX-FileCopyrightText: 2020 Matthias Axel Kröll
// SPDX-FileCopyrightText: 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bpv7

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/dtn7/cboring"
	"github.com/hashicorp/go-multierror"
)

// IDValueTuple is one entry of a security context's parameter or result array, per BPSEC 3.6 —
// an identifier paired with a value whose concrete type depends on the security context.
type IDValueTuple interface {
	ID() uint64
	Value() interface{}
	cboring.CborMarshaler
}

// IDValueTupleByteString is an IDValueTuple whose value is carried as a raw byte string.
type IDValueTupleByteString struct {
	id    uint64
	value []byte
}

func (t *IDValueTupleByteString) MarshalCbor(w io.Writer) error {
	if err := cboring.WriteArrayLength(2, w); err != nil {
		return err
	}
	if err := cboring.WriteUInt(t.id, w); err != nil {
		return err
	}
	return cboring.WriteByteString(t.value, w)
}

func (t *IDValueTupleByteString) UnmarshalCbor(r io.Reader) error {
	arrayLen, err := cboring.ReadArrayLength(r)
	if err != nil {
		return err
	}
	if arrayLen != 2 {
		return fmt.Errorf("id-value tuple: expected array of length 2, got %d", arrayLen)
	}

	id, err := cboring.ReadUInt(r)
	if err != nil {
		return err
	}
	t.id = id

	value, err := cboring.ReadByteString(r)
	if err != nil {
		return err
	}
	t.value = value
	return nil
}

func (t IDValueTupleByteString) ID() uint64 {
	return t.id
}

func (t IDValueTupleByteString) Value() interface{} {
	return t.value
}

// IDValueTupleUInt64 is an IDValueTuple whose value is carried as an unsigned integer.
type IDValueTupleUInt64 struct {
	id    uint64
	value uint64
}

func (t *IDValueTupleUInt64) MarshalCbor(w io.Writer) error {
	if err := cboring.WriteArrayLength(2, w); err != nil {
		return err
	}
	if err := cboring.WriteUInt(t.id, w); err != nil {
		return err
	}
	return cboring.WriteUInt(t.value, w)
}

func (t *IDValueTupleUInt64) UnmarshalCbor(r io.Reader) error {
	arrayLen, err := cboring.ReadArrayLength(r)
	if err != nil {
		return err
	}
	if arrayLen != 2 {
		return fmt.Errorf("id-value tuple: expected array of length 2, got %d", arrayLen)
	}

	id, err := cboring.ReadUInt(r)
	if err != nil {
		return err
	}
	t.id = id

	value, err := cboring.ReadUInt(r)
	if err != nil {
		return err
	}
	t.value = value
	return nil
}

func (t IDValueTupleUInt64) ID() uint64 {
	return t.id
}

func (t IDValueTupleUInt64) Value() interface{} {
	return t.value
}

// TargetSecurityResults is one security target's result array, per BPSEC 3.6: the block number
// it applies to, paired with the security context's result tuples for that block.
type TargetSecurityResults struct {
	securityTarget uint64 // The SecurityTargets BlockNumber.
	results        []IDValueTuple
}

func (tsr *TargetSecurityResults) MarshalCbor(w io.Writer) error {
	if err := cboring.WriteArrayLength(2, w); err != nil {
		return fmt.Errorf("target security results: %v", err)
	}
	if err := cboring.WriteUInt(tsr.securityTarget, w); err != nil {
		return fmt.Errorf("target security results: %v", err)
	}

	if err := cboring.WriteArrayLength(uint64(len(tsr.results)), w); err != nil {
		return fmt.Errorf("target security results: %v", err)
	}
	for _, result := range tsr.results {
		if err := cboring.Marshal(result, w); err != nil {
			return fmt.Errorf("security result: %v", err)
		}
	}

	return nil
}

func (tsr *TargetSecurityResults) UnmarshalCbor(r io.Reader) error {
	arrayLen, err := cboring.ReadArrayLength(r)
	if err != nil {
		return err
	}
	if arrayLen != 2 {
		return fmt.Errorf("target security results: expected array of length 2, got %d", arrayLen)
	}

	target, err := cboring.ReadUInt(r)
	if err != nil {
		return fmt.Errorf("security target: %v", err)
	}
	tsr.securityTarget = target

	resultCount, err := cboring.ReadArrayLength(r)
	if err != nil {
		return fmt.Errorf("target security results: %v", err)
	}
	for i := uint64(0); i < resultCount; i++ {
		result := IDValueTupleByteString{}
		if err := cboring.Unmarshal(&result, r); err != nil {
			return fmt.Errorf("security result: %v", err)
		}
		tsr.results = append(tsr.results, &result)
	}

	return nil
}

// Sorted list of Security Context Flags.
const (
	// SecurityContextParametersPresentFlag is the bit which is set if the AbstractSecurityBlock has SecurityContextParameters.
	SecurityContextParametersPresentFlag = 0b01
)

// AbstractSecurityBlock implements the Abstract Security Block (ASB) data structure described in BPSEC 3.6.
type AbstractSecurityBlock struct {
	SecurityTargets                      []uint64
	SecurityContextID                    uint64
	SecurityContextParametersPresentFlag uint64
	SecuritySource                       EndpointID
	SecurityContextParameters            []IDValueTuple
	SecurityResults                      []TargetSecurityResults
}

// HasSecurityContextParametersPresentContextFlag interpreters the securityContextParametersPresentFlag for the presence of the
// SecurityContextParametersPresentField as required by BPSec 3.6.
func (asb *AbstractSecurityBlock) HasSecurityContextParametersPresentContextFlag() bool {
	return asb.SecurityContextParametersPresentFlag&SecurityContextParametersPresentFlag != 0
}

// MarshalCbor writes this AbstractSecurityBlock's CBOR representation: a 5-element array, or
// 6 when security context parameters are present.
func (asb *AbstractSecurityBlock) MarshalCbor(w io.Writer) error {
	hasParams := asb.HasSecurityContextParametersPresentContextFlag()
	blockLen := uint64(5)
	if hasParams {
		blockLen = 6
	}

	if err := cboring.WriteArrayLength(blockLen, w); err != nil {
		return err
	}

	if err := cboring.WriteArrayLength(uint64(len(asb.SecurityTargets)), w); err != nil {
		return err
	}
	for _, target := range asb.SecurityTargets {
		if err := cboring.WriteUInt(target, w); err != nil {
			return err
		}
	}

	if err := cboring.WriteUInt(asb.SecurityContextID, w); err != nil {
		return err
	}
	if err := cboring.WriteUInt(asb.SecurityContextParametersPresentFlag, w); err != nil {
		return err
	}
	if err := asb.SecuritySource.MarshalCbor(w); err != nil {
		return err
	}

	if hasParams {
		if err := cboring.WriteArrayLength(uint64(len(asb.SecurityContextParameters)), w); err != nil {
			return err
		}
		for _, param := range asb.SecurityContextParameters {
			if err := param.MarshalCbor(w); err != nil {
				return err
			}
		}
	}

	if err := cboring.WriteArrayLength(uint64(len(asb.SecurityResults)), w); err != nil {
		return err
	}
	for _, results := range asb.SecurityResults {
		if err := results.MarshalCbor(w); err != nil {
			return err
		}
	}

	return nil
}

// UnmarshalCbor decodes an AbstractSecurityBlock from its 5- or 6-element CBOR array
// representation, then validates it against the BPSEC 3.6 constraints.
func (asb *AbstractSecurityBlock) UnmarshalCbor(r io.Reader) error {
	blockLen, err := cboring.ReadArrayLength(r)
	if err != nil {
		return err
	}
	if blockLen != 5 && blockLen != 6 {
		return fmt.Errorf("abstract security block: expected array of length 5 or 6, got %d", blockLen)
	}

	targetCount, err := cboring.ReadArrayLength(r)
	if err != nil {
		return err
	}
	for i := uint64(0); i < targetCount; i++ {
		target, err := cboring.ReadUInt(r)
		if err != nil {
			return err
		}
		asb.SecurityTargets = append(asb.SecurityTargets, target)
	}

	contextID, err := cboring.ReadUInt(r)
	if err != nil {
		return err
	}
	asb.SecurityContextID = contextID

	contextFlags, err := cboring.ReadUInt(r)
	if err != nil {
		return err
	}
	asb.SecurityContextParametersPresentFlag = contextFlags

	if err := cboring.Unmarshal(&asb.SecuritySource, r); err != nil {
		return err
	}

	if asb.HasSecurityContextParametersPresentContextFlag() {
		if blockLen != 6 {
			return fmt.Errorf("abstract security block: expected array of length 6, got %d", blockLen)
		}

		r, err = asb.UnmarshalCborSecurityParameters(r)
		if err != nil {
			return fmt.Errorf("security context parameters: %v", err)
		}
	}

	resultSetCount, err := cboring.ReadArrayLength(r)
	if err != nil {
		return fmt.Errorf("security results: %v", err)
	}
	for i := uint64(0); i < resultSetCount; i++ {
		tsr := TargetSecurityResults{}
		if err := cboring.Unmarshal(&tsr, r); err != nil {
			return fmt.Errorf("security results: %v", err)
		}
		asb.SecurityResults = append(asb.SecurityResults, tsr)
	}

	return asb.CheckValid()
}

// duplicateTargets returns the security target block numbers that occur more than once in targets.
func duplicateTargets(targets []uint64) []uint64 {
	seen := make(map[uint64]bool, len(targets))
	var dupes []uint64
	for _, target := range targets {
		if seen[target] {
			dupes = append(dupes, target)
		}
		seen[target] = true
	}
	return dupes
}

// CheckValid enforces the BPSEC 3.6 constraints on a security block's targets, results and
// context parameters.
func (asb *AbstractSecurityBlock) CheckValid() (errs error) {
	if len(asb.SecurityTargets) == 0 {
		errs = multierror.Append(errs, errors.New("security block has no security targets"))
	}

	if dupes := duplicateTargets(asb.SecurityTargets); len(dupes) != 0 {
		errs = multierror.Append(errs, fmt.Errorf(
			"duplicate security target entries for block number(s): %v", dupes))
	}

	switch {
	case len(asb.SecurityResults) != len(asb.SecurityTargets):
		errs = multierror.Append(errs, fmt.Errorf(
			"security block has %d security targets but %d security result sets, cannot check ordering",
			len(asb.SecurityTargets), len(asb.SecurityResults)))

	default:
		for i, result := range asb.SecurityResults {
			if result.securityTarget != asb.SecurityTargets[i] {
				errs = multierror.Append(errs, errors.New(
					"ordering of security targets and their security results does not match"))
				break
			}
		}
	}

	switch hasParams := asb.HasSecurityContextParametersPresentContextFlag(); {
	case hasParams && len(asb.SecurityContextParameters) == 0:
		errs = multierror.Append(errs, errors.New(
			"security context parameters present flag is set, but no security context parameters are present"))

	case !hasParams && len(asb.SecurityContextParameters) != 0:
		errs = multierror.Append(errs, errors.New(
			"security context parameters present flag is unset, but security context parameters are present"))
	}

	if err := asb.SecuritySource.CheckValid(); err != nil {
		errs = multierror.Append(errs, err)
	}

	return errs
}

// UnmarshalCborSecurityParameters reads the security context parameters array. Each tuple's
// value type is generic by the BPSEC spec — either a byte string or an unsigned integer — so
// the concrete IDValueTuple implementation is picked by peeking at the value's CBOR major type
// before the real unmarshal consumes it. It returns a reader continuing where the parameters
// array left off.
func (asb *AbstractSecurityBlock) UnmarshalCborSecurityParameters(r io.Reader) (io.Reader, error) {
	paramCount, err := cboring.ReadArrayLength(r)
	if err != nil {
		return nil, err
	}
	if paramCount > 3 {
		return nil, fmt.Errorf("security context parameters: expected array of length at most 3, got %d", paramCount)
	}

	buffered := bufio.NewReader(r)

	for i := uint64(0); i < paramCount; i++ {
		peeked, _ := buffered.Peek(buffered.Size())
		peekReader := bytes.NewReader(peeked)

		if _, err := cboring.ReadArrayLength(peekReader); err != nil {
			return nil, fmt.Errorf("tuple array length: %v", err)
		}
		if _, err := cboring.ReadUInt(peekReader); err != nil {
			return nil, fmt.Errorf("tuple id: %v", err)
		}

		majorType, _, err := cboring.ReadMajors(peekReader)
		if err != nil {
			return nil, fmt.Errorf("tuple value major type: %v", err)
		}

		var param IDValueTuple
		switch majorType {
		case cboring.ByteString:
			param = &IDValueTupleByteString{}
		case cboring.UInt:
			param = &IDValueTupleUInt64{}
		default:
			return nil, fmt.Errorf("security context parameter: unsupported value major type %d", majorType)
		}

		if err := cboring.Unmarshal(param, buffered); err != nil {
			return nil, fmt.Errorf("security context parameter: %v", err)
		}
		asb.SecurityContextParameters = append(asb.SecurityContextParameters, param)
	}

	rest, _ := io.ReadAll(buffered)
	return bytes.NewReader(rest), nil
}
