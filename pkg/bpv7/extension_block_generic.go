// SPDX-FileCopyrightText: 2019, 2020, 2022 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bpv7

// GenericExtensionBlock stores the raw payload of a canonical block whose type code this library
// does not otherwise recognize, so decoding never has to reject a bundle just for carrying an
// unfamiliar extension.
type GenericExtensionBlock struct {
	raw      []byte
	typeCode uint64
}

// NewGenericExtensionBlock wraps raw bytes under typeCode for a block this library cannot
// otherwise interpret.
func NewGenericExtensionBlock(raw []byte, typeCode uint64) *GenericExtensionBlock {
	return &GenericExtensionBlock{raw: raw, typeCode: typeCode}
}

func (geb *GenericExtensionBlock) MarshalBinary() ([]byte, error) {
	return geb.raw, nil
}

func (geb *GenericExtensionBlock) UnmarshalBinary(data []byte) error {
	geb.raw = data
	return nil
}

// CheckValid always succeeds; an opaque block's contents are outside this library's knowledge.
func (geb *GenericExtensionBlock) CheckValid() error {
	return nil
}

// CheckContextValid always succeeds; no bundle-wide constraint applies to an unrecognized block.
func (geb *GenericExtensionBlock) CheckContextValid(*Bundle) error {
	return nil
}

func (geb *GenericExtensionBlock) BlockTypeCode() uint64 {
	return geb.typeCode
}

func (geb *GenericExtensionBlock) BlockTypeName() string {
	return "N/A"
}
