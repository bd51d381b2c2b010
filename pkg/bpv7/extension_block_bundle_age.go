// SPDX-FileCopyrightText: 2019, 2020, 2022 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bpv7

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dtn7/cboring"
)

// BundleAgeBlock tracks, in milliseconds, how long a bundle has existed since creation. Per
// section 4.4.2 it stands in for the creation timestamp when a node lacks an accurate clock, and
// must be updated at every hop by the time spent at that node.
type BundleAgeBlock uint64

func (bab *BundleAgeBlock) BlockTypeCode() uint64 {
	return ExtBlockTypeBundleAgeBlock
}

func (bab *BundleAgeBlock) BlockTypeName() string {
	return "Bundle Age Block"
}

// NewBundleAgeBlock starts a bundle's age at ms milliseconds.
func NewBundleAgeBlock(ms uint64) *BundleAgeBlock {
	bab := BundleAgeBlock(ms)
	return &bab
}

// Age reports the current age in milliseconds.
func (bab *BundleAgeBlock) Age() uint64 {
	return uint64(*bab)
}

// Increment adds offset milliseconds of residence time and returns the new age.
func (bab *BundleAgeBlock) Increment(offset uint64) uint64 {
	*bab += BundleAgeBlock(offset)
	return bab.Age()
}

func (bab *BundleAgeBlock) MarshalCbor(w io.Writer) error {
	return cboring.WriteUInt(uint64(*bab), w)
}

func (bab *BundleAgeBlock) UnmarshalCbor(r io.Reader) error {
	us, err := cboring.ReadUInt(r)
	if err != nil {
		return err
	}
	*bab = BundleAgeBlock(us)
	return nil
}

func (bab *BundleAgeBlock) MarshalJSON() ([]byte, error) {
	return json.Marshal(fmt.Sprintf("%d ms", bab.Age()))
}

func (bab *BundleAgeBlock) CheckValid() error {
	return nil
}

// CheckContextValid enforces the at-most-one-per-bundle rule for bundle age blocks.
func (bab *BundleAgeBlock) CheckContextValid(b *Bundle) error {
	cb, err := b.ExtensionBlock(ExtBlockTypeBundleAgeBlock)
	if err != nil {
		return err
	}
	if cb.Value != bab {
		return fmt.Errorf("bundle age block: multiple instances present in bundle")
	}
	return nil
}
