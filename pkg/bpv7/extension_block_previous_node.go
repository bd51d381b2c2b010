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

// PreviousNodeBlock names the last node to forward this bundle, per section 4.4.1. Bundle.
// UpdateExtensions rewrites it to the local node identity on every hop.
type PreviousNodeBlock EndpointID

func (pnb *PreviousNodeBlock) BlockTypeCode() uint64 {
	return ExtBlockTypePreviousNodeBlock
}

func (pnb *PreviousNodeBlock) BlockTypeName() string {
	return "Previous Node Block"
}

// NewPreviousNodeBlock records prev as the bundle's previous hop.
func NewPreviousNodeBlock(prev EndpointID) *PreviousNodeBlock {
	pnb := PreviousNodeBlock(prev)
	return &pnb
}

// Endpoint returns the recorded previous hop's endpoint ID.
func (pnb *PreviousNodeBlock) Endpoint() EndpointID {
	return EndpointID(*pnb)
}

func (pnb *PreviousNodeBlock) MarshalCbor(w io.Writer) error {
	endpoint := EndpointID(*pnb)
	return cboring.Marshal(&endpoint, w)
}

func (pnb *PreviousNodeBlock) UnmarshalCbor(r io.Reader) error {
	var endpoint EndpointID
	if err := cboring.Unmarshal(&endpoint, r); err != nil {
		return err
	}
	*pnb = PreviousNodeBlock(endpoint)
	return nil
}

func (pnb *PreviousNodeBlock) MarshalJSON() ([]byte, error) {
	return json.Marshal(pnb.Endpoint())
}

func (pnb *PreviousNodeBlock) CheckValid() error {
	return EndpointID(*pnb).CheckValid()
}

// CheckContextValid enforces the at-most-one-per-bundle rule for previous node blocks.
func (pnb *PreviousNodeBlock) CheckContextValid(b *Bundle) error {
	cb, err := b.ExtensionBlock(ExtBlockTypePreviousNodeBlock)
	if err != nil {
		return err
	}
	if cb.Value != pnb {
		return fmt.Errorf("previous node block: multiple instances present in bundle")
	}
	return nil
}
