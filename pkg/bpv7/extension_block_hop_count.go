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

// HopCountBlock tracks how many times a bundle has been forwarded, per section 4.4.3. A
// forwarder increments Count on each hop; once Count exceeds Limit the bundle should be
// discarded rather than forwarded again.
type HopCountBlock struct {
	Limit uint8
	Count uint8
}

func (hcb *HopCountBlock) BlockTypeCode() uint64 {
	return ExtBlockTypeHopCountBlock
}

func (hcb *HopCountBlock) BlockTypeName() string {
	return "Hop Count Block"
}

// NewHopCountBlock starts a fresh hop count at zero, capped at limit hops.
func NewHopCountBlock(limit uint8) *HopCountBlock {
	return &HopCountBlock{Limit: limit, Count: 0}
}

// IsExceeded reports whether the hop count has passed its limit.
func (hcb HopCountBlock) IsExceeded() bool {
	return hcb.Count > hcb.Limit
}

// Increment records one more hop and reports whether the limit is now exceeded.
func (hcb *HopCountBlock) Increment() bool {
	hcb.Count++
	return hcb.IsExceeded()
}

// Decrement undoes one hop, e.g. after a failed forwarding attempt.
func (hcb *HopCountBlock) Decrement() {
	hcb.Count--
}

func (hcb *HopCountBlock) MarshalCbor(w io.Writer) error {
	if err := cboring.WriteArrayLength(2, w); err != nil {
		return err
	}
	for _, f := range [...]uint8{hcb.Limit, hcb.Count} {
		if err := cboring.WriteUInt(uint64(f), w); err != nil {
			return err
		}
	}
	return nil
}

func (hcb *HopCountBlock) UnmarshalCbor(r io.Reader) error {
	l, err := cboring.ReadArrayLength(r)
	if err != nil {
		return err
	} else if l != 2 {
		return fmt.Errorf("hop count block: expected array of length 2, got %d", l)
	}

	for _, f := range [...]*uint8{&hcb.Limit, &hcb.Count} {
		x, err := cboring.ReadUInt(r)
		if err != nil {
			return err
		} else if x > 255 {
			return fmt.Errorf("hop count block: field value %d does not fit in a byte", x)
		}
		*f = uint8(x)
	}
	return nil
}

func (hcb *HopCountBlock) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Limit uint8 `json:"limit"`
		Count uint8 `json:"count"`
	}{hcb.Limit, hcb.Count})
}

func (hcb *HopCountBlock) CheckValid() error {
	if hcb.IsExceeded() {
		return fmt.Errorf("hop count block: limit of %d exceeded by count %d", hcb.Limit, hcb.Count)
	}
	return nil
}

// CheckContextValid enforces the at-most-one-per-bundle rule for hop count blocks.
func (hcb *HopCountBlock) CheckContextValid(b *Bundle) error {
	cb, err := b.ExtensionBlock(ExtBlockTypeHopCountBlock)
	if err != nil {
		return err
	}
	if cb.Value != hcb {
		return fmt.Errorf("hop count block: multiple instances present in bundle")
	}
	return nil
}
