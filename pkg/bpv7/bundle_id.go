// SPDX-FileCopyrightText: 2019, 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bpv7

import (
	"fmt"
	"io"
	"strings"

	"github.com/dtn7/cboring"
)

// BundleID identifies a bundle by its source node and creation timestamp; a fragment additionally
// carries its offset and the fragmented bundle's total length, per section 5.9's fragment
// identity rules.
//
// cboring (de)serializes a BundleID as a flat sequence of two or four values. Decoding needs
// IsFragment set beforehand so it knows which shape to expect.
type BundleID struct {
	SourceNode EndpointID
	Timestamp  CreationTimestamp

	IsFragment      bool
	FragmentOffset  uint64
	TotalDataLength uint64
}

func (bid BundleID) String() string {
	var s strings.Builder
	fmt.Fprintf(&s, "%v-%d-%d", bid.SourceNode, bid.Timestamp[0], bid.Timestamp[1])
	if bid.IsFragment {
		fmt.Fprintf(&s, "-%d-%d", bid.FragmentOffset, bid.TotalDataLength)
	}
	return s.String()
}

// Len reports the number of CBOR fields this BundleID serializes to: two for a whole bundle,
// four for a fragment.
func (bid BundleID) Len() uint64 {
	if bid.IsFragment {
		return 4
	}
	return 2
}

// Scrub strips the fragmentation fields, returning the identity of the bundle this fragment
// belongs to.
func (bid BundleID) Scrub() BundleID {
	return BundleID{SourceNode: bid.SourceNode, Timestamp: bid.Timestamp}
}

func (bid *BundleID) MarshalCbor(w io.Writer) error {
	if err := cboring.Marshal(&bid.SourceNode, w); err != nil {
		return fmt.Errorf("source node: %v", err)
	}
	if err := cboring.Marshal(&bid.Timestamp, w); err != nil {
		return fmt.Errorf("timestamp: %v", err)
	}

	if !bid.IsFragment {
		return nil
	}
	for _, fld := range [...]uint64{bid.FragmentOffset, bid.TotalDataLength} {
		if err := cboring.WriteUInt(fld, w); err != nil {
			return err
		}
	}
	return nil
}

// UnmarshalCbor decodes a BundleID; IsFragment must already be set to select the two- or
// four-field wire shape.
func (bid *BundleID) UnmarshalCbor(r io.Reader) error {
	if err := cboring.Unmarshal(&bid.SourceNode, r); err != nil {
		return fmt.Errorf("source node: %v", err)
	}
	if err := cboring.Unmarshal(&bid.Timestamp, r); err != nil {
		return fmt.Errorf("timestamp: %v", err)
	}

	if !bid.IsFragment {
		return nil
	}
	for _, fld := range [...]*uint64{&bid.FragmentOffset, &bid.TotalDataLength} {
		n, err := cboring.ReadUInt(r)
		if err != nil {
			return err
		}
		*fld = n
	}
	return nil
}
