// SPDX-FileCopyrightText: 2018, 2019, 2020, 2022 Alvar Penning
// SPDX-FileCopyrightText: 2022 Markus Sommer
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bpv7

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/dtn7/cboring"
	"github.com/hashicorp/go-multierror"
)

// Bundle is the unit of data exchanged between DTN nodes, per section 4.2.1: one primary block
// describing the bundle's journey plus a sequence of canonical blocks carrying payload and
// extension data.
type Bundle struct {
	PrimaryBlock    PrimaryBlock
	CanonicalBlocks []CanonicalBlock
}

// NewBundle assembles a Bundle from a primary block and its canonical blocks, sorts the
// canonical blocks into wire order and runs CheckValid against the result.
func NewBundle(primary PrimaryBlock, canonicals []CanonicalBlock) (Bundle, error) {
	b := MustNewBundle(primary, canonicals)
	return b, b.CheckValid()
}

// MustNewBundle assembles a Bundle like NewBundle but never validates it; construction itself
// cannot fail.
func MustNewBundle(primary PrimaryBlock, canonicals []CanonicalBlock) Bundle {
	b := Bundle{PrimaryBlock: primary, CanonicalBlocks: canonicals}
	b.sortBlocks()
	return b
}

// ParseBundle decodes a Bundle from its CBOR wire representation. Decoding only establishes
// structure; call CheckValid separately to enforce the semantic rules of section 4.6.
func ParseBundle(r io.Reader) (b Bundle, err error) {
	err = cboring.Unmarshal(&b, r)
	return
}

// WriteBundle encodes this Bundle to its CBOR wire representation.
func (b *Bundle) WriteBundle(w io.Writer) error {
	return cboring.Marshal(b, w)
}

// forEachBlock applies f to the primary block and every canonical block in turn.
func (b *Bundle) forEachBlock(f func(block)) {
	f(&b.PrimaryBlock)
	for i := range b.CanonicalBlocks {
		f(&b.CanonicalBlocks[i])
	}
}

// ExtensionBlocks returns every canonical block matching blockType, or an error if none exist.
func (b *Bundle) ExtensionBlocks(blockType uint64) ([]*CanonicalBlock, error) {
	var found []*CanonicalBlock
	for i := range b.CanonicalBlocks {
		if cb := &b.CanonicalBlocks[i]; cb.TypeCode() == blockType {
			found = append(found, cb)
		}
	}

	if len(found) == 0 {
		return nil, fmt.Errorf("no canonical block with block type %d exists in this bundle", blockType)
	}
	return found, nil
}

// ExtensionBlock returns the single canonical block of blockType. It errors if there is none, or
// more than one, such block.
func (b *Bundle) ExtensionBlock(blockType uint64) (*CanonicalBlock, error) {
	cbs, err := b.ExtensionBlocks(blockType)
	switch {
	case err != nil:
		return nil, err
	case len(cbs) != 1:
		return nil, fmt.Errorf("%d canonical blocks of type %d exist, expected exactly one", len(cbs), blockType)
	default:
		return cbs[0], nil
	}
}

// HasExtensionBlock reports whether a canonical block of blockType is present.
func (b *Bundle) HasExtensionBlock(blockType uint64) bool {
	_, err := b.ExtensionBlocks(blockType)
	return err == nil
}

// PayloadBlock returns this bundle's payload block, or an error if it is missing.
func (b *Bundle) PayloadBlock() (*CanonicalBlock, error) {
	return b.ExtensionBlock(ExtBlockTypePayloadBlock)
}

// sortBlocks restores canonical order after the block set changed, see blockNumberDescending.
func (b *Bundle) sortBlocks() {
	sort.Sort(blockNumberDescending(b.CanonicalBlocks))
}

// nextFreeBlockNumber returns the lowest block number starting at floor that is not already
// taken by one of existing.
func nextFreeBlockNumber(existing []CanonicalBlock, floor uint64) uint64 {
	taken := make(map[uint64]bool, len(existing))
	for _, cb := range existing {
		taken[cb.BlockNumber] = true
	}

	for n := floor; ; n++ {
		if !taken[n] {
			return n
		}
	}
}

// AddExtensionBlock appends block to this bundle, assigning it a fresh block number and
// restoring canonical order. The payload block always claims number one; every other block
// numbers from two upward.
func (b *Bundle) AddExtensionBlock(block CanonicalBlock) error {
	floor := uint64(2)
	if block.Value.BlockTypeCode() == ExtBlockTypePayloadBlock {
		floor = 1
	}

	block.BlockNumber = nextFreeBlockNumber(b.CanonicalBlocks, floor)
	b.CanonicalBlocks = append(b.CanonicalBlocks, block)
	b.sortBlocks()
	return nil
}

// GetExtensionBlockByBlockNumber returns the canonical block carrying blockNumber. Blocks are
// assumed to already be in canonical order, so no sorting happens here.
func (b *Bundle) GetExtensionBlockByBlockNumber(blockNumber uint64) (*CanonicalBlock, error) {
	for i := range b.CanonicalBlocks {
		if b.CanonicalBlocks[i].BlockNumber == blockNumber {
			return &b.CanonicalBlocks[i], nil
		}
	}
	return nil, fmt.Errorf("block with number %d not found", blockNumber)
}

// RemoveExtensionBlockByBlockNumber deletes the canonical block carrying blockNumber, if any.
func (b *Bundle) RemoveExtensionBlockByBlockNumber(blockNumber uint64) {
	for i := range b.CanonicalBlocks {
		if b.CanonicalBlocks[i].BlockNumber == blockNumber {
			b.CanonicalBlocks = append(b.CanonicalBlocks[:i], b.CanonicalBlocks[i+1:]...)
			return
		}
	}
}

// SetCRCType sets crcType on every block of this bundle. Call CalculateCRC afterwards to fill in
// the checksum values themselves.
func (b *Bundle) SetCRCType(crcType CRCType) {
	b.forEachBlock(func(blck block) {
		blck.SetCRCType(crcType)
	})
}

// ID derives this bundle's identity tuple from its primary block.
func (b Bundle) ID() BundleID {
	return BundleID{
		SourceNode: b.PrimaryBlock.SourceNode,
		Timestamp:  b.PrimaryBlock.CreationTimestamp,

		IsFragment:      b.PrimaryBlock.BundleControlFlags.Has(IsFragment),
		FragmentOffset:  b.PrimaryBlock.FragmentOffset,
		TotalDataLength: b.PrimaryBlock.TotalDataLength,
	}
}

func (b Bundle) String() string {
	return b.ID().String()
}

// IsLifetimeExceeded reports whether this bundle has outlived its PrimaryBlock.Lifetime. A zero
// creation timestamp means the source lacks an accurate clock; per section 4.1.7 that case can
// never be judged expired on timestamp alone, so it reports false.
func (b Bundle) IsLifetimeExceeded() bool {
	if b.PrimaryBlock.CreationTimestamp.IsZeroTime() {
		return false
	}

	expiry := b.PrimaryBlock.CreationTimestamp.DtnTime().Time().
		Add(time.Duration(b.PrimaryBlock.Lifetime) * time.Millisecond)
	return time.Now().After(expiry)
}

// UpdateExtensions applies the per-hop bookkeeping a forwarder owes a bundle before handing it to
// the next node: the hop count block is incremented, the previous node block is rewritten to
// localNode (adding one if none existed yet), and the bundle age block advances by
// residenceTime. It reports whether the bundle remains fit for onward transmission, i.e. neither
// its hop limit nor its lifetime has been exceeded.
func (b *Bundle) UpdateExtensions(localNode EndpointID, residenceTime time.Duration) bool {
	hopLimitExceeded := false
	if hcBlock, err := b.ExtensionBlock(ExtBlockTypeHopCountBlock); err == nil {
		hopLimitExceeded = hcBlock.Value.(*HopCountBlock).Increment()
	}

	if pnBlock, err := b.ExtensionBlock(ExtBlockTypePreviousNodeBlock); err == nil {
		*pnBlock.Value.(*PreviousNodeBlock) = PreviousNodeBlock(localNode)
	} else {
		_ = b.AddExtensionBlock(NewCanonicalBlock(0, 0, NewPreviousNodeBlock(localNode)))
	}

	if baBlock, err := b.ExtensionBlock(ExtBlockTypeBundleAgeBlock); err == nil {
		age := baBlock.Value.(*BundleAgeBlock).Increment(uint64(residenceTime.Milliseconds()))
		if age > b.PrimaryBlock.Lifetime {
			return false
		}
	}

	return !hopLimitExceeded && !b.IsLifetimeExceeded()
}

// CheckValid validates this bundle against the rules of section 4.6, aggregating every violation
// found into a single error instead of stopping at the first one.
func (b Bundle) CheckValid() (errs error) {
	b.forEachBlock(func(blck block) {
		if err := blck.CheckValid(); err != nil {
			errs = multierror.Append(errs, err)
		}
	})

	if len(b.CanonicalBlocks) == 0 {
		return multierror.Append(errs, fmt.Errorf("bundle carries no canonical blocks"))
	}

	if b.PrimaryBlock.BundleControlFlags.Has(AdministrativeRecordPayload) || b.PrimaryBlock.SourceNode == DtnNone() {
		for _, cb := range b.CanonicalBlocks {
			if cb.BlockControlFlags.Has(StatusReportBlock) {
				errs = multierror.Append(errs, fmt.Errorf(
					"bundle has an administrative record payload or no source node, but a "+
						"canonical block still requests a status report on processing failure"))
			}
		}
	}

	seenNumbers := make(map[uint64]bool, len(b.CanonicalBlocks))
	for _, cb := range b.CanonicalBlocks {
		if seenNumbers[cb.BlockNumber] {
			errs = multierror.Append(errs, fmt.Errorf("block number %d occurs more than once", cb.BlockNumber))
		}
		seenNumbers[cb.BlockNumber] = true

		if err := cb.Value.CheckContextValid(&b); err != nil {
			errs = multierror.Append(errs, err)
		}
	}

	if last := b.CanonicalBlocks[len(b.CanonicalBlocks)-1]; last.Value.BlockTypeCode() != ExtBlockTypePayloadBlock {
		errs = multierror.Append(errs,
			fmt.Errorf("last canonical block is a type %d block, not the payload block", last.Value.BlockTypeCode()))
	}

	if b.PrimaryBlock.CreationTimestamp.IsZeroTime() && !b.HasExtensionBlock(ExtBlockTypeBundleAgeBlock) {
		errs = multierror.Append(errs, fmt.Errorf("creation timestamp is zero, but no bundle age block is present"))
	}

	return errs
}

// IsAdministrativeRecord reports whether this bundle's control flags mark its payload as an
// administrative record.
func (b Bundle) IsAdministrativeRecord() bool {
	return b.PrimaryBlock.BundleControlFlags.Has(AdministrativeRecordPayload)
}

// AdministrativeRecord decodes and returns the administrative record carried as this bundle's
// payload. It errors if the bundle is not flagged as one, see IsAdministrativeRecord.
func (b Bundle) AdministrativeRecord() (AdministrativeRecord, error) {
	if !b.IsAdministrativeRecord() {
		return nil, fmt.Errorf("bundle is not an administrative record")
	}

	payload, err := b.PayloadBlock()
	if err != nil {
		return nil, err
	}

	buff := bytes.NewBuffer(payload.Value.(*PayloadBlock).Data())
	return GetAdministrativeRecordManager().ReadAdministrativeRecord(buff)
}

// MarshalCbor writes this bundle as an indefinite-length CBOR array: the primary block followed
// by its canonical blocks, per section 4.2.
func (b *Bundle) MarshalCbor(w io.Writer) error {
	if _, err := w.Write([]byte{cboring.IndefiniteArray}); err != nil {
		return err
	}

	if err := cboring.Marshal(&b.PrimaryBlock, w); err != nil {
		return fmt.Errorf("primary block: %v", err)
	}

	for i := range b.CanonicalBlocks {
		if err := cboring.Marshal(&b.CanonicalBlocks[i], w); err != nil {
			return fmt.Errorf("canonical block: %v", err)
		}
	}

	_, err := w.Write([]byte{cboring.BreakCode})
	return err
}

// UnmarshalCbor decodes a bundle from its indefinite-length CBOR array representation. This is a
// purely structural decode; it does not enforce the semantic rules CheckValid covers, so a
// structurally sound but semantically invalid bundle still decodes successfully. Callers that
// need a fully validated bundle must call CheckValid themselves.
func (b *Bundle) UnmarshalCbor(r io.Reader) error {
	if err := cboring.ReadExpect(cboring.IndefiniteArray, r); err != nil {
		return err
	}

	if err := cboring.Unmarshal(&b.PrimaryBlock, r); err != nil {
		return fmt.Errorf("primary block: %v", err)
	}

	for {
		cb := CanonicalBlock{}
		switch err := cboring.Unmarshal(&cb, r); err {
		case cboring.FlagBreakCode:
			return nil
		case nil:
			b.CanonicalBlocks = append(b.CanonicalBlocks, cb)
		default:
			return fmt.Errorf("canonical block: %v", err)
		}
	}
}

// MarshalJSON renders this bundle as a JSON object with primaryBlock and canonicalBlocks fields.
func (b Bundle) MarshalJSON() ([]byte, error) {
	canonicals := make([]json.Marshaler, len(b.CanonicalBlocks))
	for i := range b.CanonicalBlocks {
		canonicals[i] = b.CanonicalBlocks[i]
	}

	return json.Marshal(&struct {
		PrimaryBlock    json.Marshaler   `json:"primaryBlock"`
		CanonicalBlocks []json.Marshaler `json:"canonicalBlocks"`
	}{
		PrimaryBlock:    b.PrimaryBlock,
		CanonicalBlocks: canonicals,
	})
}
