// SPDX-FileCopyrightText: 2019, 2020, 2021 Alvar Penning
// SPDX-FileCopyrightText: 2022 Markus Sommer
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bpv7

import (
	"bytes"
	"fmt"
	"math"
	"sort"

	"github.com/dtn7/cboring"
)

// Fragment splits a Bundle into a sequence of smaller bundles, per section 5.9, each of whose
// serialized form fits within mtu bytes. If the bundle already fits, Fragment returns it
// unchanged as the single element of the result.
func (b Bundle) Fragment(mtu int) (bs []Bundle, err error) {
	if b.PrimaryBlock.BundleControlFlags.Has(MustNotFragmented) {
		return nil, fmt.Errorf("bundle control flags forbid fragmentation")
	}

	const indefiniteArrayOverhead = 2

	payloadBlock, err := b.PayloadBlock()
	if err != nil {
		return nil, err
	}
	payloadBlockLen := len(payloadBlock.Value.(*PayloadBlock).Data())

	extFirstOverhead, extOtherOverhead, err := estimateExtensionOverhead(b, mtu)
	if err != nil {
		return nil, err
	}

	for i := 0; i < payloadBlockLen; {
		var (
			fragPrimaryBlock PrimaryBlock
			primaryOverhead  int
		)

		if fragPrimaryBlock, primaryOverhead, err = buildFragmentPrimaryBlock(b.PrimaryBlock, i, payloadBlockLen); err != nil {
			return
		}

		overhead := indefiniteArrayOverhead + primaryOverhead
		if i == 0 {
			overhead += extFirstOverhead
		} else {
			overhead += extOtherOverhead
		}

		if overhead >= mtu {
			err = fmt.Errorf("bundle overhead of fragment %d exceeds MTU", i)
			return
		}

		fragBundle := MustNewBundle(fragPrimaryBlock, nil)

		for _, cb := range b.CanonicalBlocks {
			if cb.TypeCode() == ExtBlockTypePayloadBlock {
				continue
			}
			if i > 0 && !cb.BlockControlFlags.Has(ReplicateBlock) {
				continue
			}

			if err = fragBundle.AddExtensionBlock(cb); err != nil {
				return
			}
		}

		fragPayloadBlockLen := mtu - overhead

		offset := int(math.Min(float64(i+fragPayloadBlockLen), float64(len(payloadBlock.Value.(*PayloadBlock).Data()))))
		if err = fragBundle.AddExtensionBlock(CanonicalBlock{
			BlockControlFlags: payloadBlock.BlockControlFlags,
			CRCType:           payloadBlock.CRCType,
			Value:             NewPayloadBlock(payloadBlock.Value.(*PayloadBlock).Data()[i:offset]),
		}); err != nil {
			return
		}

		if err = fragBundle.CheckValid(); err != nil {
			return
		}
		bs = append(bs, fragBundle)

		i += fragPayloadBlockLen
	}

	if len(bs) == 1 {
		bs = []Bundle{b}
	}

	return
}

// buildFragmentPrimaryBlock creates a fragment's Primary Block and calculates its length.
func buildFragmentPrimaryBlock(pb PrimaryBlock, fragmentOffset, totalDataLength int) (fragPb PrimaryBlock, l int, err error) {
	fragPb = PrimaryBlock{
		Version:            pb.Version,
		BundleControlFlags: pb.BundleControlFlags | IsFragment,
		CRCType:            pb.CRCType,
		Destination:        pb.Destination,
		SourceNode:         pb.SourceNode,
		ReportTo:           pb.ReportTo,
		CreationTimestamp:  pb.CreationTimestamp,
		Lifetime:           pb.Lifetime,
		FragmentOffset:     uint64(fragmentOffset),
		TotalDataLength:    uint64(totalDataLength),
	}

	buff := new(bytes.Buffer)

	err = fragPb.MarshalCbor(buff)
	l = buff.Len()
	return
}

// estimateExtensionOverhead calculates the estimated maximum length for the Extension Blocks for the
// first and the other fragments.
func estimateExtensionOverhead(b Bundle, mtu int) (first int, others int, err error) {
	buff := new(bytes.Buffer)

	for _, cb := range b.CanonicalBlocks {
		if cb.TypeCode() == ExtBlockTypePayloadBlock {
			cb = CanonicalBlock{
				BlockNumber:       cb.BlockNumber,
				BlockControlFlags: cb.BlockControlFlags,
				Value:             NewPayloadBlock(nil),
			}
		}

		cb.CRCType = CRC32

		if err = cb.MarshalCbor(buff); err != nil {
			return
		}

		cbLen := buff.Len()
		first += cbLen
		if cb.BlockControlFlags.Has(ReplicateBlock) {
			others += cbLen
		}

		if cb.TypeCode() == ExtBlockTypePayloadBlock {
			// Update the byte string length field
			buff.Reset()
			if err = cboring.WriteByteStringLen(uint64(mtu), buff); err != nil {
				return
			}
			first += buff.Len() - 1
			others += cbLen + buff.Len() - 1
		}

		buff.Reset()
	}

	return
}

// prepareReassembly sorts the slice of Bundle fragments and checks if their are any gaps left.
func prepareReassembly(bs []Bundle) error {
	if len(bs) == 0 {
		return fmt.Errorf("slice of fragments is empty")
	}

	sort.Slice(bs, func(i, j int) bool {
		return bs[i].PrimaryBlock.FragmentOffset < bs[j].PrimaryBlock.FragmentOffset
	})

	lastIndex := uint64(0)
	for _, b := range bs {
		if !b.PrimaryBlock.BundleControlFlags.Has(IsFragment) {
			return fmt.Errorf("bundle is not a fragment")
		}

		if fragOff := b.PrimaryBlock.FragmentOffset; fragOff > lastIndex {
			return fmt.Errorf("next fragment starts at offset %d, gap from %d to %d", fragOff, lastIndex, fragOff)
		} else if payloadBlock, err := b.PayloadBlock(); err != nil {
			return err
		} else {
			lastIndex = fragOff + uint64(len(payloadBlock.Value.(*PayloadBlock).Data()))
		}
	}

	if total := bs[0].PrimaryBlock.TotalDataLength; total != lastIndex {
		return fmt.Errorf("last index is %d and does not match total length of %d", lastIndex, total)
	}

	return nil
}

// IsBundleReassemblable checks if a Bundle can be reassembled from the given fragments. This method might sort the
// given array as a side effect.
func IsBundleReassemblable(bs []Bundle) bool {
	return prepareReassembly(bs) == nil
}

// mergeFragmentPayload merges the fragmented payload.
func mergeFragmentPayload(bs []Bundle) (data []byte, err error) {
	lastIndex := 0
	for _, b := range bs {
		var (
			fragStartIndex   int
			fragPayloadBlock *CanonicalBlock
			fragPayloadData  []byte
		)

		fragStartIndex = int(b.PrimaryBlock.FragmentOffset)

		if fragPayloadBlock, err = b.PayloadBlock(); err != nil {
			return
		}
		fragPayloadData = fragPayloadBlock.Value.(*PayloadBlock).Data()

		data = append(data, fragPayloadData[lastIndex-fragStartIndex:]...)
		lastIndex = fragStartIndex + len(fragPayloadData)
	}

	return
}

// ReassembleFragments merges a slice of Bundle fragments into the reassembled Bundle.
func ReassembleFragments(bs []Bundle) (b Bundle, err error) {
	if err = prepareReassembly(bs); err != nil {
		return
	}

	b.PrimaryBlock = bs[0].PrimaryBlock
	b.PrimaryBlock.BundleControlFlags &^= IsFragment
	b.PrimaryBlock.FragmentOffset = 0
	b.PrimaryBlock.TotalDataLength = 0
	b.PrimaryBlock.CRC = nil

	for _, cb := range bs[0].CanonicalBlocks {
		if cb.TypeCode() == ExtBlockTypePayloadBlock {
			continue
		}

		if err = b.AddExtensionBlock(cb); err != nil {
			return
		}
	}

	if payload, payloadErr := mergeFragmentPayload(bs); payloadErr != nil {
		err = payloadErr
		return
	} else {
		pb0, pb0Err := bs[0].PayloadBlock()
		if pb0Err != nil {
			err = pb0Err
			return
		}

		cb := NewCanonicalBlock(1, pb0.BlockControlFlags, NewPayloadBlock(payload))
		cb.SetCRCType(pb0.CRCType)

		if err = b.AddExtensionBlock(cb); err != nil {
			return
		}
	}

	err = b.CheckValid()
	return
}
