// SPDX-FileCopyrightText: 2018, 2019, 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bpv7

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dtn7/cboring"
	"github.com/hashicorp/go-multierror"
)

// CanonicalBlock is one extension block of a bundle (payload included), as defined in section
// 4.3. Every canonical block other than the payload block is optional and may repeat at most
// once per type.
type CanonicalBlock struct {
	BlockNumber       uint64
	BlockControlFlags BlockControlFlags
	CRCType           CRCType
	CRC               []byte
	Value             ExtensionBlock
}

// NewCanonicalBlock wraps value as a canonical block carrying block number no and processing
// flags bcf. The block starts with no CRC; call SetCRCType to request one.
func NewCanonicalBlock(no uint64, bcf BlockControlFlags, value ExtensionBlock) CanonicalBlock {
	return CanonicalBlock{
		BlockNumber:       no,
		BlockControlFlags: bcf,
		CRCType:           CRCNo,
		Value:             value,
	}
}

// TypeCode returns the wrapped extension block's type code.
func (cb CanonicalBlock) TypeCode() uint64 {
	return cb.Value.BlockTypeCode()
}

// HasCRC reports whether this block carries a checksum.
func (cb CanonicalBlock) HasCRC() bool {
	return cb.GetCRCType() != CRCNo
}

// GetCRCType returns this block's CRCType.
func (cb CanonicalBlock) GetCRCType() CRCType {
	return cb.CRCType
}

// SetCRCType changes the checksum algorithm protecting this block.
func (cb *CanonicalBlock) SetCRCType(crcType CRCType) {
	cb.CRCType = crcType
}

// MarshalCbor writes this block as a definite-length CBOR array: type code, block number,
// control flags, CRC type, the extension payload and, if a checksum is requested, the CRC
// itself computed over everything written so far.
func (cb *CanonicalBlock) MarshalCbor(w io.Writer) error {
	arrayLen := uint64(5)
	crcBuff := new(bytes.Buffer)
	if cb.HasCRC() {
		arrayLen = 6
		w = io.MultiWriter(w, crcBuff)
	}

	if err := cboring.WriteArrayLength(arrayLen, w); err != nil {
		return err
	}

	for _, f := range [...]uint64{cb.TypeCode(), cb.BlockNumber, uint64(cb.BlockControlFlags), uint64(cb.CRCType)} {
		if err := cboring.WriteUInt(f, w); err != nil {
			return err
		}
	}

	if err := GetExtensionBlockManager().WriteBlock(cb.Value, w); err != nil {
		return fmt.Errorf("extension payload: %v", err)
	}

	if !cb.HasCRC() {
		return nil
	}

	crcVal, err := calculateCRCBuff(crcBuff, cb.CRCType)
	if err != nil {
		return err
	}
	if err := cboring.WriteByteString(crcVal, w); err != nil {
		return err
	}
	cb.CRC = crcVal
	return nil
}

// UnmarshalCbor decodes a canonical block from its 5- or 6-element CBOR array representation,
// verifying the trailing CRC against the rest of the block's bytes when one is present.
func (cb *CanonicalBlock) UnmarshalCbor(r io.Reader) error {
	arrayLen, err := cboring.ReadArrayLength(r)
	if err != nil {
		return err
	}
	if arrayLen != 5 && arrayLen != 6 {
		return fmt.Errorf("canonical block: expected array of length 5 or 6, got %d", arrayLen)
	}

	crcBuff := new(bytes.Buffer)
	if arrayLen == 6 {
		if err := cboring.WriteArrayLength(arrayLen, crcBuff); err != nil {
			return err
		}
		r = io.TeeReader(r, crcBuff)
	}

	blockType, err := cboring.ReadUInt(r)
	if err != nil {
		return err
	}

	if bn, err := cboring.ReadUInt(r); err != nil {
		return err
	} else {
		cb.BlockNumber = bn
	}

	if bcf, err := cboring.ReadUInt(r); err != nil {
		return err
	} else {
		cb.BlockControlFlags = BlockControlFlags(bcf)
	}

	if crcT, err := cboring.ReadUInt(r); err != nil {
		return err
	} else {
		cb.CRCType = CRCType(crcT)
	}

	value, err := GetExtensionBlockManager().ReadBlock(blockType, r)
	if err != nil {
		return fmt.Errorf("extension payload of block type %d: %v", blockType, err)
	}
	cb.Value = value

	if arrayLen != 6 {
		return nil
	}

	crcExpected, err := calculateCRCBuff(crcBuff, cb.CRCType)
	if err != nil {
		return err
	}
	crcVal, err := cboring.ReadByteString(r)
	if err != nil {
		return err
	}
	if !bytes.Equal(crcExpected, crcVal) {
		return fmt.Errorf("canonical block: CRC mismatch, got %x, expected %x", crcVal, crcExpected)
	}
	cb.CRC = crcVal
	return nil
}

// MarshalJSON renders this block as a JSON object. The data field holds the extension block's
// own JSON representation when it implements json.Marshaler, or its raw encoded bytes otherwise.
func (cb CanonicalBlock) MarshalJSON() ([]byte, error) {
	var data interface{} = cb.Value
	if _, ok := cb.Value.(json.Marshaler); !ok {
		var buff bytes.Buffer
		if err := GetExtensionBlockManager().WriteBlock(cb.Value, &buff); err != nil {
			return nil, err
		}
		data = buff.Bytes()
	}

	return json.Marshal(&struct {
		BlockNumber   uint64            `json:"blockNumber"`
		BlockTypeCode uint64            `json:"blockTypeCode"`
		BlockType     string            `json:"blockType"`
		ControlFlags  BlockControlFlags `json:"blockControlFlags"`
		Data          interface{}       `json:"data"`
	}{
		BlockNumber:   cb.BlockNumber,
		BlockType:     cb.Value.BlockTypeName(),
		BlockTypeCode: cb.Value.BlockTypeCode(),
		ControlFlags:  cb.BlockControlFlags,
		Data:          data,
	})
}

// CheckValid validates this block's control flags and extension payload, and that a payload
// block always carries block number one.
func (cb CanonicalBlock) CheckValid() (errs error) {
	if err := cb.BlockControlFlags.CheckValid(); err != nil {
		errs = multierror.Append(errs, err)
	}

	if err := cb.Value.CheckValid(); err != nil {
		errs = multierror.Append(errs, err)
	}

	if cb.Value.BlockTypeCode() == ExtBlockTypePayloadBlock && cb.BlockNumber != 1 {
		errs = multierror.Append(errs,
			fmt.Errorf("payload block must carry block number 1, has %d", cb.BlockNumber))
	}

	return
}

func (cb CanonicalBlock) String() string {
	var s strings.Builder
	fmt.Fprintf(&s, "block type code: %d, ", cb.Value.BlockTypeCode())
	fmt.Fprintf(&s, "block number: %d, ", cb.BlockNumber)
	fmt.Fprintf(&s, "block processing control flags: %b, ", cb.BlockControlFlags)
	fmt.Fprintf(&s, "crc type: %v, ", cb.CRCType)
	fmt.Fprintf(&s, "data: %v", cb.Value)
	if cb.HasCRC() {
		fmt.Fprintf(&s, ", crc: %x", cb.CRC)
	}
	return s.String()
}
