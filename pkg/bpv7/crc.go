// SPDX-FileCopyrightText: 2018, 2019, 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bpv7

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"

	"github.com/dtn7/cboring"
	"github.com/howeyc/crc16"
)

// CRCType selects the checksum algorithm protecting a primary or canonical block, per section
// 4.1.1. Only CRCNo, CRC16 and CRC32 are defined on the wire. A block with any other code decodes
// only when it carries no CRC value; when it carries one, decoding fails with an error.
type CRCType uint64

const (
	// CRCNo means the block carries no CRC value.
	CRCNo CRCType = 0

	// CRC16 selects the 2-byte CRC-16/X.25 checksum.
	CRC16 CRCType = 1

	// CRC32 selects the 4-byte CRC-32/Castagnoli (iSCSI) checksum.
	CRC32 CRCType = 2
)

func (c CRCType) String() string {
	switch c {
	case CRCNo:
		return "no"
	case CRC16:
		return "16"
	case CRC32:
		return "32"
	default:
		return fmt.Sprintf("unknown(%d)", uint64(c))
	}
}

var (
	crc16table = crc16.MakeTable(crc16.CCITT)
	crc32table = crc32.MakeTable(crc32.Castagnoli)
)

// crcWidth reports the byte width a CRCType occupies on the wire, and an error for a code this
// implementation does not know how to compute.
func crcWidth(crcType CRCType) (int, error) {
	switch crcType {
	case CRCNo:
		return 0, nil
	case CRC16:
		return 2, nil
	case CRC32:
		return 4, nil
	default:
		return 0, fmt.Errorf("unknown CRCType %d", uint64(crcType))
	}
}

// emptyCRC returns the zeroed placeholder bytes a block's CRC field holds while its checksum is
// computed over the rest of the serialization.
func emptyCRC(crcType CRCType) ([]byte, error) {
	width, err := crcWidth(crcType)
	if err != nil {
		return nil, err
	}
	if width == 0 {
		return nil, nil
	}
	return make([]byte, width), nil
}

// calculateCRCBuff computes the big-endian checksum for buff's contents, which must already hold
// the block's serialization with its CRC field set to the empty placeholder.
func calculateCRCBuff(buff *bytes.Buffer, crcType CRCType) ([]byte, error) {
	data, err := emptyCRC(crcType)
	if err != nil {
		return nil, err
	}

	if err := cboring.WriteByteString(data, buff); err != nil {
		return nil, err
	}

	switch crcType {
	case CRCNo:
		// nothing to compute

	case CRC16:
		binary.BigEndian.PutUint16(data, crc16.Checksum(buff.Bytes(), crc16table))

	case CRC32:
		binary.BigEndian.PutUint32(data, crc32.Checksum(buff.Bytes(), crc32table))
	}

	return data, nil
}
