// SPDX-FileCopyrightText: 2018, 2019, 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bpv7

import "github.com/dtn7/cboring"

// block is the common interface of PrimaryBlock and CanonicalBlock, letting Bundle apply CRC and
// validity operations uniformly across both.
type block interface {
	Valid
	cboring.CborMarshaler

	// HasCRC returns if the CRCType indicates a CRC is present for this block.
	HasCRC() bool

	// GetCRCType returns the CRCType of this block.
	GetCRCType() CRCType

	// SetCRCType sets the CRC type used on the next serialization.
	SetCRCType(CRCType)
}
