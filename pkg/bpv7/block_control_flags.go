// SPDX-FileCopyrightText: 2018, 2019, 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bpv7

import (
	"encoding/json"
	"strings"
)

// BlockControlFlags is the per-block bitmask defined in section 4.2.4, telling a processing node
// what to do if it cannot process a particular canonical block.
type BlockControlFlags uint64

const (
	// ReplicateBlock requires this block to be copied into every fragment of the bundle.
	ReplicateBlock BlockControlFlags = 0x01

	// StatusReportBlock requests a status report if this block cannot be processed.
	StatusReportBlock BlockControlFlags = 0x02

	// DeleteBundle requires the whole bundle to be deleted if this block cannot be processed.
	DeleteBundle BlockControlFlags = 0x04

	// RemoveBlock requires only this block to be dropped if it cannot be processed.
	RemoveBlock BlockControlFlags = 0x10
)

// blockControlFlagNames lists the known flag bits in the order Strings renders them.
var blockControlFlagNames = [...]struct {
	flag BlockControlFlags
	name string
}{
	{DeleteBundle, "DELETE_BUNDLE"},
	{StatusReportBlock, "REQUEST_STATUS_REPORT"},
	{RemoveBlock, "REMOVE_BLOCK"},
	{ReplicateBlock, "REPLICATE_BLOCK"},
}

// Has reports whether any bit in flag is set.
func (bcf BlockControlFlags) Has(flag BlockControlFlags) bool {
	return bcf&flag != 0
}

// CheckValid always succeeds: unknown bits are not an error since BPv7 reserves them for future
// extension rather than treating them as faults.
func (bcf BlockControlFlags) CheckValid() error {
	return nil
}

// Strings renders the set flags as their RFC 9171 mnemonic names.
func (bcf BlockControlFlags) Strings() []string {
	var fields []string
	for _, c := range blockControlFlagNames {
		if bcf.Has(c.flag) {
			fields = append(fields, c.name)
		}
	}
	return fields
}

func (bcf BlockControlFlags) MarshalJSON() ([]byte, error) {
	return json.Marshal(bcf.Strings())
}

func (bcf BlockControlFlags) String() string {
	return strings.Join(bcf.Strings(), ",")
}
