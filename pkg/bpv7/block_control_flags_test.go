// SPDX-FileCopyrightText: 2018, 2019, 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bpv7

import (
	"testing"
)

func TestBlockControlFlagsHas(t *testing.T) {
	flags := ReplicateBlock | DeleteBundle

	if !flags.Has(ReplicateBlock) {
		t.Error("flags has no ReplicateBlock-flag even when it was set")
	}
	if flags.Has(RemoveBlock) {
		t.Error("flags has RemoveBlock-flag which was not set")
	}
}

func TestBlockControlFlagsCheckValid(t *testing.T) {
	// All bit masks are valid block processing control flags; unset bits are reserved.
	cases := []BlockControlFlags{
		0,
		ReplicateBlock,
		ReplicateBlock | DeleteBundle,
		ReplicateBlock | 0x80,
		0x40 | 0x20,
	}

	for _, cf := range cases {
		if err := cf.CheckValid(); err != nil {
			t.Errorf("BlockControlFlags(%v) should be valid, got: %v", cf, err)
		}
	}
}
