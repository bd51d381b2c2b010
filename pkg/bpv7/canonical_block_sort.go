// SPDX-FileCopyrightText: 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bpv7

// blockNumberDescending orders a []CanonicalBlock by descending block number, with block number 1,
// the payload block's number, forced last. Blocks are told apart by number only, not by type.
//
// Sorting this way keeps canonical ordering deterministic, which the BundleBuilder relies on.
type blockNumberDescending []CanonicalBlock

func (s blockNumberDescending) Len() int {
	return len(s)
}

// Less reports whether block i sorts before block j: block number 1 never sorts before anything
// else, and among the remaining blocks higher numbers come first.
func (s blockNumberDescending) Less(i, j int) bool {
	iPayload := s[i].BlockNumber == ExtBlockTypePayloadBlock
	jPayload := s[j].BlockNumber == ExtBlockTypePayloadBlock

	switch {
	case iPayload:
		return false
	case jPayload:
		return true
	default:
		return s[i].BlockNumber > s[j].BlockNumber
	}
}

func (s blockNumberDescending) Swap(i, j int) {
	s[i], s[j] = s[j], s[i]
}
