// SPDX-FileCopyrightText: 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bpv7

import (
	"fmt"
	"sort"
	"testing"
)

func TestBlockNumberDescendingLess(t *testing.T) {
	var canonicals blockNumberDescending = []CanonicalBlock{
		NewCanonicalBlock(2, 0, nil), // 0
		NewCanonicalBlock(3, 0, nil), // 1
		NewCanonicalBlock(4, 0, nil), // 2
		NewCanonicalBlock(5, 0, nil), // 3
		NewCanonicalBlock(6, 0, nil), // 4
		NewCanonicalBlock(1, 0, nil), // 5, payload block number
		NewCanonicalBlock(9, 0, nil), // 6
	}

	tests := []struct {
		i, j int
		want bool
	}{
		{0, 1, false}, // 2 does not sort before 3 (descending)
		{1, 0, true},  // 3 sorts before 2
		{4, 3, true},  // 6 sorts before 5
		{5, 0, false}, // payload block never sorts before a regular block
		{0, 5, true},  // any regular block sorts before the payload block
		{5, 6, false},
		{6, 5, true},
	}
	for _, test := range tests {
		t.Run(fmt.Sprintf("%d,%d", test.i, test.j), func(t *testing.T) {
			if got := canonicals.Less(test.i, test.j); got != test.want {
				t.Fatalf("Less() = %v, want %v", got, test.want)
			}
		})
	}
}

func TestBlockNumberDescendingSort(t *testing.T) {
	// Shuffled array of CanonicalBlocks with block numbers from 1 to 7.
	// Descending order puts the payload block (number 1) last: 7, 6, ..., 2, 1.
	canonicals := []CanonicalBlock{
		NewCanonicalBlock(5, 0, nil),
		NewCanonicalBlock(3, 0, nil),
		NewCanonicalBlock(6, 0, nil),
		NewCanonicalBlock(7, 0, nil),
		NewCanonicalBlock(4, 0, nil),
		NewCanonicalBlock(1, 0, nil),
		NewCanonicalBlock(2, 0, nil),
	}

	sort.Sort(blockNumberDescending(canonicals))

	for i := 0; i < len(canonicals)-1; i++ {
		if blockNumber := canonicals[i].BlockNumber; blockNumber != uint64(len(canonicals)-i) {
			t.Fatalf("index %d contains block number %d", i, blockNumber)
		}
	}

	if blockNumber := canonicals[len(canonicals)-1].BlockNumber; blockNumber != ExtBlockTypePayloadBlock {
		t.Fatalf("last block's block number is %d", blockNumber)
	}
}
