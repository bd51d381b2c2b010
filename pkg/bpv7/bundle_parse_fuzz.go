// SPDX-FileCopyrightText: 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

//go:build gofuzz
// +build gofuzz

package bpv7

import (
	"bytes"
	"io"

	"github.com/dtn7/cboring"
)

// Fuzz feeds data through ParseBundle and, on a successful decode, re-encodes the result to
// exercise the round-trip path go-fuzz cares about.
func Fuzz(data []byte) int {
	if len(data) > 0 && data[0] != cboring.IndefiniteArray {
		return -1
	}

	r := bytes.NewBuffer(data)
	b, err := ParseBundle(r)
	if err != nil {
		return 0
	}

	if err := b.WriteBundle(io.Discard); err != nil {
		panic(err)
	}

	return 1
}
