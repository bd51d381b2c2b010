// SPDX-FileCopyrightText: 2018, 2019, 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package main

// hexBuffer accumulates written bytes, later hex-encoded, to avoid mixing raw
// CBOR output with a bundle's CRC/framing writes.
type hexBuffer struct {
	data []byte
}

func (hb *hexBuffer) Write(p []byte) (int, error) {
	hb.data = append(hb.data, p...)
	return len(p), nil
}
