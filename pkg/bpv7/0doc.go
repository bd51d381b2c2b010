// SPDX-FileCopyrightText: 2019, 2020, 2021 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package bpv7 implements the Bundle Protocol Version 7 data model and wire format (RFC 9171):
// building, validating, and CBOR encoding/decoding bundles.
//
// BundleBuilder is the usual entry point for constructing a Bundle:
//
//	bundle, err := bpv7.Builder().
//	  CRC(bpv7.CRC32).
//	  Source("dtn://src/").
//	  Destination("dtn://dest/").
//	  CreationTimestampNow().
//	  Lifetime(time.Hour).
//	  HopCountBlock(64).
//	  PayloadBlock([]byte("hello world!")).
//	  Build()
//
// WriteBundle and ParseBundle move a Bundle to and from its CBOR representation:
//
//	buff := new(bytes.Buffer)
//	err1 := b1.WriteBundle(buff)
//	b2, err2 := bpv7.ParseBundle(buff)
package bpv7
