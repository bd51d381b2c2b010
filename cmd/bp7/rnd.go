// SPDX-FileCopyrightText: 2018, 2019, 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"os"

	"github.com/dtn7/bp7/pkg/bpv7"
)

// randUint63 returns a cryptographically random value in [0, n).
func randUint63(n int64) uint64 {
	v, err := rand.Int(rand.Reader, big.NewInt(n))
	if err != nil {
		printFatal(err, "Generating random number errored")
	}
	return v.Uint64()
}

// randomBundle for the "rnd" CLI option.
func randomBundle(args []string) {
	if len(args) != 0 && len(args) != 1 {
		printUsage()
	}
	if len(args) == 1 && args[0] != "-r" {
		printUsage()
	}
	raw := len(args) == 1

	payload := make([]byte, 16+randUint63(48))
	if _, err := rand.Read(payload); err != nil {
		printFatal(err, "Generating random payload errored")
	}

	b, err := bpv7.Builder().
		CRC(bpv7.CRC32).
		Source(fmt.Sprintf("ipn:%d.%d", randUint63(1<<20)+1, randUint63(1<<20)+1)).
		Destination(fmt.Sprintf("ipn:%d.%d", randUint63(1<<20)+1, randUint63(1<<20)+1)).
		CreationTimestampNow().
		Lifetime("1h").
		HopCountBlock(uint8(randUint63(64))).
		PayloadBlock(payload).
		Build()
	if err != nil {
		printFatal(err, "Building random Bundle errored")
	}

	if raw {
		if err = b.WriteBundle(os.Stdout); err != nil {
			printFatal(err, "Writing Bundle errored")
		}
		return
	}

	buff := new(hexBuffer)
	if err = b.WriteBundle(buff); err != nil {
		printFatal(err, "Encoding Bundle errored")
	}
	fmt.Println(hex.EncodeToString(buff.data))
}
