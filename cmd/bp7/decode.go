// SPDX-FileCopyrightText: 2018, 2019, 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io/ioutil"
	"os"

	"github.com/dtn7/bp7/pkg/bpv7"
)

// decodeBundle for the "decode" CLI option.
func decodeBundle(args []string) {
	if len(args) != 1 && len(args) != 2 {
		printUsage()
	}

	var (
		input       = args[0]
		payloadOnly = len(args) == 2 && args[1] == "-p"
	)
	if len(args) == 2 && !payloadOnly {
		printUsage()
	}

	var (
		raw []byte
		err error
	)

	if input == "-" {
		raw, err = ioutil.ReadAll(os.Stdin)
	} else {
		raw, err = hex.DecodeString(input)
	}
	if err != nil {
		printFatal(err, "Reading input errored")
	}

	var b bpv7.Bundle
	if err = b.UnmarshalCbor(bytes.NewReader(raw)); err != nil {
		printFatal(err, "Decoding Bundle errored")
	}

	if payloadOnly {
		pb, err := b.PayloadBlock()
		if err != nil {
			printFatal(err, "Bundle has no Payload Block")
		}

		payload, ok := pb.Value.(*bpv7.PayloadBlock)
		if !ok {
			printFatal(fmt.Errorf("canonical block is not a Payload Block"), "Extracting payload errored")
		}

		os.Stdout.Write(payload.Data())
		return
	}

	bMsg, err := b.MarshalJSON()
	if err != nil {
		printFatal(err, "Marshaling JSON errored")
	}
	fmt.Println(string(bMsg))
}
