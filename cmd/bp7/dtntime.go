// SPDX-FileCopyrightText: 2018, 2019, 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"fmt"
	"strconv"

	"github.com/dtn7/bp7/pkg/bpv7"
)

// dtnTime for the "dtntime" CLI option.
func dtnTime(args []string) {
	if len(args) > 1 {
		printUsage()
	}

	if len(args) == 0 {
		fmt.Println(uint64(bpv7.DtnTimeNow()))
		return
	}

	ms, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		printFatal(err, "Parsing DtnTime errored")
	}
	fmt.Println(bpv7.DtnTime(ms).String())
}

// dtnTimeToUnix for the "d2u" CLI option.
func dtnTimeToUnix(args []string) {
	if len(args) != 1 {
		printUsage()
	}

	ms, err := strconv.ParseUint(args[0], 10, 64)
	if err != nil {
		printFatal(err, "Parsing DtnTime errored")
	}

	fmt.Println(bpv7.DtnTime(ms).Time().Unix())
}
