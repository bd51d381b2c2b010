// SPDX-FileCopyrightText: 2018, 2019, 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Command bp7 decodes, encodes, and inspects Bundle Protocol v7 bundles and
// DtnTime values from the command line.
package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
)

// printUsage of bp7 and exit with code 1.
func printUsage() {
	_, _ = fmt.Fprintf(os.Stderr, "Usage of %s decode|encode|rnd|dtntime|d2u:\n\n", os.Args[0])

	_, _ = fmt.Fprintf(os.Stderr, "%s decode <hex|-> [-p]\n", os.Args[0])
	_, _ = fmt.Fprintf(os.Stderr, "  Decodes a bundle from a hex string or from stdin (-) and prints it as\n")
	_, _ = fmt.Fprintf(os.Stderr, "  JSON. With -p, only the raw payload bytes are written to stdout.\n\n")

	_, _ = fmt.Fprintf(os.Stderr, "%s encode <manifest> <payload|-> [-x] [-config file.toml]\n", os.Args[0])
	_, _ = fmt.Fprintf(os.Stderr, "  Builds a bundle from a key=value manifest file (keys: destination,\n")
	_, _ = fmt.Fprintf(os.Stderr, "  source, report_to, lifetime, flags) and a payload read from stdin (-)\n")
	_, _ = fmt.Fprintf(os.Stderr, "  or a file, then writes the encoded bundle to stdout. With -x, the\n")
	_, _ = fmt.Fprintf(os.Stderr, "  output is hex-encoded instead of raw CBOR. -config sources manifest\n")
	_, _ = fmt.Fprintf(os.Stderr, "  defaults from a TOML file, overridden by the manifest itself.\n\n")

	_, _ = fmt.Fprintf(os.Stderr, "%s rnd [-r]\n", os.Args[0])
	_, _ = fmt.Fprintf(os.Stderr, "  Emits a random bundle, hex-encoded unless -r is given for raw CBOR.\n\n")

	_, _ = fmt.Fprintf(os.Stderr, "%s dtntime [<ts>]\n", os.Args[0])
	_, _ = fmt.Fprintf(os.Stderr, "  Prints the current DtnTime, or humanizes a given millisecond value.\n\n")

	_, _ = fmt.Fprintf(os.Stderr, "%s d2u <ts>\n", os.Args[0])
	_, _ = fmt.Fprintf(os.Stderr, "  Converts a DtnTime millisecond value to Unix seconds.\n\n")

	_, _ = fmt.Fprintf(os.Stderr, "A -v immediately after the subcommand enables verbose diagnostics.\n")

	os.Exit(1)
}

// printFatal logs an error with a short context description and exits with code 2.
func printFatal(err error, msg string) {
	log.WithError(err).Error(msg)
	os.Exit(2)
}

// stripVerbose removes a leading -v flag from args, enabling debug-level logging if found.
func stripVerbose(args []string) []string {
	if len(args) > 0 && args[0] == "-v" {
		log.SetLevel(log.DebugLevel)
		return args[1:]
	}
	return args
}

func main() {
	log.SetFormatter(&log.TextFormatter{DisableTimestamp: true})

	if len(os.Args) < 2 {
		printUsage()
	}

	args := stripVerbose(os.Args[2:])

	switch os.Args[1] {
	case "decode":
		decodeBundle(args)

	case "encode":
		encodeBundle(args)

	case "rnd":
		randomBundle(args)

	case "dtntime":
		dtnTime(args)

	case "d2u":
		dtnTimeToUnix(args)

	default:
		printUsage()
	}
}
