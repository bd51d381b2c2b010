// SPDX-FileCopyrightText: 2018, 2019, 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io/ioutil"
	"os"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/dtn7/bp7/pkg/bpv7"
)

// parseManifest reads a key=value manifest file, one assignment per line.
func parseManifest(filename string) (map[string]interface{}, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m := make(map[string]interface{})

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		kv := strings.SplitN(line, "=", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("manifest line %q is not a key=value pair", line)
		}
		key, value := strings.TrimSpace(kv[0]), strings.TrimSpace(kv[1])

		switch key {
		case "flags":
			bcf, err := strconv.ParseUint(value, 0, 64)
			if err != nil {
				return nil, fmt.Errorf("manifest flags %q: %v", value, err)
			}
			m["bundle_ctrl_flags"] = bpv7.BundleControlFlags(bcf)

		case "destination", "source", "report_to", "lifetime":
			m[key] = value

		default:
			return nil, fmt.Errorf("unknown manifest key %q", key)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return m, nil
}

// encodeBundle for the "encode" CLI option.
func encodeBundle(args []string) {
	var configFile string
	args, hexOutput := extractFlag(args, "-x")
	args, configFile = extractOptionValue(args, "-config")

	if len(args) != 2 {
		printUsage()
	}

	var (
		manifestFile = args[0]
		payloadInput = args[1]
	)

	m := make(map[string]interface{})
	if configFile != "" {
		defaults, err := loadManifestDefaults(configFile)
		if err != nil {
			printFatal(err, "Parsing -config errored")
		}
		log.WithField("file", configFile).Debug("loaded manifest defaults")

		if defaults.Destination != "" {
			m["destination"] = defaults.Destination
		}
		if defaults.Source != "" {
			m["source"] = defaults.Source
		}
		if defaults.ReportTo != "" {
			m["report_to"] = defaults.ReportTo
		}
		if defaults.Lifetime != "" {
			m["lifetime"] = defaults.Lifetime
		}
		if defaults.Flags != "" {
			bcf, err := strconv.ParseUint(defaults.Flags, 0, 64)
			if err != nil {
				printFatal(err, "Parsing -config flags errored")
			}
			m["bundle_ctrl_flags"] = bpv7.BundleControlFlags(bcf)
		}
	}

	manifest, err := parseManifest(manifestFile)
	if err != nil {
		printFatal(err, "Parsing manifest errored")
	}
	for k, v := range manifest {
		m[k] = v
	}
	if _, ok := m["lifetime"]; !ok {
		m["lifetime"] = "24h"
	}

	var payload []byte
	if payloadInput == "-" {
		payload, err = ioutil.ReadAll(os.Stdin)
	} else {
		payload, err = ioutil.ReadFile(payloadInput)
	}
	if err != nil {
		printFatal(err, "Reading payload errored")
	}
	m["payload_block"] = payload
	m["creation_timestamp_now"] = true

	b, err := bpv7.BuildFromMap(m)
	if err != nil {
		printFatal(err, "Building Bundle errored")
	}

	if hexOutput {
		buff := new(hexBuffer)
		if err = b.WriteBundle(buff); err != nil {
			printFatal(err, "Encoding Bundle errored")
		}
		fmt.Println(hex.EncodeToString(buff.data))
		return
	}

	if err = b.WriteBundle(os.Stdout); err != nil {
		printFatal(err, "Writing Bundle errored")
	}
}
