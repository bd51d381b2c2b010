// SPDX-FileCopyrightText: 2018, 2019, 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"github.com/BurntSushi/toml"
)

// manifestDefaults describes the optional -config TOML file accepted by the
// encode subcommand, mirroring the teacher's own tomlConfig pattern in
// cmd/dtnd/configuration.go.
type manifestDefaults struct {
	Destination string
	Source      string
	ReportTo    string `toml:"report_to"`
	Lifetime    string
	Flags       string
}

// loadManifestDefaults parses a TOML file into a manifestDefaults. It does not
// touch the manifest map: encodeBundle seeds the map with the non-empty fields,
// and the manifest file's own entries then override them.
func loadManifestDefaults(filename string) (manifestDefaults, error) {
	var conf manifestDefaults
	_, err := toml.DecodeFile(filename, &conf)
	return conf, err
}
