// SPDX-FileCopyrightText: 2019, 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bpv7

// Valid is implemented by every type taking part in a Bundle's validation tree: primary and
// canonical blocks, their extension payloads, control flags and endpoint IDs. A composite type
// validates by delegating to its parts, so a single call at the Bundle root surfaces every
// violation found anywhere underneath it.
type Valid interface {
	// CheckValid reports a non-nil error describing what is wrong, or nil if the value is
	// acceptable. Implementations validating several independent parts should aggregate with
	// hashicorp/go-multierror rather than returning only the first failure.
	CheckValid() error
}
