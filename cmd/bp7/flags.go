// SPDX-FileCopyrightText: 2018, 2019, 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package main

// extractFlag removes a standalone boolean flag from args, returning the
// remaining args and whether the flag was present.
func extractFlag(args []string, name string) ([]string, bool) {
	for i, a := range args {
		if a == name {
			rest := append([]string{}, args[:i]...)
			rest = append(rest, args[i+1:]...)
			return rest, true
		}
	}
	return args, false
}

// extractOptionValue removes a "name value" pair from args, returning the
// remaining args and the option's value, or "" if absent.
func extractOptionValue(args []string, name string) ([]string, string) {
	for i, a := range args {
		if a == name && i+1 < len(args) {
			rest := append([]string{}, args[:i]...)
			rest = append(rest, args[i+2:]...)
			return rest, args[i+1]
		}
	}
	return args, ""
}
