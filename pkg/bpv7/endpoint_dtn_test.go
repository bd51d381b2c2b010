// SPDX-FileCopyrightText: 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bpv7

import (
	"bytes"
	"reflect"
	"strings"
	"testing"
)

func TestNewDtnEndpoint(t *testing.T) {
	tests := []struct {
		uri       string
		nodeName  string
		demux     string
		isDtnNone bool
		valid     bool
	}{
		{"dtn:none", "", "", true, true},
		{"dtn://foo/", "foo", "", false, true},
		{"dtn://foo/bar", "foo", "bar", false, true},
		{"dtn://foo/bar/buz", "foo", "bar/buz", false, true},
		{"dtn://FOO/", "FOO", "", false, true},
		{"dtn://23/", "23", "", false, true},
		{"dtn://1a2b3c/", "1a2b3c", "", false, true},
		{"dtn://a1-b2.c3_d4/", "a1-b2.c3_d4", "", false, true},
		{"dtn:foo", "", "", false, false},     // missing slashes
		{"dtn:/foo/", "", "", false, false},   // only one leading slash
		{"dtn://foo", "foo", "", false, true}, // missing trailing slash is appended
		{"dtn:///bar", "", "", false, false},  // empty node name
		{"dtn://f^oo/", "", "", false, false}, // invalid char (^) in node name
		{"dtn:", "", "", false, false},        // missing SSP
		{"dtn", "", "", false, false},         // missing SSP and ":"
		{"uff:uff", "", "", false, false},     // just no
		{"", "", "", false, false},            // nothing
	}

	for _, tc := range tests {
		ep, err := NewDtnEndpoint(tc.uri)

		if err == nil != tc.valid {
			t.Fatalf("%s: expected valid = %t, got err: %v", tc.uri, tc.valid, err)
		} else if err == nil {
			ep := ep.(DtnEndpoint)

			isDtnNone := ep.Ssp == dtnEndpointDtnNoneSsp
			var nodeName, demux string
			if !isDtnNone {
				nodeName, demux, _ = strings.Cut(strings.TrimPrefix(ep.Ssp, "//"), "/")
			}

			chk := nodeName == tc.nodeName &&
				demux == tc.demux &&
				isDtnNone == tc.isDtnNone
			if !chk {
				t.Fatalf("%s: expected (%s, %s, %t), got (%s, %s, %t)", tc.uri,
					tc.nodeName, tc.demux, tc.isDtnNone, nodeName, demux, isDtnNone)
			}
		}
	}
}

func TestDtnEndpointCbor(t *testing.T) {
	tests := []struct {
		ep   DtnEndpoint
		data []byte
	}{
		{DtnEndpoint{Ssp: dtnEndpointDtnNoneSsp}, []byte{0x00}},
		{DtnEndpoint{Ssp: "//foo/"}, []byte{0x66, 0x2F, 0x2F, 0x66, 0x6F, 0x6F, 0x2F}},
		{DtnEndpoint{Ssp: "//foo/bar"}, []byte{0x69, 0x2F, 0x2F, 0x66, 0x6F, 0x6F, 0x2F, 0x62, 0x61, 0x72}},
	}

	for _, tc := range tests {
		var buf bytes.Buffer

		// Marshal
		if err := tc.ep.MarshalCbor(&buf); err != nil {
			t.Fatal(err)
		}

		if !bytes.Equal(buf.Bytes(), tc.data) {
			t.Fatalf("Expected %v, got %v", tc.data, buf.Bytes())
		}

		// Unmarshal
		var ep DtnEndpoint
		if err := ep.UnmarshalCbor(&buf); err != nil {
			t.Fatal(err)
		}

		if !reflect.DeepEqual(ep, tc.ep) {
			t.Fatalf("Expected %v, got %v", tc.ep, ep)
		}
	}
}

func TestDtnEndpointUri(t *testing.T) {
	tests := []struct {
		ep        DtnEndpoint
		authority string
		path      string
	}{
		{DtnEndpoint{Ssp: dtnEndpointDtnNoneSsp}, "none", "/"},
		{DtnEndpoint{Ssp: "//foobar/"}, "foobar", "/"},
		{DtnEndpoint{Ssp: "//foo/bar"}, "foo", "/bar"},
		{DtnEndpoint{Ssp: "//foo/bar/"}, "foo", "/bar/"},
	}

	for _, tc := range tests {
		if authority := tc.ep.Authority(); tc.authority != authority {
			t.Fatalf("Authority: expected %s, got %s", tc.authority, authority)
		}
		if path := tc.ep.Path(); tc.path != path {
			t.Fatalf("Path: expected %s, got %s", tc.path, path)
		}
	}
}

func TestDtnEndpointIsSingleton(t *testing.T) {
	tests := []struct {
		ep        DtnEndpoint
		singleton bool
	}{
		{DtnEndpoint{IsDtnNone: true}, false},
		{DtnEndpoint{NodeName: "foobar"}, true},
		{DtnEndpoint{NodeName: "foo", Demux: "bar"}, true},
		{DtnEndpoint{NodeName: "foo", Demux: "bar/"}, true},
		{DtnEndpoint{NodeName: "foo", Demux: "~"}, false},
		{DtnEndpoint{NodeName: "foo", Demux: "~bar"}, false},
		{DtnEndpoint{NodeName: "foo", Demux: "~bar/"}, false},
	}

	for _, tc := range tests {
		if singleton := tc.ep.IsSingleton(); tc.singleton != singleton {
			t.Fatalf("%s: expected singleton %t, got %t", tc.ep, tc.singleton, singleton)
		}
	}
}
