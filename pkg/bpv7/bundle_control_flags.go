// SPDX-FileCopyrightText: 2018, 2019, 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bpv7

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// BundleControlFlags is the bundle-wide bitmask from section 4.2.3, set by the source and read
// by every node the bundle passes through.
type BundleControlFlags uint64

const (
	// IsFragment indicates this bundle is a fragment.
	IsFragment BundleControlFlags = 0x000001

	// AdministrativeRecordPayload indicates the payload is an administrative record.
	AdministrativeRecordPayload BundleControlFlags = 0x000002

	// MustNotFragmented forbids bundle fragmentation.
	MustNotFragmented BundleControlFlags = 0x000004

	// RequestUserApplicationAck requests an acknowledgement from the application agent.
	RequestUserApplicationAck BundleControlFlags = 0x000020

	// RequestStatusTime requests a status time in all status reports.
	RequestStatusTime BundleControlFlags = 0x000040

	// StatusRequestReception requests a bundle reception status report.
	StatusRequestReception BundleControlFlags = 0x004000

	// StatusRequestForward requests a bundle forwarding status report.
	StatusRequestForward BundleControlFlags = 0x010000

	// StatusRequestDelivery requests a bundle delivery status report.
	StatusRequestDelivery BundleControlFlags = 0x020000

	// StatusRequestDeletion requests a bundle deletion status report.
	StatusRequestDeletion BundleControlFlags = 0x040000
)

// Has reports whether any bit in flag is set.
func (bcf BundleControlFlags) Has(flag BundleControlFlags) bool {
	return bcf&flag != 0
}

// requestsStatusReport reports whether any of the four report-on-event flags is set.
func (bcf BundleControlFlags) requestsStatusReport() bool {
	return bcf.Has(StatusRequestReception) || bcf.Has(StatusRequestForward) ||
		bcf.Has(StatusRequestDelivery) || bcf.Has(StatusRequestDeletion)
}

// CheckValid enforces the two cross-flag constraints of section 4.2.3: a bundle cannot be both a
// fragment and forbidden from fragmentation, and an administrative-record payload must not
// request any status report.
func (bcf BundleControlFlags) CheckValid() (errs error) {
	if bcf.Has(IsFragment) && bcf.Has(MustNotFragmented) {
		errs = multierror.Append(errs,
			fmt.Errorf("bundle control flags: fragment flag and must-not-fragment flag are both set"))
	}

	if bcf.Has(AdministrativeRecordPayload) && bcf.requestsStatusReport() {
		errs = multierror.Append(errs,
			fmt.Errorf("bundle control flags: administrative record payload must not request a status report"))
	}

	return
}

// bundleControlFlagNames lists the known flag bits in the order Strings renders them.
var bundleControlFlagNames = [...]struct {
	flag BundleControlFlags
	name string
}{
	{StatusRequestDeletion, "REQUESTED_DELETION_STATUS_REPORT"},
	{StatusRequestDelivery, "REQUESTED_DELIVERY_STATUS_REPORT"},
	{StatusRequestForward, "REQUESTED_FORWARD_STATUS_REPORT"},
	{StatusRequestReception, "REQUESTED_RECEPTION_STATUS_REPORT"},
	{RequestStatusTime, "REQUESTED_TIME_IN_STATUS_REPORT"},
	{RequestUserApplicationAck, "REQUESTED_APPLICATION_ACK"},
	{MustNotFragmented, "MUST_NOT_BE_FRAGMENTED"},
	{AdministrativeRecordPayload, "ADMINISTRATIVE_PAYLOAD"},
	{IsFragment, "IS_FRAGMENT"},
}

// Strings renders the set flags as their RFC 9171 mnemonic names.
func (bcf BundleControlFlags) Strings() []string {
	var fields []string
	for _, c := range bundleControlFlagNames {
		if bcf.Has(c.flag) {
			fields = append(fields, c.name)
		}
	}
	return fields
}

func (bcf BundleControlFlags) MarshalJSON() ([]byte, error) {
	return json.Marshal(bcf.Strings())
}

func (bcf BundleControlFlags) String() string {
	return strings.Join(bcf.Strings(), ",")
}
