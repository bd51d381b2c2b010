// SPDX-FileCopyrightText: 2019, 2020, 2021 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bpv7

import (
	"fmt"
	"io"
	"strings"

	"github.com/dtn7/cboring"
)

// BundleStatusItem is one entry of a StatusReport's status information array, recording whether a
// particular lifecycle event (reception, forwarding, delivery or deletion) happened and, if the
// bundle requested it, when.
type BundleStatusItem struct {
	Asserted        bool
	Time            DtnTime
	StatusRequested bool
}

func (bsi *BundleStatusItem) MarshalCbor(w io.Writer) error {
	arrLen := uint64(1)
	if bsi.Asserted && bsi.StatusRequested {
		arrLen = 2
	}

	if err := cboring.WriteArrayLength(arrLen, w); err != nil {
		return err
	}
	if err := cboring.WriteBoolean(bsi.Asserted, w); err != nil {
		return err
	}
	if arrLen == 1 {
		return nil
	}
	return cboring.WriteUInt(uint64(bsi.Time), w)
}

func (bsi *BundleStatusItem) UnmarshalCbor(r io.Reader) error {
	arrLen, err := cboring.ReadArrayLength(r)
	if err != nil {
		return err
	}
	if arrLen != 1 && arrLen != 2 {
		return fmt.Errorf("bundle status item: expected array of length 1 or 2, got %d", arrLen)
	}

	asserted, err := cboring.ReadBoolean(r)
	if err != nil {
		return err
	}
	bsi.Asserted = asserted

	if arrLen == 1 {
		bsi.StatusRequested = false
		return nil
	}

	t, err := cboring.ReadUInt(r)
	if err != nil {
		return err
	}
	bsi.Time = DtnTime(t)
	bsi.StatusRequested = true
	return nil
}

func (bsi BundleStatusItem) String() string {
	if !bsi.Asserted {
		return fmt.Sprintf("BundleStatusItem(%t)", bsi.Asserted)
	}
	return fmt.Sprintf("BundleStatusItem(%t, %v)", bsi.Asserted, bsi.Time)
}

// NewBundleStatusItem reports the given assertion without a status time.
func NewBundleStatusItem(asserted bool) BundleStatusItem {
	return BundleStatusItem{Asserted: asserted, Time: DtnTimeEpoch}
}

// NewTimeReportingBundleStatusItem asserts the event and attaches the time it happened.
func NewTimeReportingBundleStatusItem(time DtnTime) BundleStatusItem {
	return BundleStatusItem{Asserted: true, Time: time, StatusRequested: true}
}

// StatusReportReason is the bundle status report reason code, which is used as
// the second element of the bundle status report array.
type StatusReportReason uint64

const (
	// NoInformation is the "No additional information" bundle status report
	// reason code.
	NoInformation StatusReportReason = 0

	// LifetimeExpired is the "Lifetime expired" bundle status report reason code.
	LifetimeExpired StatusReportReason = 1

	// ForwardUnidirectionalLink is the "Forwarded over unidirectional link"
	// bundle status report reason code.
	ForwardUnidirectionalLink StatusReportReason = 2

	// TransmissionCanceled is the "Transmission canceled" bundle status report
	// reason code.
	TransmissionCanceled StatusReportReason = 3

	// DepletedStorage is the "Depleted storage" bundle status report reason code.
	DepletedStorage StatusReportReason = 4

	// DestEndpointUnintelligible is the "Destination endpoint ID unintelligible"
	// bundle status report reason code.
	DestEndpointUnintelligible StatusReportReason = 5

	// NoRouteToDestination is the "No known route to destination from here"
	// bundle status report reason code.
	NoRouteToDestination StatusReportReason = 6

	// NoNextNodeContact is the "No timely contact with next node on route" bundle
	// status report reason code.
	NoNextNodeContact StatusReportReason = 7

	// BlockUnintelligible is the "Block unintelligible" bundle status report
	// reason code.
	BlockUnintelligible StatusReportReason = 8

	// HopLimitExceeded is the "Hop limit exceeded" bundle status report reason
	// code.
	HopLimitExceeded StatusReportReason = 9

	// TrafficPared is the "Traffic pared (e.g., status reports)" bundle status
	// report reason code.
	TrafficPared StatusReportReason = 10

	// BlockUnsupported is the "Block unsupported" bundle status report reason
	// code.
	BlockUnsupported StatusReportReason = 11
)

var statusReportReasonNames = [...]struct {
	reason StatusReportReason
	text   string
}{
	{NoInformation, "No additional information"},
	{LifetimeExpired, "Lifetime expired"},
	{ForwardUnidirectionalLink, "Forward over unidirectional link"},
	{TransmissionCanceled, "Transmission canceled"},
	{DepletedStorage, "Depleted storage"},
	{DestEndpointUnintelligible, "Destination endpoint ID unintelligible"},
	{NoRouteToDestination, "No known route to destination from here"},
	{NoNextNodeContact, "No timely contact with next node on route"},
	{BlockUnintelligible, "Block unintelligible"},
	{HopLimitExceeded, "Hop limit exceeded"},
	{TrafficPared, "Traffic pared"},
	{BlockUnsupported, "Block unsupported"},
}

func (srr StatusReportReason) String() string {
	for _, n := range statusReportReasonNames {
		if n.reason == srr {
			return n.text
		}
	}
	return "unknown"
}

// StatusInformationPos describes the different bundle status information
// entries. Each bundle status report must contain at least the following
// bundle status items.
type StatusInformationPos int

const (
	// maxStatusInformationPos is the amount of different StatusInformationPos.
	maxStatusInformationPos int = 4

	// ReceivedBundle is the first bundle status information entry, indicating
	// the reporting node received this bundle.
	ReceivedBundle StatusInformationPos = 0

	// ForwardedBundle is the second bundle status information entry, indicating
	// the reporting node forwarded this bundle.
	ForwardedBundle StatusInformationPos = 1

	// DeliveredBundle is the third bundle status information entry, indicating
	// the reporting node delivered this bundle.
	DeliveredBundle StatusInformationPos = 2

	// DeletedBundle is the fourth bundle status information entry, indicating
	// the reporting node deleted this bundle.
	DeletedBundle StatusInformationPos = 3
)

var statusInformationPosNames = [...]struct {
	pos  StatusInformationPos
	text string
}{
	{ReceivedBundle, "received bundle"},
	{ForwardedBundle, "forwarded bundle"},
	{DeliveredBundle, "delivered bundle"},
	{DeletedBundle, "deleted bundle"},
}

func (sip StatusInformationPos) String() string {
	for _, n := range statusInformationPosNames {
		if n.pos == sip {
			return n.text
		}
	}
	return "unknown"
}

// StatusReport is the administrative record carrying a bundle's processing history, per
// section 6.1.1.
type StatusReport struct {
	StatusInformation []BundleStatusItem
	ReportReason      StatusReportReason
	RefBundle         BundleID
}

// NewStatusReport builds a StatusReport for bndl, asserting statusItem and, when the bundle
// requested status time reporting, attaching time to that entry.
func NewStatusReport(bndl Bundle, statusItem StatusInformationPos, reason StatusReportReason, time DtnTime) *StatusReport {
	report := &StatusReport{
		StatusInformation: make([]BundleStatusItem, maxStatusInformationPos),
		ReportReason:      reason,
		RefBundle:         bndl.ID(),
	}

	wantsTime := bndl.PrimaryBlock.BundleControlFlags.Has(RequestStatusTime)
	for i := range report.StatusInformation {
		switch sip := StatusInformationPos(i); {
		case sip != statusItem:
			report.StatusInformation[i] = NewBundleStatusItem(false)
		case wantsTime:
			report.StatusInformation[i] = NewTimeReportingBundleStatusItem(time)
		default:
			report.StatusInformation[i] = NewBundleStatusItem(true)
		}
	}
	return report
}

// StatusInformations returns the positions whose entry is asserted.
func (sr StatusReport) StatusInformations() (sips []StatusInformationPos) {
	for i, si := range sr.StatusInformation {
		if si.Asserted {
			sips = append(sips, StatusInformationPos(i))
		}
	}
	return
}

func (sr *StatusReport) MarshalCbor(w io.Writer) error {
	if err := cboring.WriteArrayLength(2+sr.RefBundle.Len(), w); err != nil {
		return err
	}

	if err := cboring.WriteArrayLength(uint64(len(sr.StatusInformation)), w); err != nil {
		return err
	}
	for i := range sr.StatusInformation {
		if err := cboring.Marshal(&sr.StatusInformation[i], w); err != nil {
			return fmt.Errorf("status information item %d: %v", i, err)
		}
	}

	if err := cboring.WriteUInt(uint64(sr.ReportReason), w); err != nil {
		return err
	}

	if err := cboring.Marshal(&sr.RefBundle, w); err != nil {
		return fmt.Errorf("referenced bundle ID: %v", err)
	}

	return nil
}

func (sr *StatusReport) UnmarshalCbor(r io.Reader) error {
	arrayLen, err := cboring.ReadArrayLength(r)
	if err != nil {
		return err
	}
	switch arrayLen {
	case 4:
		sr.RefBundle.IsFragment = false
	case 6:
		sr.RefBundle.IsFragment = true
	default:
		return fmt.Errorf("status report: expected array of length 4 or 6, got %d", arrayLen)
	}

	itemCount, err := cboring.ReadArrayLength(r)
	if err != nil {
		return err
	}
	sr.StatusInformation = make([]BundleStatusItem, itemCount)
	for i := range sr.StatusInformation {
		if err := cboring.Unmarshal(&sr.StatusInformation[i], r); err != nil {
			return fmt.Errorf("status information item %d: %v", i, err)
		}
	}

	reason, err := cboring.ReadUInt(r)
	if err != nil {
		return err
	}
	sr.ReportReason = StatusReportReason(reason)

	if err := cboring.Unmarshal(&sr.RefBundle, r); err != nil {
		return fmt.Errorf("referenced bundle ID: %v", err)
	}

	return nil
}

func (sr *StatusReport) RecordTypeCode() uint64 {
	return AdminRecordTypeStatusReport
}

func (sr StatusReport) String() string {
	var b strings.Builder
	b.WriteString("StatusReport([")

	for i, si := range sr.StatusInformation {
		if !si.Asserted {
			continue
		}

		sip := StatusInformationPos(i)
		if si.Time == DtnTimeEpoch {
			fmt.Fprintf(&b, "%v,", sip)
		} else {
			fmt.Fprintf(&b, "%v %v,", sip, si.Time)
		}
	}
	fmt.Fprintf(&b, "], %v, %v", sr.ReportReason, sr.RefBundle)

	return b.String()
}
