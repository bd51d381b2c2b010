// SPDX-FileCopyrightText: 2018, 2019, 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bpv7

import (
	"bytes"
	"fmt"
	"time"
)

// BuildErrorKind discriminates the strongly typed errors a BundleBuilder's Build method can
// return, as opposed to the aggregated multierror used by CheckValid.
type BuildErrorKind string

const (
	// ErrNoDestination is returned by Build when no destination EndpointID was set.
	ErrNoDestination BuildErrorKind = "no destination set"

	// ErrNoPayloadBlock is returned by Build when the Bundle has no payload block.
	ErrNoPayloadBlock BuildErrorKind = "no payload block set"

	// ErrMissingData is returned by a Canonical-block helper when its required data argument
	// is absent or of the wrong type.
	ErrMissingData BuildErrorKind = "missing or malformed data"
)

// BuildError is the strongly typed error returned by BundleBuilder methods, as opposed to the
// aggregated error returned by CheckValid.
type BuildError struct {
	Kind    BuildErrorKind
	Message string
}

func newBuildError(kind BuildErrorKind, format string, args ...interface{}) *BuildError {
	return &BuildError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func (e *BuildError) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Is reports whether this BuildError matches target's BuildErrorKind, allowing callers to use
// errors.Is(err, bpv7.ErrNoDestination) style checks against the BuildErrorKind constants, which
// are not themselves errors.
func (e *BuildError) Is(target error) bool {
	other, ok := target.(*BuildError)
	return ok && other.Kind == e.Kind
}

// BundleBuilder is a framework to create Bundles by method chaining.
//
//	bndl, err := bpv7.Builder().
//	  CRC(bpv7.CRC32).
//	  Source("dtn://src/").
//	  Destination("dtn://dest/").
//	  CreationTimestampNow().
//	  Lifetime(30 * time.Minute).
//	  HopCountBlock(64).
//	  PayloadBlock([]byte("hello world!")).
//	  Build()
type BundleBuilder struct {
	err error

	primary          PrimaryBlock
	canonicals       []CanonicalBlock
	canonicalCounter uint64
	crcType          CRCType
}

// Builder creates a new BundleBuilder.
func Builder() *BundleBuilder {
	return &BundleBuilder{
		primary:          PrimaryBlock{Version: dtnVersion},
		canonicalCounter: 2,
		crcType:          CRCNo,
	}
}

// Error returns the BundleBuilder's error, if one is present.
func (bldr *BundleBuilder) Error() error {
	return bldr.err
}

// CRC sets the Bundle's CRC type, applied to both the primary and every canonical block.
func (bldr *BundleBuilder) CRC(crcType CRCType) *BundleBuilder {
	if bldr.err == nil {
		bldr.crcType = crcType
	}
	return bldr
}

// Build validates and returns the constructed Bundle, or the first error encountered while
// chaining, or one of the typed ErrNoDestination / ErrNoPayloadBlock errors.
func (bldr *BundleBuilder) Build() (bndl Bundle, err error) {
	if bldr.err != nil {
		err = bldr.err
		return
	}

	if bldr.primary.ReportTo == (EndpointID{}) {
		bldr.primary.ReportTo = bldr.primary.SourceNode
	}

	if bldr.primary.Destination == (EndpointID{}) {
		err = newBuildError(ErrNoDestination, "Destination must be set before Build")
		return
	}

	hasPayload := false
	for _, cb := range bldr.canonicals {
		if cb.TypeCode() == ExtBlockTypePayloadBlock {
			hasPayload = true
			break
		}
	}
	if !hasPayload {
		err = newBuildError(ErrNoPayloadBlock, "no PayloadBlock was added via Canonical or PayloadBlock")
		return
	}

	if bldr.crcType == CRCNo {
		bldr.primary.SetCRCType(CRC32)
	} else {
		bldr.primary.SetCRCType(bldr.crcType)
	}

	bndl, err = NewBundle(bldr.primary, bldr.canonicals)
	if err != nil {
		return Bundle{}, err
	}
	bndl.SetCRCType(bldr.crcType)

	return
}

// mustBuild is like Build, but panics on an error. Only intended for internal testing.
func (bldr *BundleBuilder) mustBuild() Bundle {
	b, err := bldr.Build()
	if err != nil {
		panic(err)
	}
	return b
}

// bldrParseEndpoint returns an EndpointID for an EndpointID or a URI string.
func bldrParseEndpoint(eid interface{}) (e EndpointID, err error) {
	switch eid := eid.(type) {
	case EndpointID:
		e = eid
	case string:
		e, err = NewEndpointID(eid)
	default:
		err = newBuildError(ErrMissingData, "%T is neither an EndpointID nor a string", eid)
	}
	return
}

// bldrParseLifetime returns a duration in milliseconds, accepting an uint64, an int, a float64
// (as decoded from JSON), a time.ParseDuration-compatible string, or a time.Duration.
func bldrParseLifetime(duration interface{}) (ms uint64, err error) {
	switch duration := duration.(type) {
	case uint64:
		ms = duration
	case int:
		if duration < 0 {
			err = newBuildError(ErrMissingData, "lifetime %d is negative", duration)
		} else {
			ms = uint64(duration)
		}
	case float64:
		if duration < 0 {
			err = newBuildError(ErrMissingData, "lifetime %v is negative", duration)
		} else {
			ms = uint64(duration)
		}
	case string:
		dur, durErr := time.ParseDuration(duration)
		if durErr != nil {
			err = newBuildError(ErrMissingData, "lifetime %q: %v", duration, durErr)
		} else if dur <= 0 {
			err = newBuildError(ErrMissingData, "lifetime %v is not positive", dur)
		} else {
			ms = uint64(dur.Milliseconds())
		}
	case time.Duration:
		ms = uint64(duration.Milliseconds())
	default:
		err = newBuildError(ErrMissingData, "%T is an unsupported type for a Duration", duration)
	}
	return
}

// Destination sets the Bundle's destination, stored in its primary block. eid may be an
// EndpointID or a URI string.
func (bldr *BundleBuilder) Destination(eid interface{}) *BundleBuilder {
	if bldr.err != nil {
		return bldr
	}
	if e, err := bldrParseEndpoint(eid); err != nil {
		bldr.err = err
	} else {
		bldr.primary.Destination = e
	}
	return bldr
}

// Source sets the Bundle's source, stored in its primary block. eid may be an EndpointID or a
// URI string.
func (bldr *BundleBuilder) Source(eid interface{}) *BundleBuilder {
	if bldr.err != nil {
		return bldr
	}
	if e, err := bldrParseEndpoint(eid); err != nil {
		bldr.err = err
	} else {
		bldr.primary.SourceNode = e
	}
	return bldr
}

// ReportTo sets the Bundle's report-to Endpoint, stored in its primary block. If never called,
// Build defaults ReportTo to the Source.
func (bldr *BundleBuilder) ReportTo(eid interface{}) *BundleBuilder {
	if bldr.err != nil {
		return bldr
	}
	if e, err := bldrParseEndpoint(eid); err != nil {
		bldr.err = err
	} else {
		bldr.primary.ReportTo = e
	}
	return bldr
}

func (bldr *BundleBuilder) creationTimestamp(t DtnTime) *BundleBuilder {
	if bldr.err == nil {
		bldr.primary.CreationTimestamp = NewCreationTimestamp(t, 0)
	}
	return bldr
}

// CreationTimestampEpoch sets the Bundle's creation timestamp to the zero epoch, indicating the
// lack of an accurate clock. A Bundle Age Block is then required for validity.
func (bldr *BundleBuilder) CreationTimestampEpoch() *BundleBuilder {
	return bldr.creationTimestamp(DtnTimeEpoch)
}

// CreationTimestampNow sets the Bundle's creation timestamp to the current time.
func (bldr *BundleBuilder) CreationTimestampNow() *BundleBuilder {
	return bldr.creationTimestamp(DtnTimeNow())
}

// CreationTimestampTime sets the Bundle's creation timestamp to a given time.Time.
func (bldr *BundleBuilder) CreationTimestampTime(t time.Time) *BundleBuilder {
	return bldr.creationTimestamp(DtnTimeFromTime(t))
}

// Lifetime sets the Bundle's lifetime, stored in its primary block. duration may be a uint64, int
// or float64 of milliseconds, a time.ParseDuration-compatible string, or a time.Duration.
//
//	Lifetime(1000)             // 1000ms
//	Lifetime("10m")            // 10min
//	Lifetime(10 * time.Minute) // 10min
func (bldr *BundleBuilder) Lifetime(duration interface{}) *BundleBuilder {
	if bldr.err != nil {
		return bldr
	}
	if ms, err := bldrParseLifetime(duration); err != nil {
		bldr.err = err
	} else {
		bldr.primary.Lifetime = ms
	}
	return bldr
}

// BundleCtrlFlags sets the bundle processing control flags in the primary block.
func (bldr *BundleBuilder) BundleCtrlFlags(bcf BundleControlFlags) *BundleBuilder {
	if bldr.err == nil {
		bldr.primary.BundleControlFlags = bcf
	}
	return bldr
}

// Canonical adds a canonical block to the Bundle under construction. Parameters are either
// (ExtensionBlock[, BlockControlFlags]) or a single pre-built CanonicalBlock. Its block number is
// assigned automatically: 1 for the payload block, the next free number otherwise.
func (bldr *BundleBuilder) Canonical(args ...interface{}) *BundleBuilder {
	if bldr.err != nil {
		return bldr
	}
	if len(args) == 0 {
		bldr.err = newBuildError(ErrMissingData, "Canonical called with no parameters")
		return bldr
	}

	assignNumber := func() uint64 {
		n := bldr.canonicalCounter
		bldr.canonicalCounter++
		return n
	}

	switch first := args[0].(type) {
	case ExtensionBlock:
		var bcf BlockControlFlags
		switch len(args) {
		case 1:
		case 2:
			flags, ok := args[1].(BlockControlFlags)
			if !ok {
				bldr.err = newBuildError(ErrMissingData, "Canonical's second parameter must be BlockControlFlags, got %T", args[1])
				return bldr
			}
			bcf = flags
		default:
			bldr.err = newBuildError(ErrMissingData, "Canonical accepts one or two parameters, got %d", len(args))
			return bldr
		}

		var blockNumber uint64 = 1
		if first.BlockTypeCode() != ExtBlockTypePayloadBlock {
			blockNumber = assignNumber()
		}
		bldr.canonicals = append(bldr.canonicals, NewCanonicalBlock(blockNumber, bcf, first))

	case CanonicalBlock:
		cb := first
		if cb.TypeCode() == ExtBlockTypePayloadBlock {
			cb.BlockNumber = 1
		} else {
			cb.BlockNumber = assignNumber()
		}
		bldr.canonicals = append(bldr.canonicals, cb)

	default:
		bldr.err = newBuildError(ErrMissingData, "Canonical received an unknown type %T", first)
	}

	return bldr
}

// BundleAgeBlock adds a Bundle Age Block. args is (age[, BlockControlFlags]), where age is a
// duration understood by Lifetime.
func (bldr *BundleBuilder) BundleAgeBlock(args ...interface{}) *BundleBuilder {
	if bldr.err != nil || len(args) == 0 {
		if len(args) == 0 {
			bldr.err = newBuildError(ErrMissingData, "BundleAgeBlock requires an age argument")
		}
		return bldr
	}

	ms, err := bldrParseLifetime(args[0])
	if err != nil {
		bldr.err = err
		return bldr
	}

	return bldr.Canonical(append([]interface{}{NewBundleAgeBlock(ms)}, bldrFlagArgs(args[1:])...)...)
}

// HopCountBlock adds a Hop Count Block. args is (limit[, BlockControlFlags]).
func (bldr *BundleBuilder) HopCountBlock(args ...interface{}) *BundleBuilder {
	if bldr.err != nil {
		return bldr
	}
	if len(args) == 0 {
		bldr.err = newBuildError(ErrMissingData, "HopCountBlock requires a limit argument")
		return bldr
	}

	var limit uint8
	switch l := args[0].(type) {
	case uint8:
		limit = l
	case int:
		limit = uint8(l)
	default:
		bldr.err = newBuildError(ErrMissingData, "HopCountBlock's limit must be an int or uint8, got %T", args[0])
		return bldr
	}

	return bldr.Canonical(append([]interface{}{NewHopCountBlock(limit)}, bldrFlagArgs(args[1:])...)...)
}

// bldrFlagArgs defaults the Canonical block control flags to ReplicateBlock when the caller did
// not supply one explicitly: Hop Count and Bundle Age blocks are only useful to a receiver if
// they survive fragmentation.
func bldrFlagArgs(args []interface{}) []interface{} {
	if len(args) > 0 {
		return args
	}
	return []interface{}{ReplicateBlock}
}

// PayloadBlock adds the Bundle's payload block. args is (data[, BlockControlFlags]), where data
// is a []byte.
func (bldr *BundleBuilder) PayloadBlock(args ...interface{}) *BundleBuilder {
	if bldr.err != nil {
		return bldr
	}
	if len(args) == 0 {
		bldr.err = newBuildError(ErrMissingData, "PayloadBlock requires a data argument")
		return bldr
	}

	data, ok := args[0].([]byte)
	if !ok {
		bldr.err = newBuildError(ErrMissingData, "PayloadBlock's data must be a []byte, got %T", args[0])
		return bldr
	}

	return bldr.Canonical(append([]interface{}{NewPayloadBlock(data)}, args[1:]...)...)
}

// PreviousNodeBlock adds a Previous Node Block. args is (prevNode[, BlockControlFlags]), where
// prevNode is an EndpointID or a URI string.
func (bldr *BundleBuilder) PreviousNodeBlock(args ...interface{}) *BundleBuilder {
	if bldr.err != nil {
		return bldr
	}
	if len(args) == 0 {
		bldr.err = newBuildError(ErrMissingData, "PreviousNodeBlock requires a prevNode argument")
		return bldr
	}

	eid, err := bldrParseEndpoint(args[0])
	if err != nil {
		bldr.err = err
		return bldr
	}

	return bldr.Canonical(append([]interface{}{NewPreviousNodeBlock(eid)}, args[1:]...)...)
}

// StatusReport adds a bundle status report, referencing refBundle, as this Bundle's
// administrative-record payload, and sets the AdministrativeRecordPayload processing control
// flag. The report is stamped with the current time.
func (bldr *BundleBuilder) StatusReport(refBundle Bundle, statusItem StatusInformationPos, reason StatusReportReason) *BundleBuilder {
	if bldr.err != nil {
		return bldr
	}

	report := NewStatusReport(refBundle, statusItem, reason, DtnTimeNow())

	buff := new(bytes.Buffer)
	if err := GetAdministrativeRecordManager().WriteAdministrativeRecord(report, buff); err != nil {
		bldr.err = err
		return bldr
	}

	bldr.primary.BundleControlFlags |= AdministrativeRecordPayload
	return bldr.PayloadBlock(buff.Bytes())
}

// BuildFromMap creates a Bundle from a map which "calls" the BundleBuilder's methods, suitable
// for constructing a Bundle from an untrusted decoded manifest (e.g. TOML or JSON) without
// reflection.
//
//	args := map[string]interface{}{
//	  "destination":            "dtn://dst/",
//	  "source":                 "dtn://src/",
//	  "creation_timestamp_now": true,
//	  "lifetime":               "24h",
//	  "payload_block":          []byte("hello world"),
//	}
//	b, err := BuildFromMap(args)
func BuildFromMap(m map[string]interface{}) (bndl Bundle, err error) {
	bldr := Builder()

	for method, args := range m {
		switch method {
		case "destination":
			bldr.Destination(args)
		case "source":
			bldr.Source(args)
		case "report_to":
			bldr.ReportTo(args)
		case "creation_timestamp_epoch":
			bldr.CreationTimestampEpoch()
		case "creation_timestamp_now":
			bldr.CreationTimestampNow()
		case "creation_timestamp_time":
			if t, ok := args.(time.Time); ok {
				bldr.CreationTimestampTime(t)
			} else {
				err = newBuildError(ErrMissingData, "creation_timestamp_time needs a time.Time, not %T", args)
			}
		case "lifetime":
			bldr.Lifetime(args)
		case "bundle_ctrl_flags":
			if bcf, ok := args.(BundleControlFlags); ok {
				bldr.BundleCtrlFlags(bcf)
			} else {
				err = newBuildError(ErrMissingData, "bundle_ctrl_flags needs a BundleControlFlags, not %T", args)
			}
		case "bundle_age_block":
			bldr.BundleAgeBlock(args)
		case "hop_count_block":
			bldr.HopCountBlock(args)
		case "payload_block":
			switch data := args.(type) {
			case string:
				bldr.PayloadBlock([]byte(data))
			case []byte:
				bldr.PayloadBlock(data)
			default:
				err = newBuildError(ErrMissingData, "payload_block needs a string or []byte, not %T", args)
			}
		case "previous_node_block":
			bldr.PreviousNodeBlock(args)
		default:
			err = newBuildError(ErrMissingData, "method %q is not supported by BuildFromMap", method)
		}

		if err == nil {
			err = bldr.Error()
		}
		if err != nil {
			return
		}
	}

	return bldr.Build()
}
