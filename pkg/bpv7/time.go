// SPDX-FileCopyrightText: 2018, 2019, 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bpv7

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dtn7/cboring"
)

// DtnTime counts milliseconds since the DTN epoch, 2000-01-01T00:00:00Z, per section 4.2.6.
type DtnTime uint64

// dtnToUnixEpochMillis is the offset between the DTN epoch and the Unix epoch, in milliseconds.
const dtnToUnixEpochMillis = 946684800000

const (
	millisPerSecond      = 1000
	nanosPerMilli   int64 = 1_000_000

	// DtnTimeEpoch is the zero DtnTime value, meaning "no accurate clock available".
	DtnTimeEpoch DtnTime = 0
)

// unixMillis converts this DtnTime to milliseconds since the Unix epoch.
func (t DtnTime) unixMillis() int64 {
	return int64(t) + dtnToUnixEpochMillis
}

// Time converts this DtnTime to a UTC time.Time.
func (t DtnTime) Time() time.Time {
	ms := t.unixMillis()
	return time.Unix(ms/millisPerSecond, (ms%millisPerSecond)*nanosPerMilli).UTC()
}

func (t DtnTime) String() string {
	return t.Time().Format("2006-01-02 15:04:05.000")
}

// DtnTimeFromTime converts a time.Time to a DtnTime.
func DtnTimeFromTime(t time.Time) DtnTime {
	return DtnTime(t.UTC().UnixNano()/nanosPerMilli - dtnToUnixEpochMillis)
}

// DtnTimeNow returns the current time as a DtnTime.
func DtnTimeNow() DtnTime {
	return DtnTimeFromTime(time.Now())
}

// CreationTimestamp pairs a DtnTime with a sequence number, distinguishing bundles a single
// source created within the same millisecond, per section 4.2.7.
type CreationTimestamp [2]uint64

// NewCreationTimestamp pairs t with sequence into a CreationTimestamp.
func NewCreationTimestamp(t DtnTime, sequence uint64) CreationTimestamp {
	return CreationTimestamp{uint64(t), sequence}
}

// DtnTime returns the timestamp's time component.
func (ct CreationTimestamp) DtnTime() DtnTime {
	return DtnTime(ct[0])
}

// IsZeroTime reports whether the time component is the DTN epoch, meaning the source lacked an
// accurate clock when this bundle was created.
func (ct CreationTimestamp) IsZeroTime() bool {
	return ct.DtnTime() == DtnTimeEpoch
}

// SequenceNumber returns the timestamp's sequence component.
func (ct CreationTimestamp) SequenceNumber() uint64 {
	return ct[1]
}

func (ct CreationTimestamp) String() string {
	return fmt.Sprintf("(%v, %d)", DtnTime(ct[0]), ct[1])
}

// MarshalCbor writes a CBOR representation for this CreationTimestamp.
func (ct *CreationTimestamp) MarshalCbor(w io.Writer) error {
	if err := cboring.WriteArrayLength(2, w); err != nil {
		return err
	}

	for _, f := range ct {
		if err := cboring.WriteUInt(f, w); err != nil {
			return err
		}
	}

	return nil
}

// UnmarshalCbor reads a CBOR representation of a CreationTimestamp.
func (ct *CreationTimestamp) UnmarshalCbor(r io.Reader) error {
	if l, err := cboring.ReadArrayLength(r); err != nil {
		return err
	} else if l != 2 {
		return fmt.Errorf("expected array with length 2, got %d", l)
	}

	for i := 0; i < 2; i++ {
		if f, err := cboring.ReadUInt(r); err != nil {
			return err
		} else {
			ct[i] = f
		}
	}

	return nil
}

// MarshalJSON creates a JSON object representing this CreationTimestamp.
func (ct CreationTimestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Date string `json:"date"`
		Seq  uint64 `json:"sequenceNo"`
	}{
		Date: ct.DtnTime().String(),
		Seq:  ct.SequenceNumber(),
	})
}
