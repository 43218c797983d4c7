// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Erik Beerepoot

package thorn

import (
	"bytes"
	"io"
	"testing"
	"time"
)

// ============================================================
// Capture Stream Tests
// ============================================================

func TestCapture_RoundTrip(t *testing.T) {
	ts := time.Date(2025, time.June, 14, 6, 30, 0, 0, time.UTC)
	records := []CaptureRecord{
		{Timestamp: ts, Direction: DirectionTx, Code: CmdGetWakeInterval},
		{Timestamp: ts.Add(50 * time.Millisecond), Direction: DirectionRx, Code: RespWakeInterval, Data: []byte{0x58, 0x02, 0x00, 0x00}},
		{Timestamp: ts.Add(time.Second), Direction: DirectionRx, Code: RespNack, Data: []byte{CmdSetSchedule, byte(ErrorOverlap)}, Note: "overlap rejection"},
	}

	var buf bytes.Buffer
	w := NewCaptureWriter(&buf)
	for _, rec := range records {
		if err := w.Write(rec); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	r := NewCaptureReader(&buf)
	for i, want := range records {
		got, err := r.Next()
		if err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
		if !got.Timestamp.Equal(want.Timestamp) {
			t.Errorf("record %d: timestamp %v, expected %v", i, got.Timestamp, want.Timestamp)
		}
		if got.Direction != want.Direction || got.Code != want.Code || got.Note != want.Note {
			t.Errorf("record %d: got %+v, expected %+v", i, got, want)
		}
		if !bytes.Equal(got.Data, want.Data) {
			t.Errorf("record %d: data %x, expected %x", i, got.Data, want.Data)
		}
	}
	if _, err := r.Next(); err != io.EOF {
		t.Errorf("expected EOF after last record, got %v", err)
	}
}

func TestCapture_WriteFrame(t *testing.T) {
	var buf bytes.Buffer
	w := NewCaptureWriter(&buf)

	frame := Frame{Code: RespAck, Data: []byte{CmdKeepAwake}, Timestamp: time.Now()}
	if err := w.WriteFrame(DirectionRx, frame); err != nil {
		t.Fatalf("write frame: %v", err)
	}

	rec, err := NewCaptureReader(&buf).Next()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	got := rec.Frame()
	if got.Code != frame.Code || !bytes.Equal(got.Data, frame.Data) {
		t.Errorf("frame round-trip mismatch: got %+v, expected %+v", got, frame)
	}
	if rec.Direction != DirectionRx {
		t.Errorf("direction %q, expected %q", rec.Direction, DirectionRx)
	}
}
