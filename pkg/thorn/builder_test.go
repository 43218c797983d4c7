// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Erik Beerepoot

package thorn

import (
	"bytes"
	"testing"
)

// ============================================================
// Builder Tests
// ============================================================

func TestBuilder_MinimalFrame(t *testing.T) {
	b := NewBuilder()
	b.StartMessage(CmdGetWakeInterval)
	frame := b.Finalize()

	expected := []byte{StartByte, 0x01, CmdGetWakeInterval, CmdGetWakeInterval, EndByte}
	if !bytes.Equal(frame, expected) {
		t.Errorf("frame mismatch: expected % X, got % X", expected, frame)
	}
	if b.Len() != len(frame) {
		t.Errorf("Len mismatch: expected %d, got %d", len(frame), b.Len())
	}
}

func TestBuilder_FrameLayout(t *testing.T) {
	b := NewBuilder()
	b.StartMessage(CmdSetWakeInterval)
	b.AddUint32(300)
	frame := b.Finalize()

	if frame[0] != StartByte {
		t.Errorf("expected start byte 0x%02X, got 0x%02X", StartByte, frame[0])
	}
	if frame[len(frame)-1] != EndByte {
		t.Errorf("expected end byte 0x%02X, got 0x%02X", EndByte, frame[len(frame)-1])
	}
	if frame[1] != 5 { // command + 4 data bytes
		t.Errorf("expected length 5, got %d", frame[1])
	}
	if frame[2] != CmdSetWakeInterval {
		t.Errorf("expected command 0x%02X, got 0x%02X", CmdSetWakeInterval, frame[2])
	}
	// 300 = 0x012C little-endian
	if !bytes.Equal(frame[3:7], []byte{0x2C, 0x01, 0x00, 0x00}) {
		t.Errorf("payload mismatch: got % X", frame[3:7])
	}
	if frame[7] != CalculateChecksum(frame[2:7]) {
		t.Errorf("checksum mismatch: expected 0x%02X, got 0x%02X", CalculateChecksum(frame[2:7]), frame[7])
	}
}

func TestBuilder_AddUint16(t *testing.T) {
	b := NewBuilder()
	b.StartMessage(CmdKeepAwake)
	b.AddUint16(0x1234)
	frame := b.Finalize()

	if !bytes.Equal(frame[3:5], []byte{0x34, 0x12}) {
		t.Errorf("expected little-endian 34 12, got % X", frame[3:5])
	}
}

func TestBuilder_Reuse(t *testing.T) {
	b := NewBuilder()
	b.StartMessage(CmdSetWakeInterval)
	b.AddUint32(600)
	b.Finalize()

	// StartMessage must discard the previous payload entirely.
	b.StartMessage(CmdGetWakeInterval)
	frame := b.Finalize()
	if frame[1] != 1 {
		t.Errorf("expected length 1 after reuse, got %d", frame[1])
	}
}

func TestBuilder_BoundedOverflow(t *testing.T) {
	b := NewBuilder()
	b.StartMessage(CmdSetSchedule)
	for i := 0; i < 200; i++ {
		b.AddByte(uint8(i))
	}
	b.AddUint16(0xFFFF)
	b.AddUint32(0xFFFFFFFF)
	b.AddScheduleEntry(ScheduleEntry{Hour: 6, Duration: 60, DaysMask: EveryDay})

	frame := b.Finalize()
	if len(frame) > MaxFrameSize {
		t.Errorf("frame exceeds maximum size: %d > %d", len(frame), MaxFrameSize)
	}
	if frame[1] != uint8(1+MaxDataSize) {
		t.Errorf("expected saturated length %d, got %d", 1+MaxDataSize, frame[1])
	}
}

// ============================================================
// Round-Trip Tests
// ============================================================

func TestRoundTrip_BuilderToParser(t *testing.T) {
	tests := []struct {
		name string
		code uint8
		fill func(*Builder)
		data []byte
	}{
		{"command only", CmdClearSchedule, nil, []byte{}},
		{"single byte", CmdGetSchedule, func(b *Builder) { b.AddByte(3) }, []byte{3}},
		{"uint16", CmdKeepAwake, func(b *Builder) { b.AddUint16(60) }, []byte{0x3C, 0x00}},
		{"uint32", CmdSetWakeInterval, func(b *Builder) { b.AddUint32(300) }, []byte{0x2C, 0x01, 0x00, 0x00}},
		{
			"schedule entry", CmdSetSchedule,
			func(b *Builder) {
				b.AddByte(IndexAdd)
				b.AddScheduleEntry(ScheduleEntry{Hour: 6, Minute: 30, Duration: 300, DaysMask: Weekdays, ValveID: 2, Enabled: true})
			},
			[]byte{IndexAdd, 6, 30, 0x2C, 0x01, Weekdays, 2, 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder()
			b.StartMessage(tt.code)
			if tt.fill != nil {
				tt.fill(b)
			}
			frame := b.Finalize()

			p := NewParser()
			completed := 0
			for _, by := range frame {
				if p.ProcessByte(by) {
					completed++
				}
			}
			if completed != 1 {
				t.Fatalf("expected exactly 1 completed frame, got %d", completed)
			}
			if p.Command() != tt.code {
				t.Errorf("command mismatch: expected 0x%02X, got 0x%02X", tt.code, p.Command())
			}
			if !bytes.Equal(p.Data(), tt.data) {
				t.Errorf("data mismatch: expected % X, got % X", tt.data, p.Data())
			}
		})
	}
}

// ============================================================
// Command Constructor Tests
// ============================================================

func TestCommands_RoundTrip(t *testing.T) {
	entry := ScheduleEntry{Hour: 6, Minute: 0, Duration: 300, DaysMask: EveryDay, ValveID: 0, Enabled: true}

	tests := []struct {
		name     string
		frame    []byte
		code     uint8
		dataLen  int
		check    func(t *testing.T, data []byte)
	}{
		{"set wake interval", NewSetWakeInterval(300), CmdSetWakeInterval, 4, func(t *testing.T, data []byte) {
			if !bytes.Equal(data, []byte{0x2C, 0x01, 0x00, 0x00}) {
				t.Errorf("payload mismatch: got % X", data)
			}
		}},
		{"get wake interval", NewGetWakeInterval(), CmdGetWakeInterval, 0, nil},
		{"add entry", NewAddScheduleEntry(entry), CmdSetSchedule, 8, func(t *testing.T, data []byte) {
			if data[0] != IndexAdd {
				t.Errorf("expected add sentinel 0x%02X, got 0x%02X", IndexAdd, data[0])
			}
			decoded, err := DecodeScheduleEntry(data[1:])
			if err != nil {
				t.Fatalf("decode error: %v", err)
			}
			if decoded != entry {
				t.Errorf("entry mismatch: expected %+v, got %+v", entry, decoded)
			}
		}},
		{"update entry", NewUpdateScheduleEntry(2, entry), CmdSetSchedule, 8, func(t *testing.T, data []byte) {
			if data[0] != 2 {
				t.Errorf("expected index 2, got %d", data[0])
			}
		}},
		{"remove entry", NewRemoveScheduleEntry(1), CmdSetSchedule, 8, func(t *testing.T, data []byte) {
			decoded, _ := DecodeScheduleEntry(data[1:])
			if !decoded.IsZero() {
				t.Errorf("expected zero entry, got %+v", decoded)
			}
		}},
		{"get entry", NewGetScheduleEntry(4), CmdGetSchedule, 1, nil},
		{"clear", NewClearSchedule(), CmdClearSchedule, 0, nil},
		{"keep awake", NewKeepAwake(120), CmdKeepAwake, 2, func(t *testing.T, data []byte) {
			if !bytes.Equal(data, []byte{0x78, 0x00}) {
				t.Errorf("payload mismatch: got % X", data)
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewParser()
			done := false
			for _, by := range tt.frame {
				if p.ProcessByte(by) {
					done = true
				}
			}
			if !done {
				t.Fatal("constructed frame did not parse")
			}
			if p.Command() != tt.code {
				t.Errorf("command mismatch: expected 0x%02X, got 0x%02X", tt.code, p.Command())
			}
			if len(p.Data()) != tt.dataLen {
				t.Fatalf("data length mismatch: expected %d, got %d", tt.dataLen, len(p.Data()))
			}
			if tt.check != nil {
				tt.check(t, p.Data())
			}
		})
	}
}
