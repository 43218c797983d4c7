// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Erik Beerepoot

package thorn

// Command builder functions produce wire-ready frames for the controller
// side of the link. Each returns a fresh byte slice safe to retain.

func buildFrame(command uint8, fill func(*Builder)) []byte {
	b := NewBuilder()
	b.StartMessage(command)
	if fill != nil {
		fill(b)
	}
	frame := b.Finalize()
	out := make([]byte, len(frame))
	copy(out, frame)
	return out
}

// NewSetWakeInterval creates a SET_WAKE_INTERVAL frame (0x10).
// The interval is the periodic-wake cadence in seconds.
func NewSetWakeInterval(seconds uint32) []byte {
	return buildFrame(CmdSetWakeInterval, func(b *Builder) {
		b.AddUint32(seconds)
	})
}

// NewGetWakeInterval creates a GET_WAKE_INTERVAL frame (0x11).
// The PMU answers with a WAKE_INTERVAL response.
func NewGetWakeInterval() []byte {
	return buildFrame(CmdGetWakeInterval, nil)
}

// NewAddScheduleEntry creates a SET_SCHEDULE frame (0x12) that inserts the
// entry at the first free slot.
func NewAddScheduleEntry(e ScheduleEntry) []byte {
	return buildFrame(CmdSetSchedule, func(b *Builder) {
		b.AddByte(IndexAdd)
		b.AddScheduleEntry(e)
	})
}

// NewUpdateScheduleEntry creates a SET_SCHEDULE frame (0x12) that overwrites
// the entry at the given slot.
func NewUpdateScheduleEntry(index uint8, e ScheduleEntry) []byte {
	return buildFrame(CmdSetSchedule, func(b *Builder) {
		b.AddByte(index)
		b.AddScheduleEntry(e)
	})
}

// NewRemoveScheduleEntry creates a SET_SCHEDULE frame (0x12) carrying an
// all-zero entry, which clears the given slot.
func NewRemoveScheduleEntry(index uint8) []byte {
	return buildFrame(CmdSetSchedule, func(b *Builder) {
		b.AddByte(index)
		b.AddScheduleEntry(ScheduleEntry{})
	})
}

// NewGetScheduleEntry creates a GET_SCHEDULE frame (0x13) for one slot.
// The PMU answers with a SCHEDULE_ENTRY response or NACK(InvalidIndex).
func NewGetScheduleEntry(index uint8) []byte {
	return buildFrame(CmdGetSchedule, func(b *Builder) {
		b.AddByte(index)
	})
}

// NewClearSchedule creates a CLEAR_SCHEDULE frame (0x14).
func NewClearSchedule() []byte {
	return buildFrame(CmdClearSchedule, nil)
}

// NewKeepAwake creates a KEEP_AWAKE frame (0x15) requesting the current wake
// session be extended by the given number of seconds.
func NewKeepAwake(seconds uint16) []byte {
	return buildFrame(CmdKeepAwake, func(b *Builder) {
		b.AddUint16(seconds)
	})
}
