// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Erik Beerepoot

// Package thorn provides a reference Go implementation of the Thorn PMU link
// protocol.
//
// Thorn is a binary protocol spoken between the power-management unit (PMU)
// and the main controller of a Bramble irrigation node. This package provides
// frame parsing/building, checksum validation, watering-schedule entry
// encoding, and payload formatting.
package thorn

// Protocol framing bytes
const (
	StartByte = 0xAA
	EndByte   = 0x55
)

// Frame size limits. Length counts the command byte plus data bytes;
// framing overhead is start, length, checksum, and end bytes.
const (
	MaxFrameSize  = 64
	FrameOverhead = 4
	MaxLength     = MaxFrameSize - FrameOverhead
	MaxDataSize   = MaxLength - 1
)

// Schedule entry wire encoding: hour, minute, duration (u16 LE), days mask,
// valve id, enabled flag.
const EntryWireSize = 7

// Commands (controller → PMU) 0x10-0x1F
const (
	CmdSetWakeInterval = 0x10
	CmdGetWakeInterval = 0x11
	CmdSetSchedule     = 0x12
	CmdGetSchedule     = 0x13
	CmdClearSchedule   = 0x14
	CmdKeepAwake       = 0x15
)

// Responses (PMU → controller) 0x80-0x8F
const (
	RespAck              = 0x80
	RespNack             = 0x81
	RespWakeInterval     = 0x82
	RespScheduleEntry    = 0x83
	RespWakeReason       = 0x84
	RespStatus           = 0x85
	RespScheduleComplete = 0x86
)

// IndexAdd is the SET_SCHEDULE index that requests insertion at the first
// free slot instead of updating an existing one.
const IndexAdd = 0xFF

// ErrorCode identifies why a command was rejected (carried in NACK payloads)
type ErrorCode uint8

// Error code values
const (
	ErrorNone         ErrorCode = 0x00
	ErrorInvalidParam ErrorCode = 0x01
	ErrorScheduleFull ErrorCode = 0x02
	ErrorInvalidIndex ErrorCode = 0x03
	ErrorOverlap      ErrorCode = 0x04
	ErrorChecksum     ErrorCode = 0x05
)

// WakeReason identifies why the node powered on (WAKE_REASON payload)
type WakeReason uint8

// Wake reason values
const (
	WakeScheduled WakeReason = 0x01
	WakePeriodic  WakeReason = 0x02
	WakeBoot      WakeReason = 0x03
)

// Day-of-week mask bits (Sunday = bit 0)
const (
	DaySunday    = 1 << 0
	DayMonday    = 1 << 1
	DayTuesday   = 1 << 2
	DayWednesday = 1 << 3
	DayThursday  = 1 << 4
	DayFriday    = 1 << 5
	DaySaturday  = 1 << 6

	EveryDay = 0x7F
	Weekdays = DayMonday | DayTuesday | DayWednesday | DayThursday | DayFriday
	Weekend  = DaySaturday | DaySunday
)

// Parser states (internal)
const (
	stateWaitStart = iota
	stateLength
	stateCommand
	stateData
	stateChecksum
	stateEnd
)
