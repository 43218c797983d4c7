// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Erik Beerepoot

package thorn

import (
	"encoding/binary"
	"fmt"
)

// NoMatch is returned by MinutesUntil when no day in the mask matches
// within the lookahead window.
const NoMatch = ^uint32(0)

const (
	secondsPerDay  = 24 * 60 * 60
	secondsPerWeek = 7 * secondsPerDay
	minutesPerDay  = 24 * 60
)

// ScheduleEntry is one timed valve-activation rule with day-of-week
// recurrence. Entries are stored and passed by value.
type ScheduleEntry struct {
	Hour     uint8
	Minute   uint8
	Duration uint16 // seconds
	DaysMask uint8
	ValveID  uint8
	Enabled  bool
}

// IsValid reports whether the entry satisfies the basic field constraints:
// hour < 24, minute < 60, duration > 0, and at least one day selected.
func (e ScheduleEntry) IsValid() bool {
	return e.Hour < 24 && e.Minute < 60 && e.Duration > 0 && e.DaysMask&EveryDay != 0
}

// IsZero reports whether every field of the entry is zero. A zero entry at a
// named index in SET_SCHEDULE requests removal of that slot.
func (e ScheduleEntry) IsZero() bool {
	return e == ScheduleEntry{}
}

// MatchesDay reports whether the entry recurs on the given day of week
// (0 = Sunday .. 6 = Saturday).
func (e ScheduleEntry) MatchesDay(day uint8) bool {
	return e.DaysMask&(1<<(day%7)) != 0
}

// startSeconds returns the entry's start time as seconds since midnight.
func (e ScheduleEntry) startSeconds() uint32 {
	return uint32(e.Hour)*3600 + uint32(e.Minute)*60
}

// OverlapsWith reports whether the two entries' activation windows intersect
// on any shared day. Windows are compared on a circular weekly timeline so a
// window crossing midnight collides correctly with entries on the following
// day. Windows that merely touch (one ends exactly when the other begins) do
// not overlap.
func (e ScheduleEntry) OverlapsWith(other ScheduleEntry) bool {
	for dayA := uint8(0); dayA < 7; dayA++ {
		if !e.MatchesDay(dayA) {
			continue
		}
		startA := uint32(dayA)*secondsPerDay + e.startSeconds()
		for dayB := uint8(0); dayB < 7; dayB++ {
			if !other.MatchesDay(dayB) {
				continue
			}
			startB := uint32(dayB)*secondsPerDay + other.startSeconds()
			if arcsIntersect(startA, uint32(e.Duration), startB, uint32(other.Duration)) {
				return true
			}
		}
	}
	return false
}

// arcsIntersect tests intersection of two half-open arcs [a, a+lenA) and
// [b, b+lenB) on a circle of secondsPerWeek seconds. Both offsets must be
// less than secondsPerWeek.
func arcsIntersect(a, lenA, b, lenB uint32) bool {
	return (b+secondsPerWeek-a)%secondsPerWeek < lenA ||
		(a+secondsPerWeek-b)%secondsPerWeek < lenB
}

// MinutesUntil returns the number of minutes from the given wall-clock
// position to this entry's next start time, looking ahead up to seven days.
// A start at exactly the given time yields zero. Returns NoMatch if the days
// mask selects no day.
func (e ScheduleEntry) MinutesUntil(currentDay, currentHour, currentMinute uint8) uint32 {
	if e.DaysMask&EveryDay == 0 {
		return NoMatch
	}

	now := uint32(currentHour)*60 + uint32(currentMinute)
	start := uint32(e.Hour)*60 + uint32(e.Minute)

	for offset := uint32(0); offset <= 7; offset++ {
		day := uint8((uint32(currentDay) + offset) % 7)
		if !e.MatchesDay(day) {
			continue
		}
		if offset == 0 && start < now {
			// Already passed today; the next occurrence on this day is a
			// full week out (offset 7).
			continue
		}
		return offset*minutesPerDay + start - now
	}
	return NoMatch
}

// AppendWire appends the 7-byte wire encoding of the entry to dst.
func (e ScheduleEntry) AppendWire(dst []byte) []byte {
	var dur [2]byte
	binary.LittleEndian.PutUint16(dur[:], e.Duration)
	enabled := byte(0)
	if e.Enabled {
		enabled = 1
	}
	return append(dst, e.Hour, e.Minute, dur[0], dur[1], e.DaysMask, e.ValveID, enabled)
}

// DecodeScheduleEntry decodes a 7-byte wire encoding produced by AppendWire
// or Builder.AddScheduleEntry.
func DecodeScheduleEntry(data []byte) (ScheduleEntry, error) {
	if len(data) < EntryWireSize {
		return ScheduleEntry{}, fmt.Errorf("schedule entry too short: %d bytes (need %d)", len(data), EntryWireSize)
	}
	return ScheduleEntry{
		Hour:     data[0],
		Minute:   data[1],
		Duration: binary.LittleEndian.Uint16(data[2:4]),
		DaysMask: data[4],
		ValveID:  data[5],
		Enabled:  data[6] != 0,
	}, nil
}
