// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Erik Beerepoot

package pmu

import (
	"github.com/erikbeerepoot/bramble-sub001/pkg/thorn"
)

// Capacity is the fixed number of schedule slots.
const Capacity = 8

// WateringSchedule is a fixed-capacity store of schedule entries. Slots keep
// their index for their whole lifetime; removal marks a slot unused without
// compacting, so indices handed to the controller stay valid. Invariant: no
// two enabled stored entries overlap.
type WateringSchedule struct {
	entries [Capacity]thorn.ScheduleEntry
	used    [Capacity]bool
}

// NewWateringSchedule creates an empty schedule.
func NewWateringSchedule() *WateringSchedule {
	return &WateringSchedule{}
}

// Count returns the number of live entries.
func (s *WateringSchedule) Count() int {
	n := 0
	for _, u := range s.used {
		if u {
			n++
		}
	}
	return n
}

// Entry returns the entry in the given slot, if the slot is live.
func (s *WateringSchedule) Entry(index int) (thorn.ScheduleEntry, bool) {
	if index < 0 || index >= Capacity || !s.used[index] {
		return thorn.ScheduleEntry{}, false
	}
	return s.entries[index], true
}

// conflicts reports whether the candidate entry overlaps any enabled stored
// entry, skipping the given slot (pass -1 to check all slots). Disabled
// entries never conflict.
func (s *WateringSchedule) conflicts(candidate thorn.ScheduleEntry, skip int) bool {
	if !candidate.Enabled {
		return false
	}
	for i := 0; i < Capacity; i++ {
		if i == skip || !s.used[i] || !s.entries[i].Enabled {
			continue
		}
		if candidate.OverlapsWith(s.entries[i]) {
			return true
		}
	}
	return false
}

// AddEntry inserts the entry at the first free slot. On success it returns
// the slot index and ErrorNone; otherwise -1 and the rejection code. The
// store is unmodified on any failure.
func (s *WateringSchedule) AddEntry(entry thorn.ScheduleEntry) (int, thorn.ErrorCode) {
	slot := -1
	for i := 0; i < Capacity; i++ {
		if !s.used[i] {
			slot = i
			break
		}
	}
	if slot < 0 {
		return -1, thorn.ErrorScheduleFull
	}
	if !entry.IsValid() {
		return -1, thorn.ErrorInvalidParam
	}
	if s.conflicts(entry, -1) {
		return -1, thorn.ErrorOverlap
	}
	s.entries[slot] = entry
	s.used[slot] = true
	return slot, thorn.ErrorNone
}

// UpdateEntry overwrites the entry in a live slot. The slot being updated is
// excluded from the overlap check. The store is unmodified on any failure.
func (s *WateringSchedule) UpdateEntry(index int, entry thorn.ScheduleEntry) thorn.ErrorCode {
	if index < 0 || index >= Capacity || !s.used[index] {
		return thorn.ErrorInvalidIndex
	}
	if !entry.IsValid() {
		return thorn.ErrorInvalidParam
	}
	if s.conflicts(entry, index) {
		return thorn.ErrorOverlap
	}
	s.entries[index] = entry
	return thorn.ErrorNone
}

// RemoveEntry marks a live slot unused.
func (s *WateringSchedule) RemoveEntry(index int) thorn.ErrorCode {
	if index < 0 || index >= Capacity || !s.used[index] {
		return thorn.ErrorInvalidIndex
	}
	s.entries[index] = thorn.ScheduleEntry{}
	s.used[index] = false
	return thorn.ErrorNone
}

// Clear empties the schedule.
func (s *WateringSchedule) Clear() {
	*s = WateringSchedule{}
}

// FindNextEntry scans all enabled entries and returns the slot and entry
// with the smallest minutes-until value from the given wall-clock position.
// Ties break toward the lowest index. The second return is false when the
// schedule is empty, fully disabled, or nothing matches within the lookahead
// window.
func (s *WateringSchedule) FindNextEntry(day, hour, minute uint8) (int, thorn.ScheduleEntry, bool) {
	bestIndex := -1
	bestMinutes := thorn.NoMatch
	for i := 0; i < Capacity; i++ {
		if !s.used[i] || !s.entries[i].Enabled {
			continue
		}
		m := s.entries[i].MinutesUntil(day, hour, minute)
		if m == thorn.NoMatch {
			continue
		}
		if m < bestMinutes {
			bestMinutes = m
			bestIndex = i
		}
	}
	if bestIndex < 0 {
		return -1, thorn.ScheduleEntry{}, false
	}
	return bestIndex, s.entries[bestIndex], true
}
