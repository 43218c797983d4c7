// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Erik Beerepoot

package pmu

import (
	"testing"

	"github.com/erikbeerepoot/bramble-sub001/pkg/thorn"
)

func entry(hour, minute uint8, duration uint16, days uint8) thorn.ScheduleEntry {
	return thorn.ScheduleEntry{
		Hour:     hour,
		Minute:   minute,
		Duration: duration,
		DaysMask: days,
		Enabled:  true,
	}
}

// ============================================================
// Add / Update / Remove
// ============================================================

func TestSchedule_AddEntry(t *testing.T) {
	s := NewWateringSchedule()

	slot, code := s.AddEntry(entry(6, 0, 30, thorn.DayMonday))
	if slot != 0 || code != thorn.ErrorNone {
		t.Fatalf("first add: slot %d code %v, expected 0 ErrorNone", slot, code)
	}
	slot, code = s.AddEntry(entry(18, 0, 30, thorn.DayMonday))
	if slot != 1 || code != thorn.ErrorNone {
		t.Fatalf("second add: slot %d code %v, expected 1 ErrorNone", slot, code)
	}
	if s.Count() != 2 {
		t.Errorf("count %d, expected 2", s.Count())
	}
}

func TestSchedule_AddRejectsInvalid(t *testing.T) {
	tests := []struct {
		name  string
		entry thorn.ScheduleEntry
	}{
		{"hour out of range", entry(24, 0, 30, thorn.DayMonday)},
		{"minute out of range", entry(6, 60, 30, thorn.DayMonday)},
		{"zero duration", entry(6, 0, 0, thorn.DayMonday)},
		{"empty days mask", entry(6, 0, 30, 0)},
		{"reserved mask bit", entry(6, 0, 30, 0x80)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewWateringSchedule()
			slot, code := s.AddEntry(tt.entry)
			if slot != -1 || code != thorn.ErrorInvalidParam {
				t.Errorf("slot %d code %v, expected -1 ErrorInvalidParam", slot, code)
			}
			if s.Count() != 0 {
				t.Errorf("store modified on rejected add")
			}
		})
	}
}

func TestSchedule_AddRejectsOverlap(t *testing.T) {
	s := NewWateringSchedule()
	// 06:00-06:30; duration is in seconds.
	if _, code := s.AddEntry(entry(6, 0, 1800, thorn.DayMonday)); code != thorn.ErrorNone {
		t.Fatalf("seed add failed: %v", code)
	}

	// Starts inside the seed's window, same day
	if _, code := s.AddEntry(entry(6, 15, 30, thorn.DayMonday)); code != thorn.ErrorOverlap {
		t.Errorf("overlapping add: code %v, expected ErrorOverlap", code)
	}
	// Same time, disjoint day is fine
	if _, code := s.AddEntry(entry(6, 15, 30, thorn.DayTuesday)); code != thorn.ErrorNone {
		t.Errorf("disjoint-day add: code %v, expected ErrorNone", code)
	}
	// Disabled entries never conflict
	disabled := entry(6, 15, 30, thorn.DayMonday)
	disabled.Enabled = false
	if _, code := s.AddEntry(disabled); code != thorn.ErrorNone {
		t.Errorf("disabled add: code %v, expected ErrorNone", code)
	}
}

func TestSchedule_Full(t *testing.T) {
	s := NewWateringSchedule()
	for i := 0; i < Capacity; i++ {
		// One per day across the week, two time windows.
		e := entry(uint8(6+i), 0, 30, thorn.EveryDay)
		if slot, code := s.AddEntry(e); code != thorn.ErrorNone || slot != i {
			t.Fatalf("add %d: slot %d code %v", i, slot, code)
		}
	}
	if _, code := s.AddEntry(entry(22, 0, 30, thorn.EveryDay)); code != thorn.ErrorScheduleFull {
		t.Errorf("add to full schedule: code %v, expected ErrorScheduleFull", code)
	}
}

func TestSchedule_FullCheckedBeforeValidity(t *testing.T) {
	s := NewWateringSchedule()
	for i := 0; i < Capacity; i++ {
		s.AddEntry(entry(uint8(6+i), 0, 30, thorn.EveryDay))
	}
	// A full schedule reports ScheduleFull even for an invalid candidate.
	if _, code := s.AddEntry(entry(24, 0, 30, thorn.DayMonday)); code != thorn.ErrorScheduleFull {
		t.Errorf("code %v, expected ErrorScheduleFull", code)
	}
}

func TestSchedule_UpdateEntry(t *testing.T) {
	s := NewWateringSchedule()
	s.AddEntry(entry(6, 0, 1800, thorn.DayMonday))  // 06:00-06:30
	s.AddEntry(entry(18, 0, 1800, thorn.DayMonday)) // 18:00-18:30

	// Moving slot 0 is allowed to overlap its own old window.
	if code := s.UpdateEntry(0, entry(6, 10, 1800, thorn.DayMonday)); code != thorn.ErrorNone {
		t.Fatalf("self-overlapping update: code %v, expected ErrorNone", code)
	}
	got, ok := s.Entry(0)
	if !ok || got.Minute != 10 {
		t.Errorf("entry not updated: %+v", got)
	}

	// But not into slot 1's window.
	if code := s.UpdateEntry(0, entry(18, 10, 30, thorn.DayMonday)); code != thorn.ErrorOverlap {
		t.Errorf("update into other slot's window: code %v, expected ErrorOverlap", code)
	}
	// Failed update leaves the slot unchanged.
	got, _ = s.Entry(0)
	if got.Hour != 6 || got.Minute != 10 {
		t.Errorf("slot modified by rejected update: %+v", got)
	}

	if code := s.UpdateEntry(5, entry(9, 0, 30, thorn.DayMonday)); code != thorn.ErrorInvalidIndex {
		t.Errorf("update of empty slot: code %v, expected ErrorInvalidIndex", code)
	}
	if code := s.UpdateEntry(Capacity, entry(9, 0, 30, thorn.DayMonday)); code != thorn.ErrorInvalidIndex {
		t.Errorf("update past capacity: code %v, expected ErrorInvalidIndex", code)
	}
	if code := s.UpdateEntry(1, entry(25, 0, 30, thorn.DayMonday)); code != thorn.ErrorInvalidParam {
		t.Errorf("invalid update: code %v, expected ErrorInvalidParam", code)
	}
}

func TestSchedule_RemoveKeepsIndicesStable(t *testing.T) {
	s := NewWateringSchedule()
	s.AddEntry(entry(6, 0, 30, thorn.DayMonday))
	s.AddEntry(entry(12, 0, 30, thorn.DayMonday))
	s.AddEntry(entry(18, 0, 30, thorn.DayMonday))

	if code := s.RemoveEntry(1); code != thorn.ErrorNone {
		t.Fatalf("remove: code %v", code)
	}
	if s.Count() != 2 {
		t.Errorf("count %d, expected 2", s.Count())
	}
	// Slot 2 keeps its entry; no compaction.
	got, ok := s.Entry(2)
	if !ok || got.Hour != 18 {
		t.Errorf("slot 2 moved after removal: %+v ok=%v", got, ok)
	}
	if _, ok := s.Entry(1); ok {
		t.Errorf("removed slot still live")
	}
	// The freed slot is reused by the next add.
	if slot, code := s.AddEntry(entry(21, 0, 30, thorn.DayMonday)); slot != 1 || code != thorn.ErrorNone {
		t.Errorf("re-add: slot %d code %v, expected 1 ErrorNone", slot, code)
	}

	if code := s.RemoveEntry(5); code != thorn.ErrorInvalidIndex {
		t.Errorf("remove empty slot: code %v, expected ErrorInvalidIndex", code)
	}
	if code := s.RemoveEntry(-1); code != thorn.ErrorInvalidIndex {
		t.Errorf("remove negative: code %v, expected ErrorInvalidIndex", code)
	}
}

func TestSchedule_Clear(t *testing.T) {
	s := NewWateringSchedule()
	s.AddEntry(entry(6, 0, 30, thorn.DayMonday))
	s.AddEntry(entry(18, 0, 30, thorn.DayMonday))
	s.Clear()
	if s.Count() != 0 {
		t.Errorf("count %d after clear, expected 0", s.Count())
	}
	if slot, code := s.AddEntry(entry(6, 0, 30, thorn.DayMonday)); slot != 0 || code != thorn.ErrorNone {
		t.Errorf("add after clear: slot %d code %v", slot, code)
	}
}

// ============================================================
// Next Entry Search
// ============================================================

func TestSchedule_FindNextEntry(t *testing.T) {
	s := NewWateringSchedule()
	s.AddEntry(entry(6, 0, 30, thorn.DayMonday))    // slot 0
	s.AddEntry(entry(18, 0, 30, thorn.DayMonday))   // slot 1
	s.AddEntry(entry(12, 0, 30, thorn.DaySaturday)) // slot 2

	tests := []struct {
		name                 string
		day, hour, minute    uint8
		wantIndex            int
		wantHour, wantMinute uint8
	}{
		{"monday early morning", 1, 5, 0, 0, 6, 0},
		{"monday exactly at start", 1, 6, 0, 0, 6, 0},
		{"monday midday", 1, 7, 0, 1, 18, 0},
		{"monday evening wraps to saturday", 1, 19, 0, 2, 12, 0},
		{"sunday", 0, 0, 0, 0, 6, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			index, e, ok := s.FindNextEntry(tt.day, tt.hour, tt.minute)
			if !ok {
				t.Fatalf("no entry found")
			}
			if index != tt.wantIndex || e.Hour != tt.wantHour || e.Minute != tt.wantMinute {
				t.Errorf("got slot %d (%02d:%02d), expected slot %d (%02d:%02d)",
					index, e.Hour, e.Minute, tt.wantIndex, tt.wantHour, tt.wantMinute)
			}
		})
	}
}

func TestSchedule_FindNextEntrySkipsDisabled(t *testing.T) {
	s := NewWateringSchedule()
	disabled := entry(6, 0, 30, thorn.EveryDay)
	disabled.Enabled = false
	s.AddEntry(disabled)

	if _, _, ok := s.FindNextEntry(1, 5, 0); ok {
		t.Errorf("disabled entry returned as next trigger")
	}

	s.AddEntry(entry(8, 0, 30, thorn.EveryDay))
	index, e, ok := s.FindNextEntry(1, 5, 0)
	if !ok || index != 1 || e.Hour != 8 {
		t.Errorf("got slot %d (%+v) ok=%v, expected slot 1 at 08:00", index, e, ok)
	}
}

func TestSchedule_FindNextEntryEmpty(t *testing.T) {
	s := NewWateringSchedule()
	if index, _, ok := s.FindNextEntry(1, 5, 0); ok || index != -1 {
		t.Errorf("empty schedule: slot %d ok=%v, expected -1 false", index, ok)
	}
}

func TestSchedule_FindNextEntryPicksNearest(t *testing.T) {
	s := NewWateringSchedule()
	s.AddEntry(entry(6, 0, 30, thorn.DayMonday))
	s.AddEntry(entry(6, 0, 30, thorn.DayTuesday))

	// Sunday midnight: Monday 06:00 comes first.
	index, _, ok := s.FindNextEntry(0, 0, 0)
	if !ok || index != 0 {
		t.Errorf("slot %d ok=%v, expected slot 0", index, ok)
	}
	// Monday noon: Tuesday 06:00 is nearer than next Monday.
	index, _, ok = s.FindNextEntry(1, 12, 0)
	if !ok || index != 1 {
		t.Errorf("slot %d ok=%v, expected slot 1", index, ok)
	}
}
