// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Erik Beerepoot

package thorn

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// FormatFrame formats a frame into a human-readable string.
func FormatFrame(f Frame) string {
	timestamp := f.Timestamp.Format("15:04:05.000")
	name := FormatCode(f.Code)

	result := fmt.Sprintf("[%s] %s (0x%02X) len=%d\n", timestamp, name, f.Code, len(f.Data))
	result += formatPayload(f.Code, f.Data)
	return result
}

// FormatCode returns the human-readable name for a command or response code.
func FormatCode(code uint8) string {
	switch code {
	// Commands (controller → PMU)
	case CmdSetWakeInterval:
		return "SET_WAKE_INTERVAL"
	case CmdGetWakeInterval:
		return "GET_WAKE_INTERVAL"
	case CmdSetSchedule:
		return "SET_SCHEDULE"
	case CmdGetSchedule:
		return "GET_SCHEDULE"
	case CmdClearSchedule:
		return "CLEAR_SCHEDULE"
	case CmdKeepAwake:
		return "KEEP_AWAKE"

	// Responses (PMU → controller)
	case RespAck:
		return "ACK"
	case RespNack:
		return "NACK"
	case RespWakeInterval:
		return "WAKE_INTERVAL"
	case RespScheduleEntry:
		return "SCHEDULE_ENTRY"
	case RespWakeReason:
		return "WAKE_REASON"
	case RespStatus:
		return "STATUS"
	case RespScheduleComplete:
		return "SCHEDULE_COMPLETE"

	default:
		return "UNKNOWN"
	}
}

// FormatErrorCode returns the human-readable name for a NACK error code.
func FormatErrorCode(code ErrorCode) string {
	switch code {
	case ErrorNone:
		return "NO_ERROR"
	case ErrorInvalidParam:
		return "INVALID_PARAM"
	case ErrorScheduleFull:
		return "SCHEDULE_FULL"
	case ErrorInvalidIndex:
		return "INVALID_INDEX"
	case ErrorOverlap:
		return "OVERLAP"
	case ErrorChecksum:
		return "CHECKSUM_ERROR"
	default:
		return "UNKNOWN"
	}
}

// FormatWakeReason returns the human-readable name for a wake reason.
func FormatWakeReason(reason WakeReason) string {
	switch reason {
	case WakeScheduled:
		return "SCHEDULED"
	case WakePeriodic:
		return "PERIODIC"
	case WakeBoot:
		return "BOOT"
	default:
		return "UNKNOWN"
	}
}

// FormatDaysMask renders a day-of-week mask as a comma-separated day list.
func FormatDaysMask(mask uint8) string {
	switch mask & EveryDay {
	case EveryDay:
		return "EveryDay"
	case Weekdays:
		return "Weekdays"
	case Weekend:
		return "Weekend"
	case 0:
		return "None"
	}

	names := []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}
	days := []string{}
	for i := 0; i < 7; i++ {
		if mask&(1<<i) != 0 {
			days = append(days, names[i])
		}
	}
	return strings.Join(days, ",")
}

// FormatScheduleEntry renders a schedule entry on one line.
func FormatScheduleEntry(e ScheduleEntry) string {
	enabled := "enabled"
	if !e.Enabled {
		enabled = "disabled"
	}
	return fmt.Sprintf("%02d:%02d for %ds on %s, valve %d (%s)",
		e.Hour, e.Minute, e.Duration, FormatDaysMask(e.DaysMask), e.ValveID, enabled)
}

func formatPayload(code uint8, data []byte) string {
	switch code {
	case CmdSetWakeInterval:
		if len(data) >= 4 {
			return fmt.Sprintf("  Interval: %d s\n", binary.LittleEndian.Uint32(data))
		}

	case CmdGetWakeInterval, CmdClearSchedule, RespScheduleComplete:
		return "  (no payload)\n"

	case CmdSetSchedule:
		if len(data) >= 1+EntryWireSize {
			entry, err := DecodeScheduleEntry(data[1:])
			if err == nil {
				if data[0] == IndexAdd {
					return fmt.Sprintf("  Add: %s\n", FormatScheduleEntry(entry))
				}
				if entry.IsZero() {
					return fmt.Sprintf("  Remove slot %d\n", data[0])
				}
				return fmt.Sprintf("  Update slot %d: %s\n", data[0], FormatScheduleEntry(entry))
			}
		}

	case CmdGetSchedule:
		if len(data) >= 1 {
			return fmt.Sprintf("  Slot: %d\n", data[0])
		}

	case CmdKeepAwake:
		if len(data) >= 2 {
			return fmt.Sprintf("  Extend: %d s\n", binary.LittleEndian.Uint16(data))
		}

	case RespAck:
		if len(data) >= 1 {
			return fmt.Sprintf("  Command: %s (0x%02X)\n", FormatCode(data[0]), data[0])
		}

	case RespNack:
		if len(data) >= 2 {
			return fmt.Sprintf("  Command: %s (0x%02X), Error: %s (0x%02X)\n",
				FormatCode(data[0]), data[0], FormatErrorCode(ErrorCode(data[1])), data[1])
		}

	case RespWakeInterval:
		if len(data) >= 4 {
			return fmt.Sprintf("  Interval: %d s\n", binary.LittleEndian.Uint32(data))
		}

	case RespScheduleEntry:
		if len(data) >= 2+EntryWireSize {
			entry, err := DecodeScheduleEntry(data[2:])
			if err == nil {
				return fmt.Sprintf("  Slot %d of %d: %s\n", data[0], data[1], FormatScheduleEntry(entry))
			}
		}

	case RespWakeReason:
		if len(data) >= 1 {
			result := fmt.Sprintf("  Reason: %s (0x%02X)\n", FormatWakeReason(WakeReason(data[0])), data[0])
			if len(data) >= 1+EntryWireSize {
				if entry, err := DecodeScheduleEntry(data[1:]); err == nil {
					result += fmt.Sprintf("  Entry: %s\n", FormatScheduleEntry(entry))
				}
			}
			return result
		}

	case RespStatus:
		if len(data) >= 2 {
			states := []string{"BOOTING", "SLEEPING", "SCHEDULED_WAKE", "PERIODIC_WAKE", "ERROR"}
			name := "UNKNOWN"
			if int(data[0]) < len(states) {
				name = states[data[0]]
			}
			pending := "no"
			if data[1] != 0 {
				pending = "yes"
			}
			return fmt.Sprintf("  State: %s (0x%02X), Wake pending: %s\n", name, data[0], pending)
		}
	}

	if len(data) == 0 {
		return "  (no payload)\n"
	}

	// Default: hex dump
	result := "  Payload: "
	for i, b := range data {
		if i > 0 && i%16 == 0 {
			result += "\n           "
		}
		result += fmt.Sprintf("%02X ", b)
	}
	return result + "\n"
}
