// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Erik Beerepoot

package cmd

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/erikbeerepoot/bramble-sub001/pkg/thorn"
	"github.com/spf13/cobra"
)

var (
	responseTimeout int

	// schedule add/update flags
	schedTime     string
	schedDuration uint16
	schedDays     string
	schedValve    uint8
	schedDisabled bool
)

var controlCmd = &cobra.Command{
	Use:   "control",
	Short: "Send commands to the PMU",
	Long: `Send one-shot commands to the PMU and wait for the acknowledgement.

Each subcommand builds a Thorn frame, transmits it, and waits for the ACK,
NACK, or data response addressed to it. A NACK is reported with its decoded
error code (invalid parameter, schedule full, invalid index, overlap).

Supports both serial and WebSocket connections.`,
}

var wakeIntervalCmd = &cobra.Command{
	Use:   "wake-interval [seconds]",
	Short: "Get or set the periodic wake interval",
	Long: `Get or set the PMU's periodic wake interval.

Without an argument, queries the current interval. With a positive number of
seconds, sets a new one.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWakeInterval,
}

var keepAwakeCmd = &cobra.Command{
	Use:   "keep-awake <seconds>",
	Short: "Ask the PMU to stay awake",
	Long: `Ask the PMU to keep the controller powered for the given number of
seconds, restarting the current wake session's timeout.`,
	Args: cobra.ExactArgs(1),
	RunE: runKeepAwake,
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Manage the PMU watering schedule",
	Long: `Manage the PMU's stored watering schedule.

Entries are specified with a start time, a duration in seconds, a day list,
and a valve id. Day lists accept names (sun,mon,...,sat) and the shortcuts
"everyday", "weekdays", and "weekend".

Examples:
  bramble -p /dev/ttyUSB0 control schedule add --time 06:30 --duration 45 --days mon,thu --valve 2
  bramble -p /dev/ttyUSB0 control schedule get 0
  bramble -p /dev/ttyUSB0 control schedule remove 0`,
}

var scheduleAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a watering entry at the first free slot",
	RunE:  runScheduleAdd,
}

var scheduleUpdateCmd = &cobra.Command{
	Use:   "update <slot>",
	Short: "Overwrite the entry in a slot",
	Args:  cobra.ExactArgs(1),
	RunE:  runScheduleUpdate,
}

var scheduleRemoveCmd = &cobra.Command{
	Use:   "remove <slot>",
	Short: "Remove the entry in a slot",
	Args:  cobra.ExactArgs(1),
	RunE:  runScheduleRemove,
}

var scheduleGetCmd = &cobra.Command{
	Use:   "get <slot>",
	Short: "Read back the entry in a slot",
	Args:  cobra.ExactArgs(1),
	RunE:  runScheduleGet,
}

var scheduleClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every schedule entry",
	RunE:  runScheduleClear,
}

func init() {
	rootCmd.AddCommand(controlCmd)
	controlCmd.PersistentFlags().IntVar(&responseTimeout, "timeout", 5, "Response timeout in seconds")

	controlCmd.AddCommand(wakeIntervalCmd)
	controlCmd.AddCommand(keepAwakeCmd)
	controlCmd.AddCommand(scheduleCmd)

	scheduleCmd.AddCommand(scheduleAddCmd)
	scheduleCmd.AddCommand(scheduleUpdateCmd)
	scheduleCmd.AddCommand(scheduleRemoveCmd)
	scheduleCmd.AddCommand(scheduleGetCmd)
	scheduleCmd.AddCommand(scheduleClearCmd)

	for _, c := range []*cobra.Command{scheduleAddCmd, scheduleUpdateCmd} {
		c.Flags().StringVar(&schedTime, "time", "", "Start time as HH:MM (required)")
		c.Flags().Uint16Var(&schedDuration, "duration", 0, "Watering duration in seconds (required)")
		c.Flags().StringVar(&schedDays, "days", "", "Day list, e.g. mon,thu or everyday (required)")
		c.Flags().Uint8Var(&schedValve, "valve", 0, "Valve id")
		c.Flags().BoolVar(&schedDisabled, "disabled", false, "Store the entry disabled")
		c.MarkFlagRequired("time")
		c.MarkFlagRequired("duration")
		c.MarkFlagRequired("days")
	}
}

// parseDaysMask converts a day list like "mon,thu" into a day mask.
func parseDaysMask(s string) (uint8, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "everyday", "all", "daily":
		return thorn.EveryDay, nil
	case "weekdays":
		return thorn.Weekdays, nil
	case "weekend":
		return thorn.Weekend, nil
	}

	dayBits := map[string]uint8{
		"sun": thorn.DaySunday, "mon": thorn.DayMonday, "tue": thorn.DayTuesday,
		"wed": thorn.DayWednesday, "thu": thorn.DayThursday, "fri": thorn.DayFriday,
		"sat": thorn.DaySaturday,
	}

	var mask uint8
	for _, part := range strings.Split(s, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		if len(name) > 3 {
			name = name[:3]
		}
		bit, ok := dayBits[name]
		if !ok {
			return 0, fmt.Errorf("unknown day %q", part)
		}
		mask |= bit
	}
	if mask == 0 {
		return 0, fmt.Errorf("empty day list")
	}
	return mask, nil
}

// parseClock converts "HH:MM" into hour and minute.
func parseClock(s string) (uint8, uint8, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("time must be HH:MM, got %q", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	return uint8(hour), uint8(minute), nil
}

// entryFromFlags builds a schedule entry from the add/update flag set.
func entryFromFlags() (thorn.ScheduleEntry, error) {
	hour, minute, err := parseClock(schedTime)
	if err != nil {
		return thorn.ScheduleEntry{}, err
	}
	mask, err := parseDaysMask(schedDays)
	if err != nil {
		return thorn.ScheduleEntry{}, err
	}
	if schedDuration == 0 {
		return thorn.ScheduleEntry{}, fmt.Errorf("duration must be positive")
	}
	return thorn.ScheduleEntry{
		Hour:     hour,
		Minute:   minute,
		Duration: schedDuration,
		DaysMask: mask,
		ValveID:  schedValve,
		Enabled:  !schedDisabled,
	}, nil
}

func parseSlot(arg string) (uint8, error) {
	slot, err := strconv.Atoi(arg)
	if err != nil || slot < 0 || slot >= int(thorn.IndexAdd) {
		return 0, fmt.Errorf("invalid slot %q", arg)
	}
	return uint8(slot), nil
}

// transact sends one command frame and reads frames until a response arrives
// for it: an ACK/NACK echoing the command, or a data response with the given
// code. Unsolicited frames (wake notifications, status) that arrive in the
// meantime are skipped.
func transact(conn Connection, frame []byte, cmdCode uint8, wantResponse uint8) (thorn.Frame, error) {
	if _, err := conn.Write(frame); err != nil {
		return thorn.Frame{}, fmt.Errorf("write failed: %v", err)
	}

	parser := thorn.NewParser()
	deadline := time.Now().Add(time.Duration(responseTimeout) * time.Second)
	buf := make([]byte, 128)

	for time.Now().Before(deadline) {
		n, err := conn.Read(buf)
		if err != nil {
			if err == ErrConnectionClosed {
				return thorn.Frame{}, fmt.Errorf("connection closed while waiting for response")
			}
			time.Sleep(10 * time.Millisecond)
			continue
		}

		for i := 0; i < n; i++ {
			if !parser.ProcessByte(buf[i]) {
				continue
			}
			resp := parser.Frame()
			parser.Reset()

			switch resp.Code {
			case thorn.RespAck, thorn.RespNack:
				if len(resp.Data) >= 1 && resp.Data[0] == cmdCode {
					return resp, nil
				}
			case wantResponse:
				return resp, nil
			}
			// Unsolicited frame; keep waiting.
		}
	}

	return thorn.Frame{}, fmt.Errorf("timed out after %ds waiting for response", responseTimeout)
}

// checkAck interprets an ACK/NACK transaction result.
func checkAck(resp thorn.Frame) error {
	if resp.Code == thorn.RespNack && len(resp.Data) >= 2 {
		code := thorn.ErrorCode(resp.Data[1])
		return fmt.Errorf("PMU rejected command: %s", thorn.FormatErrorCode(code))
	}
	if resp.Code != thorn.RespAck {
		return fmt.Errorf("unexpected response %s (0x%02X)", thorn.FormatCode(resp.Code), resp.Code)
	}
	return nil
}

func runWakeInterval(cmd *cobra.Command, args []string) error {
	conn, _, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	if len(args) == 0 {
		resp, err := transact(conn, thorn.NewGetWakeInterval(), thorn.CmdGetWakeInterval, thorn.RespWakeInterval)
		if err != nil {
			return err
		}
		if resp.Code != thorn.RespWakeInterval || len(resp.Data) < 4 {
			return checkAck(resp)
		}
		fmt.Printf("Wake interval: %d s\n", binary.LittleEndian.Uint32(resp.Data))
		return nil
	}

	seconds, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil || seconds == 0 {
		return fmt.Errorf("interval must be a positive number of seconds")
	}
	resp, err := transact(conn, thorn.NewSetWakeInterval(uint32(seconds)), thorn.CmdSetWakeInterval, 0)
	if err != nil {
		return err
	}
	if err := checkAck(resp); err != nil {
		return err
	}
	fmt.Printf("Wake interval set to %d s\n", seconds)
	return nil
}

func runKeepAwake(cmd *cobra.Command, args []string) error {
	seconds, err := strconv.ParseUint(args[0], 10, 16)
	if err != nil || seconds == 0 {
		return fmt.Errorf("extension must be a positive number of seconds (max %d)", ^uint16(0))
	}

	conn, _, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	resp, err := transact(conn, thorn.NewKeepAwake(uint16(seconds)), thorn.CmdKeepAwake, 0)
	if err != nil {
		return err
	}
	if err := checkAck(resp); err != nil {
		return err
	}
	fmt.Printf("PMU will stay awake for %d s\n", seconds)
	return nil
}

func runScheduleAdd(cmd *cobra.Command, args []string) error {
	entry, err := entryFromFlags()
	if err != nil {
		return err
	}

	conn, _, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	resp, err := transact(conn, thorn.NewAddScheduleEntry(entry), thorn.CmdSetSchedule, 0)
	if err != nil {
		return err
	}
	if err := checkAck(resp); err != nil {
		return err
	}
	fmt.Printf("Added: %s\n", thorn.FormatScheduleEntry(entry))
	return nil
}

func runScheduleUpdate(cmd *cobra.Command, args []string) error {
	slot, err := parseSlot(args[0])
	if err != nil {
		return err
	}
	entry, err := entryFromFlags()
	if err != nil {
		return err
	}

	conn, _, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	resp, err := transact(conn, thorn.NewUpdateScheduleEntry(slot, entry), thorn.CmdSetSchedule, 0)
	if err != nil {
		return err
	}
	if err := checkAck(resp); err != nil {
		return err
	}
	fmt.Printf("Slot %d updated: %s\n", slot, thorn.FormatScheduleEntry(entry))
	return nil
}

func runScheduleRemove(cmd *cobra.Command, args []string) error {
	slot, err := parseSlot(args[0])
	if err != nil {
		return err
	}

	conn, _, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	resp, err := transact(conn, thorn.NewRemoveScheduleEntry(slot), thorn.CmdSetSchedule, 0)
	if err != nil {
		return err
	}
	if err := checkAck(resp); err != nil {
		return err
	}
	fmt.Printf("Slot %d removed\n", slot)
	return nil
}

func runScheduleGet(cmd *cobra.Command, args []string) error {
	slot, err := parseSlot(args[0])
	if err != nil {
		return err
	}

	conn, _, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	resp, err := transact(conn, thorn.NewGetScheduleEntry(slot), thorn.CmdGetSchedule, thorn.RespScheduleEntry)
	if err != nil {
		return err
	}
	if resp.Code != thorn.RespScheduleEntry {
		return checkAck(resp)
	}
	if len(resp.Data) < 2+thorn.EntryWireSize {
		return fmt.Errorf("short schedule entry response (%d bytes)", len(resp.Data))
	}
	entry, err := thorn.DecodeScheduleEntry(resp.Data[2:])
	if err != nil {
		return fmt.Errorf("malformed schedule entry: %v", err)
	}
	fmt.Printf("Slot %d of %d live entries: %s\n", resp.Data[0], resp.Data[1], thorn.FormatScheduleEntry(entry))
	return nil
}

func runScheduleClear(cmd *cobra.Command, args []string) error {
	conn, _, err := OpenConnection()
	if err != nil {
		return err
	}
	defer conn.Close()

	resp, err := transact(conn, thorn.NewClearSchedule(), thorn.CmdClearSchedule, 0)
	if err != nil {
		return err
	}
	if err := checkAck(resp); err != nil {
		return err
	}
	fmt.Println("Schedule cleared")
	return nil
}
