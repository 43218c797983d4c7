// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Erik Beerepoot

package pmu

import (
	"encoding/binary"
	"io"

	"github.com/erikbeerepoot/bramble-sub001/pkg/thorn"
)

// Callbacks are the collaborator hooks the protocol handler invokes when a
// command changes power-management configuration. Handlers must not block;
// they run inline on the byte-processing path.
type Callbacks struct {
	// SetWakeInterval is invoked after a SET_WAKE_INTERVAL command is
	// accepted, with the new periodic-wake cadence in seconds.
	SetWakeInterval func(seconds uint32)
	// KeepAwake is invoked after a KEEP_AWAKE command is accepted, with the
	// requested extension in seconds.
	KeepAwake func(seconds uint32)
}

// ProtocolHandler owns one parser, one builder, and the watering schedule,
// and serves the PMU side of the Thorn link. Received bytes are fed through
// ProcessReceivedByte; every outbound frame goes through the builder and the
// injected writer; the handler never touches the transport directly.
type ProtocolHandler struct {
	parser   *thorn.Parser
	builder  *thorn.Builder
	schedule *WateringSchedule

	wakeInterval uint32 // seconds
	out          io.Writer
	callbacks    Callbacks
}

// NewProtocolHandler creates a handler writing responses to out. The default
// wake interval is chosen by the surrounding application.
func NewProtocolHandler(out io.Writer, defaultWakeInterval uint32, cb Callbacks) *ProtocolHandler {
	return &ProtocolHandler{
		parser:       thorn.NewParser(),
		builder:      thorn.NewBuilder(),
		schedule:     NewWateringSchedule(),
		wakeInterval: defaultWakeInterval,
		out:          out,
		callbacks:    cb,
	}
}

// Schedule returns the handler-owned watering schedule.
func (h *ProtocolHandler) Schedule() *WateringSchedule {
	return h.schedule
}

// WakeInterval returns the current periodic-wake cadence in seconds.
func (h *ProtocolHandler) WakeInterval() uint32 {
	return h.wakeInterval
}

// Parser returns the handler-owned parser, for inspection of discard
// counters.
func (h *ProtocolHandler) Parser() *thorn.Parser {
	return h.parser
}

// NextScheduledEntry is a read-only delegate to the schedule's next-trigger
// search.
func (h *ProtocolHandler) NextScheduledEntry(day, hour, minute uint8) (int, thorn.ScheduleEntry, bool) {
	return h.schedule.FindNextEntry(day, hour, minute)
}

// ProcessReceivedByte feeds one received byte to the parser and, when it
// completes a frame, dispatches the command and emits the response. The
// returned error is a transport write failure only; malformed frames are
// absorbed by the parser and semantic failures answer with a NACK.
func (h *ProtocolHandler) ProcessReceivedByte(b byte) error {
	if !h.parser.ProcessByte(b) {
		return nil
	}
	cmd := h.parser.Command()
	data := h.parser.Data()
	err := h.dispatch(cmd, data)
	h.parser.Reset()
	return err
}

func (h *ProtocolHandler) dispatch(cmd uint8, data []byte) error {
	switch cmd {
	case thorn.CmdSetWakeInterval:
		return h.handleSetWakeInterval(data)
	case thorn.CmdGetWakeInterval:
		return h.handleGetWakeInterval(data)
	case thorn.CmdSetSchedule:
		return h.handleSetSchedule(data)
	case thorn.CmdGetSchedule:
		return h.handleGetSchedule(data)
	case thorn.CmdClearSchedule:
		return h.handleClearSchedule(data)
	case thorn.CmdKeepAwake:
		return h.handleKeepAwake(data)
	default:
		return h.sendNack(cmd, thorn.ErrorInvalidParam)
	}
}

func (h *ProtocolHandler) handleSetWakeInterval(data []byte) error {
	if len(data) != 4 {
		return h.sendNack(thorn.CmdSetWakeInterval, thorn.ErrorInvalidParam)
	}
	seconds := binary.LittleEndian.Uint32(data)
	if seconds == 0 {
		return h.sendNack(thorn.CmdSetWakeInterval, thorn.ErrorInvalidParam)
	}
	h.wakeInterval = seconds
	if h.callbacks.SetWakeInterval != nil {
		h.callbacks.SetWakeInterval(seconds)
	}
	return h.sendAck(thorn.CmdSetWakeInterval)
}

func (h *ProtocolHandler) handleGetWakeInterval(data []byte) error {
	if len(data) != 0 {
		return h.sendNack(thorn.CmdGetWakeInterval, thorn.ErrorInvalidParam)
	}
	return h.sendWakeInterval()
}

// handleSetSchedule serves add, update, and remove through one command:
// index 0xFF adds at the first free slot, a named index updates in place,
// and an all-zero entry at a named index removes that slot.
func (h *ProtocolHandler) handleSetSchedule(data []byte) error {
	if len(data) != 1+thorn.EntryWireSize {
		return h.sendNack(thorn.CmdSetSchedule, thorn.ErrorInvalidParam)
	}
	index := data[0]
	entry, err := thorn.DecodeScheduleEntry(data[1:])
	if err != nil {
		return h.sendNack(thorn.CmdSetSchedule, thorn.ErrorInvalidParam)
	}

	switch {
	case index == thorn.IndexAdd:
		if _, code := h.schedule.AddEntry(entry); code != thorn.ErrorNone {
			return h.sendNack(thorn.CmdSetSchedule, code)
		}
	case entry.IsZero():
		if code := h.schedule.RemoveEntry(int(index)); code != thorn.ErrorNone {
			return h.sendNack(thorn.CmdSetSchedule, code)
		}
	default:
		if code := h.schedule.UpdateEntry(int(index), entry); code != thorn.ErrorNone {
			return h.sendNack(thorn.CmdSetSchedule, code)
		}
	}
	return h.sendAck(thorn.CmdSetSchedule)
}

func (h *ProtocolHandler) handleGetSchedule(data []byte) error {
	if len(data) != 1 {
		return h.sendNack(thorn.CmdGetSchedule, thorn.ErrorInvalidParam)
	}
	return h.sendScheduleEntry(int(data[0]))
}

func (h *ProtocolHandler) handleClearSchedule(data []byte) error {
	if len(data) != 0 {
		return h.sendNack(thorn.CmdClearSchedule, thorn.ErrorInvalidParam)
	}
	h.schedule.Clear()
	return h.sendAck(thorn.CmdClearSchedule)
}

func (h *ProtocolHandler) handleKeepAwake(data []byte) error {
	if len(data) != 2 {
		return h.sendNack(thorn.CmdKeepAwake, thorn.ErrorInvalidParam)
	}
	seconds := binary.LittleEndian.Uint16(data)
	if seconds == 0 {
		return h.sendNack(thorn.CmdKeepAwake, thorn.ErrorInvalidParam)
	}
	if h.callbacks.KeepAwake != nil {
		h.callbacks.KeepAwake(uint32(seconds))
	}
	return h.sendAck(thorn.CmdKeepAwake)
}

// SendWakeNotification transmits a WAKE_REASON frame. Whether a notification
// is appropriate right now is the caller's decision (the state machine gates
// it); the handler sends unconditionally. For scheduled wakes pass the
// triggering entry.
func (h *ProtocolHandler) SendWakeNotification(reason thorn.WakeReason, entry *thorn.ScheduleEntry) error {
	h.builder.StartMessage(thorn.RespWakeReason)
	h.builder.AddByte(uint8(reason))
	if entry != nil {
		h.builder.AddScheduleEntry(*entry)
	}
	return h.send()
}

// SendScheduleComplete transmits a SCHEDULE_COMPLETE frame, signaling
// imminent power-down.
func (h *ProtocolHandler) SendScheduleComplete() error {
	h.builder.StartMessage(thorn.RespScheduleComplete)
	return h.send()
}

// SendStatus transmits a STATUS frame carrying the PMU state and whether a
// wake notification is still pending.
func (h *ProtocolHandler) SendStatus(state State, wakePending bool) error {
	h.builder.StartMessage(thorn.RespStatus)
	h.builder.AddByte(uint8(state))
	pending := uint8(0)
	if wakePending {
		pending = 1
	}
	h.builder.AddByte(pending)
	return h.send()
}

func (h *ProtocolHandler) sendAck(cmd uint8) error {
	h.builder.StartMessage(thorn.RespAck)
	h.builder.AddByte(cmd)
	return h.send()
}

func (h *ProtocolHandler) sendNack(cmd uint8, code thorn.ErrorCode) error {
	h.builder.StartMessage(thorn.RespNack)
	h.builder.AddByte(cmd)
	h.builder.AddByte(uint8(code))
	return h.send()
}

func (h *ProtocolHandler) sendWakeInterval() error {
	h.builder.StartMessage(thorn.RespWakeInterval)
	h.builder.AddUint32(h.wakeInterval)
	return h.send()
}

func (h *ProtocolHandler) sendScheduleEntry(index int) error {
	entry, ok := h.schedule.Entry(index)
	if !ok {
		return h.sendNack(thorn.CmdGetSchedule, thorn.ErrorInvalidIndex)
	}
	h.builder.StartMessage(thorn.RespScheduleEntry)
	h.builder.AddByte(uint8(index))
	h.builder.AddByte(uint8(h.schedule.Count()))
	h.builder.AddScheduleEntry(entry)
	return h.send()
}

func (h *ProtocolHandler) send() error {
	_, err := h.out.Write(h.builder.Finalize())
	return err
}
