// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Erik Beerepoot

package pmu

import (
	"github.com/erikbeerepoot/bramble-sub001/pkg/thorn"
)

// Default timeouts. A scheduled wake lasts the entry's duration plus a grace
// period; a periodic wake is bounded by a fixed window.
const (
	DefaultGraceMs           = 30_000
	DefaultPeriodicTimeoutMs = 120_000
)

// TickSource returns a monotonic millisecond tick. Wraparound of the 32-bit
// counter is handled by unsigned subtraction.
type TickSource func() uint32

// wakeContext is the per-session data for one wake. It is reset on every
// state transition and never persisted.
type wakeContext struct {
	startTime        uint32
	notificationSent bool
	timeoutMs        uint32
	hasEntry         bool
	entry            thorn.ScheduleEntry
}

// StateMachine governs the PMU boot/sleep/wake lifecycle. All methods must
// be called from a single execution context; events reported in a state that
// does not expect them are ignored.
type StateMachine struct {
	state    State
	ctx      wakeContext
	now      TickSource
	observer func(State)

	graceMs           uint32
	periodicTimeoutMs uint32
}

// NewStateMachine creates a state machine in the BOOTING state driven by the
// given tick source.
func NewStateMachine(now TickSource) *StateMachine {
	return &StateMachine{
		state:             StateBooting,
		now:               now,
		graceMs:           DefaultGraceMs,
		periodicTimeoutMs: DefaultPeriodicTimeoutMs,
	}
}

// SetObserver registers a single callback fired synchronously after every
// actual state change. The callback must not re-enter the state machine;
// this is a contract, not enforced.
func (m *StateMachine) SetObserver(fn func(State)) {
	m.observer = fn
}

// SetGracePeriod overrides the extra time added to a scheduled wake's
// timeout beyond the entry's nominal duration.
func (m *StateMachine) SetGracePeriod(ms uint32) {
	m.graceMs = ms
}

// SetPeriodicTimeout overrides the periodic-wake window.
func (m *StateMachine) SetPeriodicTimeout(ms uint32) {
	m.periodicTimeoutMs = ms
}

// State returns the current PMU state.
func (m *StateMachine) State() State {
	return m.state
}

// transition performs an actual state change: reset the wake context and
// update the state. Callers populate the new context before calling notify.
func (m *StateMachine) transition(next State) {
	m.ctx = wakeContext{}
	m.state = next
}

// notify fires the observer for an actual state change. The observer sees a
// fully initialized wake context.
func (m *StateMachine) notify() {
	if m.observer != nil {
		m.observer(m.state)
	}
}

// ReportBootComplete moves BOOTING → SLEEPING. Ignored in any other state.
func (m *StateMachine) ReportBootComplete() {
	if m.state != StateBooting {
		return
	}
	m.transition(StateSleeping)
	m.notify()
}

// ReportScheduledWake moves SLEEPING → SCHEDULED_WAKE for the given entry.
// The session times out after the entry's duration plus the grace period.
// Ignored in any other state.
func (m *StateMachine) ReportScheduledWake(entry thorn.ScheduleEntry) {
	if m.state != StateSleeping {
		return
	}
	m.transition(StateScheduledWake)
	m.ctx.startTime = m.now()
	m.ctx.timeoutMs = uint32(entry.Duration)*1000 + m.graceMs
	m.ctx.hasEntry = true
	m.ctx.entry = entry
	m.notify()
}

// ReportPeriodicWake moves SLEEPING → PERIODIC_WAKE. Ignored in any other
// state.
func (m *StateMachine) ReportPeriodicWake() {
	if m.state != StateSleeping {
		return
	}
	m.transition(StatePeriodicWake)
	m.ctx.startTime = m.now()
	m.ctx.timeoutMs = m.periodicTimeoutMs
	m.notify()
}

// ReportReadyForSleep ends the current wake session. Ignored outside the
// wake states.
func (m *StateMachine) ReportReadyForSleep() {
	if !m.state.IsWake() {
		return
	}
	m.transition(StateSleeping)
	m.notify()
}

// ReportError moves to the ERROR state from anywhere. ERROR is absorbing
// under normal operation; recovery requires external reset.
func (m *StateMachine) ReportError() {
	if m.state == StateError {
		return
	}
	m.transition(StateError)
	m.notify()
}

// ExtendWake restarts the current wake session's timeout window at the given
// number of seconds from now (keep-awake). Ignored outside the wake states.
func (m *StateMachine) ExtendWake(seconds uint32) {
	if !m.state.IsWake() {
		return
	}
	m.ctx.startTime = m.now()
	m.ctx.timeoutMs = seconds * 1000
}

// Update must be called on a regular cadence. In a wake state it checks the
// session timeout and forcibly transitions to SLEEPING when it expires,
// exactly as if ReportReadyForSleep had arrived late. The return value is
// the stay-awake decision: false means the caller may enter low-power sleep.
func (m *StateMachine) Update() bool {
	switch m.state {
	case StateBooting, StateError:
		return true
	case StateSleeping:
		return false
	case StateScheduledWake, StatePeriodicWake:
		if m.ctx.timeoutMs == 0 {
			return true
		}
		if m.now()-m.ctx.startTime >= m.ctx.timeoutMs {
			m.transition(StateSleeping)
			m.notify()
			return false
		}
		return true
	default:
		return true
	}
}

// ShouldPowerController reports whether the downstream controller rail
// should be energized: during boot and active wakes, but not while sleeping
// or in the error state.
func (m *StateMachine) ShouldPowerController() bool {
	switch m.state {
	case StateBooting, StateScheduledWake, StatePeriodicWake:
		return true
	default:
		return false
	}
}

// ShouldSendWakeNotification reports whether the wake notification for the
// current session is still owed to the controller.
func (m *StateMachine) ShouldSendWakeNotification() bool {
	return m.state.IsWake() && !m.ctx.notificationSent
}

// MarkNotificationSent records that the wake notification for the current
// session went out.
func (m *StateMachine) MarkNotificationSent() {
	if !m.state.IsWake() {
		return
	}
	m.ctx.notificationSent = true
}

// PendingEntry returns the schedule entry that triggered the current
// scheduled wake, if any.
func (m *StateMachine) PendingEntry() (thorn.ScheduleEntry, bool) {
	if !m.ctx.hasEntry {
		return thorn.ScheduleEntry{}, false
	}
	return m.ctx.entry, true
}
