// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Erik Beerepoot

// Package pmu implements the power-management core of a Bramble irrigation
// node: the boot/sleep/wake state machine, the fixed-capacity watering
// schedule, and the protocol handler that serves the Thorn link.
package pmu

// State is the PMU lifecycle state. It is owned exclusively by the
// StateMachine; all other components only read it.
type State int

// PMU states
const (
	StateBooting State = iota
	StateSleeping
	StateScheduledWake
	StatePeriodicWake
	StateError
)

func (s State) String() string {
	switch s {
	case StateBooting:
		return "BOOTING"
	case StateSleeping:
		return "SLEEPING"
	case StateScheduledWake:
		return "SCHEDULED_WAKE"
	case StatePeriodicWake:
		return "PERIODIC_WAKE"
	case StateError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// IsWake reports whether the state is an active wake state.
func (s State) IsWake() bool {
	return s == StateScheduledWake || s == StatePeriodicWake
}
