// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Erik Beerepoot

package thorn

import "time"

// Frame is one complete delimited message taken off the wire (or about to be
// put on it): a command or response code plus its data bytes.
type Frame struct {
	Code      uint8
	Data      []byte
	Timestamp time.Time
}

// IsResponse reports whether the frame carries a PMU → controller response
// code rather than a command.
func (f Frame) IsResponse() bool {
	return f.Code >= RespAck
}
