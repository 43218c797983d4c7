// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Erik Beerepoot

package thorn

import "encoding/binary"

// Builder constructs outgoing Thorn frames. A frame is built by calling
// StartMessage, appending payload bytes with the AddX methods, and calling
// Finalize. The builder owns fixed-size buffers; appending past MaxDataSize
// drops the excess bytes rather than writing out of bounds.
type Builder struct {
	command byte
	data    [MaxDataSize]byte
	dataLen int
	frame   [MaxFrameSize]byte
}

// NewBuilder creates a new frame builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// StartMessage resets the builder and records the command or response code
// for the frame under construction.
func (b *Builder) StartMessage(command uint8) {
	b.command = command
	b.dataLen = 0
}

// AddByte appends a single payload byte.
func (b *Builder) AddByte(v uint8) {
	if b.dataLen >= MaxDataSize {
		return
	}
	b.data[b.dataLen] = v
	b.dataLen++
}

// AddUint16 appends a 16-bit value in little-endian order.
func (b *Builder) AddUint16(v uint16) {
	if b.dataLen+2 > MaxDataSize {
		return
	}
	binary.LittleEndian.PutUint16(b.data[b.dataLen:], v)
	b.dataLen += 2
}

// AddUint32 appends a 32-bit value in little-endian order.
func (b *Builder) AddUint32(v uint32) {
	if b.dataLen+4 > MaxDataSize {
		return
	}
	binary.LittleEndian.PutUint32(b.data[b.dataLen:], v)
	b.dataLen += 4
}

// AddScheduleEntry appends the 7-byte wire encoding of a schedule entry.
func (b *Builder) AddScheduleEntry(e ScheduleEntry) {
	if b.dataLen+EntryWireSize > MaxDataSize {
		return
	}
	wire := e.AppendWire(b.data[b.dataLen:b.dataLen])
	b.dataLen += len(wire)
}

// Finalize assembles the complete frame: start byte, length (command plus
// data bytes), command, data, checksum over command and data, end byte.
// The returned slice aliases builder-owned storage and is valid until the
// next StartMessage. A frame finalized with no data bytes is a valid minimal
// frame.
func (b *Builder) Finalize() []byte {
	n := 0
	b.frame[n] = StartByte
	n++
	b.frame[n] = uint8(1 + b.dataLen)
	n++
	b.frame[n] = b.command
	n++
	copy(b.frame[n:], b.data[:b.dataLen])
	n += b.dataLen
	b.frame[n] = CalculateChecksum(b.frame[2 : 2+1+b.dataLen])
	n++
	b.frame[n] = EndByte
	n++
	return b.frame[:n]
}

// Len returns the total framed length the next Finalize call will produce.
func (b *Builder) Len() int {
	return b.dataLen + 1 + FrameOverhead
}
