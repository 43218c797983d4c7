// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Erik Beerepoot

package thorn

import "time"

// Parser implements the Thorn frame parser state machine. Bytes are fed one
// at a time with ProcessByte; a malformed frame (bad length, checksum, or end
// byte) is discarded locally and the parser resynchronizes on the next start
// byte. Malformed frames are never surfaced as errors, only counted.
type Parser struct {
	state          int
	expectedLength uint8
	buffer         [MaxLength]byte // command byte at [0], data after
	bytesRead      uint8
	checksum       uint8

	complete    bool
	lastCode    uint8
	lastData    [MaxDataSize]byte
	lastDataLen uint8
	lastTime    time.Time

	framingErrors  uint32
	checksumErrors uint32
}

// NewParser creates a new frame parser waiting for a start byte.
func NewParser() *Parser {
	return &Parser{state: stateWaitStart}
}

// ProcessByte advances the state machine by one byte. It returns true only
// when the byte completes a well-formed frame; the frame is then available
// through IsComplete, Command, Data, and Frame until the next successful
// parse overwrites it.
func (p *Parser) ProcessByte(b byte) bool {
	switch p.state {
	case stateWaitStart:
		if b == StartByte {
			p.beginFrame()
		}

	case stateLength:
		if b == 0 || b > MaxLength {
			p.framingErrors++
			p.state = stateWaitStart
			break
		}
		p.expectedLength = b
		p.state = stateCommand

	case stateCommand:
		p.buffer[0] = b
		p.bytesRead = 1
		p.checksum = b
		if p.expectedLength > 1 {
			p.state = stateData
		} else {
			p.state = stateChecksum
		}

	case stateData:
		p.buffer[p.bytesRead] = b
		p.bytesRead++
		p.checksum += b
		if p.bytesRead == p.expectedLength {
			p.state = stateChecksum
		}

	case stateChecksum:
		if b != p.checksum {
			p.checksumErrors++
			p.state = stateWaitStart
			break
		}
		p.state = stateEnd

	case stateEnd:
		if b != EndByte {
			p.framingErrors++
			p.state = stateWaitStart
			break
		}
		p.lastCode = p.buffer[0]
		p.lastDataLen = p.bytesRead - 1
		copy(p.lastData[:], p.buffer[1:p.bytesRead])
		p.lastTime = time.Now()
		p.complete = true
		p.state = stateWaitStart
		return true
	}
	return false
}

// beginFrame clears the working counters for a new frame.
func (p *Parser) beginFrame() {
	p.state = stateLength
	p.expectedLength = 0
	p.bytesRead = 0
	p.checksum = 0
}

// Reset returns the parser to the wait-start state and clears the working
// counters and completion flag. The last parsed command and data are kept
// until the next successful parse; callers must check IsComplete before
// trusting them.
func (p *Parser) Reset() {
	p.state = stateWaitStart
	p.expectedLength = 0
	p.bytesRead = 0
	p.checksum = 0
	p.complete = false
}

// IsComplete reports whether a full frame has been parsed since the last
// Reset.
func (p *Parser) IsComplete() bool {
	return p.complete
}

// Command returns the command or response code of the last parsed frame.
func (p *Parser) Command() uint8 {
	return p.lastCode
}

// Data returns the data bytes of the last parsed frame. The slice aliases
// parser-owned storage and is valid until the next completed frame.
func (p *Parser) Data() []byte {
	return p.lastData[:p.lastDataLen]
}

// Frame returns a copy of the last parsed frame.
func (p *Parser) Frame() Frame {
	data := make([]byte, p.lastDataLen)
	copy(data, p.lastData[:p.lastDataLen])
	return Frame{Code: p.lastCode, Data: data, Timestamp: p.lastTime}
}

// ChecksumErrors returns the number of frames discarded for checksum
// mismatch since the parser was created.
func (p *Parser) ChecksumErrors() uint32 {
	return p.checksumErrors
}

// FramingErrors returns the number of frames discarded for bad length or a
// missing end byte since the parser was created.
func (p *Parser) FramingErrors() uint32 {
	return p.framingErrors
}
