// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Erik Beerepoot

package thorn

import (
	"errors"
	"io"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Capture record directions
const (
	DirectionRx = "rx"
	DirectionTx = "tx"
)

// CaptureRecord is one decoded frame persisted to a capture file. Records
// are written as a CBOR stream, one record per item.
type CaptureRecord struct {
	Timestamp time.Time `cbor:"1,keyasint"`
	Direction string    `cbor:"2,keyasint"`
	Code      uint8     `cbor:"3,keyasint"`
	Data      []byte    `cbor:"4,keyasint,omitempty"`
	Note      string    `cbor:"5,keyasint,omitempty"`
}

// Frame converts the record back into a Frame.
func (r CaptureRecord) Frame() Frame {
	return Frame{Code: r.Code, Data: r.Data, Timestamp: r.Timestamp}
}

// captureEncMode preserves sub-second timestamp precision. The default mode
// encodes time as integer Unix seconds.
var captureEncMode, _ = cbor.EncOptions{Time: cbor.TimeRFC3339Nano}.EncMode()

// CaptureWriter streams capture records to an underlying writer.
type CaptureWriter struct {
	enc *cbor.Encoder
}

// NewCaptureWriter creates a capture writer on w.
func NewCaptureWriter(w io.Writer) *CaptureWriter {
	return &CaptureWriter{enc: captureEncMode.NewEncoder(w)}
}

// Write appends one record to the capture stream.
func (c *CaptureWriter) Write(rec CaptureRecord) error {
	return c.enc.Encode(rec)
}

// WriteFrame appends a frame with the given direction.
func (c *CaptureWriter) WriteFrame(direction string, f Frame) error {
	return c.Write(CaptureRecord{
		Timestamp: f.Timestamp,
		Direction: direction,
		Code:      f.Code,
		Data:      f.Data,
	})
}

// CaptureReader streams capture records from an underlying reader.
type CaptureReader struct {
	dec *cbor.Decoder
}

// NewCaptureReader creates a capture reader on r.
func NewCaptureReader(r io.Reader) *CaptureReader {
	return &CaptureReader{dec: cbor.NewDecoder(r)}
}

// Next returns the next record, or io.EOF after the last one.
func (c *CaptureReader) Next() (CaptureRecord, error) {
	var rec CaptureRecord
	err := c.dec.Decode(&rec)
	if errors.Is(err, io.EOF) {
		return rec, io.EOF
	}
	return rec, err
}
