// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Erik Beerepoot

package thorn

import (
	"fmt"
	"time"
)

// Statistics tracks frame counts and error rates for one link.
type Statistics struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	// Counters
	TotalFrames    uint64
	CommandFrames  uint64
	ResponseFrames uint64
	NackFrames     uint64
	ChecksumErrors uint64
	FramingErrors  uint64

	// Rates (calculated)
	FrameRate float64 // frames/sec
	ErrorRate float64 // errors/sec
}

// NewStatistics creates a new statistics tracker.
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		StartTime:      now,
		LastUpdateTime: now,
	}
}

// RecordFrame counts one completed frame by its code.
func (s *Statistics) RecordFrame(code uint8) {
	s.TotalFrames++
	if code >= RespAck {
		s.ResponseFrames++
		if code == RespNack {
			s.NackFrames++
		}
	} else {
		s.CommandFrames++
	}
	s.LastUpdateTime = time.Now()
}

// SyncParser folds the parser's discard counters into the statistics.
// Call after draining a read buffer through the parser.
func (s *Statistics) SyncParser(p *Parser) {
	s.ChecksumErrors = uint64(p.ChecksumErrors())
	s.FramingErrors = uint64(p.FramingErrors())
}

// CalculateRates recomputes the frame and error rates.
func (s *Statistics) CalculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.FrameRate = float64(s.TotalFrames) / elapsed
		s.ErrorRate = float64(s.ChecksumErrors+s.FramingErrors) / elapsed
	}
}

// String returns a formatted statistics summary.
func (s *Statistics) String() string {
	s.CalculateRates()

	var validPercent float64
	if s.TotalFrames > 0 {
		validPercent = float64(s.TotalFrames-s.NackFrames) * 100.0 / float64(s.TotalFrames)
	}

	elapsed := time.Since(s.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Total Frames:    %8d\n", s.TotalFrames)
	result += fmt.Sprintf("Commands:        %8d\n", s.CommandFrames)
	result += fmt.Sprintf("Responses:       %8d (%.1f%% non-NACK)\n", s.ResponseFrames, validPercent)
	if s.NackFrames > 0 {
		result += fmt.Sprintf("NACKs:           %8d\n", s.NackFrames)
	}
	if s.ChecksumErrors > 0 {
		result += fmt.Sprintf("Checksum Errors: %8d\n", s.ChecksumErrors)
	}
	if s.FramingErrors > 0 {
		result += fmt.Sprintf("Framing Errors:  %8d\n", s.FramingErrors)
	}
	result += fmt.Sprintf("Frame Rate:      %8.1f frames/sec\n", s.FrameRate)
	result += fmt.Sprintf("Error Rate:      %8.1f errors/sec\n", s.ErrorRate)
	result += "================================\n"

	return result
}

// Reset clears all counters and restarts the measurement window.
func (s *Statistics) Reset() {
	now := time.Now()
	*s = Statistics{StartTime: now, LastUpdateTime: now}
}
