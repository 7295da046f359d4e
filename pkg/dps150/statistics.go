// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package dps150

import (
	"fmt"
	"time"
)

// Statistics tracks link and frame statistics
type Statistics struct {
	StartTime      time.Time
	LastUpdateTime time.Time

	// Counters
	BytesReceived    uint64
	TotalFrames      uint64
	Updates          uint64
	UnknownFrames    uint64 // frames that decoded to an empty update
	ChecksumRejects  uint64
	DiscardedBytes   uint64
	ReadErrors       uint64
	ValidationIssues uint64

	// Rates (calculated)
	FrameRate float64 // frames/sec
	ErrorRate float64 // errors/sec
}

// NewStatistics creates a new statistics tracker
func NewStatistics() *Statistics {
	now := time.Now()
	return &Statistics{
		StartTime:      now,
		LastUpdateTime: now,
	}
}

// Update records one decoded frame and the anomalies found in it
func (s *Statistics) Update(u Update, validationErrors []ValidationError) {
	s.TotalFrames++
	if u.Empty() {
		s.UnknownFrames++
	} else {
		s.Updates++
	}
	s.ValidationIssues += uint64(len(validationErrors))
	s.LastUpdateTime = time.Now()
}

// CalculateRates calculates frame and error rates
func (s *Statistics) CalculateRates() {
	elapsed := time.Since(s.StartTime).Seconds()
	if elapsed > 0 {
		s.FrameRate = float64(s.TotalFrames) / elapsed
		s.ErrorRate = float64(s.ChecksumRejects+s.ReadErrors) / elapsed
	}
}

// String returns a formatted statistics summary
func (s *Statistics) String() string {
	s.CalculateRates()

	var updatePercent, unknownPercent float64
	if s.TotalFrames > 0 {
		updatePercent = float64(s.Updates) * 100.0 / float64(s.TotalFrames)
		unknownPercent = float64(s.UnknownFrames) * 100.0 / float64(s.TotalFrames)
	}

	elapsed := time.Since(s.StartTime)

	result := fmt.Sprintf("=== Statistics (%.0f seconds) ===\n", elapsed.Seconds())
	result += fmt.Sprintf("Bytes Received:  %8d\n", s.BytesReceived)
	result += fmt.Sprintf("Total Frames:    %8d\n", s.TotalFrames)
	result += fmt.Sprintf("Updates:         %8d (%.1f%%)\n", s.Updates, updatePercent)

	if s.UnknownFrames > 0 {
		result += fmt.Sprintf("Ignored Frames:  %8d (%.1f%%)\n", s.UnknownFrames, unknownPercent)
	}
	if s.ChecksumRejects > 0 {
		result += fmt.Sprintf("Checksum Errors: %8d\n", s.ChecksumRejects)
	}
	if s.DiscardedBytes > 0 {
		result += fmt.Sprintf("Discarded Bytes: %8d\n", s.DiscardedBytes)
	}
	if s.ReadErrors > 0 {
		result += fmt.Sprintf("Read Errors:     %8d\n", s.ReadErrors)
	}
	if s.ValidationIssues > 0 {
		result += fmt.Sprintf("Anomalies:       %8d\n", s.ValidationIssues)
	}

	result += fmt.Sprintf("Frame Rate:      %8.1f frames/sec\n", s.FrameRate)
	result += fmt.Sprintf("Error Rate:      %8.1f errors/sec\n", s.ErrorRate)
	result += "================================\n"

	return result
}

// Reset resets all statistics counters
func (s *Statistics) Reset() {
	*s = *NewStatistics()
}
