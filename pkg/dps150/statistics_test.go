// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package dps150

import (
	"strings"
	"testing"
)

func TestStatistics_Update(t *testing.T) {
	s := NewStatistics()

	s.Update(Update{InputVoltage: f32p(19)}, nil)
	s.Update(Update{}, nil)
	s.Update(Update{ProtectionState: strp("OVP")}, []ValidationError{{Type: AnomalyProtectionTripped}})

	if s.TotalFrames != 3 {
		t.Errorf("TotalFrames = %d, want 3", s.TotalFrames)
	}
	if s.Updates != 2 {
		t.Errorf("Updates = %d, want 2", s.Updates)
	}
	if s.UnknownFrames != 1 {
		t.Errorf("UnknownFrames = %d, want 1", s.UnknownFrames)
	}
	if s.ValidationIssues != 1 {
		t.Errorf("ValidationIssues = %d, want 1", s.ValidationIssues)
	}
}

func TestStatistics_String(t *testing.T) {
	s := NewStatistics()
	s.Update(Update{InputVoltage: f32p(19)}, nil)
	s.ChecksumRejects = 2

	out := s.String()
	for _, want := range []string{"Total Frames:", "Checksum Errors:", "Frame Rate:"} {
		if !strings.Contains(out, want) {
			t.Errorf("String() missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Read Errors:") {
		t.Errorf("String() shows zero read errors:\n%s", out)
	}
}

func TestStatistics_Reset(t *testing.T) {
	s := NewStatistics()
	s.Update(Update{}, nil)
	s.BytesReceived = 10
	s.Reset()

	if s.TotalFrames != 0 || s.BytesReceived != 0 {
		t.Errorf("Reset left frames=%d bytes=%d", s.TotalFrames, s.BytesReceived)
	}
	if s.StartTime.IsZero() {
		t.Error("Reset cleared StartTime")
	}
}
