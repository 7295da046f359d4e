// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package dps150

import (
	"math"
	"testing"
)

func TestValidateUpdate_Clean(t *testing.T) {
	u := Decode(RegAll, buildAllPayload(allUpperLimitEnd))
	u.ProtectionState = strp("")

	errs := ValidateUpdate(u)
	if errs == nil {
		t.Fatal("ValidateUpdate returned nil, want empty slice")
	}
	if len(errs) != 0 {
		t.Errorf("got %d anomalies, want 0: %v", len(errs), errs)
	}
}

func TestValidateUpdate_Anomalies(t *testing.T) {
	tests := []struct {
		name string
		u    Update
		want AnomalyType
	}{
		{
			name: "protection tripped",
			u:    Update{ProtectionState: strp("OCP")},
			want: AnomalyProtectionTripped,
		},
		{
			name: "voltage over limit",
			u:    Update{OutputVoltage: f32p(31), UpperLimitVoltage: f32p(30)},
			want: AnomalyOverLimit,
		},
		{
			name: "current over limit",
			u:    Update{OutputCurrent: f32p(5.5), UpperLimitCurrent: f32p(5)},
			want: AnomalyOverLimit,
		},
		{
			name: "temperature too high",
			u:    Update{Temperature: f32p(150)},
			want: AnomalyInvalidTemp,
		},
		{
			name: "temperature too low",
			u:    Update{Temperature: f32p(-40)},
			want: AnomalyInvalidTemp,
		},
		{
			name: "nan",
			u:    Update{InputVoltage: f32p(float32(math.NaN()))},
			want: AnomalyInvalidValue,
		},
		{
			name: "inf",
			u:    Update{OutputEnergy: f32p(float32(math.Inf(1)))},
			want: AnomalyInvalidValue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := ValidateUpdate(tt.u)
			if len(errs) != 1 {
				t.Fatalf("got %d anomalies, want 1: %v", len(errs), errs)
			}
			if errs[0].Type != tt.want {
				t.Errorf("type = %v, want %v", errs[0].Type, tt.want)
			}
			if errs[0].Error() == "" {
				t.Error("empty error message")
			}
		})
	}
}

func TestValidateUpdate_LimitNotKnown(t *testing.T) {
	tests := []Update{
		{OutputVoltage: f32p(31)},
		{OutputVoltage: f32p(31), UpperLimitVoltage: f32p(0)},
	}
	for _, u := range tests {
		if errs := ValidateUpdate(u); len(errs) != 0 {
			t.Errorf("got %v, want no anomalies", errs)
		}
	}
}
