// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package dps150

import (
	"fmt"
	"math"
)

// AnomalyType represents different kinds of suspicious readings
type AnomalyType int

const (
	AnomalyProtectionTripped AnomalyType = iota
	AnomalyOverLimit
	AnomalyInvalidTemp
	AnomalyInvalidValue
)

// Temperature range considered plausible for the supply's internal sensor
const (
	MinTemperature = -20.0
	MaxTemperature = 100.0
)

// ValidationError represents one anomaly found in an update
type ValidationError struct {
	Type    AnomalyType
	Message string
	Details map[string]interface{}
}

// Error implements the error interface
func (v *ValidationError) Error() string {
	return v.Message
}

// ValidateUpdate checks an update for tripped protections, readings above
// the device's upper limits, implausible temperatures, and non-finite floats.
// Returns an empty slice when nothing is wrong.
func ValidateUpdate(u Update) []ValidationError {
	errors := []ValidationError{}

	if u.ProtectionState != nil && *u.ProtectionState != "" {
		errors = append(errors, ValidationError{
			Type:    AnomalyProtectionTripped,
			Message: fmt.Sprintf("Protection tripped: %s", *u.ProtectionState),
			Details: map[string]interface{}{"state": *u.ProtectionState},
		})
	}

	errors = append(errors, checkLimit("output voltage", u.OutputVoltage, u.UpperLimitVoltage)...)
	errors = append(errors, checkLimit("output current", u.OutputCurrent, u.UpperLimitCurrent)...)

	if u.Temperature != nil {
		temp := float64(*u.Temperature)
		if temp < MinTemperature || temp > MaxTemperature {
			errors = append(errors, ValidationError{
				Type:    AnomalyInvalidTemp,
				Message: fmt.Sprintf("Temperature out of range (%.1f°C, valid: %.0f to %.0f°C)", temp, MinTemperature, MaxTemperature),
				Details: map[string]interface{}{"value": temp, "min": MinTemperature, "max": MaxTemperature},
			})
		}
	}

	for _, f := range u.Fields() {
		if f.Value.Kind() != KindFloat {
			continue
		}
		v := float64(f.Value.Float())
		if math.IsNaN(v) || math.IsInf(v, 0) {
			errors = append(errors, ValidationError{
				Type:    AnomalyInvalidValue,
				Message: fmt.Sprintf("Non-finite value for %s", f.Name),
				Details: map[string]interface{}{"field": f.Name},
			})
		}
	}

	return errors
}

func checkLimit(name string, value, limit *float32) []ValidationError {
	if value == nil || limit == nil || *limit <= 0 {
		return nil
	}
	if *value <= *limit {
		return nil
	}
	return []ValidationError{{
		Type:    AnomalyOverLimit,
		Message: fmt.Sprintf("%s above upper limit (%.3f > %.3f)", name, *value, *limit),
		Details: map[string]interface{}{"value": *value, "limit": *limit},
	}}
}
