// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package dps150

import "strings"

// Command builders for the toggles the device exposes as byte registers.

// EncodeOutputEnable creates the command switching the output on or off
func EncodeOutputEnable(on bool) []byte {
	return EncodeSetByte(RegOutputEnable, boolByte(on))
}

// EncodeMetering creates the command starting or stopping metering
func EncodeMetering(on bool) []byte {
	return EncodeSetByte(RegMeteringEnable, boolByte(on))
}

// EncodeGetAll creates a GET request for the composite ALL block
func EncodeGetAll() []byte {
	return EncodeGet(RegAll)
}

// Setpoint is a user-facing name for a writable register
type Setpoint struct {
	Name        string
	TypeID      byte
	Byte        bool
	Description string
}

var setpoints = []Setpoint{
	{Name: "vset", TypeID: RegVoltageSet, Description: "output voltage setpoint (V)"},
	{Name: "cset", TypeID: RegCurrentSet, Description: "output current setpoint (A)"},
	{Name: "ovp", TypeID: RegOVP, Description: "over-voltage protection (V)"},
	{Name: "ocp", TypeID: RegOCP, Description: "over-current protection (A)"},
	{Name: "opp", TypeID: RegOPP, Description: "over-power protection (W)"},
	{Name: "otp", TypeID: RegOTP, Description: "over-temperature protection (C)"},
	{Name: "lvp", TypeID: RegLVP, Description: "low-voltage protection (V)"},
	{Name: "brightness", TypeID: RegBrightness, Byte: true, Description: "display brightness"},
	{Name: "volume", TypeID: RegVolume, Byte: true, Description: "beeper volume"},
	{Name: "g1v", TypeID: RegGroup1VoltageSet, Description: "preset group 1 voltage (V)"},
	{Name: "g1c", TypeID: RegGroup1CurrentSet, Description: "preset group 1 current (A)"},
	{Name: "g2v", TypeID: RegGroup2VoltageSet, Description: "preset group 2 voltage (V)"},
	{Name: "g2c", TypeID: RegGroup2CurrentSet, Description: "preset group 2 current (A)"},
	{Name: "g3v", TypeID: RegGroup3VoltageSet, Description: "preset group 3 voltage (V)"},
	{Name: "g3c", TypeID: RegGroup3CurrentSet, Description: "preset group 3 current (A)"},
	{Name: "g4v", TypeID: RegGroup4VoltageSet, Description: "preset group 4 voltage (V)"},
	{Name: "g4c", TypeID: RegGroup4CurrentSet, Description: "preset group 4 current (A)"},
	{Name: "g5v", TypeID: RegGroup5VoltageSet, Description: "preset group 5 voltage (V)"},
	{Name: "g5c", TypeID: RegGroup5CurrentSet, Description: "preset group 5 current (A)"},
	{Name: "g6v", TypeID: RegGroup6VoltageSet, Description: "preset group 6 voltage (V)"},
	{Name: "g6c", TypeID: RegGroup6CurrentSet, Description: "preset group 6 current (A)"},
}

// Setpoints returns the named setpoints accepted by LookupSetpoint
func Setpoints() []Setpoint {
	out := make([]Setpoint, len(setpoints))
	copy(out, setpoints)
	return out
}

// LookupSetpoint finds a setpoint by name (case-insensitive)
func LookupSetpoint(name string) (Setpoint, bool) {
	for _, sp := range setpoints {
		if strings.EqualFold(sp.Name, name) {
			return sp, true
		}
	}
	return Setpoint{}, false
}

// Encode creates the SET command for the setpoint. Byte setpoints truncate
// value toward zero.
func (sp Setpoint) Encode(value float64) []byte {
	if sp.Byte {
		return EncodeSetByte(sp.TypeID, int(value))
	}
	return EncodeSetFloat(sp.TypeID, value)
}

func boolByte(b bool) int {
	if b {
		return 1
	}
	return 0
}
