// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package dps150

import (
	"strconv"
	"strings"
)

// Rule describes how a register payload is decoded
type Rule int

const (
	RuleNone         Rule = iota // write-only, nothing decoded
	RuleFloat32                  // little-endian float at offset 0
	RuleOutputBundle             // voltage, current, power floats
	RuleBool                     // payload[0] == 1
	RuleProtection               // payload[0] indexes ProtectionStates
	RuleMode                     // payload[0] == 0 is CC, otherwise CV
	RuleString                   // UTF-8 text, invalid bytes replaced
	RuleAll                      // composite block
)

// Register describes one entry of the device register table
type Register struct {
	ID       byte
	Name     string // canonical upper-case name
	Field    string // update field the register decodes into
	Rule     Rule
	Writable bool
	Byte     bool // writable value is a single byte rather than a float
}

var registerTable = []Register{
	{ID: RegInputVoltage, Name: "INPUT_VOLTAGE", Field: "inputVoltage", Rule: RuleFloat32},
	{ID: RegVoltageSet, Name: "VOLTAGE_SET", Field: "setVoltage", Writable: true},
	{ID: RegCurrentSet, Name: "CURRENT_SET", Field: "setCurrent", Writable: true},
	{ID: RegOutputBundle, Name: "OUTPUT", Field: "outputVoltage", Rule: RuleOutputBundle},
	{ID: RegTemperature, Name: "TEMPERATURE", Field: "temperature", Rule: RuleFloat32},
	{ID: RegGroup1VoltageSet, Name: "GROUP1_VOLTAGE_SET", Field: "group1setVoltage", Writable: true},
	{ID: RegGroup1CurrentSet, Name: "GROUP1_CURRENT_SET", Field: "group1setCurrent", Writable: true},
	{ID: RegGroup2VoltageSet, Name: "GROUP2_VOLTAGE_SET", Field: "group2setVoltage", Writable: true},
	{ID: RegGroup2CurrentSet, Name: "GROUP2_CURRENT_SET", Field: "group2setCurrent", Writable: true},
	{ID: RegGroup3VoltageSet, Name: "GROUP3_VOLTAGE_SET", Field: "group3setVoltage", Writable: true},
	{ID: RegGroup3CurrentSet, Name: "GROUP3_CURRENT_SET", Field: "group3setCurrent", Writable: true},
	{ID: RegGroup4VoltageSet, Name: "GROUP4_VOLTAGE_SET", Field: "group4setVoltage", Writable: true},
	{ID: RegGroup4CurrentSet, Name: "GROUP4_CURRENT_SET", Field: "group4setCurrent", Writable: true},
	{ID: RegGroup5VoltageSet, Name: "GROUP5_VOLTAGE_SET", Field: "group5setVoltage", Writable: true},
	{ID: RegGroup5CurrentSet, Name: "GROUP5_CURRENT_SET", Field: "group5setCurrent", Writable: true},
	{ID: RegGroup6VoltageSet, Name: "GROUP6_VOLTAGE_SET", Field: "group6setVoltage", Writable: true},
	{ID: RegGroup6CurrentSet, Name: "GROUP6_CURRENT_SET", Field: "group6setCurrent", Writable: true},
	{ID: RegOVP, Name: "OVP", Field: "overVoltageProtection", Writable: true},
	{ID: RegOCP, Name: "OCP", Field: "overCurrentProtection", Writable: true},
	{ID: RegOPP, Name: "OPP", Field: "overPowerProtection", Writable: true},
	{ID: RegOTP, Name: "OTP", Field: "overTemperatureProtection", Writable: true},
	{ID: RegLVP, Name: "LVP", Field: "lowVoltageProtection", Writable: true},
	{ID: RegBrightness, Name: "BRIGHTNESS", Field: "brightness", Writable: true, Byte: true},
	{ID: RegVolume, Name: "VOLUME", Field: "volume", Writable: true, Byte: true},
	{ID: RegMeteringEnable, Name: "METERING_ENABLE", Field: "meteringClosed", Writable: true, Byte: true},
	{ID: RegOutputCapacity, Name: "OUTPUT_CAPACITY", Field: "outputCapacity", Rule: RuleFloat32},
	{ID: RegOutputEnergy, Name: "OUTPUT_ENERGY", Field: "outputEnergy", Rule: RuleFloat32},
	{ID: RegOutputEnable, Name: "OUTPUT_ENABLE", Field: "outputClosed", Rule: RuleBool, Writable: true, Byte: true},
	{ID: RegProtectionState, Name: "PROTECTION_STATE", Field: "protectionState", Rule: RuleProtection},
	{ID: RegMode, Name: "MODE", Field: "mode", Rule: RuleMode},
	{ID: RegModelName, Name: "MODEL_NAME", Field: "modelName", Rule: RuleString},
	{ID: RegHardwareVersion, Name: "HARDWARE_VERSION", Field: "hardwareVersion", Rule: RuleString},
	{ID: RegFirmwareVersion, Name: "FIRMWARE_VERSION", Field: "firmwareVersion", Rule: RuleString},
	{ID: RegUpperLimitVoltage, Name: "UPPER_LIMIT_VOLTAGE", Field: "upperLimitVoltage", Rule: RuleFloat32},
	{ID: RegUpperLimitCurrent, Name: "UPPER_LIMIT_CURRENT", Field: "upperLimitCurrent", Rule: RuleFloat32},
	{ID: RegAll, Name: "ALL", Field: "rawAll", Rule: RuleAll},
}

var registersByID = func() map[byte]Register {
	m := make(map[byte]Register, len(registerTable))
	for _, r := range registerTable {
		m[r.ID] = r
	}
	return m
}()

// Registers returns a copy of the register table, ordered by ID
func Registers() []Register {
	out := make([]Register, len(registerTable))
	copy(out, registerTable)
	return out
}

// LookupRegister returns the register with the given type_id
func LookupRegister(typeID byte) (Register, bool) {
	r, ok := registersByID[typeID]
	return r, ok
}

// FindRegister resolves a register by canonical name, field name, or
// decimal/hex type_id ("222", "0xDE"). Matching is case-insensitive.
func FindRegister(name string) (Register, bool) {
	name = strings.TrimSpace(name)
	if n, err := strconv.ParseUint(name, 0, 8); err == nil {
		return LookupRegister(byte(n))
	}
	for _, r := range registerTable {
		if strings.EqualFold(r.Name, name) || strings.EqualFold(r.Field, name) {
			return r, true
		}
	}
	return Register{}, false
}

// String returns the rule name
func (r Rule) String() string {
	switch r {
	case RuleNone:
		return "write-only"
	case RuleFloat32:
		return "f32"
	case RuleOutputBundle:
		return "3xf32"
	case RuleBool:
		return "bool"
	case RuleProtection:
		return "enum"
	case RuleMode:
		return "mode"
	case RuleString:
		return "utf8"
	case RuleAll:
		return "composite"
	default:
		return "unknown"
	}
}
