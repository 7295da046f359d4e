// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package dps150

import (
	"encoding/binary"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Decode maps a register payload to an Update. Unknown and write-only
// registers, as well as payloads too short for their rule, yield an empty
// Update.
func Decode(typeID byte, payload []byte) Update {
	var u Update

	reg, ok := LookupRegister(typeID)
	if !ok {
		return u
	}

	switch reg.Rule {
	case RuleFloat32:
		v, ok := readFloat32(payload, 0)
		if !ok {
			return u
		}
		switch typeID {
		case RegInputVoltage:
			u.InputVoltage = &v
		case RegTemperature:
			u.Temperature = &v
		case RegOutputCapacity:
			u.OutputCapacity = &v
		case RegOutputEnergy:
			u.OutputEnergy = &v
		case RegUpperLimitVoltage:
			u.UpperLimitVoltage = &v
		case RegUpperLimitCurrent:
			u.UpperLimitCurrent = &v
		}

	case RuleOutputBundle:
		if len(payload) < outputBundleLen {
			return u
		}
		u.OutputVoltage = f32p(float32At(payload, 0))
		u.OutputCurrent = f32p(float32At(payload, 4))
		u.OutputPower = f32p(float32At(payload, 8))

	case RuleBool:
		if len(payload) < 1 {
			return u
		}
		u.OutputClosed = boolp(payload[0] == 1)

	case RuleProtection:
		if len(payload) < 1 {
			return u
		}
		u.ProtectionState = strp(ProtectionLabel(payload[0]))

	case RuleMode:
		if len(payload) < 1 {
			return u
		}
		u.Mode = strp(ModeLabel(payload[0]))

	case RuleString:
		s := decodeText(payload)
		switch typeID {
		case RegModelName:
			u.ModelName = &s
		case RegHardwareVersion:
			u.HardwareVersion = &s
		case RegFirmwareVersion:
			u.FirmwareVersion = &s
		}

	case RuleAll:
		return decodeAll(payload)
	}

	return u
}

// decodeAll decodes the composite ALL block. Payloads shorter than the
// core block come back as RawAll only; trailing sections are decoded only
// when their bytes are fully present.
func decodeAll(p []byte) Update {
	var u Update

	if len(p) < allCoreSize {
		u.RawAll = make([]byte, len(p))
		copy(u.RawAll, p)
		return u
	}

	cores := []struct {
		dst **float32
		off int
	}{
		{&u.InputVoltage, offInputVoltage},
		{&u.SetVoltage, offSetVoltage},
		{&u.SetCurrent, offSetCurrent},
		{&u.OutputVoltage, offOutputVoltage},
		{&u.OutputCurrent, offOutputCurrent},
		{&u.OutputPower, offOutputPower},
		{&u.Temperature, offTemperature},
	}
	for _, c := range cores {
		setFloat32(c.dst, p, c.off)
	}

	groups := []**float32{
		&u.Group1SetVoltage, &u.Group1SetCurrent,
		&u.Group2SetVoltage, &u.Group2SetCurrent,
		&u.Group3SetVoltage, &u.Group3SetCurrent,
		&u.Group4SetVoltage, &u.Group4SetCurrent,
		&u.Group5SetVoltage, &u.Group5SetCurrent,
		&u.Group6SetVoltage, &u.Group6SetCurrent,
	}
	for i, dst := range groups {
		setFloat32(dst, p, offGroupBase+i*float32Size)
	}

	// LVP ends one byte past the core block; a 95-byte payload leaves it unset
	protections := []**float32{
		&u.OverVoltageProtection,
		&u.OverCurrentProtection,
		&u.OverPowerProtection,
		&u.OverTemperatureProtection,
		&u.LowVoltageProtection,
	}
	for i, dst := range protections {
		setFloat32(dst, p, offProtectionBase+i*float32Size)
	}

	if len(p) >= allBytesSize {
		u.Brightness = intp(int(p[offBrightness]))
		u.Volume = intp(int(p[offVolume]))
		// A zero flag means metering is stopped
		u.MeteringClosed = boolp(p[offMeteringFlag] == 0)
	}

	if len(p) >= allOutputSize {
		setFloat32(&u.OutputCapacity, p, offOutputCapacity)
		setFloat32(&u.OutputEnergy, p, offOutputEnergy)
		u.OutputClosed = boolp(p[offOutputClosed] == 1)
		u.ProtectionState = strp(ProtectionLabel(p[offProtectionState]))
	}

	if len(p) >= allModeSize {
		u.Mode = strp(ModeLabel(p[offMode]))
	}

	if len(p) >= allUpperLimitEnd {
		setFloat32(&u.UpperLimitVoltage, p, offUpperVoltage)
		setFloat32(&u.UpperLimitCurrent, p, offUpperCurrent)
	}

	return u
}

// ProtectionLabel returns the label for a protection-state code, or the
// code's decimal form when it is outside the table.
func ProtectionLabel(code byte) string {
	if int(code) < len(ProtectionStates) {
		return ProtectionStates[code]
	}
	return strconv.Itoa(int(code))
}

// ModeLabel returns "CC" for code 0 and "CV" otherwise
func ModeLabel(code byte) string {
	if code == 0 {
		return ModeCC
	}
	return ModeCV
}

func readFloat32(p []byte, off int) (float32, bool) {
	if len(p) < off+float32Size {
		return 0, false
	}
	return float32At(p, off), true
}

// setFloat32 sets *dst only when the float at off lies inside p
func setFloat32(dst **float32, p []byte, off int) {
	if v, ok := readFloat32(p, off); ok {
		*dst = &v
	}
}

func float32At(p []byte, off int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(p[off : off+float32Size]))
}

// decodeText decodes UTF-8, replacing each invalid byte with U+FFFD
func decodeText(p []byte) string {
	var sb strings.Builder
	sb.Grow(len(p))
	for len(p) > 0 {
		r, size := utf8.DecodeRune(p)
		sb.WriteRune(r)
		p = p[size:]
	}
	return sb.String()
}
