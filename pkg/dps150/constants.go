// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package dps150 implements the serial protocol spoken by the FNIRSI DPS-150
// bench power supply.
//
// Every message is a single frame:
//
//	[header][command][type_id][length][payload...][checksum]
//
// where checksum = (type_id + length + sum(payload)) mod 256. The package
// provides frame encoding, a resynchronizing frame scanner for noisy byte
// streams, and a payload decoder mapping register identifiers to physical
// quantities.
package dps150

// Frame headers
const (
	HeaderInput  = 0xF0 // device -> host
	HeaderOutput = 0xF1 // host -> device
)

// Commands
const (
	CmdGet     = 0xA1
	CmdBaud    = 0xB0
	CmdSet     = 0xB1
	CmdSession = 0xC1
)

// Frame size limits
const (
	FrameOverhead   = 5 // header + command + type_id + length + checksum
	MinFrameSize    = 6
	MaxPayloadSize  = 255
	MaxFrameSize    = FrameOverhead + MaxPayloadSize
	payloadOffset   = 4
	lengthOffset    = 3
	typeIDOffset    = 2
	commandOffset   = 1
	float32Size     = 4
	outputBundleLen = 3 * float32Size
)

// Register identifiers (type_id)
const (
	RegInputVoltage      = 192
	RegVoltageSet        = 193
	RegCurrentSet        = 194
	RegOutputBundle      = 195
	RegTemperature       = 196
	RegGroup1VoltageSet  = 197
	RegGroup1CurrentSet  = 198
	RegGroup2VoltageSet  = 199
	RegGroup2CurrentSet  = 200
	RegGroup3VoltageSet  = 201
	RegGroup3CurrentSet  = 202
	RegGroup4VoltageSet  = 203
	RegGroup4CurrentSet  = 204
	RegGroup5VoltageSet  = 205
	RegGroup5CurrentSet  = 206
	RegGroup6VoltageSet  = 207
	RegGroup6CurrentSet  = 208
	RegOVP               = 209
	RegOCP               = 210
	RegOPP               = 211
	RegOTP               = 212
	RegLVP               = 213
	RegBrightness        = 214
	RegVolume            = 215
	RegMeteringEnable    = 216
	RegOutputCapacity    = 217
	RegOutputEnergy      = 218
	RegOutputEnable      = 219
	RegProtectionState   = 220
	RegMode              = 221
	RegModelName         = 222
	RegHardwareVersion   = 223
	RegFirmwareVersion   = 224
	RegUpperLimitVoltage = 226
	RegUpperLimitCurrent = 227
	RegAll               = 255
)

// ProtectionStates maps the protection-state code to its label.
// Code 0 means no protection has tripped.
var ProtectionStates = []string{"", "OVP", "OCP", "OPP", "OTP", "LVP", "REP"}

// BaudRates is the device's baud-rate table. The BAUD command carries
// index+1 into this table.
var BaudRates = []int{9600, 19200, 38400, 57600, 115200}

// Operating modes reported by RegMode
const (
	ModeCC = "CC"
	ModeCV = "CV"
)

// ALL block layout. Offsets are byte positions inside the RegAll payload.
const (
	allCoreSize      = 95 // through OTP plus three bytes of LVP
	allBytesSize     = 99 // brightness, volume, metering flag
	allOutputSize    = 109
	allModeSize      = 110
	allUpperLimitEnd = 119

	offInputVoltage    = 0
	offSetVoltage      = 4
	offSetCurrent      = 8
	offOutputVoltage   = 12
	offOutputCurrent   = 16
	offOutputPower     = 20
	offTemperature     = 24
	offGroupBase       = 28 // six voltage/current pairs, 8 bytes each
	offProtectionBase  = 76 // OVP, OCP, OPP, OTP, LVP
	offBrightness      = 96
	offVolume          = 97
	offMeteringFlag    = 98
	offOutputCapacity  = 99
	offOutputEnergy    = 103
	offOutputClosed    = 107
	offProtectionState = 108
	offMode            = 109
	offUpperVoltage    = 111
	offUpperCurrent    = 115
)
