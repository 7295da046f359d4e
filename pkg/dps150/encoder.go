// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package dps150

import (
	"encoding/binary"
	"math"
)

// EncodeFrame creates a complete wire-formatted frame.
// Payloads longer than MaxPayloadSize are truncated to fit the length byte.
func EncodeFrame(header, command, typeID byte, payload []byte) []byte {
	if len(payload) > MaxPayloadSize {
		payload = payload[:MaxPayloadSize]
	}

	out := make([]byte, 0, FrameOverhead+len(payload))
	out = append(out, header, command, typeID, byte(len(payload)))
	out = append(out, payload...)
	out = append(out, Checksum(typeID, payload))
	return out
}

// EncodeGet creates a GET request for a register. The device expects a
// single zero byte as payload.
func EncodeGet(typeID byte) []byte {
	return EncodeFrame(HeaderOutput, CmdGet, typeID, []byte{0})
}

// EncodeSetFloat creates a SET command carrying an IEEE-754 single
// precision little-endian value. Out-of-range values follow float32
// conversion rules (±Inf).
func EncodeSetFloat(typeID byte, value float64) []byte {
	payload := make([]byte, float32Size)
	binary.LittleEndian.PutUint32(payload, math.Float32bits(float32(value)))
	return EncodeFrame(HeaderOutput, CmdSet, typeID, payload)
}

// EncodeSetByte creates a SET command with a single byte payload.
// The value is truncated to its low 8 bits.
func EncodeSetByte(typeID byte, value int) []byte {
	return EncodeFrame(HeaderOutput, CmdSet, typeID, []byte{byte(value & 0xFF)})
}

// EncodeSession creates the session open/close command
func EncodeSession(open bool) []byte {
	var flag byte
	if open {
		flag = 1
	}
	return EncodeFrame(HeaderOutput, CmdSession, 0, []byte{flag})
}

// EncodeBaud creates the baud-rate select command for the given rate.
// Rates missing from BaudRates select the last (fastest) entry.
func EncodeBaud(baudRate int) []byte {
	return EncodeFrame(HeaderOutput, CmdBaud, 0, []byte{byte(BaudIndex(baudRate) + 1)})
}

// BaudIndex returns the index of baudRate in BaudRates, or the last index
// when the rate is not in the table.
func BaudIndex(baudRate int) int {
	for i, rate := range BaudRates {
		if rate == baudRate {
			return i
		}
	}
	return len(BaudRates) - 1
}
