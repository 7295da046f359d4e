// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package dps150

import (
	"fmt"
	"strings"
	"time"
)

// FormatFrame formats a frame into a human-readable string
func FormatFrame(f Frame, ts time.Time) string {
	direction := "TX"
	if f.IsInput() {
		direction = "RX"
	}

	result := fmt.Sprintf("[%s] %s %s %s (0x%02X) len=%d\n",
		ts.Format("15:04:05.000"), direction, FormatCommand(f.Command),
		FormatRegister(f.TypeID), f.TypeID, f.Length())

	if f.Command == CmdGet && !f.IsInput() {
		return result
	}

	u := Decode(f.TypeID, f.Payload)
	if u.Empty() || u.RawAll != nil {
		return result + FormatHex(f.Payload)
	}
	return result + FormatUpdate(u)
}

// FormatCommand returns the human-readable name for a command byte
func FormatCommand(cmd byte) string {
	switch cmd {
	case CmdGet:
		return "GET"
	case CmdBaud:
		return "BAUD"
	case CmdSet:
		return "SET"
	case CmdSession:
		return "SESSION"
	default:
		return "UNKNOWN"
	}
}

// FormatRegister returns the register name for a type_id
func FormatRegister(typeID byte) string {
	if r, ok := LookupRegister(typeID); ok {
		return r.Name
	}
	return "UNKNOWN"
}

// FormatUpdate formats every set field as an indented "name: value" line
func FormatUpdate(u Update) string {
	var sb strings.Builder
	for _, f := range u.Fields() {
		fmt.Fprintf(&sb, "  %s: %s\n", f.Name, f.Value)
	}
	return sb.String()
}

// FormatHex formats a payload as a hex dump, 16 bytes per line
func FormatHex(payload []byte) string {
	if len(payload) == 0 {
		return "  (no payload)\n"
	}
	result := "  Payload: "
	for i, b := range payload {
		if i > 0 && i%16 == 0 {
			result += "\n           "
		}
		result += fmt.Sprintf("%02X ", b)
	}
	return result + "\n"
}
