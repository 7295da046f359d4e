// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/Thermoquad/dpsctl/pkg/dps150"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
)

func TestPrintRegisters_JSON(t *testing.T) {
	var out bytes.Buffer
	assert.NilError(t, printRegisters(&out, formatJSON))

	var entries []registerEntry
	assert.NilError(t, json.Unmarshal(out.Bytes(), &entries))
	assert.Assert(t, is.Len(entries, len(dps150.Registers())))

	var temp registerEntry
	for _, e := range entries {
		if e.ID == dps150.RegTemperature {
			temp = e
		}
	}
	assert.Check(t, is.DeepEqual(temp, registerEntry{
		ID:     dps150.RegTemperature,
		Hex:    "0xC4",
		Name:   "TEMPERATURE",
		Field:  "temperature",
		Decode: dps150.RuleFloat32.String(),
	}))
}

func TestPrintRegisters_YAML(t *testing.T) {
	var out bytes.Buffer
	assert.NilError(t, printRegisters(&out, formatYAML))
	assert.Check(t, is.Contains(out.String(), "name: VOLTAGE_SET"))
	assert.Check(t, is.Contains(out.String(), "writable: true"))
}

func TestPrintRegisters_Table(t *testing.T) {
	var out bytes.Buffer
	assert.NilError(t, printRegisters(&out, formatText))

	for _, r := range dps150.Registers() {
		assert.Check(t, is.Contains(out.String(), r.Name))
	}
	assert.Check(t, is.Contains(out.String(), "0xFF"))
}

func TestRegistersCommand(t *testing.T) {
	tr := newScriptedSupply()
	out, err := executeCommand(t, tr, "registers", "--format", "yaml")
	assert.NilError(t, err)
	assert.Check(t, is.Contains(out, "hex: \"0xC4\""))
	assert.Check(t, !tr.sent(dps150.EncodeSession(true)), "registers should not open a session")
}
