// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/Thermoquad/dpsctl/pkg/dps150"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
)

func f32(v float32) *float32 { return &v }
func str(v string) *string   { return &v }
func boolPtr(v bool) *bool   { return &v }

func TestResolveFormat(t *testing.T) {
	saveGlobals(t)

	tests := []struct {
		name    string
		format  string
		pretty  bool
		want    string
		wantErr string
	}{
		{name: "pipe defaults to json", want: formatJSON},
		{name: "explicit yaml", format: "YAML", want: formatYAML},
		{name: "explicit text", format: "text", want: formatText},
		{name: "pretty overrides", format: "json", pretty: true, want: formatText},
		{name: "unknown", format: "xml", wantErr: `unknown output format "xml"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outputFormat, prettyOutput = tt.format, tt.pretty
			got, err := resolveFormat(&bytes.Buffer{})
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			assert.NilError(t, err)
			assert.Check(t, is.Equal(got, tt.want))
		})
	}
}

func TestPrinter_JSONLines(t *testing.T) {
	var buf bytes.Buffer
	p := newUpdatePrinter(&buf, formatJSON)

	assert.NilError(t, p.Print(dps150.Update{InputVoltage: f32(19.5), ModelName: str("DPS-150"), OutputClosed: boolPtr(true)}))
	assert.NilError(t, p.Print(dps150.Update{SetCurrent: f32(0.1)}))
	assert.NilError(t, p.Close())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Assert(t, is.Len(lines, 2))
	assert.Check(t, is.Equal(lines[0], `{"inputVoltage":19.5,"modelName":"DPS-150","outputClosed":true}`))
	// Shortest float32 form, not the widened float64
	assert.Check(t, is.Equal(lines[1], `{"setCurrent":0.1}`))
}

func TestPrinter_YAMLDocuments(t *testing.T) {
	var buf bytes.Buffer
	p := newUpdatePrinter(&buf, formatYAML)

	assert.NilError(t, p.Print(dps150.Update{OutputVoltage: f32(12), Mode: str("CV")}))
	assert.NilError(t, p.Print(dps150.Update{Temperature: f32(31.5)}))
	assert.NilError(t, p.Close())

	out := buf.String()
	assert.Check(t, is.Contains(out, "mode: CV\noutputVoltage: 12\n"))
	assert.Check(t, is.Contains(out, "---\ntemperature: 31.5\n"))
}

func TestPrinter_Text(t *testing.T) {
	var buf bytes.Buffer
	p := newUpdatePrinter(&buf, formatText)

	assert.NilError(t, p.Print(dps150.Update{Brightness: intPtr(5)}))
	assert.Check(t, is.Equal(buf.String(), "  brightness: 5\n"+strings.Repeat("-", 20)+"\n"))
}

func TestUpdateDocument_SpecialValues(t *testing.T) {
	nan := float32(math.NaN())
	inf := float32(math.Inf(1))
	doc := updateDocument(dps150.Update{
		OutputPower:  &nan,
		OutputEnergy: &inf,
		RawAll:       []byte{0xDE, 0xAD},
	})

	assert.Check(t, is.Equal(doc["outputPower"], "NaN"))
	assert.Check(t, is.Equal(doc["outputEnergy"], "+Inf"))
	assert.Check(t, is.Equal(doc["rawAll"], "dead"))

	var buf bytes.Buffer
	p := newUpdatePrinter(&buf, formatJSON)
	assert.NilError(t, p.Print(dps150.Update{OutputPower: &nan}))
	assert.Check(t, is.Equal(buf.String(), `{"outputPower":"NaN"}`+"\n"))
}

func intPtr(v int) *int { return &v }
