// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/Thermoquad/dpsctl/pkg/dps150"
	"gopkg.in/yaml.v3"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
	formatText = "text"
)

// resolveFormat returns the effective output format for w
func resolveFormat(w io.Writer) (string, error) {
	format := strings.ToLower(outputFormat)
	if prettyOutput {
		format = formatText
	}
	switch format {
	case formatJSON, formatYAML, formatText:
		return format, nil
	case "":
		if isTerminal(w) {
			return formatText, nil
		}
		return formatJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (use json, yaml or text)", outputFormat)
	}
}

// updatePrinter writes updates in one output format
type updatePrinter struct {
	w       io.Writer
	format  string
	yamlEnc *yaml.Encoder
}

func newUpdatePrinter(w io.Writer, format string) *updatePrinter {
	p := &updatePrinter{w: w, format: format}
	if format == formatYAML {
		p.yamlEnc = yaml.NewEncoder(w)
		p.yamlEnc.SetIndent(2)
	}
	return p
}

// Print writes one update: a JSON line, a YAML document, or indented text
// followed by a separator
func (p *updatePrinter) Print(u dps150.Update) error {
	switch p.format {
	case formatYAML:
		return p.yamlEnc.Encode(updateDocument(u))
	case formatText:
		_, err := fmt.Fprint(p.w, dps150.FormatUpdate(u)+strings.Repeat("-", 20)+"\n")
		return err
	default:
		data, err := json.Marshal(updateDocument(u))
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(p.w, "%s\n", data)
		return err
	}
}

// Close flushes any buffered output
func (p *updatePrinter) Close() error {
	if p.yamlEnc != nil {
		return p.yamlEnc.Close()
	}
	return nil
}

// updateDocument converts an update to a plain map that both encoders can
// represent. Raw bytes become hex and non-finite floats become strings.
func updateDocument(u dps150.Update) map[string]interface{} {
	doc := make(map[string]interface{}, u.Len())
	for _, f := range u.Fields() {
		switch f.Value.Kind() {
		case dps150.KindBytes:
			doc[f.Name] = f.Value.String()
		case dps150.KindFloat:
			v := float64(f.Value.Float())
			if math.IsNaN(v) || math.IsInf(v, 0) {
				doc[f.Name] = f.Value.String()
			} else {
				// Round-trip the float32 through its shortest decimal form
				doc[f.Name] = json.Number(f.Value.String())
			}
		default:
			doc[f.Name] = f.Value.Interface()
		}
	}
	return doc
}
