// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/Thermoquad/dpsctl/pkg/dps150"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var registersCmd = &cobra.Command{
	Use:   "registers",
	Short: "List the register table",
	Long: `List every register the tool knows: type_id, name, the update field it
decodes into, how its payload is decoded, and whether it can be written.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := resolveFormat(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		return printRegisters(cmd.OutOrStdout(), format)
	},
}

func init() {
	rootCmd.AddCommand(registersCmd)
}

// registerEntry is the serialized form of a register
type registerEntry struct {
	ID       int    `json:"id" yaml:"id"`
	Hex      string `json:"hex" yaml:"hex"`
	Name     string `json:"name" yaml:"name"`
	Field    string `json:"field,omitempty" yaml:"field,omitempty"`
	Decode   string `json:"decode" yaml:"decode"`
	Writable bool   `json:"writable" yaml:"writable"`
}

func registerEntries() []registerEntry {
	regs := dps150.Registers()
	out := make([]registerEntry, 0, len(regs))
	for _, r := range regs {
		out = append(out, registerEntry{
			ID:       int(r.ID),
			Hex:      fmt.Sprintf("0x%02X", r.ID),
			Name:     r.Name,
			Field:    r.Field,
			Decode:   r.Rule.String(),
			Writable: r.Writable,
		})
	}
	return out
}

func printRegisters(w io.Writer, format string) error {
	entries := registerEntries()

	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)

	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(entries); err != nil {
			return err
		}
		return enc.Close()
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(headerStyle).
		Headers("ID", "HEX", "NAME", "FIELD", "DECODE", "W").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return statsLabelStyle.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})

	for _, e := range entries {
		writable := ""
		if e.Writable {
			writable = "yes"
		}
		t.Row(fmt.Sprintf("%d", e.ID), e.Hex, e.Name, e.Field, e.Decode, writable)
	}

	_, err := fmt.Fprintln(w, t.String())
	return err
}
