// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/Thermoquad/dpsctl/pkg/device"
	"github.com/Thermoquad/dpsctl/pkg/dps150"
	"github.com/spf13/cobra"
)

var setCmd = &cobra.Command{
	Use:   "set <what> <value>",
	Short: "Set a voltage, current, protection threshold, or display setting",
	Args:  cobra.ExactArgs(2),
	RunE:  runSet,
}

var enableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Enable output",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCommand(cmd, toggleSettle, (*device.Device).EnableOutput)
	},
}

var disableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Disable output",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCommand(cmd, toggleSettle, (*device.Device).DisableOutput)
	},
}

var meteringCmd = &cobra.Command{
	Use:       "metering <on|off>",
	Short:     "Start or stop capacity/energy metering",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"on", "off"},
	RunE:      runMetering,
}

func init() {
	setCmd.Long = "Set a named value and print the replies.\n\nTargets:\n" + setpointHelp()

	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(enableCmd)
	rootCmd.AddCommand(disableCmd)
	rootCmd.AddCommand(meteringCmd)
}

// setpointHelp lists the setpoint names for the set command's help text
func setpointHelp() string {
	var sb strings.Builder
	for _, sp := range dps150.Setpoints() {
		fmt.Fprintf(&sb, "  %-11s %s\n", sp.Name, sp.Description)
	}
	return sb.String()
}

// parseSetpoint resolves a set target and value
func parseSetpoint(what, value string) (dps150.Setpoint, float64, error) {
	sp, ok := dps150.LookupSetpoint(what)
	if !ok {
		names := make([]string, 0, len(dps150.Setpoints()))
		for _, s := range dps150.Setpoints() {
			names = append(names, s.Name)
		}
		sort.Strings(names)
		return dps150.Setpoint{}, 0, fmt.Errorf("unknown 'set' target: %s (one of %s)", what, strings.Join(names, ", "))
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return dps150.Setpoint{}, 0, fmt.Errorf("invalid value %q for %s: %w", value, sp.Name, err)
	}
	return sp, v, nil
}

func runSet(cmd *cobra.Command, args []string) error {
	sp, value, err := parseSetpoint(args[0], args[1])
	if err != nil {
		return err
	}

	return runCommand(cmd, setSettle, func(dev *device.Device) error {
		return dev.Set(sp, value)
	})
}

func runMetering(cmd *cobra.Command, args []string) error {
	send := (*device.Device).StopMetering
	if args[0] == "on" {
		send = (*device.Device).StartMetering
	}
	return runCommand(cmd, toggleSettle, send)
}
