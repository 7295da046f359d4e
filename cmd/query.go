// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/Thermoquad/dpsctl/pkg/device"
	"github.com/Thermoquad/dpsctl/pkg/dps150"
	"github.com/spf13/cobra"
)

// openerFunc supplies the transport opener for every command
var openerFunc = transportOpener

// Time to keep printing replies after a command is sent
const (
	infoCollect   = 800 * time.Millisecond
	getAllCollect = 500 * time.Millisecond
	setSettle     = 300 * time.Millisecond
	toggleSettle  = 200 * time.Millisecond
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Query model, hardware and firmware versions plus the ALL block",
	Long: `Open a session and print everything the supply reports in response to
the init sequence (model name, hardware and firmware version, and the full ALL
block), merged into a single update.`,
	Args: cobra.NoArgs,
	RunE: runInfo,
}

var getAllCmd = &cobra.Command{
	Use:   "get-all",
	Short: "Request the ALL block once",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCommand(cmd, getAllCollect, func(dev *device.Device) error {
			return dev.GetAll()
		})
	},
}

var getCmd = &cobra.Command{
	Use:   "get <register>",
	Short: "Request a single register",
	Long: `Request a single register by name or type_id and print the replies.

The register may be given as its name (TEMPERATURE), its update field
(temperature), or its type_id in decimal or hex (196, 0xC4). Run
'dpsctl registers' for the full table.`,
	Args: cobra.ExactArgs(1),
	RunE: runGet,
}

func init() {
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(getAllCmd)
	rootCmd.AddCommand(getCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	format, err := resolveFormat(cmd.OutOrStdout())
	if err != nil {
		return err
	}

	return runSession(cmd.Context(), openerFunc(), func(ctx context.Context, dev *device.Device) error {
		// Open already queried model/hw/fw and ALL
		u := collectUpdates(ctx, dev.Updates(), infoCollect)
		if u.Empty() {
			return fmt.Errorf("no reply from device within %v", infoCollect)
		}

		p := newUpdatePrinter(cmd.OutOrStdout(), format)
		defer p.Close()
		return p.Print(u)
	})
}

func runGet(cmd *cobra.Command, args []string) error {
	reg, ok := dps150.FindRegister(args[0])
	if !ok {
		return fmt.Errorf("unknown register %q", args[0])
	}
	if reg.Rule == dps150.RuleNone {
		logger.Warn().Str("register", reg.Name).Msg("register is write-only; replies will not decode")
	}

	return runCommand(cmd, getAllCollect, func(dev *device.Device) error {
		return dev.Get(reg.ID)
	})
}

// runCommand opens a session, sends one command, and prints every update
// that arrives within settle
func runCommand(cmd *cobra.Command, settle time.Duration, send func(dev *device.Device) error) error {
	format, err := resolveFormat(cmd.OutOrStdout())
	if err != nil {
		return err
	}

	return runSession(cmd.Context(), openerFunc(), func(ctx context.Context, dev *device.Device) error {
		if err := send(dev); err != nil {
			return err
		}

		p := newUpdatePrinter(cmd.OutOrStdout(), format)
		defer p.Close()
		return streamUpdates(ctx, dev.Updates(), settle, p.Print)
	})
}
