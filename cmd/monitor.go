// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/Thermoquad/dpsctl/pkg/capture"
	"github.com/Thermoquad/dpsctl/pkg/device"
	"github.com/Thermoquad/dpsctl/pkg/dps150"
	"github.com/spf13/cobra"
)

var (
	monitorDuration float64
	monitorInterval float64
	monitorRecord   string
	monitorTUI      bool
	monitorStats    bool
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Poll the ALL block and print updates as they arrive",
	Long: `Request the ALL block at a fixed interval and print every update the
supply sends until the duration elapses or Ctrl+C is pressed.

Anomalies (tripped protection, readings above the upper limits, implausible
temperatures) are logged as warnings. Use --record to save every update to a
capture file that 'dpsctl replay' can read back, and --tui for an interactive
dashboard with output and setpoint controls.`,
	Args: cobra.NoArgs,
	RunE: runMonitor,
}

func init() {
	rootCmd.AddCommand(monitorCmd)
	monitorCmd.Flags().Float64Var(&monitorDuration, "duration", 0, "Seconds to monitor (0 runs until interrupted)")
	monitorCmd.Flags().Float64Var(&monitorInterval, "get-all-interval", 1, "Seconds between ALL requests (0 disables polling)")
	monitorCmd.Flags().StringVar(&monitorRecord, "record", "", "Write every update to this capture file")
	monitorCmd.Flags().BoolVar(&monitorTUI, "tui", false, "Show an interactive dashboard")
	monitorCmd.Flags().BoolVar(&monitorStats, "stats", true, "Print link statistics on exit")
}

// poller requests the ALL block
type poller interface {
	GetAll() error
}

// monitorLoop polls p every interval (0 disables polling) and hands each
// update to fn until duration elapses (0 means never), ctx ends, or updates
// closes
func monitorLoop(ctx context.Context, p poller, updates <-chan dps150.Update, interval, duration time.Duration, fn func(dps150.Update) error) error {
	var poll <-chan time.Time
	if interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		poll = ticker.C
	}

	var deadline <-chan time.Time
	if duration > 0 {
		timer := time.NewTimer(duration)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		select {
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			if err := fn(u); err != nil {
				return err
			}
		case <-poll:
			if err := p.GetAll(); err != nil {
				logger.Warn().Err(err).Msg("ALL request failed")
			}
		case <-deadline:
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}

// logAnomalies reports anything suspicious in u
func logAnomalies(u dps150.Update) {
	for _, issue := range dps150.ValidateUpdate(u) {
		logger.Warn().Interface("details", issue.Details).Msg(issue.Message)
	}
}

// openRecorder creates the capture file named by --record, if any
func openRecorder() (*capture.Writer, func() error, error) {
	if monitorRecord == "" {
		return nil, func() error { return nil }, nil
	}
	f, err := os.Create(monitorRecord)
	if err != nil {
		return nil, nil, fmt.Errorf("create capture file: %w", err)
	}
	return capture.NewWriter(f), f.Close, nil
}

func runMonitor(cmd *cobra.Command, args []string) error {
	if monitorTUI {
		return runMonitorTUI(cmd)
	}

	format, err := resolveFormat(cmd.OutOrStdout())
	if err != nil {
		return err
	}

	rec, closeRec, err := openRecorder()
	if err != nil {
		return err
	}
	defer closeRec()

	return runSession(cmd.Context(), openerFunc(), func(ctx context.Context, dev *device.Device) error {
		p := newUpdatePrinter(cmd.OutOrStdout(), format)
		defer p.Close()

		session := dev.SessionID()
		err := monitorLoop(ctx, dev, dev.Updates(), seconds(monitorInterval), seconds(monitorDuration), func(u dps150.Update) error {
			logAnomalies(u)
			if rec != nil {
				if err := rec.Write(capture.Record{Time: time.Now(), Session: session, Update: u}); err != nil {
					return err
				}
			}
			return p.Print(u)
		})

		if rec != nil {
			logger.Info().Int("records", rec.Count()).Str("file", monitorRecord).Msg("capture written")
		}
		if monitorStats {
			stats := dev.Stats()
			fmt.Fprint(cmd.ErrOrStderr(), stats.String())
		}
		return err
	})
}
