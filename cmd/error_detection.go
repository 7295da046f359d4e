// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/Thermoquad/dpsctl/pkg/dps150"
	"github.com/spf13/cobra"
)

var (
	showAll       bool
	statsInterval int
	detectPoll    time.Duration
)

var errorDetectionCmd = &cobra.Command{
	Use:   "error_detection",
	Short: "Detect and analyze corrupted frames and anomalous readings",
	Long: `Track checksum failures, discarded bytes, and anomalous readings with statistics.

This command validates each frame and detects:
  - Checksum failures and bytes that never formed a frame
  - Tripped protections (OVP, OCP, OPP, OTP, LVP, REP)
  - Output voltage or current above the reported upper limits
  - Implausible temperatures and non-finite values
  - Statistics and trends (frame rate, error rate)

By default, only errors are displayed. Use --show-all to display valid frames too.
The ALL block is requested every --poll interval so the supply keeps reporting.`,
	Args: cobra.NoArgs,
	RunE: runErrorDetection,
}

func init() {
	rootCmd.AddCommand(errorDetectionCmd)
	errorDetectionCmd.Flags().BoolVar(&showAll, "show-all", false, "Show all frames (not just errors)")
	errorDetectionCmd.Flags().IntVar(&statsInterval, "stats-interval", 10, "Statistics update interval (seconds)")
	errorDetectionCmd.Flags().DurationVar(&detectPoll, "poll", time.Second, "Interval between ALL requests")
}

// printValidationErrors prints the anomalies found in one frame
func printValidationErrors(w io.Writer, f dps150.Frame, ts time.Time, issues []dps150.ValidationError) {
	fmt.Fprintf(w, "[%s] \033[1;33mVALIDATION ERROR:\033[0m %s (0x%02X)\n",
		ts.Format("15:04:05.000"), dps150.FormatRegister(f.TypeID), f.TypeID)
	fmt.Fprintf(w, "  Checksum: \033[1;32mOK\033[0m\n")

	for i, issue := range issues {
		switch issue.Type {
		case dps150.AnomalyProtectionTripped:
			fmt.Fprintf(w, "  Issue %d: \033[1;31m%s\033[0m\n", i+1, issue.Message)

		case dps150.AnomalyOverLimit:
			fmt.Fprintf(w, "  Issue %d: \033[1;31m%s\033[0m\n", i+1, issue.Message)

		case dps150.AnomalyInvalidTemp:
			fmt.Fprintf(w, "  Issue %d: \033[1;33m%s\033[0m\n", i+1, issue.Message)

		default:
			fmt.Fprintf(w, "  Issue %d: %s\n", i+1, issue.Message)
		}
	}

	fmt.Fprintf(w, "  >>> READING REJECTED <<<\n\n")
}

// frameChecker tracks sync state and statistics for a stream of frames
type frameChecker struct {
	w        io.Writer
	showAll  bool
	scanner  *dps150.Scanner
	synced   bool
	rejected uint64 // checksum rejects already reported
}

func newFrameChecker(w io.Writer, showAll bool) *frameChecker {
	return &frameChecker{w: w, showAll: showAll, scanner: dps150.NewScanner()}
}

// feed scans data and reports every frame it completes
func (c *frameChecker) feed(data []byte) {
	c.scanner.Write(data)
	for {
		f, ok := c.scanner.Next()
		if !ok {
			break
		}
		c.check(f, time.Now())
	}

	// Checksum failures before the first frame are just sync noise
	stats := c.scanner.Statistics()
	if c.synced && stats.ChecksumRejects > c.rejected {
		fmt.Fprintf(c.w, "[%s] \033[1;31mCHECKSUM ERROR:\033[0m %d candidate frame(s) rejected\n\n",
			time.Now().Format("15:04:05.000"), stats.ChecksumRejects-c.rejected)
	}
	c.rejected = stats.ChecksumRejects
}

func (c *frameChecker) check(f dps150.Frame, ts time.Time) {
	stats := c.scanner.Statistics()

	if !c.synced {
		c.synced = true
		if stats.DiscardedBytes > 0 {
			fmt.Fprintf(c.w, "[SYNC] Synchronized after skipping %d invalid bytes\n\n", stats.DiscardedBytes)
		} else {
			fmt.Fprintf(c.w, "[SYNC] Synchronized\n\n")
		}
	}

	u := dps150.Decode(f.TypeID, f.Payload)
	issues := dps150.ValidateUpdate(u)
	stats.Update(u, issues)

	if len(issues) > 0 {
		printValidationErrors(c.w, f, ts, issues)
	} else if c.showAll {
		fmt.Fprint(c.w, dps150.FormatFrame(f, ts))
	}
}

func runErrorDetection(cmd *cobra.Command, args []string) error {
	if statsInterval <= 0 || detectPoll <= 0 {
		return errors.New("--stats-interval and --poll must be positive")
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	tr, connInfo, err := openRawTransport(ctx)
	if err != nil {
		return err
	}
	defer tr.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "dpsctl - Error Detection Mode\n")
	fmt.Fprintf(out, "Connection: %s\n", connInfo)
	fmt.Fprintf(out, "Statistics interval: %d seconds\n", statsInterval)
	if showAll {
		fmt.Fprintf(out, "Mode: All frames\n")
	} else {
		fmt.Fprintf(out, "Mode: Errors only\n")
	}
	fmt.Fprintf(out, "Press Ctrl+C to exit\n\n")

	for _, frame := range [][]byte{dps150.EncodeSession(true), dps150.EncodeGetAll()} {
		if _, err := tr.Write(frame); err != nil {
			return fmt.Errorf("write %s: %w", dps150.FormatCommand(frame[1]), err)
		}
	}

	checker := newFrameChecker(out, showAll)
	stats := checker.scanner.Statistics()

	statsTicker := time.NewTicker(time.Duration(statsInterval) * time.Second)
	defer statsTicker.Stop()
	pollTicker := time.NewTicker(detectPoll)
	defer pollTicker.Stop()

	buf := make([]byte, 1024)
	for ctx.Err() == nil {
		n, err := tr.Read(buf)
		if n > 0 {
			checker.feed(buf[:n])
		}
		if err != nil {
			if errors.Is(err, ErrConnectionClosed) || errors.Is(err, io.EOF) {
				logger.Info().Msg("connection closed")
				break
			}
			stats.ReadErrors++
			logger.Warn().Err(err).Msg("read error")
			time.Sleep(100 * time.Millisecond)
		}

		select {
		case <-statsTicker.C:
			fmt.Fprintln(out)
			fmt.Fprint(out, stats.String())
			fmt.Fprintln(out)
		case <-pollTicker.C:
			if _, err := tr.Write(dps150.EncodeGetAll()); err != nil {
				logger.Warn().Err(err).Msg("ALL request failed")
			}
		default:
		}
	}

	if errors.Is(ctx.Err(), context.Canceled) {
		tr.Write(dps150.EncodeSession(false))
	}
	fmt.Fprintln(out)
	fmt.Fprint(out, stats.String())
	return nil
}
