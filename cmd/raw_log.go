// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/Thermoquad/dpsctl/pkg/device"
	"github.com/Thermoquad/dpsctl/pkg/dps150"
	"github.com/spf13/cobra"
)

var rawLogPoll time.Duration

var rawLogCmd = &cobra.Command{
	Use:   "raw_log",
	Short: "Display raw frame log in human-readable format",
	Long: `Continuously decode and display DPS-150 frames as they arrive.

Each frame is printed with a timestamp, direction, command, register and
decoded payload. Frames sent by this command are printed too. A session open
and an ALL request are sent on start so the supply begins reporting; use
--poll to keep requesting ALL periodically.

Supports both serial and WebSocket connections.`,
	Args: cobra.NoArgs,
	RunE: runRawLog,
}

func init() {
	rootCmd.AddCommand(rawLogCmd)
	rawLogCmd.Flags().DurationVar(&rawLogPoll, "poll", 0, "Interval between ALL requests (0 disables polling)")
}

// openRawTransport opens the configured transport with the read timeout
// applied, so reads return regularly and cancellation is noticed
func openRawTransport(ctx context.Context) (device.Transport, string, error) {
	tr, info, err := OpenTransport(ctx)
	if err != nil {
		return nil, "", err
	}
	if rt, ok := tr.(device.ReadTimeoutSetter); ok {
		if err := rt.SetReadTimeout(time.Duration(readTimeout * float64(time.Second))); err != nil {
			tr.Close()
			return nil, "", fmt.Errorf("set read timeout: %w", err)
		}
	}
	return tr, info, nil
}

// readFrames feeds the scanner from r and hands every frame to fn until ctx
// ends, r reports an error, or fn fails
func readFrames(ctx context.Context, r io.Reader, scanner *dps150.Scanner, fn func(dps150.Frame) error) error {
	buf := make([]byte, 1024)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := r.Read(buf)
		if n > 0 {
			scanner.Write(buf[:n])
			for {
				frame, ok := scanner.Next()
				if !ok {
					break
				}
				if err := fn(frame); err != nil {
					return err
				}
			}
		}
		if err != nil {
			return err
		}
	}
}

// sendLogged writes frame and prints it the way received frames are printed
func sendLogged(w io.Writer, tr io.Writer, frame []byte) error {
	if _, err := tr.Write(frame); err != nil {
		return fmt.Errorf("write %s: %w", dps150.FormatCommand(frame[1]), err)
	}
	if f, _, ok := dps150.ScanFrame(frame); ok {
		fmt.Fprint(w, dps150.FormatFrame(f, time.Now()))
	}
	return nil
}

func runRawLog(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	tr, connInfo, err := openRawTransport(ctx)
	if err != nil {
		return err
	}
	defer tr.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "dpsctl - Raw Frame Log\n")
	fmt.Fprintf(out, "Connection: %s\n", connInfo)
	fmt.Fprintf(out, "Press Ctrl+C to exit\n\n")

	for _, frame := range [][]byte{dps150.EncodeSession(true), dps150.EncodeGetAll()} {
		if err := sendLogged(out, tr, frame); err != nil {
			return err
		}
	}

	if rawLogPoll > 0 {
		go func() {
			ticker := time.NewTicker(rawLogPoll)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if err := sendLogged(out, tr, dps150.EncodeGetAll()); err != nil {
						logger.Warn().Err(err).Msg("poll failed")
					}
				}
			}
		}()
	}

	scanner := dps150.NewScanner()
	err = readFrames(ctx, tr, scanner, func(f dps150.Frame) error {
		_, err := fmt.Fprint(out, dps150.FormatFrame(f, time.Now()))
		return err
	})

	logger.Info().Str("stats", scanner.Statistics().String()).Msg("raw log finished")

	switch {
	case errors.Is(err, context.Canceled):
		// Best effort; the supply also times the session out
		tr.Write(dps150.EncodeSession(false))
		return nil
	case errors.Is(err, ErrConnectionClosed), errors.Is(err, io.EOF):
		logger.Info().Msg("connection closed")
		return nil
	default:
		return err
	}
}
