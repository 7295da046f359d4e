// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/Thermoquad/dpsctl/pkg/dps150"
	"github.com/spf13/cobra"
)

var (
	packetTestTimeout int
)

// Exit codes for packet_test
const (
	exitFrameReceived = 0
	exitTimeout       = 1
	exitConnection    = 2
)

var packetTestCmd = &cobra.Command{
	Use:   "packet_test",
	Short: "Test connection by waiting for a valid DPS-150 frame",
	Long: `Wait for a valid DPS-150 frame on the connection until timeout.

This command connects to a serial port or WebSocket, opens a session, requests
the ALL block and waits for any valid frame. Invalid bytes are skipped; only a
complete frame with a matching checksum counts.

Exit codes:
  0 - Frame received before timeout
  1 - Timeout reached without receiving a valid frame
  2 - Connection error`,
	Args: cobra.NoArgs,
	RunE: runPacketTest,
}

func init() {
	rootCmd.AddCommand(packetTestCmd)
	packetTestCmd.Flags().IntVar(&packetTestTimeout, "wait", 10, "Seconds to wait for a frame")
}

// waitForFrame reads from r until one valid frame arrives. It returns the
// frame and the number of bytes skipped before it.
func waitForFrame(ctx context.Context, r io.Reader) (dps150.Frame, uint64, error) {
	scanner := dps150.NewScanner()
	errFound := errors.New("found")

	var found dps150.Frame
	err := readFrames(ctx, r, scanner, func(f dps150.Frame) error {
		found = f
		return errFound
	})
	if errors.Is(err, errFound) {
		return found, scanner.Statistics().DiscardedBytes, nil
	}
	return dps150.Frame{}, scanner.Statistics().DiscardedBytes, err
}

// packetTest runs the test and returns the process exit code
func packetTest(ctx context.Context, cmd *cobra.Command) int {
	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()
	timeout := time.Duration(packetTestTimeout) * time.Second

	tr, connInfo, err := openRawTransport(ctx)
	if err != nil {
		fmt.Fprintf(errOut, "Connection error: %v\n", err)
		return exitConnection
	}
	defer tr.Close()

	fmt.Fprintf(out, "dpsctl - Packet Test\n")
	fmt.Fprintf(out, "Connection: %s\n", connInfo)
	fmt.Fprintf(out, "Timeout: %d seconds\n", packetTestTimeout)
	fmt.Fprintf(out, "Waiting for valid DPS-150 frame...\n\n")

	for _, frame := range [][]byte{dps150.EncodeSession(true), dps150.EncodeGetAll()} {
		if _, err := tr.Write(frame); err != nil {
			fmt.Fprintf(errOut, "Write error: %v\n", err)
			return exitConnection
		}
	}
	defer tr.Write(dps150.EncodeSession(false))

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	frame, skipped, err := waitForFrame(ctx, tr)
	switch {
	case err == nil:
		if skipped > 0 {
			fmt.Fprintf(out, "(skipped %d invalid bytes before sync)\n", skipped)
		}
		fmt.Fprintf(out, "SUCCESS: Received valid frame\n")
		fmt.Fprintf(out, "  Command: %s (0x%02X)\n", dps150.FormatCommand(frame.Command), frame.Command)
		fmt.Fprintf(out, "  Register: %s (0x%02X)\n", dps150.FormatRegister(frame.TypeID), frame.TypeID)
		fmt.Fprintf(out, "  Length: %d bytes\n", frame.Length())
		fmt.Fprintf(out, "  Checksum: 0x%02X\n", frame.Checksum())
		return exitFrameReceived

	case errors.Is(err, context.DeadlineExceeded):
		fmt.Fprintf(errOut, "TIMEOUT: No valid frame received within %d seconds\n", packetTestTimeout)
		return exitTimeout

	case errors.Is(err, context.Canceled):
		fmt.Fprintf(errOut, "Interrupted\n")
		return exitTimeout

	default:
		fmt.Fprintf(errOut, "Read error: %v\n", err)
		return exitConnection
	}
}

func runPacketTest(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	code := packetTest(ctx, cmd)
	cancel()
	os.Exit(code)
	return nil
}
