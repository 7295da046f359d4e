// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/Thermoquad/dpsctl/pkg/dps150"
	"github.com/spf13/cobra"
)

var wsTestCmd = &cobra.Command{
	Use:   "ws_test",
	Short: "Test raw WebSocket connection stability",
	Long: `Test a WebSocket serial bridge without opening a device session.

This command connects to the WebSocket and just waits, logging any data received
or errors encountered, and counting how many valid DPS-150 frames the data held.
Nothing is sent. Useful for debugging bridge stability issues.

Exit codes:
  0 - Test completed normally
  1 - Test failed
  2 - Connection error`,
	Args: cobra.NoArgs,
	RunE: runWsTest,
}

var wsTestDuration int

func init() {
	rootCmd.AddCommand(wsTestCmd)
	wsTestCmd.Flags().IntVar(&wsTestDuration, "duration", 30, "Test duration in seconds")
}

func runWsTest(cmd *cobra.Command, args []string) error {
	if wsURL == "" {
		return errors.New("ws_test requires --url")
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	conn, connInfo, err := openRawTransport(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Connection error: %v\n", err)
		os.Exit(2)
	}
	defer conn.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "WebSocket Connection Stability Test\n")
	fmt.Fprintf(out, "Connection: %s\n", connInfo)
	fmt.Fprintf(out, "Duration: %d seconds\n\n", wsTestDuration)

	// Start a goroutine to read from the connection
	readChan := make(chan []byte, 100)
	errChan := make(chan error, 1)

	go func() {
		buf := make([]byte, 256)
		for {
			n, err := conn.Read(buf)
			if err != nil {
				errChan <- err
				return
			}
			if n > 0 {
				data := make([]byte, n)
				copy(data, buf[:n])
				select {
				case readChan <- data:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	start := time.Now()
	endTime := start.Add(time.Duration(wsTestDuration) * time.Second)
	scanner := dps150.NewScanner()
	chunks := 0
	frames := 0

	results := func(result string) {
		stats := scanner.Statistics()
		fmt.Fprintf(out, "\n--- Test Results ---\n")
		fmt.Fprintf(out, "Duration: %v\n", time.Since(start).Round(time.Millisecond))
		fmt.Fprintf(out, "Messages received: %d\n", chunks)
		fmt.Fprintf(out, "Bytes received: %d\n", stats.BytesReceived)
		fmt.Fprintf(out, "Valid frames: %d\n", frames)
		fmt.Fprintf(out, "Checksum errors: %d\n", stats.ChecksumRejects)
		fmt.Fprintf(out, "Result: %s\n", result)
	}

	fmt.Fprintf(out, "Listening for data...\n\n")

	heartbeat := time.NewTicker(time.Second)
	defer heartbeat.Stop()

	for time.Now().Before(endTime) {
		select {
		case data := <-readChan:
			chunks++
			fmt.Fprintf(out, "[%s] Received %d bytes: %x\n",
				time.Now().Format("15:04:05.000"), len(data), data)
			scanner.Write(data)
			for {
				if _, ok := scanner.Next(); !ok {
					break
				}
				frames++
			}

		case err := <-errChan:
			fmt.Fprintf(out, "\n[%s] Connection error: %v\n",
				time.Now().Format("15:04:05.000"), err)
			results("FAILED (connection error)")
			os.Exit(1)

		case <-ctx.Done():
			results("INTERRUPTED")
			return nil

		case <-heartbeat.C:
			// Just a heartbeat to show the test is running
			remaining := time.Until(endTime).Seconds()
			fmt.Fprintf(out, "[%s] Still connected... (%.0fs remaining)\n",
				time.Now().Format("15:04:05.000"), remaining)
		}
	}

	results("PASSED (connection stable)")
	return nil
}
