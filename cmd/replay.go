// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Thermoquad/dpsctl/pkg/capture"
	"github.com/Thermoquad/dpsctl/pkg/dps150"
	"github.com/spf13/cobra"
)

var (
	replayMerge   bool
	replaySession string
)

var replayCmd = &cobra.Command{
	Use:   "replay <file>",
	Short: "Print the updates stored in a capture file",
	Long: `Read a capture file written by 'dpsctl monitor --record' and print its
updates in the selected output format. No device is needed.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
	replayCmd.Flags().BoolVar(&replayMerge, "merge", false, "Print only the merged final state")
	replayCmd.Flags().StringVar(&replaySession, "session", "", "Only replay records from this session ID")
}

// replay prints each record read from r, or their merge
func replay(r io.Reader, w io.Writer, format string) (int, error) {
	reader := capture.NewReader(r)
	p := newUpdatePrinter(w, format)
	defer p.Close()

	var merged dps150.Update
	count := 0
	for {
		rec, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return count, err
		}
		if replaySession != "" && rec.Session != replaySession {
			continue
		}
		count++

		if replayMerge {
			merged.Merge(rec.Update)
			continue
		}
		if format == formatText {
			fmt.Fprintf(w, "[%s]\n", rec.Time.Local().Format("2006-01-02 15:04:05.000"))
		}
		if err := p.Print(rec.Update); err != nil {
			return count, err
		}
	}

	if replayMerge && count > 0 {
		return count, p.Print(merged)
	}
	return count, nil
}

func runReplay(cmd *cobra.Command, args []string) error {
	format, err := resolveFormat(cmd.OutOrStdout())
	if err != nil {
		return err
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open capture: %w", err)
	}
	defer f.Close()

	count, err := replay(f, cmd.OutOrStdout(), format)
	logger.Debug().Int("records", count).Str("file", args[0]).Msg("replay finished")
	return err
}
