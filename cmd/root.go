// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	// Serial connection flags
	portName    string
	baudRate    int
	readTimeout float64 // seconds

	// WebSocket connection flags
	wsURL         string
	wsUsername    string
	wsNoSSLVerify bool

	// Output and logging flags
	outputFormat string
	prettyOutput bool
	configPath   string
	logLevel     string

	// Config-file only
	writeDelay = 50 * time.Millisecond

	logger = zerolog.Nop()
)

var rootCmd = &cobra.Command{
	Use:   "dpsctl",
	Short: "DPS-150 bench power supply control",
	Long: `dpsctl - A CLI tool for controlling and monitoring a DPS-150 bench power supply.

Opens a session with the supply, issues commands, and prints the decoded
register updates the supply reports back.

Connection modes:
  Serial:    --port /dev/ttyUSB0 [--baud 115200]
  WebSocket: --url ws://host/path [--username user]

Settings may also come from a TOML file (--config, default
$XDG_CONFIG_HOME/dpsctl/config.toml). Flags override the file.

For WebSocket authentication, the password is read from the DPSCTL_PASSWORD
environment variable, or prompted interactively if not set.`,
	Version:           "1.0.0",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	// Serial connection flags
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port device")
	rootCmd.PersistentFlags().IntVarP(&baudRate, "baud", "b", 115200, "Baud rate (serial only)")
	rootCmd.PersistentFlags().Float64Var(&readTimeout, "timeout", 0.2, "Read timeout in seconds")

	// WebSocket connection flags
	rootCmd.PersistentFlags().StringVarP(&wsURL, "url", "u", "", "WebSocket URL (ws:// or wss://)")
	rootCmd.PersistentFlags().StringVar(&wsUsername, "username", "", "Username for HTTP Basic auth")
	rootCmd.PersistentFlags().BoolVar(&wsNoSSLVerify, "no-ssl-verify", false, "Skip TLS certificate verification (wss:// only)")

	// Output flags
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "", "Output format: json, yaml or text (default: text on a terminal, json otherwise)")
	rootCmd.PersistentFlags().BoolVar(&prettyOutput, "pretty", false, "Same as --format text")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (TOML)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: trace, debug, info, warn, error")
}

// setup loads the config file and builds the logger before any command runs
func setup(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	applyConfig(cmd, cfg)

	logger, err = newLogger(os.Stderr, resolveLogLevel(cfg))
	if err != nil {
		return err
	}
	if cfg.path != "" {
		logger.Debug().Str("path", cfg.path).Msg("loaded config")
	}
	for _, key := range cfg.undecoded {
		logger.Warn().Str("key", key).Msg("unknown config key")
	}
	return nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
