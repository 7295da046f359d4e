// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
)

// fileConfig mirrors config.toml
type fileConfig struct {
	Port         string `toml:"port"`
	Baud         int    `toml:"baud"`
	TimeoutMS    int    `toml:"timeout_ms"`
	WriteDelayMS int    `toml:"write_delay_ms"`
	Format       string `toml:"format"`
	LogLevel     string `toml:"log_level"`

	WebSocket struct {
		URL         string `toml:"url"`
		Username    string `toml:"username"`
		NoSSLVerify bool   `toml:"no_ssl_verify"`
	} `toml:"websocket"`

	path      string
	undecoded []string
}

// defaultConfigPath returns $XDG_CONFIG_HOME/dpsctl/config.toml, falling
// back to the platform config directory
func defaultConfigPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		var err error
		if dir, err = os.UserConfigDir(); err != nil {
			return ""
		}
	}
	return filepath.Join(dir, "dpsctl", "config.toml")
}

// loadConfig reads the config file at path. With no path, the default
// location is tried and a missing file is not an error.
func loadConfig(path string) (fileConfig, error) {
	var cfg fileConfig

	explicit := path != ""
	if !explicit {
		path = defaultConfigPath()
		if path == "" {
			return cfg, nil
		}
	}

	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return fileConfig{}, nil
		}
		return fileConfig{}, fmt.Errorf("config %s: %w", path, err)
	}

	cfg.path = path
	for _, key := range md.Undecoded() {
		cfg.undecoded = append(cfg.undecoded, key.String())
	}
	return cfg, nil
}

// applyConfig copies file values into flags the user did not set
func applyConfig(cmd *cobra.Command, cfg fileConfig) {
	flags := cmd.Flags()
	unset := func(name string) bool {
		f := flags.Lookup(name)
		return f == nil || !f.Changed
	}

	if cfg.Port != "" && unset("port") {
		portName = cfg.Port
	}
	if cfg.Baud > 0 && unset("baud") {
		baudRate = cfg.Baud
	}
	if cfg.TimeoutMS > 0 && unset("timeout") {
		readTimeout = float64(cfg.TimeoutMS) / 1000
	}
	if cfg.WriteDelayMS > 0 {
		writeDelay = time.Duration(cfg.WriteDelayMS) * time.Millisecond
	}
	if cfg.Format != "" && unset("format") && unset("pretty") {
		outputFormat = cfg.Format
	}
	if cfg.WebSocket.URL != "" && unset("url") {
		wsURL = cfg.WebSocket.URL
	}
	if cfg.WebSocket.Username != "" && unset("username") {
		wsUsername = cfg.WebSocket.Username
	}
	if cfg.WebSocket.NoSSLVerify && unset("no-ssl-verify") {
		wsNoSSLVerify = true
	}
}

// resolveLogLevel picks the log level: flag, then DPSCTL_LOG_LEVEL, then
// the config file, then warn
func resolveLogLevel(cfg fileConfig) string {
	switch {
	case logLevel != "":
		return logLevel
	case os.Getenv("DPSCTL_LOG_LEVEL") != "":
		return os.Getenv("DPSCTL_LOG_LEVEL")
	case cfg.LogLevel != "":
		return cfg.LogLevel
	default:
		return "warn"
	}
}
