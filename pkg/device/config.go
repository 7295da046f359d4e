// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package device

import (
	"time"

	"github.com/rs/zerolog"
)

// Config holds the device session configuration.
type Config struct {
	// BaudRate is announced to the device during init. Rates outside
	// dps150.BaudRates select the fastest entry.
	BaudRate int

	// ReadTimeout bounds each transport read so the reader can observe
	// a stop request
	ReadTimeout time.Duration

	// ReadChunk is the maximum number of bytes requested per read
	ReadChunk int

	// WriteDelay is held after every write before the next one may start
	WriteDelay time.Duration

	// StopTimeout bounds how long Close waits for the reader to exit
	StopTimeout time.Duration

	// UpdateBuffer is the capacity of the update channel
	UpdateBuffer int

	// ReadBackoff paces retries after transport read errors
	ReadBackoff BackoffConfig

	// Logger receives session logs (optional)
	Logger zerolog.Logger
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		BaudRate:     115200,
		ReadTimeout:  200 * time.Millisecond,
		ReadChunk:    1024,
		WriteDelay:   50 * time.Millisecond,
		StopTimeout:  time.Second,
		UpdateBuffer: 64,
		ReadBackoff: BackoffConfig{
			InitialDelay: 100 * time.Millisecond,
			Multiplier:   2.0,
			MaxDelay:     2 * time.Second,
		},
		Logger: zerolog.Nop(),
	}
}

// Option is a functional option for configuring a Device.
type Option func(*Config)

// WithLogger sets the session logger.
//
// Example:
//
//	dev := device.New(opener, device.WithLogger(logger))
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithBaudRate sets the baud rate announced during init
func WithBaudRate(baud int) Option {
	return func(c *Config) {
		c.BaudRate = baud
	}
}

// WithReadTimeout sets the per-read timeout applied to the transport
func WithReadTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.ReadTimeout = d
	}
}

// WithWriteDelay sets the pacing delay held after every write.
//
// Example:
//
//	dev := device.New(opener, device.WithWriteDelay(100*time.Millisecond))
func WithWriteDelay(d time.Duration) Option {
	return func(c *Config) {
		c.WriteDelay = d
	}
}

// WithStopTimeout sets how long Close waits for the reader to exit
func WithStopTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.StopTimeout = d
	}
}

// WithUpdateBuffer sets the update channel capacity
func WithUpdateBuffer(n int) Option {
	return func(c *Config) {
		c.UpdateBuffer = n
	}
}

// WithReadBackoff sets the read error backoff policy
func WithReadBackoff(b BackoffConfig) Option {
	return func(c *Config) {
		c.ReadBackoff = b
	}
}
