// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Thermoquad/dpsctl/pkg/device"
	"github.com/Thermoquad/dpsctl/pkg/dps150"
)

// newDevice builds a device from the global flags
func newDevice(opener device.Opener) *device.Device {
	return device.New(opener,
		device.WithBaudRate(baudRate),
		device.WithReadTimeout(seconds(readTimeout)),
		device.WithWriteDelay(writeDelay),
		device.WithLogger(logger),
	)
}

// seconds converts a float seconds flag value to a duration
func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}

// signalContext returns a context cancelled on SIGINT or SIGTERM
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// streamUpdates hands every update to fn until d elapses, ctx ends, or the
// channel closes
func streamUpdates(ctx context.Context, updates <-chan dps150.Update, d time.Duration, fn func(dps150.Update) error) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	for {
		select {
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			if err := fn(u); err != nil {
				return err
			}
		case <-timer.C:
			return nil
		case <-ctx.Done():
			return nil
		}
	}
}

// collectUpdates merges every update received within d
func collectUpdates(ctx context.Context, updates <-chan dps150.Update, d time.Duration) dps150.Update {
	var merged dps150.Update
	streamUpdates(ctx, updates, d, func(u dps150.Update) error {
		merged.Merge(u)
		return nil
	})
	return merged
}

// runSession opens a device, runs fn, and always closes the session
func runSession(ctx context.Context, opener device.Opener, fn func(ctx context.Context, dev *device.Device) error) error {
	ctx, cancel := signalContext(ctx)
	defer cancel()

	dev := newDevice(opener)
	if err := dev.Open(ctx); err != nil {
		return err
	}
	defer dev.Close()

	return fn(ctx, dev)
}
