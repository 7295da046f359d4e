// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package device

import (
	"context"
	"io"
	"time"
)

// Transport is the byte stream a Device talks over. Read should return
// (0, nil) when its read timeout expires with no data, as go.bug.st/serial
// ports do.
type Transport interface {
	io.Reader
	io.Writer
	io.Closer
}

// Drainer is implemented by transports that can block until written bytes
// have left the host. Device calls Drain after every write.
type Drainer interface {
	Drain() error
}

// ReadTimeoutSetter is implemented by transports with a configurable read
// timeout. Device applies Config.ReadTimeout on open.
type ReadTimeoutSetter interface {
	SetReadTimeout(t time.Duration) error
}

// Opener acquires a transport for a new session
type Opener func(ctx context.Context) (Transport, error)

// StaticOpener returns an Opener that always yields t
func StaticOpener(t Transport) Opener {
	return func(context.Context) (Transport, error) {
		return t, nil
	}
}
