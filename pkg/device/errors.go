// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package device

import "errors"

var (
	// ErrNotOpen is returned by commands issued while no session is open
	ErrNotOpen = errors.New("device not open")

	// ErrBusy is returned when Open or Close is called during a transition
	ErrBusy = errors.New("device is opening or closing")

	// ErrNoTransport is returned when the opener yields no transport
	ErrNoTransport = errors.New("opener returned no transport")
)
