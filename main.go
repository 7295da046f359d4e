// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad
//
// dpsctl - FNIRSI DPS-150 bench power supply controller
//
// A CLI tool for querying, controlling, and monitoring a DPS-150 over its
// USB serial link or a WebSocket serial bridge.

package main

import (
	"os"

	"github.com/Thermoquad/dpsctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
