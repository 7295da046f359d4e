// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/Thermoquad/dpsctl/pkg/device"
	"github.com/Thermoquad/dpsctl/pkg/dps150"
)

func f32le(v float32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, math.Float32bits(v))
	return b
}

func inbound(typeID byte, payload []byte) []byte {
	return dps150.EncodeFrame(dps150.HeaderInput, dps150.CmdGet, typeID, payload)
}

// allPayload returns a core-only ALL block with input voltage and
// temperature set
func allPayload(input, temp float32) []byte {
	p := make([]byte, 95)
	copy(p[0:], f32le(input))
	copy(p[24:], f32le(temp))
	return p
}

// scriptedSupply is an in-memory transport that answers GET requests from
// a reply table and echoes every SET back as a report of the new value
type scriptedSupply struct {
	replies map[byte][]byte
	inbox   chan []byte
	closed  chan struct{}
	pending []byte

	mu        sync.Mutex
	written   [][]byte
	closeOnce sync.Once
}

func newScriptedSupply() *scriptedSupply {
	return &scriptedSupply{
		replies: map[byte][]byte{
			dps150.RegModelName:       []byte("DPS-150"),
			dps150.RegHardwareVersion: []byte("V1.0"),
			dps150.RegFirmwareVersion: []byte("V1.1"),
			dps150.RegAll:             allPayload(19, 30),
			dps150.RegTemperature:     f32le(31.5),
		},
		inbox:  make(chan []byte, 64),
		closed: make(chan struct{}),
	}
}

func (s *scriptedSupply) Read(p []byte) (int, error) {
	if len(s.pending) > 0 {
		n := copy(p, s.pending)
		s.pending = s.pending[n:]
		return n, nil
	}

	select {
	case data := <-s.inbox:
		n := copy(p, data)
		s.pending = data[n:]
		return n, nil
	case <-s.closed:
		return 0, io.EOF
	case <-time.After(5 * time.Millisecond):
		return 0, nil
	}
}

func (s *scriptedSupply) Write(p []byte) (int, error) {
	s.mu.Lock()
	s.written = append(s.written, append([]byte(nil), p...))
	s.mu.Unlock()

	f, _, ok := dps150.ScanFrame(p)
	if !ok {
		return len(p), nil
	}
	switch f.Command {
	case dps150.CmdGet:
		if reply, ok := s.replies[f.TypeID]; ok {
			s.inbox <- inbound(f.TypeID, reply)
		}
	case dps150.CmdSet:
		s.inbox <- inbound(f.TypeID, f.Payload)
	}
	return len(p), nil
}

func (s *scriptedSupply) Close() error {
	s.closeOnce.Do(func() { close(s.closed) })
	return nil
}

// sent reports whether frame was written
func (s *scriptedSupply) sent(frame []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.written {
		if bytes.Equal(w, frame) {
			return true
		}
	}
	return false
}

// executeCommand runs the root command against tr and returns its stdout
func executeCommand(t *testing.T, tr device.Transport, args ...string) (string, error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("DPSCTL_LOG_LEVEL", "error")

	prevOpener, prevDelay := openerFunc, writeDelay
	openerFunc = func() device.Opener { return device.StaticOpener(tr) }
	writeDelay = 0
	t.Cleanup(func() {
		openerFunc = prevOpener
		writeDelay = prevDelay
	})

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

// count returns how many times frame was written
func (s *scriptedSupply) count(frame []byte) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, w := range s.written {
		if bytes.Equal(w, frame) {
			n++
		}
	}
	return n
}
