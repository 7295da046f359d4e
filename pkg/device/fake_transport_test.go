// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package device

import (
	"io"
	"sync"
	"time"
)

// fakeTransport is an in-memory Transport. Tests push inbound bytes and
// errors; every write is recorded.
type fakeTransport struct {
	rx      chan []byte
	rxErr   chan error
	closed  chan struct{}
	pending []byte

	// block makes Read ignore its timeout and wait for Close
	block bool

	mu          sync.Mutex
	written     [][]byte
	writeErr    error
	closeCalls  int
	drainCalls  int
	readTimeout time.Duration
	closeOnce   sync.Once
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		rx:     make(chan []byte, 64),
		rxErr:  make(chan error, 8),
		closed: make(chan struct{}),
	}
}

func (f *fakeTransport) Read(p []byte) (int, error) {
	if len(f.pending) > 0 {
		n := copy(p, f.pending)
		f.pending = f.pending[n:]
		return n, nil
	}

	var timeout <-chan time.Time
	if !f.block {
		timeout = time.After(5 * time.Millisecond)
	}

	select {
	case data := <-f.rx:
		n := copy(p, data)
		f.pending = data[n:]
		return n, nil
	case err := <-f.rxErr:
		return 0, err
	case <-f.closed:
		return 0, io.EOF
	case <-timeout:
		return 0, nil
	}
}

func (f *fakeTransport) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return 0, f.writeErr
	}
	f.written = append(f.written, append([]byte(nil), p...))
	return len(p), nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	f.closeCalls++
	f.mu.Unlock()
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeTransport) Drain() error {
	f.mu.Lock()
	f.drainCalls++
	f.mu.Unlock()
	return nil
}

func (f *fakeTransport) SetReadTimeout(t time.Duration) error {
	f.mu.Lock()
	f.readTimeout = t
	f.mu.Unlock()
	return nil
}

func (f *fakeTransport) setWriteErr(err error) {
	f.mu.Lock()
	f.writeErr = err
	f.mu.Unlock()
}

func (f *fakeTransport) frames() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.written))
	copy(out, f.written)
	return out
}

func (f *fakeTransport) closes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closeCalls
}
