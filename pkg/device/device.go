// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package device runs a DPS-150 session over a byte-stream transport.
//
// A Device owns the transport for the lifetime of a session. A single reader
// goroutine owns the receive buffer, scans it for frames, and publishes
// decoded updates on a channel. Commands are written under a lock that is
// held for a pacing delay after each write.
package device

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Thermoquad/dpsctl/pkg/dps150"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// State is the session lifecycle state
type State int

const (
	StateClosed State = iota
	StateOpening
	StateOpen
	StateClosing
)

// String returns the state name
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpening:
		return "opening"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	default:
		return "unknown"
	}
}

// Device is a DPS-150 session. It is safe for concurrent use.
type Device struct {
	opener Opener
	cfg    Config

	mu      sync.Mutex
	state   State
	tr      Transport
	session string
	log     zerolog.Logger
	stop    chan struct{}
	done    chan struct{}
	updates chan dps150.Update

	writeMu sync.Mutex

	statsMu sync.Mutex
	stats   dps150.Statistics
}

// New creates a closed device that acquires its transport from opener
func New(opener Opener, opts ...Option) *Device {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Device{
		opener: opener,
		cfg:    cfg,
		log:    cfg.Logger,
		stats:  *dps150.NewStatistics(),
	}
}

// Open acquires the transport, starts the reader, and runs the init
// sequence: session open, baud select, model, hardware and firmware
// queries, then a full ALL read. Open on an open device is a no-op.
func (d *Device) Open(ctx context.Context) error {
	d.mu.Lock()
	switch d.state {
	case StateOpen:
		d.mu.Unlock()
		return nil
	case StateOpening, StateClosing:
		d.mu.Unlock()
		return ErrBusy
	}
	d.state = StateOpening
	d.mu.Unlock()

	tr, err := d.opener(ctx)
	if err == nil && tr == nil {
		err = ErrNoTransport
	}
	if err != nil {
		d.setState(StateClosed)
		return fmt.Errorf("open transport: %w", err)
	}

	if rt, ok := tr.(ReadTimeoutSetter); ok && d.cfg.ReadTimeout > 0 {
		if err := rt.SetReadTimeout(d.cfg.ReadTimeout); err != nil {
			tr.Close()
			d.setState(StateClosed)
			return fmt.Errorf("set read timeout: %w", err)
		}
	}

	session := uuid.NewString()
	log := d.cfg.Logger.With().Str("session", session).Logger()
	stop := make(chan struct{})
	done := make(chan struct{})
	updates := make(chan dps150.Update, d.cfg.UpdateBuffer)

	d.mu.Lock()
	d.tr = tr
	d.session = session
	d.log = log
	d.stop = stop
	d.done = done
	d.updates = updates
	d.mu.Unlock()

	d.statsMu.Lock()
	d.stats = *dps150.NewStatistics()
	d.statsMu.Unlock()

	go d.readLoop(tr, log, stop, done, updates)

	if err := d.init(tr); err != nil {
		log.Error().Err(err).Msg("init sequence failed")
		d.shutdown(false)
		return fmt.Errorf("init: %w", err)
	}

	d.setState(StateOpen)
	log.Info().Int("baud", dps150.BaudRates[dps150.BaudIndex(d.cfg.BaudRate)]).Msg("session open")
	return nil
}

func (d *Device) init(tr Transport) error {
	sequence := [][]byte{
		dps150.EncodeSession(true),
		dps150.EncodeBaud(d.cfg.BaudRate),
		dps150.EncodeGet(dps150.RegModelName),
		dps150.EncodeGet(dps150.RegHardwareVersion),
		dps150.EncodeGet(dps150.RegFirmwareVersion),
		dps150.EncodeGetAll(),
	}
	for _, frame := range sequence {
		if err := d.write(tr, frame); err != nil {
			return err
		}
	}
	return nil
}

// Close ends the session. The session-close command is best effort; the
// reader is stopped and the transport released regardless. Close on a
// closed device is a no-op.
func (d *Device) Close() error {
	d.mu.Lock()
	switch d.state {
	case StateClosed:
		d.mu.Unlock()
		return nil
	case StateOpening, StateClosing:
		d.mu.Unlock()
		return ErrBusy
	}
	d.state = StateClosing
	d.mu.Unlock()

	return d.shutdown(true)
}

// shutdown stops the reader and releases the transport. With notify set it
// first tells the device the session is ending.
func (d *Device) shutdown(notify bool) error {
	d.mu.Lock()
	tr, log, stop, done := d.tr, d.log, d.stop, d.done
	d.mu.Unlock()

	if notify {
		if err := d.write(tr, dps150.EncodeSession(false)); err != nil {
			log.Debug().Err(err).Msg("session close not sent")
		}
	}

	close(stop)
	select {
	case <-done:
	case <-time.After(d.cfg.StopTimeout):
		log.Warn().Dur("timeout", d.cfg.StopTimeout).Msg("reader did not stop in time")
	}

	err := tr.Close()
	if err != nil {
		log.Warn().Err(err).Msg("transport close failed")
		err = fmt.Errorf("close transport: %w", err)
	}

	d.mu.Lock()
	d.tr = nil
	d.state = StateClosed
	d.mu.Unlock()

	log.Info().Msg("session closed")
	return err
}

// readLoop owns the receive buffer for one session. Read errors never end
// it; only a stop request does.
func (d *Device) readLoop(tr Transport, log zerolog.Logger, stop <-chan struct{}, done chan<- struct{}, updates chan<- dps150.Update) {
	defer close(done)
	defer close(updates)

	scanner := dps150.NewScanner()
	stats := scanner.Statistics()
	buf := make([]byte, d.cfg.ReadChunk)
	attempt := 0

	for {
		select {
		case <-stop:
			return
		default:
		}

		n, err := tr.Read(buf)
		if n > 0 {
			scanner.Write(buf[:n])
		}
		if err != nil {
			select {
			case <-stop:
				// Close released the transport under us
				return
			default:
			}
			attempt++
			stats.ReadErrors++
			d.publishStats(stats)

			delay := NextBackoffDelay(d.cfg.ReadBackoff, attempt)
			log.Warn().Err(err).Int("attempt", attempt).Dur("backoff", delay).Msg("transport read failed")
			select {
			case <-stop:
				return
			case <-time.After(delay):
			}
			continue
		}
		attempt = 0

		for {
			frame, ok := scanner.Next()
			if !ok {
				break
			}
			u := dps150.Decode(frame.TypeID, frame.Payload)
			issues := dps150.ValidateUpdate(u)
			stats.Update(u, issues)

			log.Trace().
				Str("register", dps150.FormatRegister(frame.TypeID)).
				Int("len", frame.Length()).
				Int("fields", u.Len()).
				Msg("frame")
			for _, issue := range issues {
				log.Debug().Str("anomaly", issue.Message).Msg("update anomaly")
			}

			if u.Empty() {
				continue
			}
			select {
			case updates <- u:
			case <-stop:
				return
			}
		}
		d.publishStats(stats)
	}
}

func (d *Device) publishStats(s *dps150.Statistics) {
	d.statsMu.Lock()
	d.stats = *s
	d.statsMu.Unlock()
}

// write sends one frame and holds the write lock for the pacing delay
func (d *Device) write(tr Transport, frame []byte) error {
	d.writeMu.Lock()
	defer d.writeMu.Unlock()

	if _, err := tr.Write(frame); err != nil {
		return fmt.Errorf("write %s: %w", dps150.FormatCommand(frame[1]), err)
	}
	if dr, ok := tr.(Drainer); ok {
		if err := dr.Drain(); err != nil {
			return fmt.Errorf("drain: %w", err)
		}
	}

	if d.cfg.WriteDelay > 0 {
		time.Sleep(d.cfg.WriteDelay)
	}
	return nil
}

// send writes a command frame on an open session
func (d *Device) send(frame []byte) error {
	d.mu.Lock()
	if d.state != StateOpen {
		d.mu.Unlock()
		return ErrNotOpen
	}
	tr := d.tr
	d.mu.Unlock()

	return d.write(tr, frame)
}

func (d *Device) setState(s State) {
	d.mu.Lock()
	d.state = s
	d.mu.Unlock()
}

// Get requests a single register
func (d *Device) Get(typeID byte) error {
	return d.send(dps150.EncodeGet(typeID))
}

// GetAll requests the composite ALL block
func (d *Device) GetAll() error {
	return d.send(dps150.EncodeGetAll())
}

// SetFloat writes a float register
func (d *Device) SetFloat(typeID byte, value float64) error {
	return d.send(dps150.EncodeSetFloat(typeID, value))
}

// SetByte writes a single-byte register
func (d *Device) SetByte(typeID byte, value int) error {
	return d.send(dps150.EncodeSetByte(typeID, value))
}

// Set writes a named setpoint
func (d *Device) Set(sp dps150.Setpoint, value float64) error {
	return d.send(sp.Encode(value))
}

func (d *Device) EnableOutput() error  { return d.send(dps150.EncodeOutputEnable(true)) }
func (d *Device) DisableOutput() error { return d.send(dps150.EncodeOutputEnable(false)) }
func (d *Device) StartMetering() error { return d.send(dps150.EncodeMetering(true)) }
func (d *Device) StopMetering() error  { return d.send(dps150.EncodeMetering(false)) }

// Updates returns the update channel of the current or most recent
// session, or nil before the first Open. The channel is closed when that
// session's reader exits.
func (d *Device) Updates() <-chan dps150.Update {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.updates
}

// State returns the lifecycle state
func (d *Device) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// SessionID returns the identifier of the current or most recent session
func (d *Device) SessionID() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.session
}

// Stats returns a snapshot of the session's link statistics
func (d *Device) Stats() dps150.Statistics {
	d.statsMu.Lock()
	defer d.statsMu.Unlock()
	s := d.stats
	s.CalculateRates()
	return s
}
