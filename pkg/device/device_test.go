// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package device

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/Thermoquad/dpsctl/pkg/dps150"
	"github.com/rs/zerolog"
	"gotest.tools/v3/assert"
	is "gotest.tools/v3/assert/cmp"
)

func f32le(v float32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, math.Float32bits(v))
	return b
}

func inbound(typeID byte, payload []byte) []byte {
	return dps150.EncodeFrame(dps150.HeaderInput, dps150.CmdGet, typeID, payload)
}

func newTestDevice(t *testing.T, tr *fakeTransport, opts ...Option) *Device {
	t.Helper()
	base := []Option{
		WithWriteDelay(0),
		WithStopTimeout(200 * time.Millisecond),
		WithReadBackoff(BackoffConfig{InitialDelay: time.Millisecond, Multiplier: 2, MaxDelay: 5 * time.Millisecond}),
		WithLogger(zerolog.New(zerolog.NewTestWriter(t))),
	}
	return New(StaticOpener(tr), append(base, opts...)...)
}

func openTestDevice(t *testing.T, tr *fakeTransport, opts ...Option) *Device {
	t.Helper()
	d := newTestDevice(t, tr, opts...)
	assert.NilError(t, d.Open(context.Background()))
	t.Cleanup(func() { d.Close() })
	return d
}

func recv(t *testing.T, ch <-chan dps150.Update) dps150.Update {
	t.Helper()
	select {
	case u, ok := <-ch:
		assert.Assert(t, ok, "update channel closed")
		return u
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for update")
		return dps150.Update{}
	}
}

// ============================================================
// Lifecycle Tests
// ============================================================

func TestOpen_InitSequence(t *testing.T) {
	tr := newFakeTransport()
	d := openTestDevice(t, tr)

	want := [][]byte{
		dps150.EncodeSession(true),
		dps150.EncodeBaud(115200),
		dps150.EncodeGet(dps150.RegModelName),
		dps150.EncodeGet(dps150.RegHardwareVersion),
		dps150.EncodeGet(dps150.RegFirmwareVersion),
		dps150.EncodeGetAll(),
	}
	got := tr.frames()
	assert.Equal(t, len(got), len(want))
	for i := range want {
		assert.Assert(t, bytes.Equal(got[i], want[i]), "frame %d = % X, want % X", i, got[i], want[i])
	}

	assert.Equal(t, d.State(), StateOpen)
	assert.Assert(t, d.SessionID() != "")
	assert.Equal(t, tr.drainCalls, len(want))
	assert.Equal(t, tr.readTimeout, DefaultConfig().ReadTimeout)
}

func TestOpen_UnknownBaudSelectsFastest(t *testing.T) {
	tr := newFakeTransport()
	openTestDevice(t, tr, WithBaudRate(12345))

	baud := tr.frames()[1]
	assert.Equal(t, baud[1], byte(dps150.CmdBaud))
	assert.Equal(t, baud[4], byte(len(dps150.BaudRates)))
}

func TestOpen_AlreadyOpenIsNoop(t *testing.T) {
	tr := newFakeTransport()
	d := openTestDevice(t, tr)
	session := d.SessionID()

	assert.NilError(t, d.Open(context.Background()))
	assert.Equal(t, d.SessionID(), session)
	assert.Equal(t, len(tr.frames()), 6)
}

func TestOpen_OpenerFailure(t *testing.T) {
	boom := errors.New("no such port")
	d := New(func(context.Context) (Transport, error) { return nil, boom })

	err := d.Open(context.Background())
	assert.Assert(t, errors.Is(err, boom))
	assert.Equal(t, d.State(), StateClosed)
}

func TestOpen_NilTransport(t *testing.T) {
	d := New(func(context.Context) (Transport, error) { return nil, nil })
	err := d.Open(context.Background())
	assert.Assert(t, errors.Is(err, ErrNoTransport))
}

func TestOpen_InitFailureReleasesTransport(t *testing.T) {
	tr := newFakeTransport()
	tr.setWriteErr(errors.New("write failed"))
	d := newTestDevice(t, tr)

	err := d.Open(context.Background())
	assert.ErrorContains(t, err, "write failed")
	assert.Equal(t, d.State(), StateClosed)
	assert.Equal(t, tr.closes(), 1)

	_, ok := <-d.Updates()
	assert.Assert(t, !ok, "update channel left open")
}

func TestOpen_BusyWhileOpening(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	tr := newFakeTransport()
	d := New(func(ctx context.Context) (Transport, error) {
		close(entered)
		<-release
		return tr, nil
	}, WithWriteDelay(0))

	errc := make(chan error, 1)
	go func() { errc <- d.Open(context.Background()) }()
	<-entered

	assert.Equal(t, d.State(), StateOpening)
	assert.Assert(t, errors.Is(d.Open(context.Background()), ErrBusy))
	assert.Assert(t, errors.Is(d.Close(), ErrBusy))

	close(release)
	assert.NilError(t, <-errc)
	assert.NilError(t, d.Close())
}

func TestClose_SendsSessionCloseAndReleases(t *testing.T) {
	tr := newFakeTransport()
	d := newTestDevice(t, tr)
	assert.NilError(t, d.Open(context.Background()))
	updates := d.Updates()

	assert.NilError(t, d.Close())

	frames := tr.frames()
	assert.Assert(t, bytes.Equal(frames[len(frames)-1], dps150.EncodeSession(false)))
	assert.Equal(t, tr.closes(), 1)
	assert.Equal(t, d.State(), StateClosed)

	_, ok := <-updates
	assert.Assert(t, !ok, "update channel left open")

	// Closing again does nothing
	assert.NilError(t, d.Close())
	assert.Equal(t, tr.closes(), 1)
}

func TestClose_SwallowsSessionCloseFailure(t *testing.T) {
	tr := newFakeTransport()
	d := newTestDevice(t, tr)
	assert.NilError(t, d.Open(context.Background()))

	tr.setWriteErr(errors.New("device gone"))
	assert.NilError(t, d.Close())
	assert.Equal(t, tr.closes(), 1)
	assert.Equal(t, d.State(), StateClosed)
}

func TestClose_StuckReaderDoesNotBlock(t *testing.T) {
	tr := newFakeTransport()
	tr.block = true
	d := newTestDevice(t, tr, WithStopTimeout(20*time.Millisecond))
	assert.NilError(t, d.Open(context.Background()))

	start := time.Now()
	assert.NilError(t, d.Close())
	assert.Assert(t, time.Since(start) < time.Second)
	assert.Equal(t, d.State(), StateClosed)
}

func TestReopen_NewSession(t *testing.T) {
	tr1 := newFakeTransport()
	tr2 := newFakeTransport()
	transports := []*fakeTransport{tr1, tr2}
	d := New(func(context.Context) (Transport, error) {
		tr := transports[0]
		transports = transports[1:]
		return tr, nil
	}, WithWriteDelay(0))

	assert.NilError(t, d.Open(context.Background()))
	first := d.SessionID()
	assert.NilError(t, d.Close())

	assert.NilError(t, d.Open(context.Background()))
	defer d.Close()
	assert.Assert(t, d.SessionID() != first)
	assert.Equal(t, len(tr2.frames()), 6)
}

// ============================================================
// Command Tests
// ============================================================

func TestCommands_NotOpen(t *testing.T) {
	d := New(StaticOpener(newFakeTransport()))

	calls := map[string]func() error{
		"Get":           func() error { return d.Get(dps150.RegTemperature) },
		"GetAll":        d.GetAll,
		"SetFloat":      func() error { return d.SetFloat(dps150.RegVoltageSet, 5) },
		"SetByte":       func() error { return d.SetByte(dps150.RegBrightness, 3) },
		"EnableOutput":  d.EnableOutput,
		"DisableOutput": d.DisableOutput,
		"StartMetering": d.StartMetering,
		"StopMetering":  d.StopMetering,
	}
	for name, call := range calls {
		t.Run(name, func(t *testing.T) {
			assert.Assert(t, errors.Is(call(), ErrNotOpen))
		})
	}
}

func TestCommands_Encoding(t *testing.T) {
	tr := newFakeTransport()
	d := openTestDevice(t, tr)
	vset, _ := dps150.LookupSetpoint("vset")

	tests := []struct {
		name string
		call func() error
		want []byte
	}{
		{"get", func() error { return d.Get(dps150.RegTemperature) }, dps150.EncodeGet(dps150.RegTemperature)},
		{"get all", d.GetAll, dps150.EncodeGetAll()},
		{"set float", func() error { return d.SetFloat(dps150.RegCurrentSet, 1.5) }, dps150.EncodeSetFloat(dps150.RegCurrentSet, 1.5)},
		{"set byte", func() error { return d.SetByte(dps150.RegVolume, 2) }, dps150.EncodeSetByte(dps150.RegVolume, 2)},
		{"set named", func() error { return d.Set(vset, 12.5) }, dps150.EncodeSetFloat(dps150.RegVoltageSet, 12.5)},
		{"enable", d.EnableOutput, dps150.EncodeSetByte(dps150.RegOutputEnable, 1)},
		{"disable", d.DisableOutput, dps150.EncodeSetByte(dps150.RegOutputEnable, 0)},
		{"start metering", d.StartMetering, dps150.EncodeSetByte(dps150.RegMeteringEnable, 1)},
		{"stop metering", d.StopMetering, dps150.EncodeSetByte(dps150.RegMeteringEnable, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NilError(t, tt.call())
			frames := tr.frames()
			assert.DeepEqual(t, frames[len(frames)-1], tt.want)
		})
	}
}

func TestWrite_PacingDelay(t *testing.T) {
	tr := newFakeTransport()
	d := newTestDevice(t, tr, WithWriteDelay(10*time.Millisecond))
	assert.NilError(t, d.Open(context.Background()))
	defer d.Close()

	start := time.Now()
	assert.NilError(t, d.Get(dps150.RegTemperature))
	assert.NilError(t, d.Get(dps150.RegMode))
	assert.Assert(t, time.Since(start) >= 20*time.Millisecond)
}

// ============================================================
// Reader Tests
// ============================================================

func TestReader_DeliversUpdatesInOrder(t *testing.T) {
	tr := newFakeTransport()
	d := openTestDevice(t, tr)

	stream := append([]byte{0x00, 0x42}, inbound(dps150.RegInputVoltage, f32le(19))...)
	stream = append(stream, inbound(dps150.RegMode, []byte{1})...)
	// Split the second frame across reads
	tr.rx <- stream[:9]
	tr.rx <- stream[9:]

	u := recv(t, d.Updates())
	assert.Assert(t, u.InputVoltage != nil)
	assert.Equal(t, *u.InputVoltage, float32(19))

	u = recv(t, d.Updates())
	assert.Assert(t, u.Mode != nil)
	assert.Equal(t, *u.Mode, "CV")
}

func TestReader_SkipsEmptyAndCorrupted(t *testing.T) {
	tr := newFakeTransport()
	d := openTestDevice(t, tr)

	bad := inbound(dps150.RegTemperature, f32le(40))
	bad[len(bad)-1] ^= 0x55

	var stream []byte
	stream = append(stream, bad...)
	stream = append(stream, inbound(0x10, []byte{1, 2})...)           // unknown register
	stream = append(stream, inbound(dps150.RegVoltageSet, f32le(5))...) // write-only
	stream = append(stream, inbound(dps150.RegTemperature, f32le(33))...)
	tr.rx <- stream

	u := recv(t, d.Updates())
	assert.Assert(t, u.Temperature != nil)
	assert.Equal(t, *u.Temperature, float32(33))
	assert.Equal(t, u.Len(), 1)

	assert.Assert(t, waitFor(func() bool { return d.Stats().TotalFrames == 3 }))
	stats := d.Stats()
	assert.Equal(t, stats.UnknownFrames, uint64(2))
	assert.Equal(t, stats.ChecksumRejects, uint64(1))
	assert.Equal(t, stats.BytesReceived, uint64(len(stream)))
}

func TestReader_SurvivesReadErrors(t *testing.T) {
	tr := newFakeTransport()
	d := openTestDevice(t, tr)

	tr.rxErr <- errors.New("framing error")
	tr.rxErr <- errors.New("framing error")
	tr.rx <- inbound(dps150.RegModelName, []byte("DPS-150"))

	u := recv(t, d.Updates())
	assert.Assert(t, u.ModelName != nil)
	assert.Equal(t, *u.ModelName, "DPS-150")
	assert.Assert(t, waitFor(func() bool { return d.Stats().ReadErrors == 2 }))
	assert.Check(t, is.Equal(d.State(), StateOpen))
}

func TestReader_StopsWhenConsumerStalls(t *testing.T) {
	tr := newFakeTransport()
	d := newTestDevice(t, tr, WithUpdateBuffer(1))
	assert.NilError(t, d.Open(context.Background()))

	// Nobody reads; the reader blocks on the second update
	tr.rx <- inbound(dps150.RegTemperature, f32le(30))
	tr.rx <- inbound(dps150.RegTemperature, f32le(31))
	tr.rx <- inbound(dps150.RegTemperature, f32le(32))
	time.Sleep(20 * time.Millisecond)

	start := time.Now()
	assert.NilError(t, d.Close())
	assert.Assert(t, time.Since(start) < 150*time.Millisecond)
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return false
}

func TestState_String(t *testing.T) {
	assert.Equal(t, StateClosed.String(), "closed")
	assert.Equal(t, StateOpening.String(), "opening")
	assert.Equal(t, StateOpen.String(), "open")
	assert.Equal(t, StateClosing.String(), "closing")
	assert.Equal(t, State(9).String(), "unknown")
}
