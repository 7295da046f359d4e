// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/Thermoquad/dpsctl/pkg/device"
	"github.com/gorilla/websocket"
	"go.bug.st/serial"
	"golang.org/x/term"
)

// SerialTransport wraps a serial port
type SerialTransport struct {
	port serial.Port
}

func (s *SerialTransport) Read(p []byte) (int, error) {
	return s.port.Read(p)
}

func (s *SerialTransport) Write(p []byte) (int, error) {
	return s.port.Write(p)
}

func (s *SerialTransport) Close() error {
	return s.port.Close()
}

// Drain waits until all written bytes have been sent
func (s *SerialTransport) Drain() error {
	return s.port.Drain()
}

// SetReadTimeout bounds each Read; a Read that times out returns (0, nil)
func (s *SerialTransport) SetReadTimeout(t time.Duration) error {
	return s.port.SetReadTimeout(t)
}

// ErrConnectionClosed is returned when reading from a closed WebSocket connection
var ErrConnectionClosed = errors.New("websocket connection closed")

// WebSocketTransport carries the serial byte stream over binary WebSocket
// messages. A read pump goroutine feeds Read so that reads can time out.
type WebSocketTransport struct {
	conn    *websocket.Conn
	msgs    chan []byte
	done    chan struct{}
	pending []byte

	mu          sync.Mutex
	readTimeout time.Duration
	err         error
	closeOnce   sync.Once
}

func newWebSocketTransport(conn *websocket.Conn) *WebSocketTransport {
	w := &WebSocketTransport{
		conn:        conn,
		msgs:        make(chan []byte, 16),
		done:        make(chan struct{}),
		readTimeout: 200 * time.Millisecond,
	}
	go w.readPump()
	return w
}

func (w *WebSocketTransport) readPump() {
	defer close(w.msgs)
	for {
		messageType, data, err := w.conn.ReadMessage()
		if err != nil {
			w.mu.Lock()
			w.err = err
			w.mu.Unlock()
			return
		}

		// Only binary messages carry device bytes
		if messageType != websocket.BinaryMessage {
			continue
		}

		select {
		case w.msgs <- data:
		case <-w.done:
			return
		}
	}
}

func (w *WebSocketTransport) Read(p []byte) (int, error) {
	if len(w.pending) > 0 {
		n := copy(p, w.pending)
		w.pending = w.pending[n:]
		return n, nil
	}

	w.mu.Lock()
	timeout := w.readTimeout
	w.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case data, ok := <-w.msgs:
		if !ok {
			return 0, w.readErr()
		}
		n := copy(p, data)
		w.pending = data[n:]
		return n, nil
	case <-timer.C:
		return 0, nil
	}
}

func (w *WebSocketTransport) readErr() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err == nil {
		return ErrConnectionClosed
	}
	return fmt.Errorf("%w: %v", ErrConnectionClosed, w.err)
}

func (w *WebSocketTransport) Write(p []byte) (int, error) {
	if err := w.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// SetReadTimeout bounds each Read; a Read that times out returns (0, nil)
func (w *WebSocketTransport) SetReadTimeout(t time.Duration) error {
	w.mu.Lock()
	w.readTimeout = t
	w.mu.Unlock()
	return nil
}

func (w *WebSocketTransport) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.conn.Close()
	})
	return err
}

// OpenSerialTransport opens a serial port at 8N1 with RTS asserted
func OpenSerialTransport(portName string, baudRate int) (*SerialTransport, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
		InitialStatusBits: &serial.ModemOutputBits{
			RTS: true,
		},
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", portName, err)
	}

	return &SerialTransport{port: port}, nil
}

// OpenWebSocketTransport opens a WebSocket connection with HTTP Basic auth
func OpenWebSocketTransport(ctx context.Context, wsURL, username, password string, skipSSLVerify bool) (*WebSocketTransport, error) {
	// Parse and validate URL
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	switch u.Scheme {
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: skipSSLVerify,
		}
	}

	headers := http.Header{}
	if username != "" && password != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
		headers.Set("Authorization", "Basic "+credentials)
	}

	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	conn, resp, err := dialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("WebSocket connection failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("WebSocket connection failed: %w", err)
	}

	return newWebSocketTransport(conn), nil
}

// GetPassword retrieves password from environment or prompts user
func GetPassword() (string, error) {
	if pw := os.Getenv("DPSCTL_PASSWORD"); pw != "" {
		return pw, nil
	}

	fmt.Fprint(os.Stderr, "Password: ")

	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		// Fallback to regular input if terminal functions fail
		reader := bufio.NewReader(os.Stdin)
		password, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(os.Stderr)
		return strings.TrimSpace(password), nil
	}

	fmt.Fprintln(os.Stderr)
	return string(passwordBytes), nil
}

// connectionLabel describes the connection selected by the flags
func connectionLabel() string {
	if wsURL != "" {
		return fmt.Sprintf("WebSocket: %s", wsURL)
	}
	return fmt.Sprintf("Serial: %s @ %d baud", portName, baudRate)
}

// OpenTransport opens either a serial or WebSocket transport based on flags
func OpenTransport(ctx context.Context) (device.Transport, string, error) {
	if wsURL != "" {
		password := ""
		if wsUsername != "" {
			var err error
			password, err = GetPassword()
			if err != nil {
				return nil, "", err
			}
		}

		tr, err := OpenWebSocketTransport(ctx, wsURL, wsUsername, password, wsNoSSLVerify)
		if err != nil {
			return nil, "", err
		}
		return tr, connectionLabel(), nil
	}

	if portName != "" {
		tr, err := OpenSerialTransport(portName, baudRate)
		if err != nil {
			return nil, "", err
		}
		return tr, connectionLabel(), nil
	}

	return nil, "", errors.New("either --port or --url must be specified")
}

// transportOpener adapts OpenTransport to a device.Opener, logging the
// connection it made
func transportOpener() device.Opener {
	return func(ctx context.Context) (device.Transport, error) {
		tr, info, err := OpenTransport(ctx)
		if err != nil {
			return nil, err
		}
		logger.Info().Str("connection", info).Msg("connected")
		return tr, nil
	}
}
