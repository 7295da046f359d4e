// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package dps150

// ScanStatus reports why a scan stopped
type ScanStatus int

const (
	// ScanFound means a valid frame was extracted
	ScanFound ScanStatus = iota
	// ScanIncomplete means a candidate frame has not fully arrived yet
	ScanIncomplete
	// ScanExhausted means no offset with enough remaining bytes starts a valid frame
	ScanExhausted
)

// ScanResult is the outcome of one scan over a buffer
type ScanResult struct {
	Status   ScanStatus
	Frame    Frame
	Consumed int // leading bytes to discard, including any garbage before the frame
	Rejected int // candidates rejected on checksum mismatch
	Offset   int // start offset of the frame or of the incomplete candidate
}

// ScanFrame returns the earliest valid frame in buf and the number of
// leading bytes it occupies (garbage prefix included). ok is false when no
// frame can be extracted from the current contents.
func ScanFrame(buf []byte) (frame Frame, consumed int, ok bool) {
	res := Scan(buf)
	if res.Status != ScanFound {
		return Frame{}, 0, false
	}
	return res.Frame, res.Consumed, true
}

// Scan walks candidate start offsets from 0 upward. A candidate whose
// checksum fails is skipped by a single byte, so a valid frame starting
// inside a corrupted one is still found. A candidate whose payload has not
// fully arrived stops the scan, even if a complete frame exists further on.
func Scan(buf []byte) ScanResult {
	var res ScanResult

	for i := 0; len(buf)-i >= MinFrameSize; i++ {
		if !isHeader(buf[i]) {
			continue
		}

		typeID := buf[i+typeIDOffset]
		length := int(buf[i+lengthOffset])
		end := i + payloadOffset + length // checksum position

		if end >= len(buf) {
			res.Status = ScanIncomplete
			res.Offset = i
			return res
		}

		payload := buf[i+payloadOffset : end]
		if Checksum(typeID, payload) != buf[end] {
			res.Rejected++
			continue
		}

		res.Status = ScanFound
		res.Offset = i
		res.Consumed = end + 1
		res.Frame = Frame{
			Header:  buf[i],
			Command: buf[i+commandOffset],
			TypeID:  typeID,
			Payload: append([]byte(nil), payload...),
		}
		return res
	}

	res.Status = ScanExhausted
	return res
}

// Scanner owns a receive buffer and extracts frames from it as bytes
// arrive. It is not safe for concurrent use.
type Scanner struct {
	buf   []byte
	stats *Statistics
}

// NewScanner creates a scanner with an empty receive buffer
func NewScanner() *Scanner {
	return &Scanner{
		buf:   make([]byte, 0, MaxFrameSize*2),
		stats: NewStatistics(),
	}
}

// Write appends received bytes to the buffer. It never fails.
func (s *Scanner) Write(p []byte) (int, error) {
	s.buf = append(s.buf, p...)
	s.stats.BytesReceived += uint64(len(p))
	return len(p), nil
}

// Next returns the next frame in the buffer, discarding the bytes it
// occupied along with any garbage before it. ok is false when more bytes
// are needed.
func (s *Scanner) Next() (Frame, bool) {
	res := Scan(s.buf)
	s.stats.ChecksumRejects += uint64(res.Rejected)

	switch res.Status {
	case ScanFound:
		s.stats.DiscardedBytes += uint64(res.Offset)
		s.discard(res.Consumed)
		return res.Frame, true

	case ScanIncomplete:
		// Bytes before the candidate were already rejected
		s.stats.DiscardedBytes += uint64(res.Offset)
		s.discard(res.Offset)

	case ScanExhausted:
		// Every offset that still has a full minimum frame after it was
		// rejected, and those rejections cannot change as bytes arrive.
		// Keep only the tail that may begin a frame.
		if drop := len(s.buf) - (MinFrameSize - 1); drop > 0 {
			s.stats.DiscardedBytes += uint64(drop)
			s.discard(drop)
		}
	}

	return Frame{}, false
}

// Buffered returns the number of bytes waiting in the receive buffer
func (s *Scanner) Buffered() int {
	return len(s.buf)
}

// Statistics returns the scanner's statistics tracker
func (s *Scanner) Statistics() *Statistics {
	return s.stats
}

// Reset empties the receive buffer and statistics
func (s *Scanner) Reset() {
	s.buf = s.buf[:0]
	s.stats.Reset()
}

func (s *Scanner) discard(n int) {
	remaining := copy(s.buf, s.buf[n:])
	s.buf = s.buf[:remaining]
}
