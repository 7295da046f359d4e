// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package dps150

// Frame is one protocol message unit. Frames returned by the scanner own
// their payload; it is not shared with the receive buffer.
type Frame struct {
	Header  byte
	Command byte
	TypeID  byte
	Payload []byte
}

// Length returns the declared payload length
func (f Frame) Length() int {
	return len(f.Payload)
}

// Checksum returns the checksum byte the frame carries on the wire
func (f Frame) Checksum() byte {
	return Checksum(f.TypeID, f.Payload)
}

// Size returns the number of bytes the frame occupies on the wire
func (f Frame) Size() int {
	return FrameOverhead + len(f.Payload)
}

// Bytes encodes the frame to wire format
func (f Frame) Bytes() []byte {
	return EncodeFrame(f.Header, f.Command, f.TypeID, f.Payload)
}

// IsInput returns true for device -> host frames
func (f Frame) IsInput() bool {
	return f.Header == HeaderInput
}

func isHeader(b byte) bool {
	return b == HeaderInput || b == HeaderOutput
}
