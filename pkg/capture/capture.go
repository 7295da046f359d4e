// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package capture records decoded updates as a CBOR sequence and reads
// them back.
package capture

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/Thermoquad/dpsctl/pkg/dps150"
	"github.com/fxamacker/cbor/v2"
)

// Record is one captured update
type Record struct {
	Time    time.Time     `cbor:"1,keyasint"`
	Session string        `cbor:"2,keyasint,omitempty"`
	Update  dps150.Update `cbor:"3,keyasint"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.EncOptions{Time: cbor.TimeRFC3339Nano}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("capture: cbor enc mode: %v", err))
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("capture: cbor dec mode: %v", err))
	}
}

// Writer appends records to a capture stream
type Writer struct {
	enc   *cbor.Encoder
	count int
}

// NewWriter creates a writer that encodes records onto w
func NewWriter(w io.Writer) *Writer {
	return &Writer{enc: encMode.NewEncoder(w)}
}

// Write encodes one record
func (w *Writer) Write(rec Record) error {
	if err := w.enc.Encode(rec); err != nil {
		return fmt.Errorf("encode record %d: %w", w.count, err)
	}
	w.count++
	return nil
}

// Count returns the number of records written
func (w *Writer) Count() int {
	return w.count
}

// Reader decodes records from a capture stream
type Reader struct {
	dec   *cbor.Decoder
	count int
}

// NewReader creates a reader over r
func NewReader(r io.Reader) *Reader {
	return &Reader{dec: decMode.NewDecoder(r)}
}

// Next returns the next record, or io.EOF at the end of the stream. A
// record cut off mid-way is reported as an error, not io.EOF.
func (r *Reader) Next() (Record, error) {
	var rec Record
	if err := r.dec.Decode(&rec); err != nil {
		if errors.Is(err, io.EOF) {
			return Record{}, io.EOF
		}
		return Record{}, fmt.Errorf("decode record %d: %w", r.count, err)
	}
	r.count++
	return rec, nil
}
