// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package record decodes the fixed-size binary accelerometer records written
// by the seismic logger.
//
// Layout of one record (little-endian, no header, no padding):
//
//	offset 0-3  uint32  elapsed milliseconds since file start
//	offset 4-5  int16   x-axis raw count
//	offset 6-7  int16   y-axis raw count
//	offset 8-9  int16   z-axis raw count
package record

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Size is the number of bytes in one encoded record.
const Size = 10

var (
	// ErrTruncatedRecord is returned when the stream ends inside a record.
	ErrTruncatedRecord = errors.New("truncated record")

	// ErrSourceUnavailable is returned when the byte source cannot be opened or read.
	ErrSourceUnavailable = errors.New("source unavailable")
)

// RawRecord is one accelerometer sample exactly as stored on disk.
type RawRecord struct {
	ElapsedMS uint32 `json:"elapsed_ms"`

	X int16 `json:"x"` // raw counts
	Y int16 `json:"y"`
	Z int16 `json:"z"`
}

// Decode interprets exactly Size bytes of b as a record.
func Decode(b []byte) (RawRecord, error) {
	if len(b) < Size {
		return RawRecord{}, fmt.Errorf("%w: have %d of %d bytes", ErrTruncatedRecord, len(b), Size)
	}
	return RawRecord{
		ElapsedMS: binary.LittleEndian.Uint32(b[0:4]),
		X:         int16(binary.LittleEndian.Uint16(b[4:6])),
		Y:         int16(binary.LittleEndian.Uint16(b[6:8])),
		Z:         int16(binary.LittleEndian.Uint16(b[8:10])),
	}, nil
}

// Encode writes r into the first Size bytes of dst.
func (r RawRecord) Encode(dst []byte) {
	_ = dst[Size-1]
	binary.LittleEndian.PutUint32(dst[0:4], r.ElapsedMS)
	binary.LittleEndian.PutUint16(dst[4:6], uint16(r.X))
	binary.LittleEndian.PutUint16(dst[6:8], uint16(r.Y))
	binary.LittleEndian.PutUint16(dst[8:10], uint16(r.Z))
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (r RawRecord) MarshalBinary() ([]byte, error) {
	b := make([]byte, Size)
	r.Encode(b)
	return b, nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (r *RawRecord) UnmarshalBinary(b []byte) error {
	if len(b) != Size {
		return fmt.Errorf("%w: have %d of %d bytes", ErrTruncatedRecord, len(b), Size)
	}
	dec, err := Decode(b)
	if err != nil {
		return err
	}
	*r = dec
	return nil
}

// Source is anything that yields raw records one at a time.
// Next returns io.EOF once the stream is exhausted.
type Source interface {
	Next() (RawRecord, error)
}

// Decoder reads records back-to-back from an io.Reader.
type Decoder struct {
	r     io.Reader
	buf   [Size]byte
	count int
}

// NewDecoder returns a Decoder positioned at the first record of r.
// Callers wanting buffered reads should wrap r in a bufio.Reader.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r}
}

// Next decodes the next record.
//
// It returns io.EOF when the stream ends on a record boundary, an error
// wrapping ErrTruncatedRecord when it ends inside a record, and an error
// wrapping ErrSourceUnavailable for any other read failure.
func (d *Decoder) Next() (RawRecord, error) {
	n, err := io.ReadFull(d.r, d.buf[:])
	switch {
	case err == nil:
	case errors.Is(err, io.EOF):
		return RawRecord{}, io.EOF
	case errors.Is(err, io.ErrUnexpectedEOF):
		return RawRecord{}, fmt.Errorf("%w: record %d: have %d of %d bytes", ErrTruncatedRecord, d.count, n, Size)
	default:
		return RawRecord{}, fmt.Errorf("%w: record %d: %w", ErrSourceUnavailable, d.count, err)
	}

	rec, _ := Decode(d.buf[:])
	d.count++
	return rec, nil
}

// Count returns the number of complete records decoded so far.
func (d *Decoder) Count() int {
	return d.count
}

// Encoder writes records back-to-back to an io.Writer.
type Encoder struct {
	w   io.Writer
	buf [Size]byte
}

// NewEncoder returns an Encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w}
}

// Write encodes one record.
func (e *Encoder) Write(r RawRecord) error {
	r.Encode(e.buf[:])
	if _, err := e.w.Write(e.buf[:]); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}
