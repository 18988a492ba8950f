// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package pipeline drives records through conversion and integration one at a
// time and forwards the resulting displacements to a sink.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/relabs-tech/seismic_analyze/internal/integrate"
	"github.com/relabs-tech/seismic_analyze/internal/reading"
	"github.com/relabs-tech/seismic_analyze/internal/record"
)

// ReadingSource yields readings one at a time; Next returns io.EOF once the
// input is exhausted.
type ReadingSource interface {
	Next() (reading.Reading, error)
}

// Sink receives every displacement emitted by the integrator, in order.
type Sink interface {
	Emit(d integrate.Displacement) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(d integrate.Displacement) error

func (f SinkFunc) Emit(d integrate.Displacement) error { return f(d) }

// Readings converts records from src lazily.
type Readings struct {
	src  record.Source
	conv reading.Converter
}

// NewReadings returns a ReadingSource over src.
func NewReadings(src record.Source, conv reading.Converter) *Readings {
	return &Readings{src: src, conv: conv}
}

// Next decodes and converts the next record.
func (r *Readings) Next() (reading.Reading, error) {
	raw, err := r.src.Next()
	if err != nil {
		return reading.Reading{}, err
	}
	return r.conv.Convert(raw), nil
}

// Stream is a pull-based sequence of displacements.
type Stream struct {
	ctx  context.Context
	src  ReadingSource
	in   *integrate.Integrator
	sum  Summary
	done bool
}

// NewStream pulls readings from src through in. ctx is checked once per
// reading.
func NewStream(ctx context.Context, src ReadingSource, in *integrate.Integrator) *Stream {
	return &Stream{ctx: ctx, src: src, in: in}
}

// Next returns the next displacement, reading as many records as needed.
// It returns io.EOF when the input is exhausted; any other error is fatal
// and ends the stream.
func (s *Stream) Next() (integrate.Displacement, error) {
	if s.done {
		return integrate.Displacement{}, io.EOF
	}
	for {
		if err := s.ctx.Err(); err != nil {
			s.done = true
			return integrate.Displacement{}, err
		}

		r, err := s.src.Next()
		if errors.Is(err, io.EOF) {
			s.done = true
			return integrate.Displacement{}, io.EOF
		}
		if err != nil {
			s.done = true
			return integrate.Displacement{}, fmt.Errorf("reading %d: %w", s.in.Consumed(), err)
		}

		d, ok, err := s.in.Step(r)
		if err != nil {
			s.done = true
			return integrate.Displacement{}, err
		}
		s.sum.observe(r, d, ok)
		if ok {
			return d, nil
		}
	}
}

// All ranges over the remaining displacements. Iteration stops after the
// first error, which is yielded with a zero Displacement.
func (s *Stream) All() iter.Seq2[integrate.Displacement, error] {
	return func(yield func(integrate.Displacement, error) bool) {
		for {
			d, err := s.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(d, err) || err != nil {
				return
			}
		}
	}
}

// Summary returns what the stream has seen so far.
func (s *Stream) Summary() Summary {
	return s.sum
}

// Run forwards every displacement from src to sink until src is exhausted.
// Errors from the source, the integrator, the sink or ctx stop the run; the
// returned Summary covers everything emitted before the failure.
func Run(ctx context.Context, src ReadingSource, in *integrate.Integrator, sink Sink) (Summary, error) {
	s := NewStream(ctx, src, in)
	for d, err := range s.All() {
		if err != nil {
			return s.Summary(), err
		}
		if err := sink.Emit(d); err != nil {
			return s.Summary(), fmt.Errorf("emit %d: %w", d.Index, err)
		}
	}
	return s.Summary(), nil
}

// Summary describes one run without keeping its history.
type Summary struct {
	Readings int     `json:"readings"`
	Emitted  int     `json:"emitted"`
	First    float64 `json:"first"` // time of the first reading, Unix seconds
	Last     float64 `json:"last"`  // time of the last reading, Unix seconds
	Final    r3.Vec  `json:"final"` // displacement after the last step
	Peak     r3.Vec  `json:"peak"`  // largest |displacement| seen per axis
}

// Duration returns the time spanned by the readings, in seconds.
func (s Summary) Duration() float64 {
	if s.Readings < 2 {
		return 0
	}
	return s.Last - s.First
}

func (s *Summary) observe(r reading.Reading, d integrate.Displacement, emitted bool) {
	if s.Readings == 0 {
		s.First = r.Time
	}
	s.Readings++
	s.Last = r.Time
	if !emitted {
		return
	}
	s.Emitted++
	s.Final = d.Vec()
	s.Peak = r3.Vec{
		X: math.Max(s.Peak.X, math.Abs(d.X)),
		Y: math.Max(s.Peak.Y, math.Abs(d.Y)),
		Z: math.Max(s.Peak.Z, math.Abs(d.Z)),
	}
}
