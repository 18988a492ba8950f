// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package reading converts raw accelerometer records into physical units.
package reading

import (
	"math"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/relabs-tech/seismic_analyze/internal/record"
)

// DefaultScaleFactor converts one raw count of the logger's accelerometer
// into milli-g.
const DefaultScaleFactor = 0.24375

// Reading is a record after unit conversion.
type Reading struct {
	// Time is seconds since the Unix epoch, sub-second precision retained.
	Time float64 `json:"time"`
	// Accel is acceleration in milli-g.
	Accel r3.Vec `json:"accel"`
}

// At returns Time as a time.Time in UTC.
func (r Reading) At() time.Time {
	sec, frac := math.Modf(r.Time)
	return time.Unix(int64(sec), int64(math.Round(frac*1e9))).UTC()
}

// Converter maps raw records onto readings for one file.
type Converter struct {
	Epoch       time.Time
	ScaleFactor float64
}

// NewConverter returns a Converter using DefaultScaleFactor.
func NewConverter(epoch time.Time) Converter {
	return Converter{Epoch: epoch, ScaleFactor: DefaultScaleFactor}
}

// Convert is a pure function of c and raw.
func (c Converter) Convert(raw record.RawRecord) Reading {
	base := float64(c.Epoch.Unix()) + float64(c.Epoch.Nanosecond())/1e9
	return Reading{
		Time: base + float64(raw.ElapsedMS)/1000.0,
		Accel: r3.Vec{
			X: float64(raw.X) * c.ScaleFactor,
			Y: float64(raw.Y) * c.ScaleFactor,
			Z: float64(raw.Z) * c.ScaleFactor,
		},
	}
}
