// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package integrate turns a sequence of acceleration readings into cumulative
// ground displacement by double integration.
package integrate

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/relabs-tech/seismic_analyze/internal/reading"
)

// DefaultGravity is standard gravity in m/s².
const DefaultGravity = 9.80665

// ErrNonMonotonicTime is returned when a reading is not strictly later than
// the one before it.
var ErrNonMonotonicTime = errors.New("non-monotonic time")

// Displacement is the cumulative displacement after one integration step.
type Displacement struct {
	// Index counts the readings consumed before the one that produced this
	// displacement; the first emission has Index 1.
	Index int     `json:"index"`
	X     float64 `json:"sx"`
	Y     float64 `json:"sy"`
	Z     float64 `json:"sz"`
}

// Vec returns d as a vector.
func (d Displacement) Vec() r3.Vec {
	return r3.Vec{X: d.X, Y: d.Y, Z: d.Z}
}

// Integrator holds the integration state of one file. It is not safe for
// concurrent use; run one Integrator per file.
type Integrator struct {
	policy  Policy
	gravity float64

	state    State
	prev     reading.Reading
	primed   bool
	consumed int
}

// New returns an Integrator in its initial state. gravity converts milli-g
// readings to m/s².
func New(policy Policy, gravity float64) *Integrator {
	return &Integrator{policy: policy, gravity: gravity}
}

// Policy returns the active integration policy.
func (in *Integrator) Policy() Policy {
	return in.policy
}

// Consumed returns the number of readings accepted so far.
func (in *Integrator) Consumed() int {
	return in.consumed
}

// Step consumes one reading. The first reading only primes the integrator and
// yields ok == false; every later reading yields exactly one Displacement.
//
// A reading whose time is not after the previous one fails with
// ErrNonMonotonicTime and leaves the state untouched.
func (in *Integrator) Step(r reading.Reading) (d Displacement, ok bool, err error) {
	if !in.primed {
		in.prev = r
		in.primed = true
		in.consumed++
		return Displacement{}, false, nil
	}

	dt := r.Time - in.prev.Time
	if !(dt > 0) {
		return Displacement{}, false, fmt.Errorf("%w: reading %d at %.3f follows %.3f (dt=%g s)",
			ErrNonMonotonicTime, in.consumed, r.Time, in.prev.Time, dt)
	}

	in.policy.Step(&in.state, in.toMetric(r.Accel), dt)

	d = Displacement{
		Index: in.consumed,
		X:     in.state.Displacement.X,
		Y:     in.state.Displacement.Y,
		Z:     in.state.Displacement.Z,
	}
	in.prev = r
	in.consumed++
	return d, true, nil
}

// Reset returns the integrator to its initial state, keeping its policy.
func (in *Integrator) Reset() {
	in.state = State{}
	in.prev = reading.Reading{}
	in.primed = false
	in.consumed = 0
}

// toMetric converts milli-g to m/s².
func (in *Integrator) toMetric(a r3.Vec) r3.Vec {
	return r3.Vec{
		X: in.gravity * a.X / 1000.0,
		Y: in.gravity * a.Y / 1000.0,
		Z: in.gravity * a.Z / 1000.0,
	}
}
