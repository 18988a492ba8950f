// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package integrate

import (
	"errors"
	"fmt"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// Policy names accepted by PolicyByName.
const (
	PolicyTrapezoidPosition  = "trapezoid-position"
	PolicyVelocityIntegrated = "velocity-integrated"
)

// DefaultDriftEpsilon is the per-step displacement bleed applied by
// TrapezoidPosition, in metres.
const DefaultDriftEpsilon = 2.8e-6

// ErrUnknownPolicy is returned by PolicyByName for unrecognised names.
var ErrUnknownPolicy = errors.New("unknown integration policy")

// State is the running integration state of one file.
type State struct {
	Velocity     r3.Vec // m/s
	Displacement r3.Vec // m
}

// Policy advances State by one interval of constant acceleration a (m/s²)
// lasting dt seconds. dt is always > 0.
type Policy interface {
	Name() string
	Step(st *State, a r3.Vec, dt float64)
}

// TrapezoidPosition integrates acceleration straight to a position increment
// a·dt²/2 without keeping velocity, then moves every axis Epsilon towards zero.
type TrapezoidPosition struct {
	Epsilon float64
}

func (TrapezoidPosition) Name() string { return PolicyTrapezoidPosition }

func (p TrapezoidPosition) Step(st *State, a r3.Vec, dt float64) {
	s := r3.Add(st.Displacement, r3.Scale(dt*dt/2, a))
	st.Displacement = r3.Vec{
		X: bleed(s.X, p.Epsilon),
		Y: bleed(s.Y, p.Epsilon),
		Z: bleed(s.Z, p.Epsilon),
	}
}

// bleed nudges s by eps in the direction that shrinks it; zero counts as
// non-negative.
func bleed(s, eps float64) float64 {
	if s < 0 {
		return s + eps
	}
	return s - eps
}

// VelocityIntegrated keeps explicit velocity (semi-implicit Euler):
// v += a·dt, then s += v·dt. No drift correction.
type VelocityIntegrated struct{}

func (VelocityIntegrated) Name() string { return PolicyVelocityIntegrated }

func (VelocityIntegrated) Step(st *State, a r3.Vec, dt float64) {
	st.Velocity = r3.Add(st.Velocity, r3.Scale(dt, a))
	st.Displacement = r3.Add(st.Displacement, r3.Scale(dt, st.Velocity))
}

// PolicyByName returns the policy configured by name. epsilon is only used by
// TrapezoidPosition.
func PolicyByName(name string, epsilon float64) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case PolicyTrapezoidPosition:
		return TrapezoidPosition{Epsilon: epsilon}, nil
	case PolicyVelocityIntegrated:
		return VelocityIntegrated{}, nil
	default:
		return nil, fmt.Errorf("%w: %q (want %s or %s)", ErrUnknownPolicy, name,
			PolicyTrapezoidPosition, PolicyVelocityIntegrated)
	}
}
