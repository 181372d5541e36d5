// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

// DefaultEWMAAlpha weights a new tilt reading against the filter history.
// Smaller values give a smoother but slower estimate.
const DefaultEWMAAlpha = 0.1

// EWMA is an exponentially weighted moving average over a single stream:
//
//	out = alpha*in + (1-alpha)*prev
//
// The zero value has alpha 0 and never moves; use NewEWMA.
// Not safe for concurrent use.
type EWMA struct {
	Alpha float64
	prev  float64
}

func NewEWMA(alpha float64) *EWMA {
	return &EWMA{Alpha: alpha}
}

// Step feeds one input and returns the new filtered value.
func (e *EWMA) Step(input float64) float64 {
	out := e.Alpha*input + (1-e.Alpha)*e.prev
	e.prev = out
	return out
}

// Value returns the last filtered value (0 after Reset).
func (e *EWMA) Value() float64 {
	return e.prev
}

func (e *EWMA) Reset() {
	e.prev = 0
}
