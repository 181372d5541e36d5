// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

// gravityFilter splits raw accelerometer readings into a slowly varying
// gravity estimate and the remaining linear acceleration:
//
//	gravity = alpha*gravity + (1-alpha)*raw
//	linear  = raw - gravity
//
// The first reading seeds the gravity estimate, so it yields zero.
type gravityFilter struct {
	alpha   float64
	gravity [3]float64
	primed  bool
}

func (f *gravityFilter) Linear(raw [3]float64) [3]float64 {
	if !f.primed {
		f.gravity = raw
		f.primed = true
	}
	var out [3]float64
	for i := range raw {
		f.gravity[i] = f.alpha*f.gravity[i] + (1-f.alpha)*raw[i]
		out[i] = raw[i] - f.gravity[i]
	}
	return out
}

func (f *gravityFilter) Reset() {
	f.gravity = [3]float64{}
	f.primed = false
}
