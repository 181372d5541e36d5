// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"math"
)

// TiltAngle computes a single-axis tilt angle in degrees from a
// linear-acceleration vector:
//
//	norm  = sqrt(x² + y² + z²)
//	angle = atan2(y, norm)
//
// A zero vector is passed through unchanged, so the result is whatever
// math.Atan2(0, 0) returns (0).
func TiltAngle(x, y, z float64) float64 {
	norm := math.Sqrt(x*x + y*y + z*z)
	return math.Atan2(y, norm) * 180.0 / math.Pi
}
