// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

// DefaultFusionBeta biases the fused angle toward the smoothed tilt,
// leaving 2% to the gyro term.
const DefaultFusionBeta = 0.98

// Complementary blends a drift-free but noisy angle with a low-noise but
// drifting one.
type Complementary struct {
	Beta float64
}

// Fuse returns Beta*tilt + (1-Beta)*gyro.
func (c Complementary) Fuse(tilt, gyro float64) float64 {
	return c.Beta*tilt + (1-c.Beta)*gyro
}

// Fuse blends with DefaultFusionBeta.
func Fuse(tilt, gyro float64) float64 {
	return Complementary{Beta: DefaultFusionBeta}.Fuse(tilt, gyro)
}
