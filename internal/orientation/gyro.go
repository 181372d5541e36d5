// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

// TimestepMode selects how nanosecond timestamp deltas become seconds.
type TimestepMode int

const (
	// TimestepSeconds converts with dt = Δns * 1e-9.
	TimestepSeconds TimestepMode = iota
	// TimestepLegacy divides by 1e-9 instead, scaling dt by 1e18 relative
	// to TimestepSeconds. It exists only to replay numbers recorded by the
	// first mobile build of this tool.
	TimestepLegacy
)

func (m TimestepMode) String() string {
	if m == TimestepLegacy {
		return "legacy"
	}
	return "seconds"
}

func (m TimestepMode) seconds(deltaNs int64) float64 {
	if m == TimestepLegacy {
		return float64(deltaNs) / 1e-9
	}
	return float64(deltaNs) * 1e-9
}

// GyroIntegrator accumulates a single-axis angle from angular-velocity
// samples. The first sample after construction or Reset only records its
// timestamp and contributes nothing.
type GyroIntegrator struct {
	Mode TimestepMode

	angle    float64
	last     int64
	haveLast bool
}

// Update integrates rate over the time since the previous sample and
// returns the cumulative angle.
func (g *GyroIntegrator) Update(rate float64, timestampNs int64) float64 {
	if g.haveLast {
		g.angle += rate * g.Mode.seconds(timestampNs-g.last)
	}
	g.last = timestampNs
	g.haveLast = true
	return g.angle
}

func (g *GyroIntegrator) Angle() float64 {
	return g.angle
}

// LastTimestamp returns the timestamp of the previous sample, if any.
func (g *GyroIntegrator) LastTimestamp() (int64, bool) {
	return g.last, g.haveLast
}

// Reset clears the angle and forgets the previous timestamp. Mode is kept.
func (g *GyroIntegrator) Reset() {
	g.angle = 0
	g.last = 0
	g.haveLast = false
}
