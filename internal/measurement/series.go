// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package measurement

// AnglePoint is one recorded pair of estimates, in degrees, stamped with the
// synthetic session clock.
type AnglePoint struct {
	ElapsedSeconds float64 `json:"time_s"`
	Algorithm1     float64 `json:"algorithm1_ewma"`
	Algorithm2     float64 `json:"algorithm2_fusion"`
}

// TimeSeries is an append-only list of points. It is not safe for
// concurrent use; Session guards its own copy.
type TimeSeries struct {
	points []AnglePoint
}

func (ts *TimeSeries) Append(p AnglePoint) {
	ts.points = append(ts.points, p)
}

func (ts *TimeSeries) Len() int {
	return len(ts.points)
}

func (ts *TimeSeries) Reset() {
	ts.points = nil
}

// Points returns a copy that stays valid after further appends.
func (ts *TimeSeries) Points() []AnglePoint {
	out := make([]AnglePoint, len(ts.points))
	copy(out, ts.points)
	return out
}

// Column extracts one value per point.
func Column(points []AnglePoint, f func(AnglePoint) float64) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = f(p)
	}
	return out
}
