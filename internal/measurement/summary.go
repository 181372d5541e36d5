// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package measurement

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// AlgorithmStats describes one estimate column of a recording.
type AlgorithmStats struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// Summary compares the two algorithms over a recording.
type Summary struct {
	Points          int            `json:"points"`
	DurationSeconds float64        `json:"duration_s"`
	Algorithm1      AlgorithmStats `json:"algorithm1_ewma"`
	Algorithm2      AlgorithmStats `json:"algorithm2_fusion"`
	// RMSDifference is the root mean square of Algorithm1 - Algorithm2.
	RMSDifference float64 `json:"rms_difference"`
}

// Summarize computes per-algorithm statistics. An empty recording yields a
// zero Summary.
func Summarize(points []AnglePoint) Summary {
	n := len(points)
	if n == 0 {
		return Summary{}
	}

	a1 := Column(points, func(p AnglePoint) float64 { return p.Algorithm1 })
	a2 := Column(points, func(p AnglePoint) float64 { return p.Algorithm2 })

	return Summary{
		Points:          n,
		DurationSeconds: points[n-1].ElapsedSeconds,
		Algorithm1:      describe(a1),
		Algorithm2:      describe(a2),
		RMSDifference:   floats.Distance(a1, a2, 2) / math.Sqrt(float64(n)),
	}
}

func describe(x []float64) AlgorithmStats {
	mean, std := stat.MeanStdDev(x, nil)
	if len(x) < 2 {
		std = 0
	}
	return AlgorithmStats{
		Mean:   mean,
		StdDev: std,
		Min:    floats.Min(x),
		Max:    floats.Max(x),
	}
}
