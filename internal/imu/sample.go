// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

import (
	"fmt"
	"math"
)

// Kind identifies which sensor stream a Sample belongs to.
type Kind int

const (
	LinearAcceleration Kind = iota // m/s², gravity removed
	AngularVelocity                // rad/s
)

// Kinds lists every stream a measurement session listens to.
var Kinds = []Kind{LinearAcceleration, AngularVelocity}

var kindNames = map[Kind]string{
	LinearAcceleration: "linear_acceleration",
	AngularVelocity:    "angular_velocity",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// MarshalText encodes the kind by name so JSON payloads stay readable.
func (k Kind) MarshalText() ([]byte, error) {
	if _, ok := kindNames[k]; !ok {
		return nil, fmt.Errorf("imu: unknown sample kind %d", int(k))
	}
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	for kind, name := range kindNames {
		if name == string(b) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("imu: unknown sample kind %q", string(b))
}

// Sample is a single timestamped 3-axis reading from one sensor stream.
type Sample struct {
	Kind Kind `json:"kind"`

	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`

	TimestampNs int64 `json:"timestamp_ns"` // sensor clock, nanoseconds
}

// Finite reports whether every axis value is a finite number.
func (s Sample) Finite() bool {
	for _, v := range [...]float64{s.X, s.Y, s.Z} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
