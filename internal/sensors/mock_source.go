// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"context"
	"math"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/shoulder_measurement/internal/imu"
)

const (
	mockSwingAmplitude = 0.6 // rad, about ±34°
	mockSwingRate      = 0.8 // rad/s of phase
	mockAccelMagnitude = 2.0 // m/s²
)

// MockSource generates a slow, smooth arm swing so the pipeline can be
// exercised without hardware.
type MockSource struct {
	*Hub
	interval time.Duration
	start    time.Time
}

// NewMockSource creates a mock source ticking every interval. With
// withGyro false the angular-velocity stream reports as unavailable.
func NewMockSource(interval time.Duration, withGyro bool) *MockSource {
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	kinds := []imu.Kind{imu.LinearAcceleration}
	if withGyro {
		kinds = append(kinds, imu.AngularVelocity)
	}
	return &MockSource{
		Hub:      NewHub(kinds...),
		interval: interval,
		start:    time.Now(),
	}
}

// Next returns the synthetic accelerometer and gyroscope readings at t.
func (m *MockSource) Next(t time.Time) (accel, gyro imu.Sample) {
	elapsed := t.Sub(m.start).Seconds()
	phase := mockSwingAmplitude * math.Sin(mockSwingRate*elapsed)
	rate := mockSwingAmplitude * mockSwingRate * math.Cos(mockSwingRate*elapsed)
	ts := t.UnixNano()

	accel = imu.Sample{
		Kind:        imu.LinearAcceleration,
		X:           0.05 * math.Sin(3*elapsed),
		Y:           mockAccelMagnitude * math.Sin(phase),
		Z:           mockAccelMagnitude * math.Cos(phase),
		TimestampNs: ts,
	}
	gyro = imu.Sample{
		Kind:        imu.AngularVelocity,
		Y:           rate,
		TimestampNs: ts,
	}
	return accel, gyro
}

func (m *MockSource) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	log.Printf("mock source: started (interval=%s, gyro=%v)", m.interval, m.Available(imu.AngularVelocity))
	for {
		select {
		case <-ctx.Done():
			delivered, dropped := m.Stats()
			log.Printf("mock source: stopped (delivered=%d, dropped=%d)", delivered, dropped)
			return nil
		case t := <-ticker.C:
			accel, gyro := m.Next(t)
			if m.Available(imu.AngularVelocity) {
				m.Deliver(gyro)
			}
			m.Deliver(accel)
		}
	}
}
