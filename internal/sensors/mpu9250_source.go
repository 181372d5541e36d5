// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"context"
	"fmt"
	"math"
	"time"

	log "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/devices/v3/mpu9250"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/shoulder_measurement/internal/imu"
)

const (
	accelCountsPerG  = 16384.0 // ±2g full scale after Init
	gyroCountsPerDPS = 131.0   // ±250°/s full scale after Init
	standardGravity  = 9.80665 // m/s²

	// Low-pass weight for the gravity estimate; 0.8 follows the usual
	// phone linear-acceleration recipe.
	gravityAlpha = 0.8
)

type mpuReader interface {
	GetAccelerationX() (int16, error)
	GetAccelerationY() (int16, error)
	GetAccelerationZ() (int16, error)
	GetRotationX() (int16, error)
	GetRotationY() (int16, error)
	GetRotationZ() (int16, error)
}

// MPU9250Source polls an MPU9250 over SPI and publishes gravity-compensated
// acceleration and angular velocity.
type MPU9250Source struct {
	*Hub
	name     string
	dev      mpuReader
	interval time.Duration
	gravity  gravityFilter
	now      func() time.Time
}

// NewMPU9250Source initializes the IMU on spiDev with chip select csPin.
// Every initialization failure wraps ErrSensorUnavailable.
func NewMPU9250Source(spiDev, csPin string, interval time.Duration) (*MPU9250Source, error) {
	name := spiDev
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("%s IMU: periph host init: %w: %w", name, ErrSensorUnavailable, err)
	}

	cs := gpioreg.ByName(csPin)
	if cs == nil {
		return nil, fmt.Errorf("%s IMU: CS pin %q not found: %w", name, csPin, ErrSensorUnavailable)
	}

	tr, err := mpu9250.NewSpiTransport(spiDev, cs)
	if err != nil {
		return nil, fmt.Errorf("%s IMU: SPI transport: %w: %w", name, ErrSensorUnavailable, err)
	}

	dev, err := mpu9250.New(tr)
	if err != nil {
		return nil, fmt.Errorf("%s IMU: device creation: %w: %w", name, ErrSensorUnavailable, err)
	}
	if err := dev.Init(); err != nil {
		return nil, fmt.Errorf("%s IMU: initialization: %w: %w", name, ErrSensorUnavailable, err)
	}

	// Self-test and calibration are best effort, as on the bench rig.
	if _, err := dev.SelfTest(); err != nil {
		log.Warnf("%s IMU: self-test failed: %v", name, err)
	}
	if err := dev.Calibrate(); err != nil {
		log.Warnf("%s IMU: calibration failed: %v", name, err)
	} else {
		log.Printf("%s IMU: calibration complete", name)
	}

	return newMPU9250Source(name, dev, interval), nil
}

func newMPU9250Source(name string, dev mpuReader, interval time.Duration) *MPU9250Source {
	if interval <= 0 {
		interval = 20 * time.Millisecond
	}
	return &MPU9250Source{
		Hub:      NewHub(imu.Kinds...),
		name:     name,
		dev:      dev,
		interval: interval,
		gravity:  gravityFilter{alpha: gravityAlpha},
		now:      time.Now,
	}
}

// Read takes one accelerometer and one gyroscope reading.
func (s *MPU9250Source) Read() (accel, gyro imu.Sample, err error) {
	var raw [6]int16
	reads := [6]func() (int16, error){
		s.dev.GetAccelerationX, s.dev.GetAccelerationY, s.dev.GetAccelerationZ,
		s.dev.GetRotationX, s.dev.GetRotationY, s.dev.GetRotationZ,
	}
	axes := [6]string{"accel X", "accel Y", "accel Z", "gyro X", "gyro Y", "gyro Z"}
	for i, read := range reads {
		if raw[i], err = read(); err != nil {
			return imu.Sample{}, imu.Sample{}, fmt.Errorf("%s IMU %s: %w", s.name, axes[i], err)
		}
	}

	ts := s.now().UnixNano()
	a := accelToMS2(raw[0], raw[1], raw[2])
	lin := s.gravity.Linear(a)
	g := gyroToRadS(raw[3], raw[4], raw[5])

	accel = imu.Sample{Kind: imu.LinearAcceleration, X: lin[0], Y: lin[1], Z: lin[2], TimestampNs: ts}
	gyro = imu.Sample{Kind: imu.AngularVelocity, X: g[0], Y: g[1], Z: g[2], TimestampNs: ts}
	return accel, gyro, nil
}

func (s *MPU9250Source) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	log.Printf("%s IMU: polling every %s", s.name, s.interval)
	for {
		select {
		case <-ctx.Done():
			delivered, dropped := s.Stats()
			log.Printf("%s IMU: stopped (delivered=%d, dropped=%d)", s.name, delivered, dropped)
			return nil
		case <-ticker.C:
			accel, gyro, err := s.Read()
			if err != nil {
				log.Printf("%s IMU: read error: %v", s.name, err)
				continue
			}
			s.Deliver(gyro)
			s.Deliver(accel)
		}
	}
}

func accelToMS2(x, y, z int16) [3]float64 {
	k := standardGravity / accelCountsPerG
	return [3]float64{float64(x) * k, float64(y) * k, float64(z) * k}
}

func gyroToRadS(x, y, z int16) [3]float64 {
	k := math.Pi / 180.0 / gyroCountsPerDPS
	return [3]float64{float64(x) * k, float64(y) * k, float64(z) * k}
}
