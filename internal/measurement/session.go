// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package measurement

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/shoulder_measurement/internal/imu"
	"github.com/relabs-tech/shoulder_measurement/internal/orientation"
	"github.com/relabs-tech/shoulder_measurement/internal/sensors"
)

// DefaultStepSeconds is the synthetic time added per acceleration sample.
// It does not depend on the sensor clock.
const DefaultStepSeconds = 0.05

// ErrInvalidSample is returned for samples with NaN or infinite components.
// Such samples never reach the filters.
var ErrInvalidSample = errors.New("invalid sample")

// State of a Session.
type State int

const (
	Idle State = iota
	Running
)

func (s State) String() string {
	if s == Running {
		return "running"
	}
	return "idle"
}

// Options tunes a Session. Zero fields take the defaults.
type Options struct {
	Alpha        float64 // EWMA weight, default orientation.DefaultEWMAAlpha
	Beta         float64 // fusion weight, default orientation.DefaultFusionBeta
	StepSeconds  float64 // default DefaultStepSeconds
	TimestepMode orientation.TimestepMode
}

func (o Options) withDefaults() Options {
	if o.Alpha == 0 {
		o.Alpha = orientation.DefaultEWMAAlpha
	}
	if o.Beta == 0 {
		o.Beta = orientation.DefaultFusionBeta
	}
	if o.StepSeconds == 0 {
		o.StepSeconds = DefaultStepSeconds
	}
	return o
}

// FilterState is a read-only view of the session's internal filter state.
type FilterState struct {
	PreviousEWMA        float64
	CumulativeGyroAngle float64
	LastGyroTimestampNs int64
	HasGyroTimestamp    bool
	ElapsedSeconds      float64
}

// Session runs both estimators against a sample source and records their
// outputs. All sample handling and reads are serialized on one mutex.
type Session struct {
	src  sensors.Source
	opts Options

	mu         sync.Mutex
	state      State
	id         string
	startedAt  time.Time
	ewma       *orientation.EWMA
	gyro       orientation.GyroIntegrator
	fusion     orientation.Complementary
	elapsed    float64
	series     TimeSeries
	latest     Estimates
	haveLatest bool

	live broadcaster

	processed uint64
	rejected  uint64
}

// New creates an idle session reading from src.
func New(src sensors.Source, opts Options) *Session {
	opts = opts.withDefaults()
	return &Session{
		src:    src,
		opts:   opts,
		ewma:   orientation.NewEWMA(opts.Alpha),
		gyro:   orientation.GyroIntegrator{Mode: opts.TimestepMode},
		fusion: orientation.Complementary{Beta: opts.Beta},
	}
}

// Start clears all recorded data and filter state and begins listening.
// Starting a running session restarts it from scratch. Streams whose sensor
// is unavailable are skipped.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Running {
		s.unsubscribeLocked()
	}

	s.series.Reset()
	s.ewma.Reset()
	s.gyro.Reset()
	s.elapsed = 0
	s.latest = Estimates{}
	s.haveLatest = false
	s.id = uuid.NewString()
	s.startedAt = time.Now()

	var subscribed int
	for _, kind := range imu.Kinds {
		err := s.src.Subscribe(kind, s.onSample)
		switch {
		case err == nil:
			subscribed++
		case errors.Is(err, sensors.ErrSensorUnavailable):
			log.Warnf("session: %v, continuing without it", err)
		default:
			s.unsubscribeLocked()
			s.state = Idle
			return fmt.Errorf("session: subscribe %s: %w", kind, err)
		}
	}

	s.state = Running
	log.Printf("session: %s started (%d streams, alpha=%g beta=%g timestep=%s)",
		s.id, subscribed, s.opts.Alpha, s.opts.Beta, s.opts.TimestepMode)
	return nil
}

// Stop stops listening and keeps the recorded series. It reports whether
// the session was running; stopping an idle session does nothing.
func (s *Session) Stop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Running {
		return false
	}
	s.unsubscribeLocked()
	s.state = Idle
	log.Printf("session: %s stopped after %d points (%.2fs)", s.id, s.series.Len(), s.elapsed)
	return true
}

func (s *Session) unsubscribeLocked() {
	for _, kind := range imu.Kinds {
		s.src.Unsubscribe(kind)
	}
}

func (s *Session) onSample(sample imu.Sample) {
	if err := s.HandleSample(sample); err != nil {
		log.Debugf("session: %v", err)
	}
}

// HandleSample feeds one sample through the estimators. Samples arriving
// while idle are ignored.
func (s *Session) HandleSample(sample imu.Sample) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Running {
		return nil
	}
	if !sample.Finite() {
		atomic.AddUint64(&s.rejected, 1)
		return fmt.Errorf("%s sample at %d: %w", sample.Kind, sample.TimestampNs, ErrInvalidSample)
	}
	atomic.AddUint64(&s.processed, 1)

	switch sample.Kind {
	case imu.AngularVelocity:
		s.gyro.Update(sample.Y, sample.TimestampNs)

	case imu.LinearAcceleration:
		tilt := orientation.TiltAngle(sample.X, sample.Y, sample.Z)
		a1 := s.ewma.Step(tilt)
		a2 := s.fusion.Fuse(a1, s.gyro.Angle())
		s.elapsed += s.opts.StepSeconds

		s.series.Append(AnglePoint{ElapsedSeconds: s.elapsed, Algorithm1: a1, Algorithm2: a2})
		s.latest = Estimates{SessionID: s.id, ElapsedSeconds: s.elapsed, Algorithm1: a1, Algorithm2: a2}
		s.haveLatest = true
		s.live.publish(s.latest)
	}
	return nil
}

// Subscribe returns a channel of live estimates. The channel buffers only
// the most recent value. Call cancel to release it.
func (s *Session) Subscribe() (<-chan Estimates, func()) {
	return s.live.subscribe()
}

// Latest returns the most recent estimates of the current session.
func (s *Session) Latest() (Estimates, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest, s.haveLatest
}

// Snapshot copies the recorded series.
func (s *Session) Snapshot() []AnglePoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.series.Points()
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ID identifies the current or last run; empty before the first Start.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

func (s *Session) StartedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startedAt
}

func (s *Session) FilterState() FilterState {
	s.mu.Lock()
	defer s.mu.Unlock()
	last, ok := s.gyro.LastTimestamp()
	return FilterState{
		PreviousEWMA:        s.ewma.Value(),
		CumulativeGyroAngle: s.gyro.Angle(),
		LastGyroTimestampNs: last,
		HasGyroTimestamp:    ok,
		ElapsedSeconds:      s.elapsed,
	}
}

// Stats returns (processed, rejected) sample counts over the session's
// lifetime.
func (s *Session) Stats() (uint64, uint64) {
	return atomic.LoadUint64(&s.processed), atomic.LoadUint64(&s.rejected)
}
