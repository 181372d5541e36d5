package measurement

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/shoulder_measurement/internal/imu"
	"github.com/relabs-tech/shoulder_measurement/internal/orientation"
	"github.com/relabs-tech/shoulder_measurement/internal/sensors"
)

const eps = 1e-9

func accel(x, y, z float64, ts int64) imu.Sample {
	return imu.Sample{Kind: imu.LinearAcceleration, X: x, Y: y, Z: z, TimestampNs: ts}
}

func gyro(rateY float64, ts int64) imu.Sample {
	return imu.Sample{Kind: imu.AngularVelocity, Y: rateY, TimestampNs: ts}
}

func TestSessionFirstSample(t *testing.T) {
	hub := sensors.NewHub(imu.Kinds...)
	s := New(hub, Options{})
	require.NoError(t, s.Start())

	assert.True(t, hub.Deliver(accel(0, 1, 0, 1)))

	pts := s.Snapshot()
	require.Len(t, pts, 1)
	assert.InDelta(t, 0.05, pts[0].ElapsedSeconds, eps)
	assert.InDelta(t, 4.5, pts[0].Algorithm1, eps)
	assert.InDelta(t, 4.41, pts[0].Algorithm2, eps)

	latest, ok := s.Latest()
	require.True(t, ok)
	assert.Equal(t, s.ID(), latest.SessionID)
	assert.InDelta(t, 4.41, latest.Algorithm2, eps)
}

func TestSessionGyroFeedsFusion(t *testing.T) {
	hub := sensors.NewHub(imu.Kinds...)
	s := New(hub, Options{})
	require.NoError(t, s.Start())

	hub.Deliver(gyro(10, 0))
	hub.Deliver(gyro(10, 500_000_000)) // +5 degrees over 0.5 s
	hub.Deliver(accel(0, 0, 1, 600_000_000))

	fs := s.FilterState()
	assert.InDelta(t, 5, fs.CumulativeGyroAngle, eps)
	assert.True(t, fs.HasGyroTimestamp)
	assert.Equal(t, int64(500_000_000), fs.LastGyroTimestampNs)

	pts := s.Snapshot()
	require.Len(t, pts, 1)
	assert.InDelta(t, 0, pts[0].Algorithm1, eps)
	assert.InDelta(t, 0.02*5, pts[0].Algorithm2, eps)
}

func TestSessionLegacyTimestep(t *testing.T) {
	hub := sensors.NewHub(imu.Kinds...)
	s := New(hub, Options{TimestepMode: orientation.TimestepLegacy})
	require.NoError(t, s.Start())

	hub.Deliver(gyro(1, 0))
	hub.Deliver(gyro(1, 1))
	assert.InDelta(t, 1e9, s.FilterState().CumulativeGyroAngle, 1)
}

func TestSessionElapsedIsSynthetic(t *testing.T) {
	hub := sensors.NewHub(imu.Kinds...)
	s := New(hub, Options{})
	require.NoError(t, s.Start())

	// sensor timestamps are ignored for the time axis
	for _, ts := range []int64{0, 7, 7, 1e12} {
		hub.Deliver(accel(0, 1, 0, ts))
	}
	pts := s.Snapshot()
	require.Len(t, pts, 4)
	for i, p := range pts {
		assert.InDelta(t, 0.05*float64(i+1), p.ElapsedSeconds, eps)
	}
	// gyro samples do not advance the clock
	hub.Deliver(gyro(1, 1))
	assert.InDelta(t, 0.2, s.FilterState().ElapsedSeconds, eps)
}

func TestSessionReset(t *testing.T) {
	for _, name := range []string{"stop then start", "restart while running"} {
		t.Run(name, func(t *testing.T) {
			hub := sensors.NewHub(imu.Kinds...)
			s := New(hub, Options{})
			require.NoError(t, s.Start())
			firstID := s.ID()

			hub.Deliver(gyro(1, 0))
			hub.Deliver(gyro(1, 1e9))
			for i := 0; i < 5; i++ {
				hub.Deliver(accel(0, 1, 0, int64(i)))
			}
			require.Len(t, s.Snapshot(), 5)

			if name == "stop then start" {
				s.Stop()
			}
			require.NoError(t, s.Start())

			assert.Empty(t, s.Snapshot())
			assert.Equal(t, FilterState{}, s.FilterState())
			assert.NotEqual(t, firstID, s.ID())
			_, ok := s.Latest()
			assert.False(t, ok)

			// first sample after restart behaves like the very first one
			hub.Deliver(accel(0, 1, 0, 99))
			pts := s.Snapshot()
			require.Len(t, pts, 1)
			assert.InDelta(t, 0.05, pts[0].ElapsedSeconds, eps)
			assert.InDelta(t, 4.41, pts[0].Algorithm2, eps)
		})
	}
}

func TestSessionStopKeepsSeriesAndIgnoresSamples(t *testing.T) {
	hub := sensors.NewHub(imu.Kinds...)
	s := New(hub, Options{})

	// idle before first start
	require.NoError(t, s.HandleSample(accel(0, 1, 0, 0)))
	assert.Empty(t, s.Snapshot())
	s.Stop()
	assert.Equal(t, Idle, s.State())

	require.NoError(t, s.Start())
	assert.Equal(t, Running, s.State())
	hub.Deliver(accel(0, 1, 0, 0))
	s.Stop()

	assert.Equal(t, Idle, s.State())
	assert.Len(t, s.Snapshot(), 1)
	assert.False(t, hub.Deliver(accel(0, 1, 0, 1)), "handler should be unsubscribed")

	// a late callback that raced past Unsubscribe
	require.NoError(t, s.HandleSample(accel(0, 1, 0, 2)))
	assert.Len(t, s.Snapshot(), 1)
}

func TestSessionUnavailableGyro(t *testing.T) {
	hub := sensors.NewHub(imu.LinearAcceleration)
	s := New(hub, Options{})
	require.NoError(t, s.Start())

	hub.Deliver(accel(0, 1, 0, 0))
	pts := s.Snapshot()
	require.Len(t, pts, 1)
	assert.InDelta(t, 4.41, pts[0].Algorithm2, eps)
	assert.InDelta(t, 0, s.FilterState().CumulativeGyroAngle, eps)
}

type failingSource struct {
	*sensors.Hub
	failGyro     bool
	unsubscribed int
}

func (f *failingSource) Subscribe(kind imu.Kind, h sensors.Handler) error {
	if kind == imu.AngularVelocity && f.failGyro {
		return errors.New("driver crashed")
	}
	return f.Hub.Subscribe(kind, h)
}

func (f *failingSource) Unsubscribe(kind imu.Kind) {
	f.unsubscribed++
	f.Hub.Unsubscribe(kind)
}

func TestSessionStartSubscribeError(t *testing.T) {
	t.Run("fresh start", func(t *testing.T) {
		src := &failingSource{Hub: sensors.NewHub(imu.Kinds...), failGyro: true}
		s := New(src, Options{})

		err := s.Start()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "driver crashed")
		assert.Equal(t, Idle, s.State())
		assert.Equal(t, len(imu.Kinds), src.unsubscribed)
		assert.False(t, src.Deliver(accel(0, 1, 0, 0)))
	})

	t.Run("restart while running", func(t *testing.T) {
		src := &failingSource{Hub: sensors.NewHub(imu.Kinds...)}
		s := New(src, Options{})
		require.NoError(t, s.Start())
		src.Deliver(accel(0, 1, 0, 0))

		src.failGyro = true
		require.Error(t, s.Start())

		assert.Equal(t, Idle, s.State())
		assert.False(t, src.Deliver(accel(0, 1, 0, 1)))
		assert.False(t, s.Stop(), "nothing left to stop")
	})
}

func TestSessionStopReportsTransition(t *testing.T) {
	hub := sensors.NewHub(imu.Kinds...)
	s := New(hub, Options{})

	assert.False(t, s.Stop())
	require.NoError(t, s.Start())
	assert.True(t, s.Stop())
	assert.False(t, s.Stop())
}

func TestSessionRejectsNonFiniteSamples(t *testing.T) {
	hub := sensors.NewHub(imu.Kinds...)
	s := New(hub, Options{})
	require.NoError(t, s.Start())

	require.NoError(t, s.HandleSample(accel(0, 1, 0, 0)))
	before := s.FilterState()

	bad := []imu.Sample{
		accel(math.NaN(), 0, 0, 1),
		accel(0, math.Inf(1), 0, 2),
		gyro(math.Inf(-1), 3),
	}
	for _, sample := range bad {
		err := s.HandleSample(sample)
		assert.ErrorIs(t, err, ErrInvalidSample)
	}

	assert.Equal(t, before, s.FilterState())
	assert.Len(t, s.Snapshot(), 1)

	processed, rejected := s.Stats()
	assert.Equal(t, uint64(1), processed)
	assert.Equal(t, uint64(3), rejected)
}

func TestSessionSubscribeMostRecent(t *testing.T) {
	hub := sensors.NewHub(imu.Kinds...)
	s := New(hub, Options{})
	ch, cancel := s.Subscribe()
	defer cancel()

	require.NoError(t, s.Start())
	for i := 0; i < 10; i++ {
		hub.Deliver(accel(0, 1, 0, int64(i)))
	}

	got := <-ch
	assert.InDelta(t, 0.5, got.ElapsedSeconds, eps)
	select {
	case e := <-ch:
		t.Fatalf("unexpected stale estimate %+v", e)
	default:
	}

	cancel()
	_, open := <-ch
	assert.False(t, open)
	cancel() // idempotent

	hub.Deliver(accel(0, 1, 0, 10)) // no panic on closed subscriber
}

func TestSessionOptionsDefaults(t *testing.T) {
	o := Options{}.withDefaults()
	assert.Equal(t, orientation.DefaultEWMAAlpha, o.Alpha)
	assert.Equal(t, orientation.DefaultFusionBeta, o.Beta)
	assert.Equal(t, DefaultStepSeconds, o.StepSeconds)

	o = Options{Alpha: 0.5, Beta: 0.9, StepSeconds: 0.02}.withDefaults()
	assert.Equal(t, 0.5, o.Alpha)
	assert.Equal(t, 0.9, o.Beta)
	assert.Equal(t, 0.02, o.StepSeconds)
}
