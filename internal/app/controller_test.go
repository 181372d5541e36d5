package app

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/shoulder_measurement/internal/imu"
	"github.com/relabs-tech/shoulder_measurement/internal/measurement"
	"github.com/relabs-tech/shoulder_measurement/internal/sensors"
)

func newTestController() (*Controller, *sensors.Hub, *memRecorder) {
	hub := sensors.NewHub(imu.Kinds...)
	rec := &memRecorder{}
	return NewController(measurement.New(hub, measurement.Options{}), rec), hub, rec
}

func upright(ts int64) imu.Sample {
	return imu.Sample{Kind: imu.LinearAcceleration, Y: 1, TimestampNs: ts}
}

func TestControllerEvents(t *testing.T) {
	ctrl, hub, rec := newTestController()

	var events []SessionEvent
	ctrl.OnEvent(func(ev SessionEvent) { events = append(events, ev) })

	ctrl.Stop() // idle stop emits nothing
	require.NoError(t, ctrl.Start())
	hub.Deliver(upright(1))
	hub.Deliver(upright(2))
	ctrl.Stop()

	path, err := ctrl.Export()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/shoulder_measurement_1.csv", path)
	require.Len(t, rec.saved, 1)
	assert.Len(t, rec.saved[0], 2)

	require.Len(t, events, 3)
	assert.Equal(t, EventStarted, events[0].Type)
	assert.Equal(t, EventStopped, events[1].Type)
	assert.Equal(t, 2, events[1].Points)
	assert.Equal(t, EventExported, events[2].Type)
	assert.Equal(t, path, events[2].Path)
	assert.Equal(t, ctrl.Session.ID(), events[0].SessionID)
}

func TestControllerExportFailureKeepsRunning(t *testing.T) {
	ctrl, hub, rec := newTestController()
	rec.failed = true

	require.NoError(t, ctrl.Start())
	hub.Deliver(upright(1))

	_, err := ctrl.Export()
	require.Error(t, err)
	assert.Equal(t, measurement.Running, ctrl.Session.State())

	hub.Deliver(upright(2))
	assert.Len(t, ctrl.Session.Snapshot(), 2)

	ok, failed := ctrl.ExportStats()
	assert.Equal(t, uint64(0), ok)
	assert.Equal(t, uint64(1), failed)
}

func TestControllerConcurrentStopEmitsOnce(t *testing.T) {
	ctrl, _, _ := newTestController()

	var mu sync.Mutex
	var stopped int
	ctrl.OnEvent(func(ev SessionEvent) {
		if ev.Type == EventStopped {
			mu.Lock()
			stopped++
			mu.Unlock()
		}
	})
	require.NoError(t, ctrl.Start())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctrl.Stop()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, stopped)
	assert.Equal(t, measurement.Idle, ctrl.Session.State())
}
