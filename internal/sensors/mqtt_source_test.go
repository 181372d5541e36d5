package sensors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/shoulder_measurement/internal/imu"
)

func TestMQTTSourceHandlePayload(t *testing.T) {
	s := NewMQTTSource(nil, "shoulder/samples")

	var got []imu.Sample
	require.NoError(t, s.Subscribe(imu.AngularVelocity, func(v imu.Sample) { got = append(got, v) }))

	s.handlePayload([]byte(`{"kind":"angular_velocity","x":0.1,"y":0.2,"z":0.3,"timestamp_ns":5}`))
	s.handlePayload([]byte(`{"kind":"linear_acceleration","x":0,"y":1,"z":0,"timestamp_ns":6}`))
	s.handlePayload([]byte(`not json`))
	s.handlePayload([]byte(`{"kind":"magnetic_field"}`))

	require.Len(t, got, 1)
	assert.Equal(t, int64(5), got[0].TimestampNs)
	assert.Equal(t, 0.2, got[0].Y)

	delivered, dropped := s.Stats()
	assert.Equal(t, uint64(1), delivered)
	assert.Equal(t, uint64(1), dropped) // accel had no subscriber
}
