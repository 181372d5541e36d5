package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/shoulder_measurement/internal/config"
	"github.com/relabs-tech/shoulder_measurement/internal/imu"
	"github.com/relabs-tech/shoulder_measurement/internal/orientation"
	"github.com/relabs-tech/shoulder_measurement/internal/sensors"
)

func TestSessionOptionsFromConfig(t *testing.T) {
	cfg := config.Default()
	opts := SessionOptions(cfg)
	assert.Equal(t, 0.1, opts.Alpha)
	assert.Equal(t, 0.98, opts.Beta)
	assert.Equal(t, 0.05, opts.StepSeconds)
	assert.Equal(t, orientation.TimestepSeconds, opts.TimestepMode)

	cfg.GyroLegacyTimestep = true
	assert.Equal(t, orientation.TimestepLegacy, SessionOptions(cfg).TimestepMode)
}

func TestExporterFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.ExportDir = "/data/exports"
	e := Exporter(cfg)
	assert.Equal(t, "/data/exports", e.Dir)
	assert.Equal(t, "shoulder_measurement", e.Prefix)
}

func TestNewSourceMock(t *testing.T) {
	cfg := config.Default()
	cfg.MockGyroEnabled = false

	src, client, err := NewSource(cfg)
	require.NoError(t, err)
	assert.Nil(t, client)
	require.IsType(t, &sensors.MockSource{}, src)
	assert.ErrorIs(t, src.Subscribe(imu.AngularVelocity, func(imu.Sample) {}), sensors.ErrSensorUnavailable)

	cfg.Source = "carrier-pigeon"
	_, _, err = NewSource(cfg)
	assert.Error(t, err)
}
