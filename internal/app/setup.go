// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/shoulder_measurement/internal/config"
	"github.com/relabs-tech/shoulder_measurement/internal/export"
	"github.com/relabs-tech/shoulder_measurement/internal/measurement"
	"github.com/relabs-tech/shoulder_measurement/internal/orientation"
	"github.com/relabs-tech/shoulder_measurement/internal/sensors"
)

// Init loads the global configuration and applies its log level. Every
// command calls it first.
func Init(configPath string) (*config.Config, error) {
	if err := config.InitGlobal(configPath); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg := config.Get()

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	log.SetLevel(level)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	return cfg, nil
}

// SessionOptions maps configuration onto estimator options.
func SessionOptions(cfg *config.Config) measurement.Options {
	opts := measurement.Options{
		Alpha:       cfg.EWMAAlpha,
		Beta:        cfg.FusionBeta,
		StepSeconds: cfg.SampleStepSeconds,
	}
	if cfg.GyroLegacyTimestep {
		opts.TimestepMode = orientation.TimestepLegacy
		log.Warn("gyro integration uses the legacy timestep; angles will be scaled by 1e18")
	}
	return opts
}

func Exporter(cfg *config.Config) export.CSVExporter {
	return export.CSVExporter{Dir: cfg.ExportDir, Prefix: cfg.ExportPrefix}
}

// NewSource builds the sample source selected by SOURCE. For the mqtt
// source the returned client must be disconnected by the caller.
func NewSource(cfg *config.Config) (sensors.Runner, mqtt.Client, error) {
	switch cfg.Source {
	case config.SourceMock:
		log.Printf("using mock sample source (gyro=%t)", cfg.MockGyroEnabled)
		return sensors.NewMockSource(time.Duration(cfg.MockIntervalMs)*time.Millisecond, cfg.MockGyroEnabled), nil, nil

	case config.SourceMPU9250:
		src, err := sensors.NewMPU9250Source(cfg.IMUSPIDevice, cfg.IMUCSPin,
			time.Duration(cfg.IMUSampleInterval)*time.Millisecond)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("using MPU9250 on %s", cfg.IMUSPIDevice)
		return src, nil, nil

	case config.SourceSerial:
		log.Printf("using serial sample source on %s", cfg.SerialPort)
		return sensors.NewSerialSource(cfg.SerialPort, uint(cfg.SerialBaudRate)), nil, nil

	case config.SourceMQTT:
		client, err := connectMQTT(cfg, "source")
		if err != nil {
			return nil, nil, err
		}
		return sensors.NewMQTTSource(client, cfg.TopicSamples), client, nil
	}
	return nil, nil, fmt.Errorf("unknown source %q", cfg.Source)
}

// connectMQTT connects with a client id derived from MQTT_CLIENT_ID so
// several commands can share a broker.
func connectMQTT(cfg *config.Config, role string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientID + "-" + role)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("MQTT connect %s: %w", cfg.MQTTBroker, token.Error())
	}
	log.Printf("%s: connected to MQTT broker at %s", role, cfg.MQTTBroker)
	return client, nil
}
