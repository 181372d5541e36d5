// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/shoulder_measurement/internal/config"
	"github.com/relabs-tech/shoulder_measurement/internal/imu"
	"github.com/relabs-tech/shoulder_measurement/internal/sensors"
)

// forwardSamples publishes every sample src delivers as JSON on topic.
// Streams the source cannot provide are skipped.
func forwardSamples(src sensors.Source, client mqtt.Client, topic string) (int, error) {
	var forwarded int
	for _, kind := range imu.Kinds {
		err := src.Subscribe(kind, func(s imu.Sample) {
			payload, err := json.Marshal(s)
			if err != nil {
				log.Printf("producer: sample marshal error: %v", err)
				return
			}
			client.Publish(topic, 0, false, payload)
		})
		switch {
		case err == nil:
			forwarded++
		case errors.Is(err, sensors.ErrSensorUnavailable):
			log.Warnf("producer: %v, not forwarding it", err)
		default:
			return forwarded, err
		}
	}
	if forwarded == 0 {
		return 0, fmt.Errorf("producer: no sample streams available: %w", sensors.ErrSensorUnavailable)
	}
	return forwarded, nil
}

// RunProducer reads the configured sensor and publishes raw samples to
// TOPIC_SAMPLES for a remote session (SOURCE=mqtt on the other end).
func RunProducer(ctx context.Context) error {
	cfg := config.Get()
	if cfg.Source == config.SourceMQTT {
		return fmt.Errorf("producer: SOURCE=mqtt would republish its own input")
	}

	src, _, err := NewSource(cfg)
	if err != nil {
		return err
	}

	client, err := connectMQTT(cfg, "producer")
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	n, err := forwardSamples(src, client, cfg.TopicSamples)
	if err != nil {
		return err
	}
	log.Printf("producer: forwarding %d streams to %s", n, cfg.TopicSamples)

	return src.Run(ctx)
}
