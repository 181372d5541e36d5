// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"context"
	"encoding/json"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/shoulder_measurement/internal/imu"
)

// MQTTSource replays samples published as JSON imu.Sample payloads on a
// single topic, typically by cmd/producer running next to the sensor.
type MQTTSource struct {
	*Hub
	client mqtt.Client
	topic  string
}

// NewMQTTSource uses an already connected client.
func NewMQTTSource(client mqtt.Client, topic string) *MQTTSource {
	return &MQTTSource{
		Hub:    NewHub(imu.Kinds...),
		client: client,
		topic:  topic,
	}
}

func (s *MQTTSource) Run(ctx context.Context) error {
	token := s.client.Subscribe(s.topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		s.handlePayload(msg.Payload())
	})
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt source: subscribe %s: %w", s.topic, err)
	}
	log.Printf("mqtt source: subscribed to %s", s.topic)

	<-ctx.Done()

	if t := s.client.Unsubscribe(s.topic); t.Wait() && t.Error() != nil {
		log.Printf("mqtt source: unsubscribe error: %v", t.Error())
	}
	return nil
}

func (s *MQTTSource) handlePayload(payload []byte) {
	var sample imu.Sample
	if err := json.Unmarshal(payload, &sample); err != nil {
		log.Printf("mqtt source: sample unmarshal error: %v", err)
		return
	}
	s.Deliver(sample)
}
