// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/shoulder_measurement/internal/measurement"
)

// Publisher mirrors live estimates and session events onto MQTT.
type Publisher struct {
	client         mqtt.Client
	topicEstimates string
	topicSession   string
}

func NewPublisher(client mqtt.Client, topicEstimates, topicSession string) *Publisher {
	return &Publisher{client: client, topicEstimates: topicEstimates, topicSession: topicSession}
}

// Run forwards the session's estimates until ctx is cancelled.
func (p *Publisher) Run(ctx context.Context, s *measurement.Session) {
	estimates, cancel := s.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-estimates:
			if !ok {
				return
			}
			p.PublishEstimates(e)
		}
	}
}

// PublishEstimates sends at QoS 0 without waiting; a lost estimate is
// superseded by the next one anyway.
func (p *Publisher) PublishEstimates(e measurement.Estimates) {
	payload, err := json.Marshal(e)
	if err != nil {
		log.Printf("publisher: estimates marshal error: %v", err)
		return
	}
	p.client.Publish(p.topicEstimates, 0, false, payload)
}

// PublishEvent sends retained at QoS 1 so late subscribers see the
// current session state.
func (p *Publisher) PublishEvent(ev SessionEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		log.Printf("publisher: event marshal error: %v", err)
		return
	}
	token := p.client.Publish(p.topicSession, 1, true, payload)
	go func() {
		token.Wait()
		if token.Error() != nil {
			log.Printf("publisher: event publish error: %v", token.Error())
		}
	}()
	log.Printf("publisher: session %s %s", ev.SessionID, ev.Type)
}
