// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/shoulder_measurement/internal/config"
	"github.com/relabs-tech/shoulder_measurement/internal/measurement"
)

// RunConsoleMQTT prints estimates and session events published by another
// process until ctx ends.
func RunConsoleMQTT(ctx context.Context, out io.Writer) error {
	cfg := config.Get()

	client, err := connectMQTT(cfg, "console")
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	estToken := client.Subscribe(cfg.TopicEstimates, 0, func(_ mqtt.Client, msg mqtt.Message) {
		printEstimates(out, msg.Payload())
	})
	estToken.Wait()
	if estToken.Error() != nil {
		return estToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicEstimates)

	sessToken := client.Subscribe(cfg.TopicSession, 1, func(_ mqtt.Client, msg mqtt.Message) {
		printSessionEvent(out, msg.Payload())
	})
	sessToken.Wait()
	if sessToken.Error() != nil {
		return sessToken.Error()
	}
	log.Printf("console: subscribed to %s", cfg.TopicSession)

	<-ctx.Done()
	log.Println("console: shutting down")
	return nil
}

func printEstimates(out io.Writer, payload []byte) {
	var e measurement.Estimates
	if err := json.Unmarshal(payload, &e); err != nil {
		log.Printf("console: estimates unmarshal error: %v", err)
		return
	}
	fmt.Fprintln(out, FormatEstimates(e))
}

func printSessionEvent(out io.Writer, payload []byte) {
	var ev SessionEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		log.Printf("console: session event unmarshal error: %v", err)
		return
	}
	switch ev.Type {
	case EventExported:
		fmt.Fprintf(out, "[SESSION] %s exported %d points to %s\n", ev.SessionID, ev.Points, ev.Path)
	default:
		fmt.Fprintf(out, "[SESSION] %s %s (%d points)\n", ev.SessionID, ev.Type, ev.Points)
	}
}
