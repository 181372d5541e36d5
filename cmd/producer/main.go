// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/shoulder_measurement/internal/app"
)

func main() {
	configPath := flag.String("config", "./shoulder_config.txt", "path to configuration file")
	flag.Parse()

	cfg, err := app.Init(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	log.Printf("starting shoulder sample producer (%s → MQTT)", cfg.Source)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunProducer(ctx); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
