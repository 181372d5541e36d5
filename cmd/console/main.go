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
	duration := flag.Duration("duration", 0, "stop and export after this long (0 = until Ctrl+C)")
	flag.Parse()

	if _, err := app.Init(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	log.Println("starting shoulder measurement console")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunConsole(ctx, os.Stdout, *duration); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
