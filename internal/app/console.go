// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"io"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/shoulder_measurement/internal/config"
	"github.com/relabs-tech/shoulder_measurement/internal/measurement"
)

// FormatEstimates renders the two live readouts the way the measuring
// screen shows them.
func FormatEstimates(e measurement.Estimates) string {
	return fmt.Sprintf("t=%6.2fs  Algorithm 1 (EWMA): %.2f°  Algorithm 2 (Fusion): %.2f°",
		e.ElapsedSeconds, e.Algorithm1, e.Algorithm2)
}

// RunConsole records one session from the configured source, printing
// estimates to out, until ctx ends or duration elapses (zero means no
// limit). The series is exported on exit.
func RunConsole(ctx context.Context, out io.Writer, duration time.Duration) error {
	cfg := config.Get()

	src, srcClient, err := NewSource(cfg)
	if err != nil {
		return err
	}
	if srcClient != nil {
		defer srcClient.Disconnect(250)
	}

	session := measurement.New(src, SessionOptions(cfg))
	ctrl := NewController(session, Exporter(cfg))

	if duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	srcCtx, stopSource := context.WithCancel(ctx)
	defer stopSource()
	go func() {
		if err := src.Run(srcCtx); err != nil {
			log.Errorf("console: sample source stopped: %v", err)
		}
	}()

	return consoleLoop(ctx, out, ctrl)
}

func consoleLoop(ctx context.Context, out io.Writer, ctrl *Controller) error {
	estimates, cancel := ctrl.Session.Subscribe()
	defer cancel()

	if err := ctrl.Start(); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			ctrl.Stop()
			return finishConsole(out, ctrl)
		case e := <-estimates:
			fmt.Fprintln(out, FormatEstimates(e))
		}
	}
}

func finishConsole(out io.Writer, ctrl *Controller) error {
	sum := measurement.Summarize(ctrl.Session.Snapshot())
	fmt.Fprintf(out, "\n%d points over %.2fs\n", sum.Points, sum.DurationSeconds)
	fmt.Fprintf(out, "Algorithm 1 (EWMA):   mean %.2f°  sd %.2f°  range [%.2f°, %.2f°]\n",
		sum.Algorithm1.Mean, sum.Algorithm1.StdDev, sum.Algorithm1.Min, sum.Algorithm1.Max)
	fmt.Fprintf(out, "Algorithm 2 (Fusion): mean %.2f°  sd %.2f°  range [%.2f°, %.2f°]\n",
		sum.Algorithm2.Mean, sum.Algorithm2.StdDev, sum.Algorithm2.Min, sum.Algorithm2.Max)
	fmt.Fprintf(out, "RMS difference: %.2f°\n", sum.RMSDifference)

	path, err := ctrl.Export()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Data exported to %s\n", path)
	return nil
}
