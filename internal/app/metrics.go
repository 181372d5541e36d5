// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/relabs-tech/shoulder_measurement/internal/measurement"
)

// statser is implemented by every sensors.Hub based source.
type statser interface {
	Stats() (uint64, uint64)
}

// NewMetrics registers gauges and counters for the controller's session on
// a private registry and returns its /metrics handler. src may be nil.
func NewMetrics(c *Controller, src statser) http.Handler {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	latest := func(pick func(measurement.Estimates) float64) func() float64 {
		return func() float64 {
			e, ok := c.Session.Latest()
			if !ok {
				return 0
			}
			return pick(e)
		}
	}

	f.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace:   "shoulder",
		Subsystem:   "angle",
		Name:        "degrees",
		ConstLabels: prometheus.Labels{"algorithm": "ewma"},
	}, latest(func(e measurement.Estimates) float64 { return e.Algorithm1 }))

	f.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace:   "shoulder",
		Subsystem:   "angle",
		Name:        "degrees",
		ConstLabels: prometheus.Labels{"algorithm": "fusion"},
	}, latest(func(e measurement.Estimates) float64 { return e.Algorithm2 }))

	f.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "shoulder",
		Subsystem: "session",
		Name:      "elapsed_seconds",
	}, latest(func(e measurement.Estimates) float64 { return e.ElapsedSeconds }))

	f.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "shoulder",
		Subsystem: "session",
		Name:      "running",
	}, func() float64 {
		if c.Session.State() == measurement.Running {
			return 1
		}
		return 0
	})

	f.NewCounterFunc(prometheus.CounterOpts{
		Namespace: "shoulder",
		Subsystem: "session",
		Name:      "samples_processed_total",
	}, func() float64 {
		processed, _ := c.Session.Stats()
		return float64(processed)
	})

	f.NewCounterFunc(prometheus.CounterOpts{
		Namespace: "shoulder",
		Subsystem: "session",
		Name:      "samples_rejected_total",
	}, func() float64 {
		_, rejected := c.Session.Stats()
		return float64(rejected)
	})

	f.NewCounterFunc(prometheus.CounterOpts{
		Namespace:   "shoulder",
		Subsystem:   "export",
		Name:        "total",
		ConstLabels: prometheus.Labels{"result": "ok"},
	}, func() float64 {
		ok, _ := c.ExportStats()
		return float64(ok)
	})

	f.NewCounterFunc(prometheus.CounterOpts{
		Namespace:   "shoulder",
		Subsystem:   "export",
		Name:        "total",
		ConstLabels: prometheus.Labels{"result": "error"},
	}, func() float64 {
		_, failed := c.ExportStats()
		return float64(failed)
	})

	if src != nil {
		f.NewCounterFunc(prometheus.CounterOpts{
			Namespace: "shoulder",
			Subsystem: "source",
			Name:      "samples_dropped_total",
			Help:      "Samples that arrived for a stream with no subscriber.",
		}, func() float64 {
			_, dropped := src.Stats()
			return float64(dropped)
		})
	}

	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
