// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/relabs-tech/shoulder_measurement/internal/imu"
)

// ErrSensorUnavailable is returned when a stream has no backing hardware or
// driver. Callers treat it as "this kind of sample will never arrive".
var ErrSensorUnavailable = errors.New("sensor unavailable")

// Handler receives samples for one stream. It is called from the source's
// own goroutine.
type Handler func(imu.Sample)

// Source delivers samples to at most one handler per stream.
type Source interface {
	Subscribe(kind imu.Kind, h Handler) error
	Unsubscribe(kind imu.Kind)
}

// Runner is a Source that pumps samples until ctx is cancelled.
type Runner interface {
	Source
	Run(ctx context.Context) error
}

// Hub is the subscription table shared by every adapter in this package.
// Samples for a stream nobody is listening to are counted and dropped.
type Hub struct {
	mu        sync.RWMutex
	available map[imu.Kind]bool
	handlers  map[imu.Kind]Handler

	delivered uint64
	dropped   uint64
}

// NewHub creates a hub that accepts subscriptions for the given kinds.
func NewHub(kinds ...imu.Kind) *Hub {
	h := &Hub{
		available: make(map[imu.Kind]bool, len(kinds)),
		handlers:  make(map[imu.Kind]Handler, len(kinds)),
	}
	for _, k := range kinds {
		h.available[k] = true
	}
	return h
}

func (h *Hub) Subscribe(kind imu.Kind, fn Handler) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if !h.available[kind] {
		return fmt.Errorf("%s: %w", kind, ErrSensorUnavailable)
	}
	h.handlers[kind] = fn
	return nil
}

func (h *Hub) Unsubscribe(kind imu.Kind) {
	h.mu.Lock()
	delete(h.handlers, kind)
	h.mu.Unlock()
}

// SetAvailable marks a stream as present or absent. Marking it absent also
// drops its current subscriber.
func (h *Hub) SetAvailable(kind imu.Kind, ok bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.available[kind] = ok
	if !ok {
		delete(h.handlers, kind)
	}
}

// Available reports whether Subscribe would accept the kind.
func (h *Hub) Available(kind imu.Kind) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.available[kind]
}

// Deliver hands s to the subscriber of its stream. The handler runs outside
// the hub lock so it may call Unsubscribe.
func (h *Hub) Deliver(s imu.Sample) bool {
	h.mu.RLock()
	fn := h.handlers[s.Kind]
	h.mu.RUnlock()

	if fn == nil {
		atomic.AddUint64(&h.dropped, 1)
		return false
	}
	fn(s)
	atomic.AddUint64(&h.delivered, 1)
	return true
}

// Stats returns (delivered, dropped) counts.
func (h *Hub) Stats() (uint64, uint64) {
	return atomic.LoadUint64(&h.delivered), atomic.LoadUint64(&h.dropped)
}
