// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/shoulder_measurement/internal/measurement"
)

// Session events published to observers.
const (
	EventStarted  = "started"
	EventStopped  = "stopped"
	EventExported = "exported"
)

// SessionEvent describes a change of session state or a finished export.
type SessionEvent struct {
	Type      string    `json:"type"`
	SessionID string    `json:"session_id"`
	Points    int       `json:"points"`
	Path      string    `json:"path,omitempty"`
	Time      time.Time `json:"time"`
}

// Recorder saves a recorded series and returns where it went.
type Recorder interface {
	Export(points []measurement.AnglePoint) (string, error)
}

// Controller is the start/stop/export surface shared by every host.
type Controller struct {
	Session  *measurement.Session
	Recorder Recorder

	mu        sync.Mutex
	observers []func(SessionEvent)
	exports   uint64
	failures  uint64
}

func NewController(s *measurement.Session, r Recorder) *Controller {
	return &Controller{Session: s, Recorder: r}
}

// OnEvent registers fn for every future event. fn must not block.
func (c *Controller) OnEvent(fn func(SessionEvent)) {
	c.mu.Lock()
	c.observers = append(c.observers, fn)
	c.mu.Unlock()
}

func (c *Controller) Start() error {
	if err := c.Session.Start(); err != nil {
		return err
	}
	c.emit(EventStarted, "")
	return nil
}

// Stop emits EventStopped only for the call that actually stopped the
// session.
func (c *Controller) Stop() {
	if c.Session.Stop() {
		c.emit(EventStopped, "")
	}
}

// Export writes the current series. A failed export leaves the session
// untouched, running or not.
func (c *Controller) Export() (string, error) {
	path, err := c.Recorder.Export(c.Session.Snapshot())

	c.mu.Lock()
	if err != nil {
		c.failures++
	} else {
		c.exports++
	}
	c.mu.Unlock()

	if err != nil {
		log.Printf("export failed: %v", err)
		return "", err
	}
	c.emit(EventExported, path)
	return path, nil
}

// ExportStats returns (succeeded, failed) export counts.
func (c *Controller) ExportStats() (uint64, uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exports, c.failures
}

func (c *Controller) emit(typ, path string) {
	ev := SessionEvent{
		Type:      typ,
		SessionID: c.Session.ID(),
		Points:    len(c.Session.Snapshot()),
		Path:      path,
		Time:      time.Now(),
	}
	c.mu.Lock()
	observers := append([]func(SessionEvent){}, c.observers...)
	c.mu.Unlock()

	for _, fn := range observers {
		fn(ev)
	}
}
