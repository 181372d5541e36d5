// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/shoulder_measurement/internal/config"
	"github.com/relabs-tech/shoulder_measurement/internal/measurement"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// WSCommand is sent by the browser to control the session.
type WSCommand struct {
	Command string `json:"command"` // start, stop or export
}

// WSMessage is everything the server pushes over the websocket.
type WSMessage struct {
	Type      string                 `json:"type"` // estimates, state, exported, error
	Estimates *measurement.Estimates `json:"estimates,omitempty"`
	State     string                 `json:"state,omitempty"`
	Path      string                 `json:"path,omitempty"`
	Error     string                 `json:"error,omitempty"`
}

type statusResponse struct {
	State     string `json:"state"`
	SessionID string `json:"session_id,omitempty"`
	Points    int    `json:"points"`
}

// WebServer exposes the controller over HTTP and a websocket stream.
type WebServer struct {
	ctrl      *Controller
	metrics   http.Handler
	staticDir string
}

func NewWebServer(ctrl *Controller, metrics http.Handler, staticDir string) *WebServer {
	return &WebServer{ctrl: ctrl, metrics: metrics, staticDir: staticDir}
}

func (s *WebServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/session/start", s.handleStart)
	mux.HandleFunc("POST /api/session/stop", s.handleStop)
	mux.HandleFunc("GET /api/session", s.handleStatus)
	mux.HandleFunc("POST /api/export", s.handleExport)
	mux.HandleFunc("GET /api/angles", s.handleAngles)
	mux.HandleFunc("GET /api/series", s.handleSeries)
	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("/ws", s.handleWS)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}
	if s.staticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(s.staticDir)))
	}
	return mux
}

func (s *WebServer) status() statusResponse {
	sess := s.ctrl.Session
	return statusResponse{
		State:     sess.State().String(),
		SessionID: sess.ID(),
		Points:    len(sess.Snapshot()),
	}
}

func (s *WebServer) handleStart(w http.ResponseWriter, r *http.Request) {
	if err := s.ctrl.Start(); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, s.status())
}

func (s *WebServer) handleStop(w http.ResponseWriter, r *http.Request) {
	s.ctrl.Stop()
	writeJSON(w, s.status())
}

func (s *WebServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.status())
}

func (s *WebServer) handleExport(w http.ResponseWriter, r *http.Request) {
	path, err := s.ctrl.Export()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, map[string]string{"path": path})
}

func (s *WebServer) handleAngles(w http.ResponseWriter, r *http.Request) {
	e, ok := s.ctrl.Session.Latest()
	if !ok {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, e)
}

func (s *WebServer) handleSeries(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.ctrl.Session.Snapshot())
}

func (s *WebServer) handleSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, measurement.Summarize(s.ctrl.Session.Snapshot()))
}

func (s *WebServer) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web: websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	var writeMu sync.Mutex
	send := func(m WSMessage) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteJSON(m)
	}

	estimates, cancel := s.ctrl.Session.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var cmd WSCommand
			if err := conn.ReadJSON(&cmd); err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Printf("web: websocket read error: %v", err)
				}
				return
			}
			if err := send(s.runCommand(cmd)); err != nil {
				return
			}
		}
	}()

	if err := send(WSMessage{Type: "state", State: s.ctrl.Session.State().String()}); err != nil {
		return
	}
	for {
		select {
		case <-done:
			return
		case e, ok := <-estimates:
			if !ok {
				return
			}
			if err := send(WSMessage{Type: "estimates", Estimates: &e}); err != nil {
				log.Debugf("web: websocket write error: %v", err)
				return
			}
		}
	}
}

func (s *WebServer) runCommand(cmd WSCommand) WSMessage {
	switch cmd.Command {
	case "start":
		if err := s.ctrl.Start(); err != nil {
			return WSMessage{Type: "error", Error: err.Error()}
		}
	case "stop":
		s.ctrl.Stop()
	case "export":
		path, err := s.ctrl.Export()
		if err != nil {
			return WSMessage{Type: "error", Error: err.Error()}
		}
		return WSMessage{Type: "exported", Path: path}
	default:
		return WSMessage{Type: "error", Error: fmt.Sprintf("unknown command %q", cmd.Command)}
	}
	return WSMessage{Type: "state", State: s.ctrl.Session.State().String()}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("web: json encode error: %v", err)
	}
}

func writeError(w http.ResponseWriter, code int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if encErr := json.NewEncoder(w).Encode(map[string]string{"error": err.Error()}); encErr != nil {
		log.Printf("web: json encode error: %v", encErr)
	}
}

// RunWeb hosts a measurement session behind the HTTP API until ctx ends.
func RunWeb(ctx context.Context) error {
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

	if cfg.MQTTPublish {
		client, err := connectMQTT(cfg, "web")
		if err != nil {
			return err
		}
		defer client.Disconnect(250)
		pub := NewPublisher(client, cfg.TopicEstimates, cfg.TopicSession)
		ctrl.OnEvent(pub.PublishEvent)
		go pub.Run(ctx, session)
	}

	go func() {
		if err := src.Run(ctx); err != nil {
			log.Errorf("web: sample source stopped: %v", err)
		}
	}()

	stats, _ := src.(statser)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.WebServerPort),
		Handler: NewWebServer(ctrl, NewMetrics(ctrl, stats), "web").Handler(),
	}
	go func() {
		<-ctx.Done()
		ctrl.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("web: shutdown error: %v", err)
		}
	}()

	log.Printf("web server listening on %s", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
