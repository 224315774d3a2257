// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

// Package ws is the WebSocket client transport: one connection per client
// session, feeding the reactor's command channel and draining a router
// mailbox. It also serves the Prometheus metrics endpoint and a small
// health surface.
package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/pierrej/lightboard-core/internal/metrics"
	"github.com/pierrej/lightboard-core/internal/protocol"
	"github.com/pierrej/lightboard-core/internal/router"
)

var startTime = time.Now()

// commandMessage is the wire form of one inbound client command.
type commandMessage struct {
	Filter  string           `json:"filter,omitempty"`
	Command protocol.Command `json:"command"`
}

// Server accepts WebSocket sessions and bridges them onto the reactor's
// channels.
type Server struct {
	addr     string
	logger   *slog.Logger
	commands chan<- protocol.CommandEnvelope
	router   *router.Router

	nextClientID atomic.Uint64
	server       *http.Server
	upgrader     websocket.Upgrader
}

// NewServer builds the transport listening on addr.
func NewServer(addr string, logger *slog.Logger, commands chan<- protocol.CommandEnvelope, rt *router.Router) *Server {
	s := &Server{
		addr:     addr,
		logger:   logger,
		commands: commands,
		router:   rt,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())

	s.server = &http.Server{Addr: addr, Handler: mux}
	return s
}

// Start begins serving in a background goroutine.
func (s *Server) Start() {
	s.logger.Info("Starting WebSocket transport", "addr", s.addr)
	go func() {
		if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", "error", err)
		}
	}()
}

// Shutdown gracefully shuts down the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func parseFilter(s string) protocol.Filter {
	switch s {
	case "exclusive":
		return protocol.FilterExclusive
	case "all_but_self":
		return protocol.FilterAllButSelf
	default:
		return protocol.FilterAll
	}
}

// handleWebSocket runs one client session: a read goroutine parsing
// commands into the reactor channel and a write loop serializing all
// outbound traffic, so the connection never sees concurrent writes.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("WebSocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	id := protocol.ClientID(s.nextClientID.Add(1))
	mailbox := s.router.Register(id)
	defer s.router.Unregister(id)

	metrics.ConnectedClients.Inc()
	defer metrics.ConnectedClients.Dec()

	s.logger.Debug("WebSocket client connected", "id", id, "remote", r.RemoteAddr)

	// Flood guard: sustained 100 commands/s with a burst of 25.
	limiter := rate.NewLimiter(rate.Limit(100), 25)

	outgoing := make(chan []byte, 100)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					s.logger.Debug("WebSocket read error", "error", err)
				}
				return
			}
			s.handleMessage(id, message, limiter, outgoing)
		}
	}()

	for {
		select {
		case data := <-outgoing:
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				s.logger.Debug("WebSocket write error", "error", err)
				return
			}
		case resp, ok := <-mailbox:
			if !ok {
				return
			}
			data, err := json.Marshal(resp)
			if err != nil {
				s.logger.Error("WebSocket marshal failed", "error", err)
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				s.logger.Debug("WebSocket write error", "error", err)
				return
			}
		case <-done:
			return
		}
	}
}

func (s *Server) handleMessage(id protocol.ClientID, message []byte, limiter *rate.Limiter, outgoing chan<- []byte) {
	if !limiter.Allow() {
		s.sendError(outgoing, fmt.Errorf("command rate limit exceeded"))
		return
	}

	var msg commandMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		s.sendError(outgoing, fmt.Errorf("invalid command: %w", err))
		return
	}

	s.commands <- protocol.CommandEnvelope{
		ClientData: protocol.ClientData{ID: id, Filter: parseFilter(msg.Filter)},
		Payload:    msg.Command,
	}
}

func (s *Server) sendError(outgoing chan<- []byte, err error) {
	data, merr := json.Marshal(protocol.ErrorResponse(err))
	if merr != nil {
		return
	}
	select {
	case outgoing <- data:
	default:
	}
}

// healthResponse is the read-only process health surface.
type healthResponse struct {
	UptimeSec  int     `json:"uptime_sec"`
	UptimeStr  string  `json:"uptime"`
	Goroutines int     `json:"goroutines"`
	CPULoad1m  float64 `json:"cpu_load_1m"`
	CPULoad5m  float64 `json:"cpu_load_5m"`
	CPULoad15m float64 `json:"cpu_load_15m"`
	MemAllocMB float64 `json:"mem_alloc_mb"`
	MemSysMB   float64 `json:"mem_sys_mb"`
	MemHeapMB  float64 `json:"mem_heap_mb"`
	GCRuns     uint32  `json:"gc_runs"`
	GoVersion  string  `json:"go_version"`
	NumCPU     int     `json:"num_cpu"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	// CPU load from /proc/loadavg (Linux only)
	var load1, load5, load15 float64
	if data, err := os.ReadFile("/proc/loadavg"); err == nil {
		fmt.Sscanf(string(data), "%f %f %f", &load1, &load5, &load15)
	}

	health := healthResponse{
		UptimeSec:  int(time.Since(startTime).Seconds()),
		UptimeStr:  time.Since(startTime).Round(time.Second).String(),
		Goroutines: runtime.NumGoroutine(),
		CPULoad1m:  load1,
		CPULoad5m:  load5,
		CPULoad15m: load15,
		MemAllocMB: float64(m.Alloc) / 1024 / 1024,
		MemSysMB:   float64(m.Sys) / 1024 / 1024,
		MemHeapMB:  float64(m.HeapAlloc) / 1024 / 1024,
		GCRuns:     m.NumGC,
		GoVersion:  runtime.Version(),
		NumCPU:     runtime.NumCPU(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(health)
}
