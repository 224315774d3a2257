// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

// Package metrics exposes the console's Prometheus instrumentation:
// reactor loop health, DMX frame output and command traffic.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// UpdatesTotal counts state-update events processed by the reactor.
	UpdatesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lightboard_updates_total",
			Help: "Total reactor state updates",
		},
	)

	// FramesTotal is total DMX frames rendered (one per render event,
	// regardless of universe count).
	FramesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lightboard_frames_total",
			Help: "Total DMX frames rendered",
		},
	)

	// RenderSeconds is the duration of the most recent render pass.
	RenderSeconds = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "lightboard_render_seconds",
			Help: "Duration of the last DMX render pass in seconds",
		},
	)

	// AutosavesTotal counts autosave files written.
	AutosavesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lightboard_autosaves_total",
			Help: "Total autosave files written",
		},
	)

	// CommandsTotal counts commands by top-level verb.
	CommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lightboard_commands_total",
			Help: "Total commands by verb",
		},
		[]string{"verb"},
	)

	// ErrorsTotal counts errors by kind.
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lightboard_errors_total",
			Help: "Total errors by kind",
		},
		[]string{"kind"},
	)

	// ConnectedClients is the number of live client sessions.
	ConnectedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "lightboard_connected_clients",
			Help: "Connected client sessions",
		},
	)

	// OutputEnabled reflects the grand-master gate.
	OutputEnabled = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "lightboard_output_enabled",
			Help: "DMX output enabled (1) or gated off (0)",
		},
	)
)

// SetOutputEnabled updates the gate metric.
func SetOutputEnabled(enabled bool) {
	if enabled {
		OutputEnabled.Set(1)
	} else {
		OutputEnabled.Set(0)
	}
}
