// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

// Package router implements the response router: single consumer of the
// reactor's outbound channel, fanning out to per-client send channels
// with Quit/All/Exclusive/AllButSelf filtering and dead-client reaping.
package router

import (
	"log/slog"
	"sync"

	"github.com/pierrej/lightboard-core/internal/protocol"
)

// Client is one connected session's outbound mailbox. Sends never block
// indefinitely: a full or closed channel marks the client for removal.
type Client struct {
	ID protocol.ClientID
	Ch chan protocol.Response
}

// Router is the single consumer of the reactor's response channel.
type Router struct {
	logger *slog.Logger

	mu      sync.Mutex
	clients map[protocol.ClientID]chan protocol.Response

	in   <-chan protocol.ResponseEnvelope
	done chan struct{}
}

// New constructs a router reading from in.
func New(logger *slog.Logger, in <-chan protocol.ResponseEnvelope) *Router {
	return &Router{
		logger:  logger,
		clients: make(map[protocol.ClientID]chan protocol.Response),
		in:      in,
		done:    make(chan struct{}),
	}
}

// Register adds a client mailbox, returning a channel to receive on. The
// caller (a WebSocket/MQTT session) owns draining it.
func (r *Router) Register(id protocol.ClientID) chan protocol.Response {
	ch := make(chan protocol.Response, 64)
	r.mu.Lock()
	r.clients[id] = ch
	r.mu.Unlock()
	return ch
}

// Unregister removes a client mailbox (session closed locally, not via a
// failed send — those are reaped by Run).
func (r *Router) Unregister(id protocol.ClientID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ch, ok := r.clients[id]; ok {
		delete(r.clients, id)
		close(ch)
	}
}

// Run blocks consuming the response channel until it is closed or a Quit
// is routed. It is meant to run in its own goroutine; the reactor and
// this router communicate only through the channel.
func (r *Router) Run() {
	defer close(r.done)
	for env := range r.in {
		if r.route(env) {
			return
		}
	}
}

// Stop signals completion to callers waiting via Done.
func (r *Router) Done() <-chan struct{} { return r.done }

// route delivers one envelope and reports whether the router should
// terminate (a Quit response was routed).
func (r *Router) route(env protocol.ResponseEnvelope) (terminate bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var targets []protocol.ClientID
	switch {
	case env.ClientData == nil:
		targets = r.allLocked()
	case env.ClientData.Filter == protocol.FilterAll:
		targets = r.allLocked()
	case env.ClientData.Filter == protocol.FilterExclusive:
		targets = []protocol.ClientID{env.ClientData.ID}
	case env.ClientData.Filter == protocol.FilterAllButSelf:
		for id := range r.clients {
			if id != env.ClientData.ID {
				targets = append(targets, id)
			}
		}
	default:
		targets = r.allLocked()
	}

	var dead []protocol.ClientID
	for _, id := range targets {
		ch, ok := r.clients[id]
		if !ok {
			continue
		}
		select {
		case ch <- env.Payload:
		default:
			dead = append(dead, id)
		}
	}
	for _, id := range dead {
		if ch, ok := r.clients[id]; ok {
			delete(r.clients, id)
			close(ch)
		}
	}

	return env.Payload.Type == "Quit"
}

func (r *Router) allLocked() []protocol.ClientID {
	out := make([]protocol.ClientID, 0, len(r.clients))
	for id := range r.clients {
		out = append(out, id)
	}
	return out
}
