// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

// Package protocol defines the command/response envelopes and client
// filter tags exchanged between transports (WebSocket, MQTT) and the
// reactor. Go has no sum types, so each "variant" family is modeled as
// a flat struct with a string Verb tag plus the fields that verb actually
// uses, nested per command family.
package protocol

// ClientID identifies one connected client session.
type ClientID uint64

// Filter governs which clients receive an outbound response.
type Filter int

const (
	FilterAll Filter = iota
	FilterExclusive
	FilterAllButSelf
)

func (f Filter) String() string {
	switch f {
	case FilterExclusive:
		return "exclusive"
	case FilterAllButSelf:
		return "all_but_self"
	default:
		return "all"
	}
}

// ClientData tags a command with its originating client and the filter it
// wants applied to any response it provokes.
type ClientData struct {
	ID     ClientID
	Filter Filter
}

// CommandEnvelope is what a client session sends to the reactor.
type CommandEnvelope struct {
	ClientData ClientData
	Payload    Command
}

// ResponseEnvelope is what the reactor sends to the router. A nil
// ClientData means "broadcast".
type ResponseEnvelope struct {
	ClientData *ClientData
	Payload    Response
}
