// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

// Package clocknet implements the clock subnetwork: a DAG of
// clock nodes producing phase/tick/time values, where clocks may drive
// other clocks (multipliers, triggered ramps).
package clocknet

import (
	"time"

	"github.com/pierrej/lightboard-core/internal/dag"
	"github.com/pierrej/lightboard-core/internal/knob"
)

// Tag distinguishes clock ids from wiggle ids at the type level.
type Tag struct{}

// ID is a clock node identifier.
type ID = dag.ID[Tag]

// KnobAddr is a clock knob address lifted to network scope.
type KnobAddr = knob.NodeAddr[Tag]

// Value is a clock's phase/tick/ticked triple.
type Value struct {
	Phase     float64
	TickCount int64
	Ticked    bool
}

// Provider resolves a clock id to its current value. Render is on-demand;
// a Provider caches nothing across frames. A multiplier's Render does
// remember the upstream value it last saw, to derive its ticked flag.
type Provider interface {
	Value(id ID) Value
}

// Node is the capability contract every clock payload implements.
type Node interface {
	dag.Payload
	knob.Bearer
	Class() string
	Name() string
	SetName(string)
	Update(dt time.Duration) ([]any, error)
	Render(inputs []dag.OptionalID[Tag], provider Provider) Value
	// Encode returns the node's own opaque self-encoding for the
	// {class, blob} serialization scheme.
	Encode() (string, error)
}

// Decoder rebuilds a Node payload from its class-tagged opaque blob.
type Decoder func(blob string) (Node, error)

// KnobChangedMessage is the outbound message a clock payload emits from
// Update or SetKnob when it changes one of its own knobs (a Button
// auto-reset, for example); the caller propagates it.
type KnobChangedMessage struct {
	Addr  knob.LocalAddr
	Value knob.Value
}
