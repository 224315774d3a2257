// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

// Package wigglenet implements the wiggle subnetwork: signal
// generator/processor nodes that consume clock values and other wiggle
// values to produce typed unipolar/bipolar samples, with multi-output
// fanout.
package wigglenet

import (
	"time"

	"github.com/pierrej/lightboard-core/internal/clocknet"
	"github.com/pierrej/lightboard-core/internal/dag"
	"github.com/pierrej/lightboard-core/internal/knob"
	"github.com/pierrej/lightboard-core/internal/sample"
)

// Tag distinguishes wiggle ids from clock ids at the type level.
type Tag struct{}

// ID is a wiggle node identifier.
type ID = dag.ID[Tag]

// KnobAddr is a wiggle knob address lifted to network scope.
type KnobAddr = knob.NodeAddr[Tag]

// OutputID selects one of a node's (possibly several) outputs.
type OutputID int

// InputRef is a resolved input: which upstream wiggle node and which of
// its outputs. Unlike the DAG's own OptionalID (node-level connectivity
// only), the output selector is payload-local state, since it never
// affects cycle detection or listener bookkeeping.
type InputRef struct {
	Valid  bool
	Wiggle ID
	Output OutputID
}

// Provider resolves a wiggle (id, output) pair to its current sample, with
// an additional phase offset the caller wants folded in on top of the
// target's own (e.g. a fanner staggering each output before reading
// further upstream). Missing/invalid references yield a default sample of
// typeHint (or unipolar 0 with no hint) plus a logged error, never a panic.
type Provider interface {
	RenderWiggle(id ID, outputID OutputID, phaseOffset float64, typeHint *sample.Kind) sample.Data
}

// Node is the capability contract every wiggle payload implements.
type Node interface {
	dag.Payload
	knob.Bearer
	Class() string
	Name() string
	SetName(string)
	Update(dt time.Duration) ([]any, error)
	Render(phaseOffset float64, typeHint *sample.Kind, inputs []InputRef, outputID OutputID, wiggles Provider, clocks clocknet.Provider) sample.Data
	ClockSource() (*clocknet.ID, error)
	SetClock(*clocknet.ID) error
	OutputCount() int
	// InputOutputs mirrors the DAG's Inputs slice length; it records which
	// output of each connected upstream this node currently reads.
	InputOutputs() []OutputID
	SetInputOutput(slot int, output OutputID) error
	Encode() (string, error)
}

// Decoder rebuilds a Node payload from its class-tagged opaque blob.
type Decoder func(blob string) (Node, error)

// OutputPusher/OutputPopper are optional capabilities for nodes with a
// variable output count (the fanner). Output count changes never touch the
// DAG's listener/cycle machinery: outputs are a payload-local concept.
type OutputPusher interface {
	TryPushOutput() ([]any, error)
}

type OutputPopper interface {
	TryPopOutput() ([]any, error)
}

// KnobChangedMessage mirrors clocknet's outbound message shape.
type KnobChangedMessage struct {
	Addr  knob.LocalAddr
	Value knob.Value
}

// KnobAddedMessage/KnobRemovedMessage report input/output count changes
// that add or remove a per-input or per-output knob (the blender's level
// knobs, for example).
type KnobAddedMessage struct {
	Addr knob.LocalAddr
	Desc knob.Description
}

type KnobRemovedMessage struct {
	Addr knob.LocalAddr
}
