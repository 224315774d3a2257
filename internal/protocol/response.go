// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

package protocol

import (
	"github.com/pierrej/lightboard-core/internal/clocknet"
	"github.com/pierrej/lightboard-core/internal/knob"
	"github.com/pierrej/lightboard-core/internal/patch"
	"github.com/pierrej/lightboard-core/internal/wigglenet"
)

// Response is the top-level outbound message. Per-command responses are stringified into Error on
// failure, addressed Exclusive to the originating client.
type Response struct {
	Type string // Ok | Error | Quit | SavedShows | AvailableSaves | PatchState | ClockState | WiggleState | KnobState | ...

	Error string

	Names []string // SavedShows / AvailableSaves / GetKinds / Classes

	PatchState  *PatchState
	ClockState  *NetworkState
	WiggleState *NetworkState
	KnobValue   *KnobValueResponse
	KnobState   []KnobStateEntry
	OutputState *OutputState

	// Spontaneous broadcasts triggered by render/update with no client
	// attached: a port went offline and was swapped.
	UniverseOffline *UniverseOfflineNotice
}

func ErrorResponse(err error) Response {
	return Response{Type: "Error", Error: err.Error()}
}

func OkResponse() Response { return Response{Type: "Ok"} }

// KnobValueResponse echoes one knob's current value after a Knob(Set) or
// a node-emitted change (a Button auto-reset, for example).
type KnobValueResponse struct {
	Addr  KnobAddress
	Value knob.Value
}

// KnobStateEntry is one row of the flat global knob space answered by
// Knob(State).
type KnobStateEntry struct {
	Addr  KnobAddress
	Desc  knob.Description
	Value knob.Value
}

// OutputState reports the grand-master gate.
type OutputState struct {
	Enabled bool
}

// UniverseOfflineNotice reports a universe whose port was swapped to
// offline after a disconnect.
type UniverseOfflineNotice struct {
	Universe patch.UniverseID
	Reason   string
}

// PatchState is the full read-model of the fixture patch, used both for
// the PatchState response and embedded in show-state broadcasts.
type PatchState struct {
	Universes []PatchUniverseState
	Items     []PatchItemState
}

type PatchUniverseState struct {
	ID       patch.UniverseID
	PortName string
}

type PatchItemState struct {
	ID             patch.FixtureID
	Name           string
	ProfileName    string
	Active         bool
	Address        *patch.Address
	Controls       []patch.FixtureControl
	ControlSources []bool // whether each control has a bound source
}

// NetworkState is the shared read-model for clocks and wiggles: every
// live node's id, class, name and knobs.
type NetworkState struct {
	ClockNodes  []ClockNodeState
	WiggleNodes []WiggleNodeState
}

type ClockNodeState struct {
	ID     clocknet.ID
	Class  string
	Name   string
	Inputs []*clocknet.ID
	Knobs  map[knob.LocalAddr]knob.Description
}

type WiggleNodeState struct {
	ID     wigglenet.ID
	Class  string
	Name   string
	Clock  *clocknet.ID
	Inputs []WiggleInputState
	Knobs  map[knob.LocalAddr]knob.Description
}

type WiggleInputState struct {
	Wiggle *wigglenet.ID
	Output wigglenet.OutputID
}
