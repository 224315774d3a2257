// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

package protocol

import (
	"github.com/pierrej/lightboard-core/internal/clocknet"
	"github.com/pierrej/lightboard-core/internal/knob"
	"github.com/pierrej/lightboard-core/internal/patch"
	"github.com/pierrej/lightboard-core/internal/wigglenet"
)

// Command is the top-level command verb.
type Command struct {
	Verb string // NewShow | SavedShows | AvailableSaves | Load | Save | SaveAs | Rename | Quit | Console

	Name    string   // NewShow.name, SaveAs.name, Rename.name
	LoadReq *LoadRequest
	Console *ConsoleCommand
}

// LoadSpecKind selects which save file Load resolves to.
type LoadSpecKind string

const (
	LoadLatest         LoadSpecKind = "Latest"
	LoadExact          LoadSpecKind = "Exact"
	LoadLatestAutosave LoadSpecKind = "LatestAutosave"
	LoadExactAutosave  LoadSpecKind = "ExactAutosave"
)

// LoadRequest is the Load(spec) command's payload.
type LoadRequest struct {
	ShowName string
	Kind     LoadSpecKind
	Exact    string // only meaningful for Exact/ExactAutosave
}

// ConsoleCommand fans out to the patch/clock/wiggle/knob families.
type ConsoleCommand struct {
	Family string // Patch | Clock | Wiggle | Knob | Output

	Patch  *PatchRequest
	Clock  *NetworkRequest
	Wiggle *NetworkRequest
	Knob   *KnobRequest
	Output *OutputRequest
}

// OutputRequest is the grand-master output control family: gate the DMX
// output on or off, or fire a one-shot blackout frame.
type OutputRequest struct {
	Verb string // Enable | Disable | Blackout
}

// KnobAddress is the global, tagged knob address.
type KnobAddress struct {
	Network string // "Clock" | "Wiggle"
	Clock   clocknet.KnobAddr
	Wiggle  wigglenet.KnobAddr
}

func ClockKnobAddress(a clocknet.KnobAddr) KnobAddress {
	return KnobAddress{Network: "Clock", Clock: a}
}

func WiggleKnobAddress(a wigglenet.KnobAddr) KnobAddress {
	return KnobAddress{Network: "Wiggle", Wiggle: a}
}

func (a KnobAddress) String() string {
	if a.Network == "Wiggle" {
		return "wiggle/" + a.Wiggle.String()
	}
	return "clock/" + a.Clock.String()
}

// KnobRequest is the Knob(...) console command family.
type KnobRequest struct {
	Verb  string // Set | State
	Addr  KnobAddress
	Value knob.Value
}

// NetworkRequest is shared by the Clock(...) and Wiggle(...) families,
// since both expose the same verb set.
type NetworkRequest struct {
	Verb string // Classes | State | Create | Remove | Rename | SetInput | PushInput | PopInput | SetClock

	// Create
	Kind string
	Name string

	// Remove / Rename / SetInput / PushInput / PopInput target a specific
	// node; the two networks have distinct id types so both are carried
	// and only the relevant one is populated by the transport layer.
	ClockNode  *clocknet.ID
	WiggleNode *wigglenet.ID
	Force      bool

	InputIdx     int
	ClockTarget  *clocknet.ID
	WiggleTarget *wigglenet.ID
	WiggleOutput wigglenet.OutputID

	// SetClock (wiggles only)
	SetClockTo *clocknet.ID
}

// PatchRequest is the Patch(...) console command family.
type PatchRequest struct {
	Verb string // PatchState|NewPatches|Rename|Repatch|Remove|GetKinds|AddUniverse|RemoveUniverse|AttachPort|AvailablePorts|SetControlSource

	NewPatches []NewPatchSpec

	FixtureID patch.FixtureID
	Name      string
	Active    bool

	Repatch *patch.Address // nil = unpatch

	UniverseID UniverseID
	Force      bool

	PortNamespace string
	PortID        string

	ControlIdx int
	SourceRaw  *string // opaque encoded SourceID, nil = clear
}

// UniverseID mirrors patch.UniverseID at the wire layer so the protocol
// package does not leak patch's internal slot semantics into transports
// that only ever see small integers.
type UniverseID = patch.UniverseID

// NewPatchSpec is one entry of a batched Patch.NewPatches request.
type NewPatchSpec struct {
	Name    string
	Kind    string
	Address *patch.Address
}
