// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

// Package patch implements the fixture patch: universes,
// addressing, control sourcing and DMX render. It is parameterized by an
// opaque SourceID so it never depends on the clock/wiggle subnetworks
// directly.
package patch

import (
	"github.com/pierrej/lightboard-core/internal/dmxport"
	"github.com/pierrej/lightboard-core/internal/fixtureprofile"
)

// FixtureID is monotone and never reused.
type FixtureID int

// UniverseID is a slot index, reusable once its slot is empty.
type UniverseID int

// SourceID is opaque to the patch; the console binds it to a wiggle node
// id + output index, but the patch only ever stores and compares it.
type SourceID any

// Address is a 1-indexed universe+channel pair.
type Address struct {
	Universe UniverseID
	DMX      int // 1..512
}

// Universe holds a hardware port and its pending/rendered frame.
type Universe struct {
	Port   dmxport.Port
	Buffer dmxport.Frame
}

// FixtureControl is one runtime control slot on a patched fixture: the
// profile's static descriptor plus the live value written by the
// console's resolver before render.
type FixtureControl = fixtureprofile.Control

// Item is a patched (or unpatched) fixture.
type Item struct {
	ID             FixtureID
	Name           string
	ProfileName    string
	Active         bool
	Address        *Address
	ChannelCount   int
	Controls       []FixtureControl
	ControlSources []SourceID // nil entry = unbound
}
