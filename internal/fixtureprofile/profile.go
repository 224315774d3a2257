// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

// Package fixtureprofile is the process-wide, read-only registry of fixture
// profiles: name -> channel count + control factory + render function
//. The patch never knows how a profile turns
// control values into bytes; it only calls through the registry by name.
package fixtureprofile

import (
	"fmt"

	"github.com/pierrej/lightboard-core/internal/knob"
)

// Control is one fixture-local render input: a name, a datatype, and the
// control's current value. Unlike a node knob, a control has no address of
// its own — it is always addressed by (fixture id, index) through the
// patch.
type Control struct {
	Name     string
	Datatype knob.Datatype
	Value    knob.Value
}

// Default returns the zero value appropriate for a control's datatype, used
// when the patch has no source bound to it.
func Default(dt knob.Datatype) knob.Value {
	switch dt {
	case knob.DatatypeBipolar:
		return knob.BipolarValue(0)
	case knob.DatatypeUFloat:
		return knob.UFloatValue(0)
	case knob.DatatypeButton:
		return knob.ButtonValue(false)
	case knob.DatatypePicker:
		return knob.PickerValue("")
	default:
		return knob.UnipolarValue(0)
	}
}

// RenderFunc writes one fixture's current controls into its channel slice.
// The slice is exactly ChannelCount bytes, already positioned at the
// fixture's patched address by the caller.
type RenderFunc func(controls []Control, out []byte)

// Profile is a fixture type descriptor: channel count, control factory and
// render function, keyed by name in the process-wide registry.
type Profile struct {
	Name         string
	Description  string
	ChannelCount int
	MakeControls func() []Control
	Render       RenderFunc
}

var registry = map[string]*Profile{}

// Register adds a profile to the registry. Called from package init of
// each built-in profile, and by hosts wiring in custom profiles at startup
// (the registry itself has no notion of "built-in").
func Register(p *Profile) {
	registry[p.Name] = p
}

// Lookup resolves a profile by name, used both for Add and for rebinding
// the render function pointer during deserialization.
func Lookup(name string) (*Profile, error) {
	p, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("fixtureprofile: unknown profile %q", name)
	}
	return p, nil
}

// Names lists every registered profile name (for the "GetKinds" patch
// request), unordered.
func Names() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	return out
}
