// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

package patch

import (
	"github.com/pierrej/lightboard-core/internal/dmxport"
	"github.com/pierrej/lightboard-core/internal/fixtureprofile"
	"github.com/pierrej/lightboard-core/internal/knob"
)

// RestoreUniverseAt places a universe at a specific slot index, growing
// the slot vector with empty entries as needed. Used by show load, where
// universe ids must line up with the fixtures that reference them.
func (p *Patch) RestoreUniverseAt(index int, port dmxport.Port) {
	for len(p.universes) <= index {
		p.universes = append(p.universes, nil)
	}
	p.universes[index] = &Universe{Port: port}
}

// RestoreItem recreates a fixture with its original id and state, used by
// show load. Unlike Add, it trusts the saved address (already validated
// when it was originally patched) rather than re-running conflict checks.
func (p *Patch) RestoreItem(si SavedItem, codec SourceCodec) error {
	profile, err := fixtureprofile.Lookup(si.ProfileName)
	if err != nil {
		return &Error{Kind: "UnknownProfile"}
	}

	controls := profile.MakeControls()
	for i := range controls {
		if i < len(si.ControlValues) {
			controls[i].Value = decodeControlValue(si.ControlValues[i])
		}
	}

	sources := make([]SourceID, len(controls))
	for i, enc := range si.ControlSources {
		if i >= len(sources) || enc == nil {
			continue
		}
		src, err := codec.DecodeSource(*enc)
		if err != nil {
			continue
		}
		sources[i] = src
	}

	item := &Item{
		ID:             FixtureID(si.ID),
		Name:           si.Name,
		ProfileName:    si.ProfileName,
		Active:         si.Active,
		Address:        si.Address,
		ChannelCount:   profile.ChannelCount,
		Controls:       controls,
		ControlSources: sources,
	}
	p.items = append(p.items, item)
	p.byID[item.ID] = len(p.items) - 1
	if item.ID >= p.nextID {
		p.nextID = item.ID + 1
	}
	return nil
}

func decodeControlValue(sv SavedControlValue) knob.Value {
	dt := knob.Datatype(sv.Datatype)
	switch dt {
	case knob.DatatypeBipolar:
		return knob.BipolarValue(sv.Value)
	case knob.DatatypeRate:
		return knob.RateValue(knob.RateFromHz(sv.RateHz))
	case knob.DatatypeUFloat:
		return knob.UFloatValue(sv.UFloat)
	case knob.DatatypeButton:
		return knob.ButtonValue(sv.Button)
	case knob.DatatypePicker:
		return knob.PickerValue(sv.Picker)
	default:
		return knob.UnipolarValue(sv.Value)
	}
}
