// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

package patch

import (
	"github.com/pierrej/lightboard-core/internal/dmxport"
	"github.com/pierrej/lightboard-core/internal/fixtureprofile"
	"github.com/pierrej/lightboard-core/internal/knob"
)

// Resolver fans out a bound SourceID to its current value, coerced to the
// requested datatype. The console supplies this; the patch holds no
// direct reference to the clock/wiggle networks.
type Resolver func(src SourceID, dt knob.Datatype) knob.Value

// ApplyControlSources writes every fixture's bound control values from the
// resolver, defaulting unbound controls to their datatype's zero value.
func (p *Patch) ApplyControlSources(resolve Resolver) {
	for _, item := range p.items {
		for i := range item.Controls {
			var src SourceID
			if i < len(item.ControlSources) {
				src = item.ControlSources[i]
			}
			if src == nil {
				item.Controls[i].Value = fixtureprofile.Default(item.Controls[i].Datatype)
				continue
			}
			item.Controls[i].Value = resolve(src, item.Controls[i].Datatype)
		}
	}
}

// Render zeroes every universe's buffer, writes each active patched
// fixture's controls into its channel slice via its profile's render
// function, then flushes every universe's buffer to its port. Per-universe
// write errors are collected and returned so the reactor can react to
// hardware disconnect.
func (p *Patch) Render() map[UniverseID]error {
	for _, u := range p.universes {
		if u == nil {
			continue
		}
		u.Buffer = dmxport.Frame{}
	}

	for _, item := range p.items {
		if !item.Active || item.Address == nil {
			continue
		}
		uid := int(item.Address.Universe)
		if uid < 0 || uid >= len(p.universes) {
			continue
		}
		u := p.universes[uid]
		if u == nil {
			continue
		}
		profile, err := fixtureprofile.Lookup(item.ProfileName)
		if err != nil {
			continue
		}
		start := item.Address.DMX - 1
		end := start + item.ChannelCount
		if start < 0 || end > len(u.Buffer) {
			continue
		}
		profile.Render(item.Controls, u.Buffer[start:end])
	}

	return p.flush()
}

// WriteBlackout zeroes every universe buffer and writes the zero frames,
// used while the output gate is closed.
func (p *Patch) WriteBlackout() map[UniverseID]error {
	for _, u := range p.universes {
		if u == nil {
			continue
		}
		u.Buffer = dmxport.Frame{}
	}
	return p.flush()
}

func (p *Patch) flush() map[UniverseID]error {
	errs := make(map[UniverseID]error)
	for i, u := range p.universes {
		if u == nil || u.Port == nil {
			continue
		}
		frame := u.Buffer
		if err := u.Port.Write(&frame); err != nil {
			errs[UniverseID(i)] = err
		}
	}
	return errs
}
