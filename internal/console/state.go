// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

package console

import (
	"sort"

	"github.com/pierrej/lightboard-core/internal/clocknet"
	"github.com/pierrej/lightboard-core/internal/dag"
	"github.com/pierrej/lightboard-core/internal/knob"
	"github.com/pierrej/lightboard-core/internal/protocol"
	"github.com/pierrej/lightboard-core/internal/wigglenet"
)

// PatchStateResponse builds the full read model of the fixture patch.
func (c *Console) PatchStateResponse() protocol.Response {
	st := &protocol.PatchState{}

	for _, uid := range c.patch.UniverseIDs() {
		u, err := c.patch.Universe(uid)
		if err != nil {
			continue
		}
		st.Universes = append(st.Universes, protocol.PatchUniverseState{
			ID:       uid,
			PortName: u.Port.Name(),
		})
	}

	for _, it := range c.patch.Items() {
		is := protocol.PatchItemState{
			ID:          it.ID,
			Name:        it.Name,
			ProfileName: it.ProfileName,
			Active:      it.Active,
			Address:     it.Address,
			Controls:    it.Controls,
		}
		for _, src := range it.ControlSources {
			is.ControlSources = append(is.ControlSources, src != nil)
		}
		st.Items = append(st.Items, is)
	}

	return protocol.Response{Type: "PatchState", PatchState: st}
}

// ClockStateResponse builds the read model of the clock network.
func (c *Console) ClockStateResponse() protocol.Response {
	st := &protocol.NetworkState{}
	c.clocks.Each(func(id clocknet.ID, node *dag.Node[clocknet.Tag, clocknet.Node]) {
		ns := protocol.ClockNodeState{
			ID:    id,
			Class: node.Payload.Class(),
			Name:  node.Payload.Name(),
			Knobs: make(map[knob.LocalAddr]knob.Description),
		}
		for _, in := range node.Inputs {
			if in.Valid {
				ref := in.ID
				ns.Inputs = append(ns.Inputs, &ref)
			} else {
				ns.Inputs = append(ns.Inputs, nil)
			}
		}
		for i, d := range node.Payload.Knobs() {
			ns.Knobs[knob.LocalAddr(i)] = d
		}
		st.ClockNodes = append(st.ClockNodes, ns)
	})
	return protocol.Response{Type: "ClockState", ClockState: st}
}

// WiggleStateResponse builds the read model of the wiggle network.
func (c *Console) WiggleStateResponse() protocol.Response {
	st := &protocol.NetworkState{}
	c.wiggles.Each(func(id wigglenet.ID, node *dag.Node[wigglenet.Tag, wigglenet.Node]) {
		ns := protocol.WiggleNodeState{
			ID:    id,
			Class: node.Payload.Class(),
			Name:  node.Payload.Name(),
			Knobs: make(map[knob.LocalAddr]knob.Description),
		}
		if cs, err := node.Payload.ClockSource(); err == nil {
			ns.Clock = cs
		}
		outs := node.Payload.InputOutputs()
		for i, in := range node.Inputs {
			is := protocol.WiggleInputState{}
			if in.Valid {
				ref := in.ID
				is.Wiggle = &ref
				if i < len(outs) {
					is.Output = outs[i]
				}
			}
			ns.Inputs = append(ns.Inputs, is)
		}
		for i, d := range node.Payload.Knobs() {
			ns.Knobs[knob.LocalAddr(i)] = d
		}
		st.WiggleNodes = append(st.WiggleNodes, ns)
	})
	return protocol.Response{Type: "WiggleState", WiggleState: st}
}

// KnobStateResponse flattens both networks' knob spaces into one listing,
// sorted by address for a stable wire order.
func (c *Console) KnobStateResponse() protocol.Response {
	var entries []protocol.KnobStateEntry

	for addr, desc := range c.clocks.Knobs() {
		v, err := c.clocks.KnobValue(addr)
		if err != nil {
			continue
		}
		entries = append(entries, protocol.KnobStateEntry{
			Addr: protocol.ClockKnobAddress(addr), Desc: desc, Value: v,
		})
	}
	for addr, desc := range c.wiggles.Knobs() {
		v, err := c.wiggles.KnobValue(addr)
		if err != nil {
			continue
		}
		entries = append(entries, protocol.KnobStateEntry{
			Addr: protocol.WiggleKnobAddress(addr), Desc: desc, Value: v,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Addr.String() < entries[j].Addr.String()
	})
	return protocol.Response{Type: "KnobState", KnobState: entries}
}

// OutputStateResponse reports the grand-master gate.
func (c *Console) OutputStateResponse() protocol.Response {
	return protocol.Response{Type: "OutputState", OutputState: &protocol.OutputState{Enabled: c.gate.Enabled()}}
}
