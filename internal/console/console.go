// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

// Package console composes the clock network, wiggle network and fixture
// patch into one show state, exposing the flat global knob space and the
// command dispatch the reactor drives. The console is the only component
// that knows the concrete shape of a patch SourceID and how to resolve it
// across both subnetworks.
package console

import (
	"log/slog"
	"time"

	"github.com/pierrej/lightboard-core/internal/clocknet"
	"github.com/pierrej/lightboard-core/internal/dmxport"
	"github.com/pierrej/lightboard-core/internal/fixtureprofile"
	"github.com/pierrej/lightboard-core/internal/knob"
	"github.com/pierrej/lightboard-core/internal/patch"
	"github.com/pierrej/lightboard-core/internal/protocol"
	"github.com/pierrej/lightboard-core/internal/sample"
	"github.com/pierrej/lightboard-core/internal/wigglenet"
)

// PortRef names a hardware port by (namespace, port name). Universes are
// saved and restored by this pair rather than by any live handle.
type PortRef struct {
	Namespace string
	Name      string
}

// OfflineRef is the ref of the discard port every universe starts on and
// falls back to after a disconnect.
var OfflineRef = PortRef{Namespace: "offline", Name: "offline"}

// PortFactory resolves PortRefs to live ports. The host process wires in
// the concrete transports (subprocess, offline) at startup.
type PortFactory interface {
	Open(ref PortRef) (dmxport.Port, error)
	Available() []PortRef
}

// Console owns one show's entire mutable state. It is only ever touched
// from the reactor goroutine.
type Console struct {
	logger  *slog.Logger
	clocks  *clocknet.Network
	wiggles *wigglenet.Network
	patch   *patch.Patch
	ports   PortFactory
	gate    *dmxport.Gate

	portRefs map[patch.UniverseID]PortRef
}

// New constructs an empty console. gate may be shared with bridges that
// outlive show swaps; pass nil to create a private one.
func New(logger *slog.Logger, ports PortFactory, gate *dmxport.Gate) *Console {
	if gate == nil {
		gate = dmxport.NewGate()
	}
	gate.SetEnabled(true)
	return &Console{
		logger:   logger,
		clocks:   clocknet.NewNetwork(logger),
		wiggles:  wigglenet.NewNetwork(logger),
		patch:    patch.New(),
		ports:    ports,
		gate:     gate,
		portRefs: make(map[patch.UniverseID]PortRef),
	}
}

// Gate exposes the output enable switch for bridges that need to read it.
func (c *Console) Gate() *dmxport.Gate { return c.gate }

// Update advances both subnetworks by dt and converts any node-emitted
// knob changes into broadcast responses.
func (c *Console) Update(dt time.Duration) []protocol.ResponseEnvelope {
	var out []protocol.ResponseEnvelope
	out = append(out, c.clockMessages(c.clocks.Update(dt))...)
	out = append(out, c.wiggleMessages(c.wiggles.Update(dt))...)
	return out
}

// Render produces one DMX frame: bind the clock provider, source every
// bound control from the wiggle network, render and flush each universe.
// A universe whose port reports "device not configured" is swapped to the
// offline port and announced to all clients.
func (c *Console) Render() []protocol.ResponseEnvelope {
	c.wiggles.BeginFrame(c.clocks)

	var errs map[patch.UniverseID]error
	if c.gate.Enabled() {
		c.patch.ApplyControlSources(c.resolveSource)
		errs = c.patch.Render()
	} else {
		errs = c.patch.WriteBlackout()
	}

	var out []protocol.ResponseEnvelope
	for uid, err := range errs {
		if !dmxport.Disconnected(err) {
			c.logger.Error("console: dmx write failed", "universe", uid, "error", err)
			continue
		}
		c.logger.Warn("console: port disconnected, swapping to offline", "universe", uid, "error", err)
		if perr := c.patch.SetUniversePort(uid, dmxport.NewOfflinePort(OfflineRef.Name)); perr != nil {
			continue
		}
		c.portRefs[uid] = OfflineRef
		out = append(out,
			broadcast(protocol.Response{
				Type:            "UniverseOffline",
				UniverseOffline: &protocol.UniverseOfflineNotice{Universe: uid, Reason: err.Error()},
			}),
			broadcast(c.PatchStateResponse()),
		)
	}
	return out
}

// resolveSource fans a bound control source out to the wiggle network
// (and through it, the clocks), coercing to the control's datatype. Only
// sample-typed controls can be driven; anything else keeps its default.
func (c *Console) resolveSource(src patch.SourceID, dt knob.Datatype) knob.Value {
	s, ok := src.(Source)
	if !ok {
		return fixtureprofile.Default(dt)
	}

	var hint sample.Kind
	switch dt {
	case knob.DatatypeUnipolar:
		hint = sample.Unipolar
	case knob.DatatypeBipolar:
		hint = sample.Bipolar
	default:
		return fixtureprofile.Default(dt)
	}

	d := c.wiggles.Render(s.Wiggle, s.Output, 0, &hint)
	return knob.Value{Type: dt, Sample: d.Coerce(hint)}
}

// AddUniverse creates a universe on the port named by ref.
func (c *Console) AddUniverse(ref PortRef) (patch.UniverseID, error) {
	port, err := c.ports.Open(ref)
	if err != nil {
		return 0, err
	}
	uid := c.patch.AddUniverse(&patch.Universe{Port: port})
	c.portRefs[uid] = ref
	return uid, nil
}

// AttachPort swaps a universe onto the port named by ref, preserving its
// buffer and every patched fixture.
func (c *Console) AttachPort(uid patch.UniverseID, ref PortRef) error {
	port, err := c.ports.Open(ref)
	if err != nil {
		return err
	}
	if err := c.patch.SetUniversePort(uid, port); err != nil {
		return err
	}
	c.portRefs[uid] = ref
	return nil
}

// clockMessages lifts clock node messages into broadcast responses.
func (c *Console) clockMessages(msgs []clocknet.NodeMessage) []protocol.ResponseEnvelope {
	var out []protocol.ResponseEnvelope
	for _, nm := range msgs {
		if m, ok := nm.Msg.(clocknet.KnobChangedMessage); ok {
			addr := protocol.ClockKnobAddress(clocknet.KnobAddr{Node: nm.Node, Local: m.Addr})
			out = append(out, broadcast(protocol.Response{
				Type:      "KnobValue",
				KnobValue: &protocol.KnobValueResponse{Addr: addr, Value: m.Value},
			}))
		}
	}
	return out
}

// wiggleMessages lifts wiggle node messages into broadcast responses.
// Knob add/remove (a blender input growing a level knob) is reported as a
// fresh full network state rather than a per-knob delta.
func (c *Console) wiggleMessages(msgs []wigglenet.NodeMessage) []protocol.ResponseEnvelope {
	var out []protocol.ResponseEnvelope
	structural := false
	for _, nm := range msgs {
		switch m := nm.Msg.(type) {
		case wigglenet.KnobChangedMessage:
			addr := protocol.WiggleKnobAddress(wigglenet.KnobAddr{Node: nm.Node, Local: m.Addr})
			out = append(out, broadcast(protocol.Response{
				Type:      "KnobValue",
				KnobValue: &protocol.KnobValueResponse{Addr: addr, Value: m.Value},
			}))
		case wigglenet.KnobAddedMessage, wigglenet.KnobRemovedMessage:
			structural = true
		}
	}
	if structural {
		out = append(out, broadcast(c.WiggleStateResponse()))
	}
	return out
}

func broadcast(r protocol.Response) protocol.ResponseEnvelope {
	return protocol.ResponseEnvelope{Payload: r}
}

func addressed(origin protocol.ClientData, r protocol.Response) protocol.ResponseEnvelope {
	cd := origin
	return protocol.ResponseEnvelope{ClientData: &cd, Payload: r}
}

func exclusive(origin protocol.ClientData, r protocol.Response) protocol.ResponseEnvelope {
	cd := origin
	cd.Filter = protocol.FilterExclusive
	return protocol.ResponseEnvelope{ClientData: &cd, Payload: r}
}
