// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

package wigglenet

import (
	"log/slog"
	"time"

	"github.com/pierrej/lightboard-core/internal/clocknet"
	"github.com/pierrej/lightboard-core/internal/dag"
	"github.com/pierrej/lightboard-core/internal/knob"
	"github.com/pierrej/lightboard-core/internal/sample"
)

// Network is the wiggle subnetwork. It depends on the DAG machinery and the
// knob system, and on a read-only clock-value provider supplied per frame;
// a wiggle network alone is insufficient to render.
type Network struct {
	g      *dag.Network[Tag, Node]
	logger *slog.Logger
	clocks clocknet.Provider
}

func NewNetwork(logger *slog.Logger) *Network {
	return &Network{g: dag.New[Tag, Node](), logger: logger}
}

// BeginFrame binds the clock provider used for the rest of this frame's
// renders. The console calls this once before rendering the fixture patch.
func (n *Network) BeginFrame(clocks clocknet.Provider) {
	n.clocks = clocks
}

func (n *Network) Add(class, name string) (ID, error) {
	node, err := NewByClass(class)
	if err != nil {
		return ID{}, err
	}
	if name != "" {
		node.SetName(name)
	}
	id, _ := n.g.Add(node)
	return id, nil
}

func (n *Network) Remove(id ID, force bool) error {
	_, err := n.g.Remove(id, force)
	return err
}

func (n *Network) Rename(id ID, name string) error {
	node, err := n.g.NodeMut(id)
	if err != nil {
		return err
	}
	node.Payload.SetName(name)
	return nil
}

// SetInput wires one input slot's connectivity through the DAG and records
// which upstream output it should read.
func (n *Network) SetInput(node ID, inputIdx int, target *ID, output OutputID) error {
	if err := n.g.SwapInput(node, inputIdx, target); err != nil {
		return err
	}
	sinkNode, err := n.g.NodeMut(node)
	if err != nil {
		return err
	}
	return sinkNode.Payload.SetInputOutput(inputIdx, output)
}

// NodeMessage pairs a payload-emitted message with the node that emitted
// it, so callers can lift knob-local addresses to network scope.
type NodeMessage struct {
	Node ID
	Msg  any
}

func wrapMessages(id ID, msgs []any) []NodeMessage {
	out := make([]NodeMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, NodeMessage{Node: id, Msg: m})
	}
	return out
}

func (n *Network) PushInput(node ID, target *ID, output OutputID) ([]NodeMessage, error) {
	msgs, err := n.g.PushInput(node, target)
	if err != nil {
		return nil, err
	}
	if target != nil {
		sinkNode, err := n.g.NodeMut(node)
		if err == nil {
			_ = sinkNode.Payload.SetInputOutput(len(sinkNode.Inputs)-1, output)
		}
	}
	return wrapMessages(node, msgs), nil
}

func (n *Network) PopInput(node ID) ([]NodeMessage, error) {
	msgs, err := n.g.PopInput(node)
	if err != nil {
		return nil, err
	}
	return wrapMessages(node, msgs), nil
}

func (n *Network) PushOutput(node ID) ([]NodeMessage, error) {
	sinkNode, err := n.g.NodeMut(node)
	if err != nil {
		return nil, err
	}
	pusher, ok := sinkNode.Payload.(OutputPusher)
	if !ok {
		return nil, &dag.Error{Kind: "CantAddInput", ID: node}
	}
	msgs, err := pusher.TryPushOutput()
	if err != nil {
		return nil, err
	}
	return wrapMessages(node, msgs), nil
}

func (n *Network) PopOutput(node ID) ([]NodeMessage, error) {
	sinkNode, err := n.g.NodeMut(node)
	if err != nil {
		return nil, err
	}
	popper, ok := sinkNode.Payload.(OutputPopper)
	if !ok {
		return nil, &dag.Error{Kind: "CantRemoveInput", ID: node}
	}
	msgs, err := popper.TryPopOutput()
	if err != nil {
		return nil, err
	}
	return wrapMessages(node, msgs), nil
}

func (n *Network) SetClock(node ID, clock *clocknet.ID) error {
	sinkNode, err := n.g.NodeMut(node)
	if err != nil {
		return err
	}
	if err := sinkNode.Payload.SetClock(clock); err != nil {
		return &dag.Error{Kind: "InvalidClockSource", ID: node}
	}
	return nil
}

func (n *Network) ClockSource(node ID) (*clocknet.ID, error) {
	sinkNode, err := n.g.Node(node)
	if err != nil {
		return nil, err
	}
	return sinkNode.Payload.ClockSource()
}

// Each visits every live node in slot order, for state reporting and
// serialization.
func (n *Network) Each(f func(ID, *dag.Node[Tag, Node])) {
	n.g.MapInner(f)
}

// Node exposes the underlying node for read access.
func (n *Network) Node(id ID) (*dag.Node[Tag, Node], error) {
	return n.g.Node(id)
}

// RenderWiggle implements Provider for cross-wiggle references, folding in
// whatever phase offset the calling node wants applied on top of the
// target's own (e.g. a fanner staggering each output).
func (n *Network) RenderWiggle(id ID, outputID OutputID, phaseOffset float64, typeHint *sample.Kind) sample.Data {
	return n.Render(id, outputID, phaseOffset, typeHint)
}

// Render resolves one node's one output, resolving its inputs recursively.
// Missing/invalid node ids yield a default sample of typeHint and a logged
// error.
func (n *Network) Render(id ID, outputID OutputID, phaseOffset float64, typeHint *sample.Kind) sample.Data {
	node, err := n.g.Node(id)
	if err != nil {
		if n.logger != nil {
			n.logger.Error("wigglenet: missing wiggle node", "id", id, "error", err)
		}
		return defaultSample(typeHint)
	}

	outs := node.Payload.InputOutputs()
	inputs := make([]InputRef, len(node.Inputs))
	for i, in := range node.Inputs {
		if !in.Valid {
			continue
		}
		out := OutputID(0)
		if i < len(outs) {
			out = outs[i]
		}
		inputs[i] = InputRef{Valid: true, Wiggle: in.ID, Output: out}
	}

	return node.Payload.Render(phaseOffset, typeHint, inputs, outputID, n, n.clocks)
}

func defaultSample(typeHint *sample.Kind) sample.Data {
	if typeHint != nil {
		return sample.DefaultFor(*typeHint)
	}
	return sample.DefaultFor(sample.Unipolar)
}

func (n *Network) Update(dt time.Duration) []NodeMessage {
	var out []NodeMessage
	n.g.MapInner(func(id ID, node *dag.Node[Tag, Node]) {
		msgs, err := node.Payload.Update(dt)
		if err != nil && n.logger != nil {
			n.logger.Error("wigglenet: update failed", "id", id, "error", err)
		}
		out = append(out, wrapMessages(id, msgs)...)
	})
	return out
}

func (n *Network) KnobValue(addr KnobAddr) (knob.Value, error) {
	node, err := n.g.Node(addr.Node)
	if err != nil {
		return knob.Value{}, err
	}
	v, kerr := node.Payload.KnobValue(addr.Local)
	if kerr != nil {
		return knob.Value{}, knob.LiftAddress(addr.Node, kerr.(*knob.Error))
	}
	return v, nil
}

func (n *Network) SetKnob(addr KnobAddr, v knob.Value) ([]NodeMessage, error) {
	node, err := n.g.Node(addr.Node)
	if err != nil {
		return nil, err
	}
	msgs, kerr := node.Payload.SetKnob(addr.Local, v)
	if kerr != nil {
		if ke, ok := kerr.(*knob.Error); ok {
			return nil, knob.LiftAddress(addr.Node, ke)
		}
		return nil, kerr
	}
	return wrapMessages(addr.Node, msgs), nil
}

func (n *Network) Knobs() map[KnobAddr]knob.Description {
	out := make(map[KnobAddr]knob.Description)
	n.g.MapInner(func(id ID, node *dag.Node[Tag, Node]) {
		for i, d := range node.Payload.Knobs() {
			out[KnobAddr{Node: id, Local: knob.LocalAddr(i)}] = d
		}
	})
	return out
}

func (n *Network) Classes() []string { return Classes() }

// SavedNode is the serializable form of one wiggle node.
type SavedNode struct {
	Index      int
	Generation uint64
	Class      string
	Blob       string
	Clock      *SavedRef
	Inputs     []*SavedInput
}

type SavedRef struct {
	Index      int
	Generation uint64
}

type SavedInput struct {
	Ref    *SavedRef
	Output OutputID
}

func (n *Network) Snapshot() ([]SavedNode, error) {
	var out []SavedNode
	var encErr error
	n.g.MapInner(func(id ID, node *dag.Node[Tag, Node]) {
		blob, err := node.Payload.Encode()
		if err != nil {
			encErr = err
			return
		}
		sn := SavedNode{
			Index:      id.Index,
			Generation: id.Generation,
			Class:      node.Payload.Class(),
			Blob:       blob,
			Inputs:     make([]*SavedInput, len(node.Inputs)),
		}
		outs := node.Payload.InputOutputs()
		for i, in := range node.Inputs {
			if !in.Valid {
				continue
			}
			out := OutputID(0)
			if i < len(outs) {
				out = outs[i]
			}
			sn.Inputs[i] = &SavedInput{Ref: &SavedRef{Index: in.ID.Index, Generation: in.ID.Generation}, Output: out}
		}
		if cs, _ := node.Payload.ClockSource(); cs != nil {
			sn.Clock = &SavedRef{Index: cs.Index, Generation: cs.Generation}
		}
		out = append(out, sn)
	})
	return out, encErr
}

// Restore rebuilds a network from a snapshot. clockByIndex maps the
// clock network's saved slot indices to live clock ids (the clock network
// must be restored first).
func Restore(logger *slog.Logger, nodes []SavedNode, clockByIndex map[int]clocknet.ID) (*Network, error) {
	n := NewNetwork(logger)
	byIndex := make(map[int]ID)
	for _, sn := range nodes {
		node, err := DecodeClass(sn.Class, sn.Blob)
		if err != nil {
			return nil, err
		}
		id, err := n.g.RestoreSlot(sn.Index, sn.Generation, node)
		if err != nil {
			return nil, err
		}
		byIndex[sn.Index] = id
	}
	for _, sn := range nodes {
		sinkID := byIndex[sn.Index]
		sinkNode, err := n.g.NodeMut(sinkID)
		if err != nil {
			return nil, err
		}
		for i, in := range sn.Inputs {
			if in == nil || in.Ref == nil {
				continue
			}
			srcID, ok := byIndex[in.Ref.Index]
			if !ok {
				continue
			}
			if err := n.g.SwapInput(sinkID, i, &srcID); err != nil {
				return nil, err
			}
			_ = sinkNode.Payload.SetInputOutput(i, in.Output)
		}
		if sn.Clock != nil {
			if clockID, ok := clockByIndex[sn.Clock.Index]; ok {
				_ = sinkNode.Payload.SetClock(&clockID)
			}
		}
	}
	return n, nil
}
