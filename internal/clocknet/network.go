// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

package clocknet

import (
	"log/slog"
	"time"

	"github.com/pierrej/lightboard-core/internal/dag"
	"github.com/pierrej/lightboard-core/internal/knob"
)

// Network is the clock subnetwork: a DAG of clock nodes that also acts as
// a read-only Provider for the wiggle subnetwork.
type Network struct {
	g      *dag.Network[Tag, Node]
	logger *slog.Logger
}

func NewNetwork(logger *slog.Logger) *Network {
	return &Network{g: dag.New[Tag, Node](), logger: logger}
}

// Add inserts a node built from a registered class.
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

// Remove deletes a node, soft-failing with HasListeners unless force.
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

func (n *Network) SetInput(node ID, inputIdx int, target *ID) error {
	return n.g.SwapInput(node, inputIdx, target)
}

func (n *Network) PushInput(node ID, target *ID) ([]NodeMessage, error) {
	msgs, err := n.g.PushInput(node, target)
	if err != nil {
		return nil, err
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

// Each visits every live node in slot order, for state reporting and
// serialization.
func (n *Network) Each(f func(ID, *dag.Node[Tag, Node])) {
	n.g.MapInner(f)
}

// Node exposes the underlying node for read access (name, class, knobs).
func (n *Network) Node(id ID) (*dag.Node[Tag, Node], error) {
	return n.g.Node(id)
}

// Value implements Provider: render is on demand, nothing cached across
// frames. Missing/invalid ids yield a default Value plus a logged error,
// never a panic.
func (n *Network) Value(id ID) Value {
	node, err := n.g.Node(id)
	if err != nil {
		if n.logger != nil {
			n.logger.Error("clocknet: missing upstream clock", "id", id, "error", err)
		}
		return Value{}
	}
	return node.Payload.Render(node.Inputs, n)
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

// Update advances every live clock node by dt and collects messages.
func (n *Network) Update(dt time.Duration) []NodeMessage {
	var out []NodeMessage
	n.g.MapInner(func(id ID, node *dag.Node[Tag, Node]) {
		msgs, err := node.Payload.Update(dt)
		if err != nil && n.logger != nil {
			n.logger.Error("clocknet: update failed", "id", id, "error", err)
		}
		out = append(out, wrapMessages(id, msgs)...)
	})
	return out
}

// KnobValue/SetKnob lift node-local knob operations to network-scoped
// KnobAddr, wrapping any failure's address via knob.LiftAddress.
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

// Knobs lists every knob of every live node, addressed at network scope.
func (n *Network) Knobs() map[KnobAddr]knob.Description {
	out := make(map[KnobAddr]knob.Description)
	n.g.MapInner(func(id ID, node *dag.Node[Tag, Node]) {
		for i, d := range node.Payload.Knobs() {
			out[KnobAddr{Node: id, Local: knob.LocalAddr(i)}] = d
		}
	})
	return out
}

// Classes lists registered clock classes (for the "Classes" console
// request).
func (n *Network) Classes() []string { return Classes() }

// SavedNode is the serializable form of one clock node: its slot/generation
// (so save order can rebuild stable ids), class+blob payload, name and
// wired inputs (by index/generation).
type SavedNode struct {
	Index      int
	Generation uint64
	Class      string
	Blob       string
	Inputs     []*SavedRef
}

// SavedRef is a serializable dag.ID.
type SavedRef struct {
	Index      int
	Generation uint64
}

// Snapshot serializes every live node into a saveable form.
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
			Inputs:     make([]*SavedRef, len(node.Inputs)),
		}
		for i, in := range node.Inputs {
			if in.Valid {
				sn.Inputs[i] = &SavedRef{Index: in.ID.Index, Generation: in.ID.Generation}
			}
		}
		out = append(out, sn)
	})
	return out, encErr
}

// Restore rebuilds a network from a snapshot, returning the saved slot
// index -> live id mapping so cross-network references (wiggle clock
// sources) can be rebound. It assumes an otherwise-empty network.
func Restore(logger *slog.Logger, nodes []SavedNode) (*Network, map[int]ID, error) {
	n := NewNetwork(logger)
	// First pass: recreate nodes at their saved slots and generations so
	// every saved id resolves unchanged.
	byIndex := make(map[int]ID)
	for _, sn := range nodes {
		node, err := DecodeClass(sn.Class, sn.Blob)
		if err != nil {
			return nil, nil, err
		}
		id, err := n.g.RestoreSlot(sn.Index, sn.Generation, node)
		if err != nil {
			return nil, nil, err
		}
		byIndex[sn.Index] = id
	}
	// Second pass: wire inputs now that every id is known.
	for _, sn := range nodes {
		sinkID := byIndex[sn.Index]
		for i, ref := range sn.Inputs {
			if ref == nil {
				continue
			}
			srcID, ok := byIndex[ref.Index]
			if !ok {
				continue
			}
			if err := n.g.SwapInput(sinkID, i, &srcID); err != nil {
				return nil, nil, err
			}
		}
	}
	return n, byIndex, nil
}
