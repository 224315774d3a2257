// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

package dag

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type tag struct{}

// testPayload is a minimal payload with a configurable arity and optional
// push/pop support.
type testPayload struct {
	inputs  int
	canGrow bool
}

func (p *testPayload) DefaultInputCount() int { return p.inputs }

func (p *testPayload) TryPushInput() ([]any, error) {
	if !p.canGrow {
		return nil, &Error{Kind: "CantAddInput"}
	}
	p.inputs++
	return []any{"added"}, nil
}

func (p *testPayload) TryPopInput() ([]any, error) {
	if !p.canGrow || p.inputs <= 1 {
		return nil, &Error{Kind: "CantRemoveInput"}
	}
	p.inputs--
	return []any{"removed"}, nil
}

func newNet() *Network[tag, *testPayload] {
	return New[tag, *testPayload]()
}

func TestAddFillsLowestEmptySlot(t *testing.T) {
	n := newNet()
	a, _ := n.Add(&testPayload{})
	b, _ := n.Add(&testPayload{})
	require.Equal(t, 0, a.Index)
	require.Equal(t, 1, b.Index)

	_, err := n.Remove(a, false)
	require.NoError(t, err)

	c, _ := n.Add(&testPayload{})
	require.Equal(t, 0, c.Index, "recycled slot should be reused first")
	require.Equal(t, uint64(1), c.Generation)
}

func TestGenerationalSafety(t *testing.T) {
	n := newNet()
	id, _ := n.Add(&testPayload{})

	// N add/remove cycles on the same slot bump the generation each time
	// and invalidate every prior id.
	stale := []ID[tag]{id}
	for i := 1; i <= 5; i++ {
		_, err := n.Remove(stale[len(stale)-1], false)
		require.NoError(t, err)
		next, _ := n.Add(&testPayload{})
		require.Equal(t, 0, next.Index)
		require.Equal(t, uint64(i), next.Generation)
		stale = append(stale, next)
	}

	for _, old := range stale[:len(stale)-1] {
		_, err := n.Node(old)
		require.Error(t, err)
		var de *Error
		require.ErrorAs(t, err, &de)
		require.Contains(t, []string{"OldGenId", "NoNodeAt"}, de.Kind)
	}

	// The live id still resolves.
	_, err := n.Node(stale[len(stale)-1])
	require.NoError(t, err)
}

func TestRemoveAfterRemoveFails(t *testing.T) {
	n := newNet()
	id, _ := n.Add(&testPayload{})
	_, err := n.Remove(id, false)
	require.NoError(t, err)
	_, err = n.Remove(id, false)
	require.Error(t, err)
}

// listenerSum sums all multi-edge listener counts recorded on id.
func listenerSum(t *testing.T, n *Network[tag, *testPayload], id ID[tag]) int {
	t.Helper()
	node, err := n.Node(id)
	require.NoError(t, err)
	total := 0
	for _, c := range node.Listeners {
		total += c
	}
	return total
}

func TestListenerSymmetry(t *testing.T) {
	n := newNet()
	src, _ := n.Add(&testPayload{})
	sink, sinkNode := n.Add(&testPayload{inputs: 3})

	require.NoError(t, n.SwapInput(sink, 0, &src))
	require.NoError(t, n.SwapInput(sink, 1, &src))
	require.NoError(t, n.SwapInput(sink, 2, &src))

	srcNode, _ := n.Node(src)
	require.Equal(t, 3, srcNode.Listeners[sink.Index], "multi-edges count per input slot")

	// Disconnecting one slot decrements; disconnecting all erases the key.
	require.NoError(t, n.SwapInput(sink, 1, nil))
	require.Equal(t, 2, srcNode.Listeners[sink.Index])
	require.NoError(t, n.SwapInput(sink, 0, nil))
	require.NoError(t, n.SwapInput(sink, 2, nil))
	_, present := srcNode.Listeners[sink.Index]
	require.False(t, present, "zero-count listener entries must be removed eagerly")

	for _, in := range sinkNode.Inputs {
		require.False(t, in.Valid)
	}
}

func TestRemoveWithListeners(t *testing.T) {
	n := newNet()
	src, _ := n.Add(&testPayload{})
	sink, _ := n.Add(&testPayload{inputs: 1})
	require.NoError(t, n.SwapInput(sink, 0, &src))

	_, err := n.Remove(src, false)
	var de *Error
	require.ErrorAs(t, err, &de)
	require.Equal(t, "HasListeners", de.Kind)

	// Force removal clears the downstream input slot.
	_, err = n.Remove(src, true)
	require.NoError(t, err)
	sinkNode, _ := n.Node(sink)
	require.False(t, sinkNode.Inputs[0].Valid, "downstream input must be cleared")
}

func TestRemoveDisconnectsUpstream(t *testing.T) {
	n := newNet()
	src, _ := n.Add(&testPayload{})
	sink, _ := n.Add(&testPayload{inputs: 1})
	require.NoError(t, n.SwapInput(sink, 0, &src))

	_, err := n.Remove(sink, false)
	require.NoError(t, err)
	require.Equal(t, 0, listenerSum(t, n, src), "upstream listener record must be gone")
}

func TestCyclePrevention(t *testing.T) {
	n := newNet()
	a, _ := n.Add(&testPayload{inputs: 1})
	b, _ := n.Add(&testPayload{inputs: 1})
	c, _ := n.Add(&testPayload{inputs: 1})

	// a <- b <- c, then closing c -> a's input would cycle.
	require.NoError(t, n.SwapInput(b, 0, &a))
	require.NoError(t, n.SwapInput(c, 0, &b))

	err := n.SwapInput(a, 0, &c)
	var ce *WouldCycleError[tag]
	require.ErrorAs(t, err, &ce)
	require.Equal(t, c, ce.Source)
	require.Equal(t, a, ce.Sink)

	// The rejected mutation must be a no-op.
	aNode, _ := n.Node(a)
	require.False(t, aNode.Inputs[0].Valid)

	// Self-loop is rejected outright.
	err = n.SwapInput(a, 0, &a)
	require.ErrorAs(t, err, &ce)
}

func TestSwapInputInvalidIndex(t *testing.T) {
	n := newNet()
	a, _ := n.Add(&testPayload{inputs: 1})
	err := n.SwapInput(a, 5, nil)
	var de *Error
	require.ErrorAs(t, err, &de)
	require.Equal(t, "InvalidInputId", de.Kind)
}

func TestPushPopInput(t *testing.T) {
	n := newNet()
	src, _ := n.Add(&testPayload{})
	sink, _ := n.Add(&testPayload{inputs: 1, canGrow: true})

	msgs, err := n.PushInput(sink, &src)
	require.NoError(t, err)
	require.Equal(t, []any{"added"}, msgs)

	sinkNode, _ := n.Node(sink)
	require.Len(t, sinkNode.Inputs, 2)
	require.True(t, sinkNode.Inputs[1].Valid)
	require.Equal(t, 1, listenerSum(t, n, src))

	msgs, err = n.PopInput(sink)
	require.NoError(t, err)
	require.Equal(t, []any{"removed"}, msgs)
	require.Len(t, sinkNode.Inputs, 1)
	require.Equal(t, 0, listenerSum(t, n, src), "pop must release the listener")

	// A fixed-arity payload cannot grow.
	rigid, _ := n.Add(&testPayload{inputs: 1})
	_, err = n.PushInput(rigid, nil)
	var de *Error
	require.ErrorAs(t, err, &de)
	require.Equal(t, "CantAddInput", de.Kind)
}

func TestRestoreSlot(t *testing.T) {
	n := newNet()
	id, err := n.RestoreSlot(2, 7, &testPayload{inputs: 1})
	require.NoError(t, err)
	require.Equal(t, ID[tag]{Index: 2, Generation: 7}, id)

	node, err := n.Node(id)
	require.NoError(t, err)
	require.Len(t, node.Inputs, 1)

	// The intermediate slots exist but are empty.
	require.Equal(t, 3, n.SlotCount())
	require.Equal(t, 1, n.Len())

	// Restoring into an occupied slot fails.
	_, err = n.RestoreSlot(2, 9, &testPayload{})
	require.Error(t, err)
}
