// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

package clocknet

import (
	"log/slog"
	"math"
	"os"
	"testing"
	"time"

	"github.com/pierrej/lightboard-core/internal/dag"
	"github.com/pierrej/lightboard-core/internal/knob"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func mustSetRate(t *testing.T, n *Network, id ID, hz float64) {
	t.Helper()
	_, err := n.SetKnob(KnobAddr{Node: id, Local: 0}, knob.RateValue(knob.RateFromHz(hz)))
	if err != nil {
		t.Fatalf("set rate: %v", err)
	}
}

func TestSimpleClockTiming(t *testing.T) {
	n := NewNetwork(testLogger())
	id, err := n.Add("simple", "c")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	mustSetRate(t, n, id, 1)

	steps := []struct {
		dt     time.Duration
		phase  float64
		ticks  int64
		ticked bool
	}{
		{750 * time.Millisecond, 0.75, 0, false},
		{750 * time.Millisecond, 0.5, 1, true},
		{100 * time.Millisecond, 0.6, 1, false},
	}
	for i, step := range steps {
		n.Update(step.dt)
		v := n.Value(id)
		if math.Abs(v.Phase-step.phase) > 1e-9 {
			t.Errorf("step %d: phase = %v, want %v", i, v.Phase, step.phase)
		}
		if v.TickCount != step.ticks {
			t.Errorf("step %d: ticks = %d, want %d", i, v.TickCount, step.ticks)
		}
		if v.Ticked != step.ticked {
			t.Errorf("step %d: ticked = %v, want %v", i, v.Ticked, step.ticked)
		}
	}
}

func TestSimpleClockTimeAccounting(t *testing.T) {
	// Over updates summing to T seconds at rate r, tick_count + phase
	// equals r*T to within 1e-6.
	n := NewNetwork(testLogger())
	id, _ := n.Add("simple", "c")
	mustSetRate(t, n, id, 3.5)

	total := time.Duration(0)
	for i := 0; i < 1000; i++ {
		dt := time.Duration(i%17+1) * time.Millisecond
		n.Update(dt)
		total += dt
	}

	v := n.Value(id)
	got := float64(v.TickCount) + v.Phase
	want := 3.5 * total.Seconds()
	if math.Abs(got-want) > 1e-6 {
		t.Errorf("tick_count+phase = %v, want %v", got, want)
	}
}

func TestSimpleClockUpdateZeroIsNoop(t *testing.T) {
	n := NewNetwork(testLogger())
	id, _ := n.Add("simple", "c")
	mustSetRate(t, n, id, 2)

	n.Update(300 * time.Millisecond)
	before := n.Value(id)
	n.Update(0)
	after := n.Value(id)
	if before != after {
		t.Errorf("update(0) changed value: %+v -> %+v", before, after)
	}
}

func TestRenderDeterminism(t *testing.T) {
	n := NewNetwork(testLogger())
	id, _ := n.Add("simple", "c")
	mustSetRate(t, n, id, 1)
	n.Update(300 * time.Millisecond)

	first := n.Value(id)
	for i := 0; i < 10; i++ {
		if v := n.Value(id); v != first {
			t.Fatalf("render %d differs: %+v vs %+v", i, v, first)
		}
	}
}

func TestSimpleClockReset(t *testing.T) {
	n := NewNetwork(testLogger())
	id, _ := n.Add("simple", "c")
	mustSetRate(t, n, id, 1)
	n.Update(2500 * time.Millisecond)

	if _, err := n.SetKnob(KnobAddr{Node: id, Local: 1}, knob.ButtonValue(true)); err != nil {
		t.Fatalf("press reset: %v", err)
	}

	msgs := n.Update(10 * time.Millisecond)
	v := n.Value(id)
	if v.Phase != 0 || v.TickCount != 0 || !v.Ticked {
		t.Errorf("reset value = %+v, want {0 0 true}", v)
	}

	// The button auto-clears and announces it.
	found := false
	for _, nm := range msgs {
		if m, ok := nm.Msg.(KnobChangedMessage); ok && m.Addr == 1 && !m.Value.Button {
			found = true
		}
	}
	if !found {
		t.Errorf("no button-clear message in %v", msgs)
	}

	val, err := n.KnobValue(KnobAddr{Node: id, Local: 1})
	if err != nil || val.Button {
		t.Errorf("reset knob not cleared: %+v err=%v", val, err)
	}
}

func TestMultiplier(t *testing.T) {
	n := NewNetwork(testLogger())
	src, _ := n.Add("simple", "src")
	mustSetRate(t, n, src, 1)
	mul, _ := n.Add("multiplier", "x2")
	if _, err := n.SetKnob(KnobAddr{Node: mul, Local: 0}, knob.UFloatValue(2)); err != nil {
		t.Fatalf("set factor: %v", err)
	}
	if err := n.SetInput(mul, 0, &src); err != nil {
		t.Fatalf("wire input: %v", err)
	}

	n.Update(300 * time.Millisecond) // src at 0.3
	v := n.Value(mul)
	if math.Abs(v.Phase-0.6) > 1e-9 || v.TickCount != 0 {
		t.Errorf("x2 of 0.3 = %+v, want phase 0.6 ticks 0", v)
	}
	if v.Ticked {
		t.Errorf("first render should not tick")
	}

	n.Update(300 * time.Millisecond) // src at 0.6, x2 = 1.2
	v = n.Value(mul)
	if math.Abs(v.Phase-0.2) > 1e-9 || v.TickCount != 1 {
		t.Errorf("x2 of 0.6 = %+v, want phase 0.2 ticks 1", v)
	}
	if !v.Ticked {
		t.Errorf("crossing 1.0 must set ticked")
	}
}

func TestCyclePreventionAcrossClocks(t *testing.T) {
	n := NewNetwork(testLogger())
	c1, _ := n.Add("multiplier", "c1")
	c2, _ := n.Add("multiplier", "c2")

	if err := n.SetInput(c2, 0, &c1); err != nil {
		t.Fatalf("wire c1 -> c2: %v", err)
	}
	err := n.SetInput(c1, 0, &c2)
	ce, ok := err.(*dag.WouldCycleError[Tag])
	if !ok {
		t.Fatalf("expected WouldCycleError, got %v", err)
	}
	if ce.Source != c2 || ce.Sink != c1 {
		t.Errorf("cycle edge = %+v/%+v, want %v/%v", ce.Source, ce.Sink, c2, c1)
	}

	node, _ := n.Node(c1)
	if node.Inputs[0].Valid {
		t.Errorf("rejected connect must leave input unchanged")
	}
}

func TestMissingUpstreamYieldsDefault(t *testing.T) {
	n := NewNetwork(testLogger())
	mul, _ := n.Add("multiplier", "m")
	src, _ := n.Add("simple", "s")
	if err := n.SetInput(mul, 0, &src); err != nil {
		t.Fatalf("wire: %v", err)
	}
	if err := n.Remove(src, true); err != nil {
		t.Fatalf("remove: %v", err)
	}

	// The input slot was cleared by removal; render falls back to the
	// default upstream value instead of failing.
	v := n.Value(mul)
	if v.Phase != 0 || v.TickCount != 0 {
		t.Errorf("default render = %+v", v)
	}

	// A stale id passed directly to the provider also yields the default.
	if v := n.Value(src); (v != Value{}) {
		t.Errorf("stale id render = %+v, want zero", v)
	}
}

func TestSnapshotRestore(t *testing.T) {
	n := NewNetwork(testLogger())
	src, _ := n.Add("simple", "base")
	mustSetRate(t, n, src, 2)
	mul, _ := n.Add("multiplier", "x3")
	if _, err := n.SetKnob(KnobAddr{Node: mul, Local: 0}, knob.UFloatValue(3)); err != nil {
		t.Fatalf("set factor: %v", err)
	}
	if err := n.SetInput(mul, 0, &src); err != nil {
		t.Fatalf("wire: %v", err)
	}
	n.Update(250 * time.Millisecond)

	saved, err := n.Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}

	restored, byIndex, err := Restore(testLogger(), saved)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if got := byIndex[src.Index]; got != src {
		t.Errorf("restored src id = %v, want %v", got, src)
	}

	// The restored network renders identically.
	if got, want := restored.Value(src), n.Value(src); got != want {
		t.Errorf("restored src value = %+v, want %+v", got, want)
	}
	rv, nv := restored.Value(mul), n.Value(mul)
	if math.Abs(rv.Phase-nv.Phase) > 1e-9 || rv.TickCount != nv.TickCount {
		t.Errorf("restored mul value = %+v, want %+v", rv, nv)
	}
}
