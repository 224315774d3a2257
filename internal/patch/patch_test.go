// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

package patch

import (
	"errors"
	"testing"

	"github.com/pierrej/lightboard-core/internal/dmxport"
	"github.com/pierrej/lightboard-core/internal/knob"
)

func newOfflineUniverse() *Universe {
	return &Universe{Port: dmxport.NewOfflinePort("offline")}
}

func TestPatchAndRender(t *testing.T) {
	p := New()
	uid := p.AddUniverse(newOfflineUniverse())

	fid, err := p.AddAtAddress("dimmer", "front", uid, 1)
	if err != nil {
		t.Fatalf("add at address: %v", err)
	}

	item, _ := p.Item(fid)
	item.Controls[0].Value = knob.UnipolarValue(1.0)

	if errs := p.Render(); len(errs) != 0 {
		t.Fatalf("render errors: %v", errs)
	}

	u, _ := p.Universe(uid)
	if u.Buffer[0] != 255 {
		t.Errorf("buffer[0] = %d, want 255", u.Buffer[0])
	}
	for i := 1; i < 512; i++ {
		if u.Buffer[i] != 0 {
			t.Fatalf("buffer[%d] = %d, want 0", i, u.Buffer[i])
		}
	}
}

func TestAddressConflict(t *testing.T) {
	p := New()
	uid := p.AddUniverse(newOfflineUniverse())

	f1, err := p.AddAtAddress("dimmer", "first", uid, 1)
	if err != nil {
		t.Fatalf("first add: %v", err)
	}

	_, err = p.AddAtAddress("dimmer", "second", uid, 1)
	var pe *Error
	if !errors.As(err, &pe) || pe.Kind != "AddressConflict" {
		t.Fatalf("expected AddressConflict, got %v", err)
	}
	if pe.UniverseID != uid || pe.Address != 1 {
		t.Errorf("conflict location = u%d a%d", pe.UniverseID, pe.Address)
	}
	if len(pe.Conflicting) != 1 || pe.Conflicting[0] != f1 {
		t.Errorf("conflicting ids = %v, want [%d]", pe.Conflicting, f1)
	}

	// F1 is untouched, the failed add is fully reverted.
	item, err := p.Item(f1)
	if err != nil || item.Address == nil || item.Address.DMX != 1 {
		t.Errorf("first fixture disturbed: %+v err=%v", item, err)
	}
	if len(p.Items()) != 1 {
		t.Errorf("reverted add left %d items", len(p.Items()))
	}
}

func TestForceRemoveUniverse(t *testing.T) {
	p := New()
	uid := p.AddUniverse(newOfflineUniverse())
	fid, err := p.AddAtAddress("dimmer", "f", uid, 1)
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	// Without force the universe is busy.
	if _, err := p.RemoveUniverse(uid, false); err == nil {
		t.Fatalf("remove of occupied universe should fail")
	}

	unpatched, err := p.RemoveUniverse(uid, true)
	if err != nil {
		t.Fatalf("force remove: %v", err)
	}
	if len(unpatched) != 1 || unpatched[0] != fid {
		t.Errorf("unpatched = %v, want [%d]", unpatched, fid)
	}

	item, err := p.Item(fid)
	if err != nil {
		t.Fatalf("fixture gone after universe removal: %v", err)
	}
	if item.Address != nil {
		t.Errorf("fixture still addressed: %+v", item.Address)
	}
	if _, err := p.Universe(uid); err == nil {
		t.Errorf("universe still present")
	}
}

func TestRepatchBounds(t *testing.T) {
	p := New()
	uid := p.AddUniverse(newOfflineUniverse())
	fid, _ := p.Add("rgb", "") // 3 channels

	tests := []struct {
		name string
		addr int
		kind string
	}{
		{"zero address", 0, "InvalidAddress"},
		{"beyond 512", 513, "InvalidAddress"},
		{"too long at tail", 511, "FixtureTooLong"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := p.Repatch(fid, uid, tt.addr)
			var pe *Error
			if !errors.As(err, &pe) || pe.Kind != tt.kind {
				t.Errorf("repatch(%d) = %v, want %s", tt.addr, err, tt.kind)
			}
		})
	}

	// 510 is the last legal start for a 3-channel fixture.
	if err := p.Repatch(fid, uid, 510); err != nil {
		t.Errorf("repatch(510) = %v", err)
	}

	// Unknown ids are reported as such.
	if err := p.Repatch(999, uid, 1); err == nil {
		t.Errorf("repatch of unknown fixture succeeded")
	}
	if err := p.Repatch(fid, 7, 1); err == nil {
		t.Errorf("repatch into unknown universe succeeded")
	}
}

func TestRepatchAdjacentFixtures(t *testing.T) {
	p := New()
	uid := p.AddUniverse(newOfflineUniverse())

	if _, err := p.AddAtAddress("rgb", "a", uid, 1); err != nil {
		t.Fatalf("a: %v", err)
	}
	// Channels 4.. are free: snug fit is legal.
	if _, err := p.AddAtAddress("rgb", "b", uid, 4); err != nil {
		t.Errorf("adjacent add failed: %v", err)
	}
	// Overlap by one channel is rejected.
	if _, err := p.AddAtAddress("dimmer", "c", uid, 6); err == nil {
		t.Errorf("overlapping add succeeded")
	}

	// Moving a fixture onto its own channels is always allowed.
	items := p.Items()
	if err := p.Repatch(items[0].ID, uid, 1); err != nil {
		t.Errorf("self repatch failed: %v", err)
	}
}

func TestInactiveAndUnpatchedSkipped(t *testing.T) {
	p := New()
	uid := p.AddUniverse(newOfflineUniverse())
	fid, _ := p.AddAtAddress("dimmer", "f", uid, 1)

	item, _ := p.Item(fid)
	item.Controls[0].Value = knob.UnipolarValue(1.0)

	if err := p.SetActive(fid, false); err != nil {
		t.Fatalf("set inactive: %v", err)
	}
	p.Render()
	u, _ := p.Universe(uid)
	if u.Buffer[0] != 0 {
		t.Errorf("inactive fixture rendered: %d", u.Buffer[0])
	}

	if err := p.SetActive(fid, true); err != nil {
		t.Fatalf("set active: %v", err)
	}
	if err := p.Unpatch(fid); err != nil {
		t.Fatalf("unpatch: %v", err)
	}
	item.Controls[0].Value = knob.UnipolarValue(1.0)
	p.Render()
	if u.Buffer[0] != 0 {
		t.Errorf("unpatched fixture rendered: %d", u.Buffer[0])
	}
}

func TestControlSources(t *testing.T) {
	p := New()
	uid := p.AddUniverse(newOfflineUniverse())
	fid, _ := p.AddAtAddress("dimmer", "f", uid, 1)

	if err := p.SetControlSource(fid, 0, "src-a"); err != nil {
		t.Fatalf("set source: %v", err)
	}
	if err := p.SetControlSource(fid, 3, "src-b"); err == nil {
		t.Errorf("out-of-range control accepted")
	}

	resolved := 0
	p.ApplyControlSources(func(src SourceID, dt knob.Datatype) knob.Value {
		resolved++
		if src != "src-a" {
			t.Errorf("unexpected source %v", src)
		}
		if dt != knob.DatatypeUnipolar {
			t.Errorf("unexpected datatype %v", dt)
		}
		return knob.UnipolarValue(0.5)
	})
	if resolved != 1 {
		t.Fatalf("resolver called %d times, want 1", resolved)
	}

	item, _ := p.Item(fid)
	if item.Controls[0].Value.Sample.Value != 0.5 {
		t.Errorf("control value = %v", item.Controls[0].Value.Sample.Value)
	}

	// Clearing the source reverts the control to its default each frame.
	if err := p.SetControlSource(fid, 0, nil); err != nil {
		t.Fatalf("clear source: %v", err)
	}
	p.ApplyControlSources(func(SourceID, knob.Datatype) knob.Value {
		t.Fatal("resolver called for unbound control")
		return knob.Value{}
	})
	if item.Controls[0].Value.Sample.Value != 0 {
		t.Errorf("unbound control not defaulted: %v", item.Controls[0].Value)
	}
}

func TestFixtureIDsMonotone(t *testing.T) {
	p := New()
	a, _ := p.Add("dimmer", "")
	b, _ := p.Add("dimmer", "")
	if err := p.Remove(a); err != nil {
		t.Fatalf("remove: %v", err)
	}
	c, _ := p.Add("dimmer", "")
	if c <= b {
		t.Errorf("fixture id reused: %d after %d", c, b)
	}
	if _, err := p.Item(a); err == nil {
		t.Errorf("removed fixture still resolves")
	}
}

func TestAutoNames(t *testing.T) {
	p := New()
	a, _ := p.Add("dimmer", "")
	b, _ := p.Add("dimmer", "")
	ia, _ := p.Item(a)
	ib, _ := p.Item(b)
	if ia.Name == ib.Name {
		t.Errorf("auto names collide: %q", ia.Name)
	}
	if _, err := p.Add("no_such_profile", ""); err == nil {
		t.Errorf("unknown profile accepted")
	}
}

func TestPortWriteErrorsCollected(t *testing.T) {
	p := New()
	bad := &failingPort{}
	uid := p.AddUniverse(&Universe{Port: bad})

	errs := p.Render()
	if len(errs) != 1 {
		t.Fatalf("errors = %v, want one", errs)
	}
	if _, ok := errs[uid]; !ok {
		t.Errorf("error not keyed by universe: %v", errs)
	}
}

type failingPort struct{}

func (p *failingPort) Name() string { return "failing" }
func (p *failingPort) Write(_ *dmxport.Frame) error {
	return &dmxport.Error{Port: "failing", Err: errors.New("boom"), OSErrno: 6}
}
