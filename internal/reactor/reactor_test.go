// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

package reactor

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/pierrej/lightboard-core/internal/console"
	"github.com/pierrej/lightboard-core/internal/dmxport"
	"github.com/pierrej/lightboard-core/internal/patch"
	"github.com/pierrej/lightboard-core/internal/protocol"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

type offlineFactory struct{}

func (offlineFactory) Open(ref console.PortRef) (dmxport.Port, error) {
	return dmxport.NewOfflinePort(ref.Name), nil
}

func (offlineFactory) Available() []console.PortRef {
	return []console.PortRef{console.OfflineRef}
}

// harness runs a reactor with fast intervals against a temp library and
// collects every response by type.
type harness struct {
	commands  chan protocol.CommandEnvelope
	responses chan protocol.ResponseEnvelope
	collected chan protocol.ResponseEnvelope
	done      chan struct{}
	root      string
}

func startHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		commands:  make(chan protocol.CommandEnvelope, 16),
		responses: make(chan protocol.ResponseEnvelope, 256),
		collected: make(chan protocol.ResponseEnvelope, 1024),
		done:      make(chan struct{}),
		root:      t.TempDir(),
	}

	ports := offlineFactory{}
	cons := console.New(testLogger(), ports, nil)
	cfg := Config{
		UpdateInterval: time.Millisecond,
		RenderInterval: 2 * time.Millisecond,
		LibraryRoot:    h.root,
	}
	r := New(testLogger(), cfg, ports, cons, "testshow", h.commands, h.responses, nil)

	go func() {
		for env := range h.responses {
			select {
			case h.collected <- env:
			default:
			}
		}
	}()
	go func() {
		r.Run()
		close(h.done)
	}()
	return h
}

func (h *harness) send(t *testing.T, cmd protocol.Command) {
	t.Helper()
	select {
	case h.commands <- protocol.CommandEnvelope{
		ClientData: protocol.ClientData{ID: 1, Filter: protocol.FilterAll},
		Payload:    cmd,
	}:
	case <-time.After(time.Second):
		t.Fatal("command send timed out")
	}
}

// waitFor scans collected responses for the first of the given type.
func (h *harness) waitFor(t *testing.T, typ string) protocol.Response {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case env := <-h.collected:
			if env.Payload.Type == typ {
				return env.Payload
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s response", typ)
		}
	}
}

func (h *harness) quit(t *testing.T) {
	t.Helper()
	h.send(t, protocol.Command{Verb: "Quit"})
	select {
	case <-h.done:
	case <-time.After(3 * time.Second):
		t.Fatal("reactor did not stop after Quit")
	}
}

func TestReactorCommandDispatch(t *testing.T) {
	h := startHarness(t)

	h.send(t, protocol.Command{
		Verb: "Console",
		Console: &protocol.ConsoleCommand{
			Family: "Patch",
			Patch:  &protocol.PatchRequest{Verb: "AddUniverse"},
		},
	})
	state := h.waitFor(t, "PatchState")
	if len(state.PatchState.Universes) != 1 {
		t.Errorf("universes = %+v", state.PatchState.Universes)
	}

	h.send(t, protocol.Command{
		Verb: "Console",
		Console: &protocol.ConsoleCommand{
			Family: "Patch",
			Patch: &protocol.PatchRequest{
				Verb: "NewPatches",
				NewPatches: []protocol.NewPatchSpec{
					{Kind: "dimmer", Address: &patch.Address{Universe: 0, DMX: 1}},
				},
			},
		},
	})
	for {
		state = h.waitFor(t, "PatchState")
		if len(state.PatchState.Items) == 1 {
			break
		}
	}

	// An invalid command produces an Error addressed to the caller.
	h.send(t, protocol.Command{Verb: "Nonsense"})
	h.waitFor(t, "Error")

	h.quit(t)
}

func TestReactorSaveAndQuitAutosave(t *testing.T) {
	h := startHarness(t)

	h.send(t, protocol.Command{Verb: "Save"})
	h.waitFor(t, "Ok")

	h.send(t, protocol.Command{Verb: "SavedShows"})
	resp := h.waitFor(t, "SavedShows")
	if len(resp.Names) != 1 || resp.Names[0] != "testshow" {
		t.Errorf("shows = %v", resp.Names)
	}

	h.send(t, protocol.Command{Verb: "AvailableSaves"})
	resp = h.waitFor(t, "AvailableSaves")
	if len(resp.Names) == 0 {
		t.Errorf("no saves listed after Save")
	}

	h.quit(t)

	// Quit autosaved on the way out.
	entries, err := os.ReadDir(h.root + "/testshow/autosave")
	if err != nil || len(entries) == 0 {
		t.Errorf("no autosave written on quit: %v (%d entries)", err, len(entries))
	}
}

func TestReactorNewShowAndLoad(t *testing.T) {
	h := startHarness(t)

	// Mutate, then switch to a new show: the old state is persisted and
	// the new console starts empty.
	h.send(t, protocol.Command{
		Verb: "Console",
		Console: &protocol.ConsoleCommand{
			Family: "Patch",
			Patch:  &protocol.PatchRequest{Verb: "AddUniverse"},
		},
	})
	h.waitFor(t, "PatchState")

	h.send(t, protocol.Command{Verb: "NewShow", Name: "second"})
	for {
		state := h.waitFor(t, "PatchState")
		if len(state.PatchState.Universes) == 0 {
			break
		}
	}

	// Loading the first show back restores its universe.
	h.send(t, protocol.Command{
		Verb:    "Load",
		LoadReq: &protocol.LoadRequest{ShowName: "testshow", Kind: protocol.LoadLatest},
	})
	for {
		state := h.waitFor(t, "PatchState")
		if len(state.PatchState.Universes) == 1 {
			break
		}
	}

	// Loading a show that does not exist keeps the current state and
	// reports the failure.
	h.send(t, protocol.Command{
		Verb:    "Load",
		LoadReq: &protocol.LoadRequest{ShowName: "ghost", Kind: protocol.LoadLatest},
	})
	h.waitFor(t, "Error")

	h.quit(t)
}

func TestReactorRename(t *testing.T) {
	h := startHarness(t)

	h.send(t, protocol.Command{Verb: "Save"})
	h.waitFor(t, "Ok")

	h.send(t, protocol.Command{Verb: "Rename", Name: "renamed"})
	h.waitFor(t, "Ok")

	if _, err := os.Stat(h.root + "/renamed"); err != nil {
		t.Errorf("renamed directory missing: %v", err)
	}

	h.quit(t)
}
