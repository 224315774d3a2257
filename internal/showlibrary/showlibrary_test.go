// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

package showlibrary

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseStamp(t *testing.T) {
	tests := []struct {
		name string
		ok   bool
	}{
		{"2025-03-01_12:30:45_000000123.toml", true},
		{"2025-03-01_12:30:45_000000123.bin", true},
		{"2025-03-01_12:30:45_000000123", true}, // extensionless names still parse
		{"notastamp.toml", false},
		{"2025-13-01_12:30:45_000000123.toml", false},
		{"2025-03-01_12:30:45_123.toml", false}, // nanos must be 9 digits
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := parseStamp(tt.name)
			if ok != tt.ok {
				t.Errorf("parseStamp(%q) ok = %v, want %v", tt.name, ok, tt.ok)
			}
		})
	}

	when := time.Date(2025, 3, 1, 12, 30, 45, 123, time.Local)
	parsed, ok := parseStamp(stampName(when, "toml"))
	if !ok {
		t.Fatalf("own stamp does not parse")
	}
	if !parsed.Equal(when) {
		t.Errorf("round trip = %v, want %v", parsed, when)
	}
}

func testSnapshot() Snapshot {
	return Snapshot{
		SessionID: "session-1",
		ShowName:  "myshow",
		Clocks:    `[{"Class":"simple"}]`,
		Wiggles:   `[]`,
		Patch:     `{"NextID":3}`,
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	lib := New(t.TempDir(), "myshow")
	snap := testSnapshot()

	if _, err := lib.Save(time.Now(), snap); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := lib.LoadLatest()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != snap {
		t.Errorf("round trip = %+v, want %+v", got, snap)
	}
}

func TestAutosaveRoundTrip(t *testing.T) {
	lib := New(t.TempDir(), "myshow")
	snap := testSnapshot()

	path, err := lib.Autosave(time.Now(), snap)
	if err != nil {
		t.Fatalf("autosave: %v", err)
	}
	if filepath.Dir(path) != filepath.Join(lib.Root, "myshow", "autosave") {
		t.Errorf("autosave path = %s", path)
	}

	got, err := lib.LoadLatestAutosave()
	if err != nil {
		t.Fatalf("load autosave: %v", err)
	}
	if got != snap {
		t.Errorf("round trip = %+v, want %+v", got, snap)
	}
}

func TestLoadLatestPicksMaxTimestamp(t *testing.T) {
	lib := New(t.TempDir(), "myshow")

	older := testSnapshot()
	older.SessionID = "older"
	newer := testSnapshot()
	newer.SessionID = "newer"

	base := time.Now()
	if _, err := lib.Save(base, older); err != nil {
		t.Fatalf("save older: %v", err)
	}
	if _, err := lib.Save(base.Add(time.Second), newer); err != nil {
		t.Fatalf("save newer: %v", err)
	}

	// Same second, later nanos also wins.
	newest := testSnapshot()
	newest.SessionID = "newest"
	if _, err := lib.Save(base.Add(time.Second+time.Millisecond), newest); err != nil {
		t.Fatalf("save newest: %v", err)
	}

	got, err := lib.LoadLatest()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.SessionID != "newest" {
		t.Errorf("latest = %s, want newest", got.SessionID)
	}
}

func TestInvalidFilenamesSkipped(t *testing.T) {
	lib := New(t.TempDir(), "myshow")
	if _, err := lib.Save(time.Now(), testSnapshot()); err != nil {
		t.Fatalf("save: %v", err)
	}
	junk := filepath.Join(lib.Root, "myshow", "README.txt")
	if err := os.WriteFile(junk, []byte("not a save"), 0o644); err != nil {
		t.Fatalf("write junk: %v", err)
	}

	files, err := lib.Saves()
	if err != nil {
		t.Fatalf("saves: %v", err)
	}
	if len(files) != 1 {
		t.Errorf("saves = %d entries, want 1", len(files))
	}
}

func TestMissingShowDirectory(t *testing.T) {
	lib := New(t.TempDir(), "ghost")
	_, err := lib.LoadLatest()
	le, ok := err.(*Error)
	if !ok || le.Kind != "ShowDoesNotExist" {
		t.Errorf("load of missing show = %v, want ShowDoesNotExist", err)
	}

	// An empty (existing) show reports SaveNotFound instead.
	lib2 := New(lib.Root, "empty")
	if err := lib2.EnsureDirs(); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	_, err = lib2.LoadLatest()
	le, ok = err.(*Error)
	if !ok || le.Kind != "SaveNotFound" {
		t.Errorf("load of empty show = %v, want SaveNotFound", err)
	}
}

func TestCorruptSaveReportsDeserializeError(t *testing.T) {
	lib := New(t.TempDir(), "myshow")
	if err := lib.EnsureDirs(); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	name := stampName(time.Now(), "toml")
	if err := os.WriteFile(filepath.Join(lib.Root, "myshow", name), []byte("= not toml ="), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := lib.LoadLatest()
	le, ok := err.(*Error)
	if !ok || le.Kind != "DeserializeError" {
		t.Errorf("corrupt load = %v, want DeserializeError", err)
	}
}

func TestRename(t *testing.T) {
	root := t.TempDir()
	lib := New(root, "before")
	if _, err := lib.Save(time.Now(), testSnapshot()); err != nil {
		t.Fatalf("save: %v", err)
	}

	renamed, err := lib.Rename("after")
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if _, err := renamed.LoadLatest(); err != nil {
		t.Errorf("renamed show lost its saves: %v", err)
	}

	// Renaming onto an existing show collides.
	other := New(root, "other")
	if err := other.EnsureDirs(); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if _, err := renamed.Rename("other"); err == nil {
		t.Errorf("rename collision accepted")
	}
}

func TestShowNames(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"bravo", "alpha"} {
		if err := New(root, name).EnsureDirs(); err != nil {
			t.Fatalf("ensure %s: %v", name, err)
		}
	}
	names, err := ShowNames(root)
	if err != nil {
		t.Fatalf("show names: %v", err)
	}
	if len(names) != 2 || names[0] != "alpha" || names[1] != "bravo" {
		t.Errorf("names = %v", names)
	}

	// A missing root is just an empty library.
	names, err = ShowNames(filepath.Join(root, "nope"))
	if err != nil || names != nil {
		t.Errorf("missing root = %v, %v", names, err)
	}
}
