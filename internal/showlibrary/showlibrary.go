// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

// Package showlibrary implements the on-disk show library: one directory
// per show holding timestamped save files, plus an autosave/ subdirectory
// with a compact binary format.
package showlibrary

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"
)

const (
	textExt    = "toml"
	binaryExt  = "bin"
	timeLayout = "2006-01-02_15:04:05"
)

// Error is the library error kind: show does not
// exist, save not found, deserialize error, I/O error, rename collision.
type Error struct {
	Kind string
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("showlibrary: %s %s: %v", e.Kind, e.Path, e.Err)
	}
	return fmt.Sprintf("showlibrary: %s %s", e.Kind, e.Path)
}

func (e *Error) Unwrap() error { return e.Err }

// Library is a handle onto one show's save directory, rooted at a
// configurable library directory.
type Library struct {
	Root string // <library>
	Show string // show name; directory is Root/Show
}

// New returns a handle for showName under root, without touching disk.
func New(root, showName string) *Library {
	return &Library{Root: root, Show: showName}
}

func (l *Library) dir() string         { return filepath.Join(l.Root, l.Show) }
func (l *Library) autosaveDir() string { return filepath.Join(l.dir(), "autosave") }

// EnsureDirs creates the show directory and its autosave subdirectory.
func (l *Library) EnsureDirs() error {
	if err := os.MkdirAll(l.autosaveDir(), 0o755); err != nil {
		return &Error{Kind: "IOError", Path: l.dir(), Err: err}
	}
	return nil
}

// Snapshot is the serializable form of the whole console state: a show
// session id (so concurrent autosaves never collide even if wall clocks
// skew) plus the clock/wiggle/patch sub-documents the reactor assembles.
// The sub-documents are opaque JSON strings here; the library only wraps
// them in its on-disk envelope.
type Snapshot struct {
	SessionID string
	ShowName  string
	Clocks    string
	Wiggles   string
	Patch     string
}

// NewSessionID mints a fresh session id for a new show.
func NewSessionID() string { return uuid.NewString() }

// stampName builds "<timestamp>.<ext>" for now, with a literal
// nanosecond component guaranteeing two saves in the same second don't
// collide.
func stampName(now time.Time, ext string) string {
	return fmt.Sprintf("%s_%09d.%s", now.Format(timeLayout), now.Nanosecond(), ext)
}

// Save writes the current state as a human-readable TOML file in the show
// directory. now is passed in rather than read internally so the reactor
// (which cannot call time.Now from anywhere time-sensitive to save
// determinism) controls the timestamp.
func (l *Library) Save(now time.Time, snap Snapshot) (string, error) {
	if err := l.EnsureDirs(); err != nil {
		return "", err
	}
	name := stampName(now, textExt)
	path := filepath.Join(l.dir(), name)

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(wireSnapshot(snap)); err != nil {
		return "", &Error{Kind: "DeserializeError", Path: path, Err: err}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", &Error{Kind: "IOError", Path: path, Err: err}
	}
	return path, nil
}

// Autosave writes the current state as a compact gob-encoded file in the
// autosave/ subdirectory. A new timestamped file is always created —
// there is no in-place overwrite.
func (l *Library) Autosave(now time.Time, snap Snapshot) (string, error) {
	if err := l.EnsureDirs(); err != nil {
		return "", err
	}
	name := stampName(now, binaryExt)
	path := filepath.Join(l.autosaveDir(), name)

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(wireSnapshot(snap)); err != nil {
		return "", &Error{Kind: "DeserializeError", Path: path, Err: err}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		return "", &Error{Kind: "IOError", Path: path, Err: err}
	}
	return path, nil
}

// wireGobSnapshot is the gob/toml-friendly mirror of Snapshot.
type wireGobSnapshot struct {
	SessionID string
	ShowName  string
	Clocks    string
	Wiggles   string
	Patch     string
}

func wireSnapshot(s Snapshot) wireGobSnapshot {
	return wireGobSnapshot(s)
}

// SavedFile describes one file discovered in a show or autosave
// directory: its path and the timestamp parsed from its name.
type SavedFile struct {
	Path string
	Name string
	Time time.Time
}

// parseStamp strips any extension then parses the timestamp.
func parseStamp(name string) (time.Time, bool) {
	base := name
	if idx := strings.LastIndex(base, "."); idx >= 0 {
		base = base[:idx]
	}
	idx := strings.LastIndex(base, "_")
	if idx < 0 {
		return time.Time{}, false
	}
	nanos := base[idx+1:]
	stamp := base[:idx]
	t, err := time.ParseInLocation(timeLayout, stamp, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	if len(nanos) != 9 {
		return time.Time{}, false
	}
	var ns int
	if _, err := fmt.Sscanf(nanos, "%09d", &ns); err != nil {
		return time.Time{}, false
	}
	return t.Add(time.Duration(ns)), true
}

// list scans a directory for valid save files, skipping anything whose
// name doesn't parse as a timestamp.
func list(dir string) ([]SavedFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &Error{Kind: "ShowDoesNotExist", Path: dir, Err: err}
		}
		return nil, &Error{Kind: "IOError", Path: dir, Err: err}
	}
	var out []SavedFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		t, ok := parseStamp(e.Name())
		if !ok {
			continue
		}
		out = append(out, SavedFile{Path: filepath.Join(dir, e.Name()), Name: e.Name(), Time: t})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out, nil
}

// Saves lists every save file in the show directory, oldest first.
func (l *Library) Saves() ([]SavedFile, error) { return list(l.dir()) }

// Autosaves lists every autosave file, oldest first.
func (l *Library) Autosaves() ([]SavedFile, error) { return list(l.autosaveDir()) }

func latest(files []SavedFile) (SavedFile, error) {
	if len(files) == 0 {
		return SavedFile{}, &Error{Kind: "SaveNotFound"}
	}
	return files[len(files)-1], nil
}

// LoadLatest loads the most recent save file.
func (l *Library) LoadLatest() (Snapshot, error) {
	files, err := l.Saves()
	if err != nil {
		return Snapshot{}, err
	}
	f, err := latest(files)
	if err != nil {
		return Snapshot{}, err
	}
	return l.loadTOML(f.Path)
}

// LoadLatestAutosave loads the most recent autosave file.
func (l *Library) LoadLatestAutosave() (Snapshot, error) {
	files, err := l.Autosaves()
	if err != nil {
		return Snapshot{}, err
	}
	f, err := latest(files)
	if err != nil {
		return Snapshot{}, err
	}
	return l.loadGob(f.Path)
}

// LoadExact loads a specific save file by its full filename.
func (l *Library) LoadExact(name string) (Snapshot, error) {
	return l.loadTOML(filepath.Join(l.dir(), name))
}

// LoadExactAutosave loads a specific autosave file by its full filename.
func (l *Library) LoadExactAutosave(name string) (Snapshot, error) {
	return l.loadGob(filepath.Join(l.autosaveDir(), name))
}

func (l *Library) loadTOML(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, &Error{Kind: "IOError", Path: path, Err: err}
	}
	var w wireGobSnapshot
	if _, err := toml.Decode(string(data), &w); err != nil {
		return Snapshot{}, &Error{Kind: "DeserializeError", Path: path, Err: err}
	}
	return Snapshot(w), nil
}

func (l *Library) loadGob(path string) (Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, &Error{Kind: "IOError", Path: path, Err: err}
	}
	var w wireGobSnapshot
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&w); err != nil {
		return Snapshot{}, &Error{Kind: "DeserializeError", Path: path, Err: err}
	}
	return Snapshot(w), nil
}

// Rename moves the show directory to a new name within the same library
// root, failing if the destination already exists.
func (l *Library) Rename(newName string) (*Library, error) {
	newLib := &Library{Root: l.Root, Show: newName}
	if _, err := os.Stat(newLib.dir()); err == nil {
		return nil, &Error{Kind: "RenameCollision", Path: newLib.dir()}
	}
	if err := os.Rename(l.dir(), newLib.dir()); err != nil {
		return nil, &Error{Kind: "IOError", Path: newLib.dir(), Err: err}
	}
	return newLib, nil
}

// ShowNames lists every show directory under root (for the "SavedShows"
// top-level command — despite the name, it lists shows, not individual
// save files).
func ShowNames(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, &Error{Kind: "IOError", Path: root, Err: err}
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}
