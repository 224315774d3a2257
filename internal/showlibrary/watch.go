// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

package showlibrary

import (
	"log/slog"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Cache serves save-file listings from memory, invalidated by filesystem
// events instead of re-reading the directory on every request. If the
// watcher cannot be established the cache degrades to direct listing.
type Cache struct {
	lib     *Library
	logger  *slog.Logger
	watcher *fsnotify.Watcher

	mu             sync.Mutex
	saves          []SavedFile
	autosaves      []SavedFile
	savesValid     bool
	autosavesValid bool
}

// NewCache builds a cache over lib, creating the show directories so they
// can be watched immediately.
func NewCache(logger *slog.Logger, lib *Library) *Cache {
	c := &Cache{lib: lib, logger: logger}

	if err := lib.EnsureDirs(); err != nil {
		logger.Warn("showlibrary: cannot prepare directories for watching", "error", err)
		return c
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Warn("showlibrary: watcher unavailable, listing directly", "error", err)
		return c
	}
	if err := w.Add(lib.dir()); err != nil {
		logger.Warn("showlibrary: cannot watch show directory", "error", err)
		w.Close()
		return c
	}
	if err := w.Add(lib.autosaveDir()); err != nil {
		logger.Warn("showlibrary: cannot watch autosave directory", "error", err)
		w.Close()
		return c
	}

	c.watcher = w
	go c.consume()
	return c
}

func (c *Cache) consume() {
	for {
		select {
		case ev, ok := <-c.watcher.Events:
			if !ok {
				return
			}
			c.mu.Lock()
			if ev.Name == c.lib.autosaveDir() || isUnder(ev.Name, c.lib.autosaveDir()) {
				c.autosavesValid = false
			} else {
				c.savesValid = false
			}
			c.mu.Unlock()
		case err, ok := <-c.watcher.Errors:
			if !ok {
				return
			}
			c.logger.Warn("showlibrary: watch error", "error", err)
		}
	}
}

func isUnder(path, dir string) bool {
	return len(path) > len(dir) && path[:len(dir)] == dir
}

// Saves lists save files, from cache when still valid.
func (c *Cache) Saves() ([]SavedFile, error) {
	if c.watcher == nil {
		return c.lib.Saves()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.savesValid {
		return c.saves, nil
	}
	files, err := c.lib.Saves()
	if err != nil {
		return nil, err
	}
	c.saves = files
	c.savesValid = true
	return files, nil
}

// Autosaves lists autosave files, from cache when still valid.
func (c *Cache) Autosaves() ([]SavedFile, error) {
	if c.watcher == nil {
		return c.lib.Autosaves()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.autosavesValid {
		return c.autosaves, nil
	}
	files, err := c.lib.Autosaves()
	if err != nil {
		return nil, err
	}
	c.autosaves = files
	c.autosavesValid = true
	return files, nil
}

// Close releases the watcher. Safe on a cache that never got one.
func (c *Cache) Close() {
	if c.watcher != nil {
		c.watcher.Close()
	}
}
