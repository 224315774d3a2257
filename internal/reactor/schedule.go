// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

// Package reactor implements the console event loop and command dispatch:
// alternating fixed-interval state updates, rate-limited DMX
// rendering, autosave, and blocking command intake.
package reactor

import "time"

// EventKind tags what Schedule.Next decided is due.
type EventKind int

const (
	EventIdle EventKind = iota
	EventUpdate
	EventRender
	EventAutosave
)

// Event is the result of one scheduling decision: either a concrete due
// event (Update carries the accumulated dt) or Idle (carries how long the
// reactor may block on command intake before re-checking).
type Event struct {
	Kind EventKind
	Dt   time.Duration // EventUpdate only
	Idle time.Duration // EventIdle only
}

// Schedule tracks the three absolute intervals and the wall-clock time
// each event category last fired.
type Schedule struct {
	UpdateInterval   time.Duration
	RenderInterval   time.Duration
	AutosaveInterval time.Duration // 0 = disabled

	LastUpdate   time.Time
	LastRender   time.Time
	LastAutosave time.Time
}

// NewSchedule anchors all three "last fired" timestamps at now, so the
// first Next call measures elapsed time from construction rather than
// from the zero time.Time.
func NewSchedule(now time.Time, update, render, autosave time.Duration) *Schedule {
	return &Schedule{
		UpdateInterval:   update,
		RenderInterval:   render,
		AutosaveInterval: autosave,
		LastUpdate:       now,
		LastRender:       now,
		LastAutosave:     now,
	}
}

// Next computes the single most-due event at now, mutating the
// corresponding Last* timestamp, or reports Idle(duration) if nothing is
// due yet.
func (s *Schedule) Next(now time.Time) Event {
	updateDueIn := s.UpdateInterval - now.Sub(s.LastUpdate)
	renderDueIn := s.RenderInterval - now.Sub(s.LastRender)
	var autosaveDueIn time.Duration
	autosaveEnabled := s.AutosaveInterval > 0
	if autosaveEnabled {
		autosaveDueIn = s.AutosaveInterval - now.Sub(s.LastAutosave)
	} else {
		autosaveDueIn = time.Duration(1<<63 - 1) // effectively +Inf
	}

	minDueIn := updateDueIn
	which := EventUpdate
	if renderDueIn < minDueIn {
		minDueIn = renderDueIn
		which = EventRender
	}
	if autosaveEnabled && autosaveDueIn < minDueIn {
		minDueIn = autosaveDueIn
		which = EventAutosave
	}

	if minDueIn > 0 {
		return Event{Kind: EventIdle, Idle: minDueIn}
	}

	switch which {
	case EventUpdate:
		return s.fireUpdate(now)
	case EventRender:
		s.LastRender = now
		return Event{Kind: EventRender}
	default:
		s.LastAutosave = now
		return Event{Kind: EventAutosave}
	}
}

// fireUpdate applies the catch-up rule: more than two intervals behind
// collapses into one fat update of k*interval;
// a single-interval debt is paid one step at a time.
func (s *Schedule) fireUpdate(now time.Time) Event {
	elapsed := now.Sub(s.LastUpdate)
	k := int64(elapsed / s.UpdateInterval)
	if k < 1 {
		k = 1
	}
	if k > 2 {
		dt := time.Duration(k) * s.UpdateInterval
		s.LastUpdate = s.LastUpdate.Add(dt)
		return Event{Kind: EventUpdate, Dt: dt}
	}
	s.LastUpdate = s.LastUpdate.Add(s.UpdateInterval)
	return Event{Kind: EventUpdate, Dt: s.UpdateInterval}
}
