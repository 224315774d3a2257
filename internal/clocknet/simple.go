// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

package clocknet

import (
	"encoding/json"
	"math"
	"time"

	"github.com/pierrej/lightboard-core/internal/dag"
	"github.com/pierrej/lightboard-core/internal/knob"
)

func init() {
	RegisterClass("simple", decodeSimple)
}

const (
	simpleKnobRate  knob.LocalAddr = 0
	simpleKnobReset knob.LocalAddr = 1
)

// Simple is the reference free-running clock: rate Hz, reset button,
// phase wraps true-modulo into [0,1).
type Simple struct {
	name   string
	rateHz float64
	reset  bool // press pending, consumed on next Update
	value  Value
}

// NewSimple constructs a simple clock at the given rate.
func NewSimple(rateHz float64) *Simple {
	return &Simple{rateHz: rateHz, name: "clock"}
}

func decodeSimple(blob string) (Node, error) {
	s := &Simple{name: "clock", rateHz: 1.0}
	if blob == "" {
		return s, nil
	}
	var wire struct {
		Name   string
		RateHz float64
		Value  Value
	}
	if err := json.Unmarshal([]byte(blob), &wire); err != nil {
		return nil, err
	}
	s.name = wire.Name
	s.rateHz = wire.RateHz
	s.value = wire.Value
	return s, nil
}

func (s *Simple) Encode() (string, error) {
	wire := struct {
		Name   string
		RateHz float64
		Value  Value
	}{s.name, s.rateHz, s.value}
	data, err := json.Marshal(wire)
	return string(data), err
}

func (s *Simple) DefaultInputCount() int { return 0 }
func (s *Simple) Class() string          { return "simple" }
func (s *Simple) Name() string           { return s.name }
func (s *Simple) SetName(n string)       { s.name = n }

func (s *Simple) Knobs() []knob.Description {
	return []knob.Description{
		{Name: "rate", Datatype: knob.DatatypeRate},
		{Name: "reset", Datatype: knob.DatatypeButton},
	}
}

func (s *Simple) KnobValue(addr knob.LocalAddr) (knob.Value, error) {
	switch addr {
	case simpleKnobRate:
		return knob.RateValue(knob.RateFromHz(s.rateHz)), nil
	case simpleKnobReset:
		return knob.ButtonValue(s.reset), nil
	default:
		return knob.Value{}, knob.ErrInvalidAddress(addr)
	}
}

func (s *Simple) KnobDatatype(addr knob.LocalAddr) (knob.Datatype, error) {
	switch addr {
	case simpleKnobRate:
		return knob.DatatypeRate, nil
	case simpleKnobReset:
		return knob.DatatypeButton, nil
	default:
		return 0, knob.ErrInvalidAddress(addr)
	}
}

func (s *Simple) SetKnob(addr knob.LocalAddr, v knob.Value) ([]any, error) {
	switch addr {
	case simpleKnobRate:
		if v.Type != knob.DatatypeRate {
			return nil, knob.ErrInvalidDatatype(addr, knob.DatatypeRate, v.Type)
		}
		s.rateHz = v.Rate.Hz
		return nil, nil
	case simpleKnobReset:
		if v.Type != knob.DatatypeButton {
			return nil, knob.ErrInvalidDatatype(addr, knob.DatatypeButton, v.Type)
		}
		if v.Button {
			s.reset = true
		}
		return nil, nil
	default:
		return nil, knob.ErrInvalidAddress(addr)
	}
}

// Update advances the clock by dt. update(0) is a strict no-op so that
// render-determinism holds against repeated zero-length frames.
func (s *Simple) Update(dt time.Duration) ([]any, error) {
	if s.reset {
		s.value = Value{Phase: 0, TickCount: 0, Ticked: true}
		s.reset = false
		return []any{KnobChangedMessage{Addr: simpleKnobReset, Value: knob.ButtonValue(false)}}, nil
	}
	if dt == 0 {
		return nil, nil
	}

	raw := s.value.Phase + s.rateHz*dt.Seconds()
	tickDelta := math.Floor(raw)
	wrapped := raw - tickDelta

	s.value = Value{
		Phase:     wrapped,
		TickCount: s.value.TickCount + int64(tickDelta),
		Ticked:    math.Abs(tickDelta) >= 1,
	}
	return nil, nil
}

// Render is a pure function of current state; clocks with no inputs ignore
// both arguments.
func (s *Simple) Render(_ []dag.OptionalID[Tag], _ Provider) Value {
	return s.value
}
