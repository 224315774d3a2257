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
	RegisterClass("multiplier", decodeMultiplier)
}

const (
	multKnobFactor knob.LocalAddr = 0
	multKnobReset  knob.LocalAddr = 1
)

// Multiplier consumes one upstream clock and scales its tick+phase value
// by factor. It is stateless for Update except aging a frames-since-render
// counter; ticked is computed by comparing the truncated multiplied value
// against the value from the previous render.
type Multiplier struct {
	name     string
	factor   float64
	reset    bool
	havePrev bool
	prevRaw  float64
	age      int // frames since last render
}

// NewMultiplier constructs a clock multiplier at the given factor.
func NewMultiplier(factor float64) *Multiplier {
	return &Multiplier{factor: factor, name: "multiplier"}
}

func decodeMultiplier(blob string) (Node, error) {
	m := &Multiplier{name: "multiplier", factor: 1.0}
	if blob == "" {
		return m, nil
	}
	var wire struct {
		Name     string
		Factor   float64
		HavePrev bool
		PrevRaw  float64
	}
	if err := json.Unmarshal([]byte(blob), &wire); err != nil {
		return nil, err
	}
	m.name = wire.Name
	m.factor = wire.Factor
	m.havePrev = wire.HavePrev
	m.prevRaw = wire.PrevRaw
	return m, nil
}

func (m *Multiplier) Encode() (string, error) {
	wire := struct {
		Name     string
		Factor   float64
		HavePrev bool
		PrevRaw  float64
	}{m.name, m.factor, m.havePrev, m.prevRaw}
	data, err := json.Marshal(wire)
	return string(data), err
}

func (m *Multiplier) DefaultInputCount() int { return 1 }
func (m *Multiplier) Class() string          { return "multiplier" }
func (m *Multiplier) Name() string           { return m.name }
func (m *Multiplier) SetName(n string)       { m.name = n }

func (m *Multiplier) Knobs() []knob.Description {
	return []knob.Description{
		{Name: "factor", Datatype: knob.DatatypeUFloat},
		{Name: "reset", Datatype: knob.DatatypeButton},
	}
}

func (m *Multiplier) KnobValue(addr knob.LocalAddr) (knob.Value, error) {
	switch addr {
	case multKnobFactor:
		return knob.UFloatValue(m.factor), nil
	case multKnobReset:
		return knob.ButtonValue(m.reset), nil
	default:
		return knob.Value{}, knob.ErrInvalidAddress(addr)
	}
}

func (m *Multiplier) KnobDatatype(addr knob.LocalAddr) (knob.Datatype, error) {
	switch addr {
	case multKnobFactor:
		return knob.DatatypeUFloat, nil
	case multKnobReset:
		return knob.DatatypeButton, nil
	default:
		return 0, knob.ErrInvalidAddress(addr)
	}
}

func (m *Multiplier) SetKnob(addr knob.LocalAddr, v knob.Value) ([]any, error) {
	switch addr {
	case multKnobFactor:
		if v.Type != knob.DatatypeUFloat {
			return nil, knob.ErrInvalidDatatype(addr, knob.DatatypeUFloat, v.Type)
		}
		m.factor = v.UFloat
		return nil, nil
	case multKnobReset:
		if v.Type != knob.DatatypeButton {
			return nil, knob.ErrInvalidDatatype(addr, knob.DatatypeButton, v.Type)
		}
		if v.Button {
			m.reset = true
		}
		return nil, nil
	default:
		return nil, knob.ErrInvalidAddress(addr)
	}
}

// Update ages the render counter; a pending reset clears stored previous
// value and age on the next Update rather than immediately.
func (m *Multiplier) Update(_ time.Duration) ([]any, error) {
	if m.reset {
		m.havePrev = false
		m.prevRaw = 0
		m.age = 0
		m.reset = false
		return []any{KnobChangedMessage{Addr: multKnobReset, Value: knob.ButtonValue(false)}}, nil
	}
	m.age++
	return nil, nil
}

func (m *Multiplier) Render(inputs []dag.OptionalID[Tag], provider Provider) Value {
	var upstream Value
	if len(inputs) > 0 && inputs[0].Valid {
		upstream = provider.Value(inputs[0].ID)
	}

	raw := (float64(upstream.TickCount) + upstream.Phase) * m.factor
	tick := math.Floor(raw)
	phase := raw - tick

	var ticked bool
	if m.havePrev {
		ticked = int64(tick) != int64(math.Floor(m.prevRaw))
	}

	m.prevRaw = raw
	m.havePrev = true
	m.age = 0

	return Value{Phase: phase, TickCount: int64(tick), Ticked: ticked}
}
