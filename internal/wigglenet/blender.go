// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

package wigglenet

import (
	"encoding/json"
	"math"
	"time"

	"github.com/pierrej/lightboard-core/internal/clocknet"
	"github.com/pierrej/lightboard-core/internal/knob"
	"github.com/pierrej/lightboard-core/internal/sample"
)

func init() {
	RegisterClass("blender", decodeBlender)
}

const blenderKnobOp knob.LocalAddr = 0

// BlendOp selects how a blender folds its scaled inputs together.
type BlendOp string

const (
	BlendAdd  BlendOp = "add"
	BlendMult BlendOp = "mult"
	BlendMax  BlendOp = "max"
)

var blendOpOptions = []string{string(BlendAdd), string(BlendMult), string(BlendMax)}

// Blender mixes a variable number of inputs into a single output according
// to an operator knob and one level knob per input. Pushing or
// popping an input grows or shrinks the level knob set in lockstep.
type Blender struct {
	name   string
	op     BlendOp
	levels []float64
}

// NewBlender constructs a blender with one input at unity level.
func NewBlender() *Blender {
	return &Blender{name: "blender", op: BlendAdd, levels: []float64{1.0}}
}

func decodeBlender(blob string) (Node, error) {
	b := NewBlender()
	if blob == "" {
		return b, nil
	}
	var wire struct {
		Name   string
		Op     BlendOp
		Levels []float64
	}
	if err := json.Unmarshal([]byte(blob), &wire); err != nil {
		return nil, err
	}
	b.name = wire.Name
	b.op = wire.Op
	b.levels = wire.Levels
	return b, nil
}

func (b *Blender) Encode() (string, error) {
	wire := struct {
		Name   string
		Op     BlendOp
		Levels []float64
	}{b.name, b.op, b.levels}
	data, err := json.Marshal(wire)
	return string(data), err
}

func (b *Blender) DefaultInputCount() int { return len(b.levels) }
func (b *Blender) Class() string          { return "blender" }
func (b *Blender) Name() string           { return b.name }
func (b *Blender) SetName(n string)       { b.name = n }
func (b *Blender) OutputCount() int       { return 1 }

func (b *Blender) InputOutputs() []OutputID {
	return make([]OutputID, len(b.levels))
}

func (b *Blender) SetInputOutput(slot int, output OutputID) error {
	if output != 0 {
		return &UnsupportedError{Op: "SetInputOutput (non-zero output)", Class: "blender"}
	}
	return nil
}

func (b *Blender) ClockSource() (*clocknet.ID, error) {
	return nil, &UnsupportedError{Op: "ClockSource", Class: "blender"}
}
func (b *Blender) SetClock(id *clocknet.ID) error {
	if id != nil {
		return &UnsupportedError{Op: "SetClock", Class: "blender"}
	}
	return nil
}

// TryPushInput grows the level set by one unity-level entry and reports the
// newly added level knob.
func (b *Blender) TryPushInput() ([]any, error) {
	b.levels = append(b.levels, 1.0)
	addr := knob.LocalAddr(len(b.levels))
	return []any{KnobAddedMessage{Addr: addr, Desc: knob.Description{Name: "level", Datatype: knob.DatatypeUnipolar}}}, nil
}

// TryPopInput refuses to shrink below one input.
func (b *Blender) TryPopInput() ([]any, error) {
	if len(b.levels) <= 1 {
		return nil, &UnsupportedError{Op: "TryPopInput (last input)", Class: "blender"}
	}
	addr := knob.LocalAddr(len(b.levels))
	b.levels = b.levels[:len(b.levels)-1]
	return []any{KnobRemovedMessage{Addr: addr}}, nil
}

func (b *Blender) Knobs() []knob.Description {
	out := make([]knob.Description, 0, len(b.levels)+1)
	out = append(out, knob.Description{Name: "op", Datatype: knob.DatatypePicker, PickerOptions: blendOpOptions})
	for range b.levels {
		out = append(out, knob.Description{Name: "level", Datatype: knob.DatatypeUnipolar})
	}
	return out
}

func (b *Blender) KnobValue(addr knob.LocalAddr) (knob.Value, error) {
	if addr == blenderKnobOp {
		return knob.PickerValue(string(b.op)), nil
	}
	idx := int(addr) - 1
	if idx < 0 || idx >= len(b.levels) {
		return knob.Value{}, knob.ErrInvalidAddress(addr)
	}
	return knob.UnipolarValue(b.levels[idx]), nil
}

func (b *Blender) KnobDatatype(addr knob.LocalAddr) (knob.Datatype, error) {
	if addr == blenderKnobOp {
		return knob.DatatypePicker, nil
	}
	idx := int(addr) - 1
	if idx < 0 || idx >= len(b.levels) {
		return 0, knob.ErrInvalidAddress(addr)
	}
	return knob.DatatypeUnipolar, nil
}

func (b *Blender) SetKnob(addr knob.LocalAddr, v knob.Value) ([]any, error) {
	if addr == blenderKnobOp {
		if v.Type != knob.DatatypePicker {
			return nil, knob.ErrInvalidDatatype(addr, knob.DatatypePicker, v.Type)
		}
		switch BlendOp(v.Picker) {
		case BlendAdd, BlendMult, BlendMax:
			b.op = BlendOp(v.Picker)
			return nil, nil
		default:
			return nil, knob.ErrInvalidAddress(addr)
		}
	}
	idx := int(addr) - 1
	if idx < 0 || idx >= len(b.levels) {
		return nil, knob.ErrInvalidAddress(addr)
	}
	if v.Type != knob.DatatypeUnipolar {
		return nil, knob.ErrInvalidDatatype(addr, knob.DatatypeUnipolar, v.Type)
	}
	b.levels[idx] = v.Sample.Clamp().Value
	return nil, nil
}

func (b *Blender) Update(_ time.Duration) ([]any, error) { return nil, nil }

func (b *Blender) Render(phaseOffset float64, typeHint *sample.Kind, inputs []InputRef, _ OutputID, wiggles Provider, _ clocknet.Provider) sample.Data {
	kind := sample.Unipolar
	if typeHint != nil {
		kind = *typeHint
	}

	switch b.op {
	case BlendMult:
		acc := 1.0
		for i, in := range inputs {
			if !in.Valid || i >= len(b.levels) {
				continue
			}
			v := wiggles.RenderWiggle(in.Wiggle, in.Output, phaseOffset, &kind).Coerce(kind).Value
			acc *= b.levels[i] * v
		}
		return sample.Data{Kind: kind, Value: acc}
	case BlendMax:
		acc := 0.0
		for i, in := range inputs {
			if !in.Valid || i >= len(b.levels) {
				continue
			}
			v := wiggles.RenderWiggle(in.Wiggle, in.Output, phaseOffset, &kind).Coerce(kind).Value
			scaled := b.levels[i] * v
			// Bipolar max picks the operand with the larger magnitude, so
			// a strong negative swing beats a weak positive one.
			if kind == sample.Bipolar {
				if math.Abs(scaled) > math.Abs(acc) {
					acc = scaled
				}
			} else if scaled > acc {
				acc = scaled
			}
		}
		return sample.Data{Kind: kind, Value: acc}
	default: // BlendAdd
		acc := 0.0
		for i, in := range inputs {
			if !in.Valid || i >= len(b.levels) {
				continue
			}
			v := wiggles.RenderWiggle(in.Wiggle, in.Output, phaseOffset, &kind).Coerce(kind).Value
			acc += b.levels[i] * v
		}
		return sample.Data{Kind: kind, Value: acc}
	}
}
