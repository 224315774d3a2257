// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

package wigglenet

import (
	"encoding/json"
	"time"

	"github.com/pierrej/lightboard-core/internal/clocknet"
	"github.com/pierrej/lightboard-core/internal/knob"
	"github.com/pierrej/lightboard-core/internal/sample"
)

func init() {
	RegisterClass("fanner", decodeFanner)
}

const fannerKnobSpread knob.LocalAddr = 0

// Fanner takes a single upstream input and repeats it across a variable
// number of outputs, each staggered in phase by spread/(N-1) * k. With
// one output the stagger is zero: identical to passthrough.
type Fanner struct {
	name     string
	spread   float64
	outputs  int
	inputOut OutputID // which of the single input's outputs to read
}

// NewFanner constructs a fanner with a single output (no stagger).
func NewFanner() *Fanner {
	return &Fanner{name: "fanner", spread: 0, outputs: 1}
}

func decodeFanner(blob string) (Node, error) {
	f := NewFanner()
	if blob == "" {
		return f, nil
	}
	var wire struct {
		Name     string
		Spread   float64
		Outputs  int
		InputOut OutputID
	}
	if err := json.Unmarshal([]byte(blob), &wire); err != nil {
		return nil, err
	}
	f.name = wire.Name
	f.spread = wire.Spread
	f.outputs = wire.Outputs
	f.inputOut = wire.InputOut
	return f, nil
}

func (f *Fanner) Encode() (string, error) {
	wire := struct {
		Name     string
		Spread   float64
		Outputs  int
		InputOut OutputID
	}{f.name, f.spread, f.outputs, f.inputOut}
	data, err := json.Marshal(wire)
	return string(data), err
}

func (f *Fanner) DefaultInputCount() int { return 1 }
func (f *Fanner) Class() string          { return "fanner" }
func (f *Fanner) Name() string           { return f.name }
func (f *Fanner) SetName(n string)       { f.name = n }
func (f *Fanner) OutputCount() int       { return f.outputs }

func (f *Fanner) InputOutputs() []OutputID {
	return []OutputID{f.inputOut}
}

func (f *Fanner) SetInputOutput(slot int, output OutputID) error {
	if slot != 0 {
		return &UnsupportedError{Op: "SetInputOutput (out of range)", Class: "fanner"}
	}
	f.inputOut = output
	return nil
}

func (f *Fanner) ClockSource() (*clocknet.ID, error) {
	return nil, &UnsupportedError{Op: "ClockSource", Class: "fanner"}
}
func (f *Fanner) SetClock(id *clocknet.ID) error {
	if id != nil {
		return &UnsupportedError{Op: "SetClock", Class: "fanner"}
	}
	return nil
}

// TryPushOutput grows the output count by one. No knobs are associated with
// outputs, so no message is emitted.
func (f *Fanner) TryPushOutput() ([]any, error) {
	f.outputs++
	return nil, nil
}

// TryPopOutput refuses to shrink below one output.
func (f *Fanner) TryPopOutput() ([]any, error) {
	if f.outputs <= 1 {
		return nil, &UnsupportedError{Op: "TryPopOutput (last output)", Class: "fanner"}
	}
	f.outputs--
	return nil, nil
}

func (f *Fanner) Knobs() []knob.Description {
	return []knob.Description{
		{Name: "spread", Datatype: knob.DatatypeUFloat},
	}
}

func (f *Fanner) KnobValue(addr knob.LocalAddr) (knob.Value, error) {
	switch addr {
	case fannerKnobSpread:
		return knob.UFloatValue(f.spread), nil
	default:
		return knob.Value{}, knob.ErrInvalidAddress(addr)
	}
}

func (f *Fanner) KnobDatatype(addr knob.LocalAddr) (knob.Datatype, error) {
	switch addr {
	case fannerKnobSpread:
		return knob.DatatypeUFloat, nil
	default:
		return 0, knob.ErrInvalidAddress(addr)
	}
}

func (f *Fanner) SetKnob(addr knob.LocalAddr, v knob.Value) ([]any, error) {
	switch addr {
	case fannerKnobSpread:
		if v.Type != knob.DatatypeUFloat {
			return nil, knob.ErrInvalidDatatype(addr, knob.DatatypeUFloat, v.Type)
		}
		f.spread = v.UFloat
		return nil, nil
	default:
		return nil, knob.ErrInvalidAddress(addr)
	}
}

func (f *Fanner) Update(_ time.Duration) ([]any, error) { return nil, nil }

func (f *Fanner) Render(phaseOffset float64, typeHint *sample.Kind, inputs []InputRef, outputID OutputID, wiggles Provider, _ clocknet.Provider) sample.Data {
	if len(inputs) == 0 || !inputs[0].Valid {
		return defaultSample(typeHint)
	}

	stagger := 0.0
	if f.outputs > 1 {
		stagger = (f.spread / float64(f.outputs-1)) * float64(outputID)
	}

	return wiggles.RenderWiggle(inputs[0].Wiggle, inputs[0].Output, phaseOffset+stagger, typeHint)
}
