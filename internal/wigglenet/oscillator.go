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
	RegisterClass("oscillator", decodeOscillator)
}

const oscKnobDutyCycle knob.LocalAddr = 0

// Oscillator is the reference signal generator: no inputs, one output,
// driven entirely by a clock source. duty_cycle reshapes the rising/falling
// halves of the waveform asymmetrically.
type Oscillator struct {
	name      string
	dutyCycle float64
	clock     *clocknet.ID
}

// NewOscillator constructs an oscillator with a 0.5 (symmetric) duty cycle.
func NewOscillator() *Oscillator {
	return &Oscillator{name: "oscillator", dutyCycle: 0.5}
}

func decodeOscillator(blob string) (Node, error) {
	o := NewOscillator()
	if blob == "" {
		return o, nil
	}
	var wire struct {
		Name      string
		DutyCycle float64
	}
	if err := json.Unmarshal([]byte(blob), &wire); err != nil {
		return nil, err
	}
	o.name = wire.Name
	o.dutyCycle = wire.DutyCycle
	return o, nil
}

func (o *Oscillator) Encode() (string, error) {
	wire := struct {
		Name      string
		DutyCycle float64
	}{o.name, o.dutyCycle}
	data, err := json.Marshal(wire)
	return string(data), err
}

func (o *Oscillator) DefaultInputCount() int { return 0 }
func (o *Oscillator) Class() string          { return "oscillator" }
func (o *Oscillator) Name() string           { return o.name }
func (o *Oscillator) SetName(n string)       { o.name = n }
func (o *Oscillator) OutputCount() int       { return 1 }
func (o *Oscillator) InputOutputs() []OutputID { return nil }

func (o *Oscillator) SetInputOutput(slot int, output OutputID) error {
	return &UnsupportedError{Op: "SetInputOutput", Class: "oscillator"}
}

func (o *Oscillator) ClockSource() (*clocknet.ID, error) { return o.clock, nil }

func (o *Oscillator) SetClock(id *clocknet.ID) error {
	o.clock = id
	return nil
}

func (o *Oscillator) Knobs() []knob.Description {
	return []knob.Description{
		{Name: "duty_cycle", Datatype: knob.DatatypeUnipolar},
	}
}

func (o *Oscillator) KnobValue(addr knob.LocalAddr) (knob.Value, error) {
	switch addr {
	case oscKnobDutyCycle:
		return knob.UnipolarValue(o.dutyCycle), nil
	default:
		return knob.Value{}, knob.ErrInvalidAddress(addr)
	}
}

func (o *Oscillator) KnobDatatype(addr knob.LocalAddr) (knob.Datatype, error) {
	switch addr {
	case oscKnobDutyCycle:
		return knob.DatatypeUnipolar, nil
	default:
		return 0, knob.ErrInvalidAddress(addr)
	}
}

func (o *Oscillator) SetKnob(addr knob.LocalAddr, v knob.Value) ([]any, error) {
	switch addr {
	case oscKnobDutyCycle:
		if v.Type != knob.DatatypeUnipolar {
			return nil, knob.ErrInvalidDatatype(addr, knob.DatatypeUnipolar, v.Type)
		}
		o.dutyCycle = v.Sample.Clamp().Value
		return nil, nil
	default:
		return nil, knob.ErrInvalidAddress(addr)
	}
}

func (o *Oscillator) Update(_ time.Duration) ([]any, error) { return nil, nil }

// shapePhase reshapes a [0,1) phase so the rising half spans duty and the
// falling half spans 1-duty, keeping the waveform continuous at the seam.
func shapePhase(phase, duty float64) float64 {
	const eps = 1e-6
	if duty < eps {
		duty = eps
	}
	if duty > 1-eps {
		duty = 1 - eps
	}
	if phase < duty {
		return (phase / duty) * 0.5
	}
	return 0.5 + (phase-duty)/(1-duty)*0.5
}

func (o *Oscillator) Render(phaseOffset float64, typeHint *sample.Kind, _ []InputRef, _ OutputID, _ Provider, clocks clocknet.Provider) sample.Data {
	var cv clocknet.Value
	if o.clock != nil && clocks != nil {
		cv = clocks.Value(*o.clock)
	}

	phase := cv.Phase + phaseOffset
	phase -= math.Floor(phase)

	shaped := shapePhase(phase, o.dutyCycle)
	data := sample.NewBipolar(math.Sin(2 * math.Pi * shaped))
	if typeHint != nil {
		data = data.Coerce(*typeHint)
	}
	return data
}

// UnsupportedError reports a capability a node class does not implement
// (e.g. fixed-arity nodes asked to rewire an input output selector).
type UnsupportedError struct {
	Op    string
	Class string
}

func (e *UnsupportedError) Error() string {
	return "wigglenet: " + e.Class + " does not support " + e.Op
}
