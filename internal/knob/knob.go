// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

// Package knob implements the typed control-parameter system shared by
// clock and wiggle nodes, plus the address-lifting helpers that let a
// network, and then the console, wrap a node-local address without losing
// the original failure.
package knob

import (
	"fmt"

	"github.com/pierrej/lightboard-core/internal/sample"
)

// Datatype is a knob's value kind.
type Datatype int

const (
	DatatypeUnipolar Datatype = iota
	DatatypeBipolar
	DatatypeRate
	DatatypeUFloat
	DatatypeButton
	DatatypePicker
)

func (d Datatype) String() string {
	switch d {
	case DatatypeUnipolar:
		return "unipolar"
	case DatatypeBipolar:
		return "bipolar"
	case DatatypeRate:
		return "rate"
	case DatatypeUFloat:
		return "ufloat"
	case DatatypeButton:
		return "button"
	case DatatypePicker:
		return "picker"
	default:
		return "unknown"
	}
}

// Rate stores a frequency; BPM and period are derived views over the same
// Hz value so "accepts Hz/BPM/period and stores Hz" holds without redundant
// state.
type Rate struct {
	Hz float64
}

func RateFromHz(hz float64) Rate   { return Rate{Hz: hz} }
func RateFromBPM(bpm float64) Rate { return Rate{Hz: bpm / 60.0} }
func RateFromPeriod(sec float64) Rate {
	if sec <= 0 {
		return Rate{Hz: 0}
	}
	return Rate{Hz: 1.0 / sec}
}

func (r Rate) BPM() float64 {
	return r.Hz * 60.0
}

func (r Rate) Period() float64 {
	if r.Hz == 0 {
		return 0
	}
	return 1.0 / r.Hz
}

// Value is a knob's current value, tagged by Datatype. Exactly one of the
// fields is meaningful for a given Type.
type Value struct {
	Type   Datatype
	Sample sample.Data
	Rate   Rate
	UFloat float64
	Button bool
	Picker string
}

func UnipolarValue(v float64) Value { return Value{Type: DatatypeUnipolar, Sample: sample.NewUnipolar(v)} }
func BipolarValue(v float64) Value  { return Value{Type: DatatypeBipolar, Sample: sample.NewBipolar(v)} }
func RateValue(r Rate) Value        { return Value{Type: DatatypeRate, Rate: r} }
func UFloatValue(v float64) Value   { return Value{Type: DatatypeUFloat, UFloat: v} }
func ButtonValue(v bool) Value      { return Value{Type: DatatypeButton, Button: v} }
func PickerValue(v string) Value    { return Value{Type: DatatypePicker, Picker: v} }

// Description is a knob's static metadata.
type Description struct {
	Name          string
	Datatype      Datatype
	PickerOptions []string // only meaningful when Datatype == DatatypePicker
}

// LocalAddr identifies a knob within a single node.
type LocalAddr int

// Error is the address-polymorphic knob error kind.
type Error struct {
	Kind     string // "InvalidAddress" | "InvalidDatatype"
	Address  fmt.Stringer
	Expected Datatype
	Provided Datatype
}

func (e *Error) Error() string {
	switch e.Kind {
	case "InvalidDatatype":
		return fmt.Sprintf("knob: invalid datatype at %v: expected %s, got %s", e.Address, e.Expected, e.Provided)
	default:
		return fmt.Sprintf("knob: invalid address %v", e.Address)
	}
}

// Lift rewraps the error with the supplied address,
// preserving Kind/Expected/Provided. addr is already the outer
// representation; it replaces Address entirely (the original is not kept
// literally, but the failure classification is).
func (e *Error) Lift(addr fmt.Stringer) *Error {
	return &Error{Kind: e.Kind, Address: addr, Expected: e.Expected, Provided: e.Provided}
}

func ErrInvalidAddress(addr fmt.Stringer) *Error {
	return &Error{Kind: "InvalidAddress", Address: addr}
}

func ErrInvalidDatatype(addr fmt.Stringer, expected, provided Datatype) *Error {
	return &Error{Kind: "InvalidDatatype", Address: addr, Expected: expected, Provided: provided}
}

// LocalAddr implements fmt.Stringer so it can be used directly in knob
// errors before any address lifting.
func (a LocalAddr) String() string { return fmt.Sprintf("knob#%d", int(a)) }

// Bearer is implemented by any node payload that exposes knobs.
type Bearer interface {
	Knobs() []Description
	KnobValue(addr LocalAddr) (Value, error)
	KnobDatatype(addr LocalAddr) (Datatype, error)
	SetKnob(addr LocalAddr, v Value) ([]any, error)
}
