// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

package knob

import (
	"math"
	"strings"
	"testing"
)

func TestRateConversions(t *testing.T) {
	if got := RateFromBPM(120).Hz; got != 2 {
		t.Errorf("120 BPM = %v Hz, want 2", got)
	}
	if got := RateFromPeriod(0.5).Hz; got != 2 {
		t.Errorf("500ms period = %v Hz, want 2", got)
	}
	if got := RateFromPeriod(0).Hz; got != 0 {
		t.Errorf("zero period = %v Hz, want 0", got)
	}

	r := RateFromHz(2)
	if got := r.BPM(); got != 120 {
		t.Errorf("BPM = %v, want 120", got)
	}
	if got := r.Period(); math.Abs(got-0.5) > 1e-12 {
		t.Errorf("Period = %v, want 0.5", got)
	}
	if got := RateFromHz(0).Period(); got != 0 {
		t.Errorf("zero rate period = %v, want 0", got)
	}
}

func TestErrorLift(t *testing.T) {
	inner := ErrInvalidDatatype(LocalAddr(3), DatatypeRate, DatatypeButton)

	outer := inner.Lift(LocalAddr(7))
	if outer.Kind != "InvalidDatatype" {
		t.Errorf("lift lost kind: %s", outer.Kind)
	}
	if outer.Expected != DatatypeRate || outer.Provided != DatatypeButton {
		t.Errorf("lift lost datatypes: %+v", outer)
	}
	if !strings.Contains(outer.Error(), "knob#7") {
		t.Errorf("lifted error does not mention outer address: %s", outer.Error())
	}
}

func TestErrorStrings(t *testing.T) {
	if got := ErrInvalidAddress(LocalAddr(2)).Error(); !strings.Contains(got, "knob#2") {
		t.Errorf("invalid address error = %q", got)
	}
	got := ErrInvalidDatatype(LocalAddr(0), DatatypeUnipolar, DatatypePicker).Error()
	if !strings.Contains(got, "unipolar") || !strings.Contains(got, "picker") {
		t.Errorf("datatype error should name both types: %q", got)
	}
}
