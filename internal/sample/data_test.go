// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

package sample

import "testing"

func TestCoerce(t *testing.T) {
	tests := []struct {
		name string
		in   Data
		to   Kind
		want float64
	}{
		{"unipolar to unipolar", NewUnipolar(0.25), Unipolar, 0.25},
		{"bipolar to unipolar takes abs", NewBipolar(-0.5), Unipolar, 0.5},
		{"bipolar positive to unipolar", NewBipolar(0.75), Unipolar, 0.75},
		{"unipolar to bipolar unchanged", NewUnipolar(0.3), Bipolar, 0.3},
		{"bipolar to bipolar", NewBipolar(-1), Bipolar, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.Coerce(tt.to)
			if got.Kind != tt.to {
				t.Errorf("kind = %v, want %v", got.Kind, tt.to)
			}
			if got.Value != tt.want {
				t.Errorf("value = %v, want %v", got.Value, tt.want)
			}
		})
	}
}

func TestCoerceDoesNotClamp(t *testing.T) {
	// Headroom survives coercion; only Clamp/ToByte restrict range.
	d := Data{Kind: Unipolar, Value: 1.8}.Coerce(Bipolar)
	if d.Value != 1.8 {
		t.Errorf("coerce clamped: %v", d.Value)
	}
}

func TestClamp(t *testing.T) {
	if got := (Data{Kind: Unipolar, Value: 1.5}).Clamp().Value; got != 1 {
		t.Errorf("unipolar clamp high = %v", got)
	}
	if got := (Data{Kind: Unipolar, Value: -0.2}).Clamp().Value; got != 0 {
		t.Errorf("unipolar clamp low = %v", got)
	}
	if got := (Data{Kind: Bipolar, Value: -1.5}).Clamp().Value; got != -1 {
		t.Errorf("bipolar clamp low = %v", got)
	}
}

func TestToByte(t *testing.T) {
	tests := []struct {
		in   Data
		want byte
	}{
		{NewUnipolar(0), 0},
		{NewUnipolar(1), 255},
		{NewUnipolar(0.5), 128},
		{NewUnipolar(2.0), 255},
		{NewBipolar(-1), 255}, // abs value
	}
	for _, tt := range tests {
		if got := tt.in.ToByte(); got != tt.want {
			t.Errorf("ToByte(%+v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
