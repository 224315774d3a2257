// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

package clocknet

import "fmt"

// classRegistry is process-wide read-only state after init, matching the
// design note's "class -> decoder" dispatch for trait-object
// serialization.
var classRegistry = map[string]Decoder{}

// RegisterClass adds a class to the registry. Called from package init of
// each clock implementation.
func RegisterClass(class string, dec Decoder) {
	classRegistry[class] = dec
}

// NewByClass constructs a node of the given class with default settings
// (used by Create commands).
func NewByClass(class string) (Node, error) {
	dec, ok := classRegistry[class]
	if !ok {
		return nil, fmt.Errorf("clocknet: unknown class %q", class)
	}
	return dec("")
}

// DecodeClass dispatches class -> decoder for a saved blob.
func DecodeClass(class, blob string) (Node, error) {
	dec, ok := classRegistry[class]
	if !ok {
		return nil, fmt.Errorf("clocknet: unknown class %q", class)
	}
	return dec(blob)
}

// Classes lists every registered class tag (stable order not guaranteed).
func Classes() []string {
	names := make([]string, 0, len(classRegistry))
	for name := range classRegistry {
		names = append(names, name)
	}
	return names
}
