// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

package wigglenet

import "fmt"

var classRegistry = map[string]Decoder{}

func RegisterClass(class string, dec Decoder) {
	classRegistry[class] = dec
}

func NewByClass(class string) (Node, error) {
	dec, ok := classRegistry[class]
	if !ok {
		return nil, fmt.Errorf("wigglenet: unknown class %q", class)
	}
	return dec("")
}

func DecodeClass(class, blob string) (Node, error) {
	dec, ok := classRegistry[class]
	if !ok {
		return nil, fmt.Errorf("wigglenet: unknown class %q", class)
	}
	return dec(blob)
}

func Classes() []string {
	names := make([]string, 0, len(classRegistry))
	for name := range classRegistry {
		names = append(names, name)
	}
	return names
}
