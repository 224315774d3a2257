// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

package console

import (
	"fmt"

	"github.com/pierrej/lightboard-core/internal/patch"
	"github.com/pierrej/lightboard-core/internal/wigglenet"
)

// Source is the concrete control-source identifier the console binds into
// the patch: one wiggle node output. The patch only ever stores and
// compares it.
type Source struct {
	Wiggle wigglenet.ID
	Output wigglenet.OutputID
}

func (s Source) String() string {
	return fmt.Sprintf("w%d.%d/o%d", s.Wiggle.Index, s.Wiggle.Generation, int(s.Output))
}

// ParseSource is the inverse of Source.String, used by transports and by
// save-file decoding.
func ParseSource(enc string) (Source, error) {
	var s Source
	var idx int
	var gen uint64
	var out int
	if _, err := fmt.Sscanf(enc, "w%d.%d/o%d", &idx, &gen, &out); err != nil {
		return Source{}, fmt.Errorf("console: bad source %q: %w", enc, err)
	}
	s.Wiggle = wigglenet.ID{Index: idx, Generation: gen}
	s.Output = wigglenet.OutputID(out)
	return s, nil
}

// sourceCodec adapts Source to the patch's opaque serialization hook.
type sourceCodec struct{}

func (sourceCodec) EncodeSource(src patch.SourceID) (string, bool) {
	s, ok := src.(Source)
	if !ok {
		return "", false
	}
	return s.String(), true
}

func (sourceCodec) DecodeSource(enc string) (patch.SourceID, error) {
	return ParseSource(enc)
}
