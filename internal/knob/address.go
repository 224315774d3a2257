// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

package knob

import (
	"fmt"

	"github.com/pierrej/lightboard-core/internal/dag"
)

// NodeAddr is a knob address lifted to network scope: (node id, local
// address). A network holding knob-bearing nodes lifts local addresses to
// this type automatically.
type NodeAddr[Tag any] struct {
	Node  dag.ID[Tag]
	Local LocalAddr
}

func (a NodeAddr[Tag]) String() string {
	return fmt.Sprintf("node(%d,%d)/%v", a.Node.Index, a.Node.Generation, a.Local)
}

// LiftAddress rewraps a node-scoped knob error into a network-scoped one,
// so an InvalidAddress/InvalidDatatype raised against a LocalAddr becomes
// one raised against the NodeAddr it was resolved through.
func LiftAddress[Tag any](node dag.ID[Tag], err *Error) *Error {
	if err == nil {
		return nil
	}
	local, _ := err.Address.(LocalAddr)
	return err.Lift(NodeAddr[Tag]{Node: node, Local: local})
}
