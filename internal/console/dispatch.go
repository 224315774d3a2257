// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

package console

import (
	"fmt"

	"github.com/pierrej/lightboard-core/internal/fixtureprofile"
	"github.com/pierrej/lightboard-core/internal/patch"
	"github.com/pierrej/lightboard-core/internal/protocol"
)

// Dispatch routes one inner console command to the patch, clock, wiggle,
// knob or output handler. Per-command failures become Error responses
// addressed exclusively to the originating client; state changes are
// reported with the originator's requested filter.
func (c *Console) Dispatch(cmd *protocol.ConsoleCommand, origin protocol.ClientData) []protocol.ResponseEnvelope {
	if cmd == nil {
		return []protocol.ResponseEnvelope{exclusive(origin, protocol.ErrorResponse(fmt.Errorf("console: empty command")))}
	}
	switch cmd.Family {
	case "Patch":
		return c.dispatchPatch(cmd.Patch, origin)
	case "Clock":
		return c.dispatchClock(cmd.Clock, origin)
	case "Wiggle":
		return c.dispatchWiggle(cmd.Wiggle, origin)
	case "Knob":
		return c.dispatchKnob(cmd.Knob, origin)
	case "Output":
		return c.dispatchOutput(cmd.Output, origin)
	default:
		return []protocol.ResponseEnvelope{exclusive(origin, protocol.ErrorResponse(fmt.Errorf("console: unknown command family %q", cmd.Family)))}
	}
}

func (c *Console) dispatchPatch(req *protocol.PatchRequest, origin protocol.ClientData) []protocol.ResponseEnvelope {
	fail := func(err error) []protocol.ResponseEnvelope {
		return []protocol.ResponseEnvelope{exclusive(origin, protocol.ErrorResponse(err))}
	}
	if req == nil {
		return fail(fmt.Errorf("console: empty patch request"))
	}

	switch req.Verb {
	case "PatchState":
		return []protocol.ResponseEnvelope{addressed(origin, c.PatchStateResponse())}

	case "GetKinds":
		return []protocol.ResponseEnvelope{addressed(origin, protocol.Response{Type: "Kinds", Names: fixtureprofile.Names()})}

	case "AvailablePorts":
		var names []string
		for _, ref := range c.ports.Available() {
			names = append(names, ref.Namespace+"/"+ref.Name)
		}
		return []protocol.ResponseEnvelope{addressed(origin, protocol.Response{Type: "AvailablePorts", Names: names})}

	case "NewPatches":
		var out []protocol.ResponseEnvelope
		changed := false
		for _, spec := range req.NewPatches {
			var err error
			if spec.Address == nil {
				_, err = c.patch.Add(spec.Kind, spec.Name)
			} else {
				_, err = c.patch.AddAtAddress(spec.Kind, spec.Name, spec.Address.Universe, spec.Address.DMX)
			}
			if err != nil {
				out = append(out, exclusive(origin, protocol.ErrorResponse(err)))
				continue
			}
			changed = true
		}
		if changed {
			out = append(out, addressed(origin, c.PatchStateResponse()))
		}
		return out

	case "Rename":
		if err := c.patch.Rename(req.FixtureID, req.Name); err != nil {
			return fail(err)
		}

	case "Repatch":
		if req.Repatch == nil {
			if err := c.patch.Unpatch(req.FixtureID); err != nil {
				return fail(err)
			}
		} else if err := c.patch.Repatch(req.FixtureID, req.Repatch.Universe, req.Repatch.DMX); err != nil {
			return fail(err)
		}

	case "Remove":
		if err := c.patch.Remove(req.FixtureID); err != nil {
			return fail(err)
		}

	case "SetActive":
		if err := c.patch.SetActive(req.FixtureID, req.Active); err != nil {
			return fail(err)
		}

	case "AddUniverse":
		if _, err := c.AddUniverse(OfflineRef); err != nil {
			return fail(err)
		}

	case "RemoveUniverse":
		if _, err := c.patch.RemoveUniverse(req.UniverseID, req.Force); err != nil {
			return fail(err)
		}
		delete(c.portRefs, req.UniverseID)

	case "AttachPort":
		if err := c.AttachPort(req.UniverseID, PortRef{Namespace: req.PortNamespace, Name: req.PortID}); err != nil {
			return fail(err)
		}

	case "SetControlSource":
		var src patch.SourceID
		if req.SourceRaw != nil {
			parsed, err := ParseSource(*req.SourceRaw)
			if err != nil {
				return fail(err)
			}
			src = parsed
		}
		if err := c.patch.SetControlSource(req.FixtureID, req.ControlIdx, src); err != nil {
			return fail(err)
		}

	default:
		return fail(fmt.Errorf("console: unknown patch verb %q", req.Verb))
	}

	return []protocol.ResponseEnvelope{addressed(origin, c.PatchStateResponse())}
}

func (c *Console) dispatchClock(req *protocol.NetworkRequest, origin protocol.ClientData) []protocol.ResponseEnvelope {
	fail := func(err error) []protocol.ResponseEnvelope {
		return []protocol.ResponseEnvelope{exclusive(origin, protocol.ErrorResponse(err))}
	}
	if req == nil {
		return fail(fmt.Errorf("console: empty clock request"))
	}

	var out []protocol.ResponseEnvelope

	switch req.Verb {
	case "Classes":
		return []protocol.ResponseEnvelope{addressed(origin, protocol.Response{Type: "ClockClasses", Names: c.clocks.Classes()})}

	case "State":
		return []protocol.ResponseEnvelope{addressed(origin, c.ClockStateResponse())}

	case "Create":
		if _, err := c.clocks.Add(req.Kind, req.Name); err != nil {
			return fail(err)
		}

	case "Remove":
		if req.ClockNode == nil {
			return fail(fmt.Errorf("console: clock remove without target"))
		}
		if err := c.clocks.Remove(*req.ClockNode, req.Force); err != nil {
			return fail(err)
		}

	case "Rename":
		if req.ClockNode == nil {
			return fail(fmt.Errorf("console: clock rename without target"))
		}
		if err := c.clocks.Rename(*req.ClockNode, req.Name); err != nil {
			return fail(err)
		}

	case "SetInput":
		if req.ClockNode == nil {
			return fail(fmt.Errorf("console: clock set-input without target"))
		}
		if err := c.clocks.SetInput(*req.ClockNode, req.InputIdx, req.ClockTarget); err != nil {
			return fail(err)
		}

	case "PushInput":
		if req.ClockNode == nil {
			return fail(fmt.Errorf("console: clock push-input without target"))
		}
		msgs, err := c.clocks.PushInput(*req.ClockNode, req.ClockTarget)
		if err != nil {
			return fail(err)
		}
		out = append(out, c.clockMessages(msgs)...)

	case "PopInput":
		if req.ClockNode == nil {
			return fail(fmt.Errorf("console: clock pop-input without target"))
		}
		msgs, err := c.clocks.PopInput(*req.ClockNode)
		if err != nil {
			return fail(err)
		}
		out = append(out, c.clockMessages(msgs)...)

	default:
		return fail(fmt.Errorf("console: unknown clock verb %q", req.Verb))
	}

	out = append(out, addressed(origin, c.ClockStateResponse()))
	return out
}

func (c *Console) dispatchWiggle(req *protocol.NetworkRequest, origin protocol.ClientData) []protocol.ResponseEnvelope {
	fail := func(err error) []protocol.ResponseEnvelope {
		return []protocol.ResponseEnvelope{exclusive(origin, protocol.ErrorResponse(err))}
	}
	if req == nil {
		return fail(fmt.Errorf("console: empty wiggle request"))
	}

	var out []protocol.ResponseEnvelope

	switch req.Verb {
	case "Classes":
		return []protocol.ResponseEnvelope{addressed(origin, protocol.Response{Type: "WiggleClasses", Names: c.wiggles.Classes()})}

	case "State":
		return []protocol.ResponseEnvelope{addressed(origin, c.WiggleStateResponse())}

	case "Create":
		if _, err := c.wiggles.Add(req.Kind, req.Name); err != nil {
			return fail(err)
		}

	case "Remove":
		if req.WiggleNode == nil {
			return fail(fmt.Errorf("console: wiggle remove without target"))
		}
		if err := c.wiggles.Remove(*req.WiggleNode, req.Force); err != nil {
			return fail(err)
		}

	case "Rename":
		if req.WiggleNode == nil {
			return fail(fmt.Errorf("console: wiggle rename without target"))
		}
		if err := c.wiggles.Rename(*req.WiggleNode, req.Name); err != nil {
			return fail(err)
		}

	case "SetInput":
		if req.WiggleNode == nil {
			return fail(fmt.Errorf("console: wiggle set-input without target"))
		}
		if err := c.wiggles.SetInput(*req.WiggleNode, req.InputIdx, req.WiggleTarget, req.WiggleOutput); err != nil {
			return fail(err)
		}

	case "PushInput":
		if req.WiggleNode == nil {
			return fail(fmt.Errorf("console: wiggle push-input without target"))
		}
		msgs, err := c.wiggles.PushInput(*req.WiggleNode, req.WiggleTarget, req.WiggleOutput)
		if err != nil {
			return fail(err)
		}
		out = append(out, c.wiggleMessages(msgs)...)

	case "PopInput":
		if req.WiggleNode == nil {
			return fail(fmt.Errorf("console: wiggle pop-input without target"))
		}
		msgs, err := c.wiggles.PopInput(*req.WiggleNode)
		if err != nil {
			return fail(err)
		}
		out = append(out, c.wiggleMessages(msgs)...)

	case "PushOutput":
		if req.WiggleNode == nil {
			return fail(fmt.Errorf("console: wiggle push-output without target"))
		}
		msgs, err := c.wiggles.PushOutput(*req.WiggleNode)
		if err != nil {
			return fail(err)
		}
		out = append(out, c.wiggleMessages(msgs)...)

	case "PopOutput":
		if req.WiggleNode == nil {
			return fail(fmt.Errorf("console: wiggle pop-output without target"))
		}
		msgs, err := c.wiggles.PopOutput(*req.WiggleNode)
		if err != nil {
			return fail(err)
		}
		out = append(out, c.wiggleMessages(msgs)...)

	case "SetClock":
		if req.WiggleNode == nil {
			return fail(fmt.Errorf("console: wiggle set-clock without target"))
		}
		if err := c.wiggles.SetClock(*req.WiggleNode, req.SetClockTo); err != nil {
			return fail(err)
		}

	default:
		return fail(fmt.Errorf("console: unknown wiggle verb %q", req.Verb))
	}

	out = append(out, addressed(origin, c.WiggleStateResponse()))
	return out
}

func (c *Console) dispatchKnob(req *protocol.KnobRequest, origin protocol.ClientData) []protocol.ResponseEnvelope {
	fail := func(err error) []protocol.ResponseEnvelope {
		return []protocol.ResponseEnvelope{exclusive(origin, protocol.ErrorResponse(err))}
	}
	if req == nil {
		return fail(fmt.Errorf("console: empty knob request"))
	}

	switch req.Verb {
	case "State":
		return []protocol.ResponseEnvelope{addressed(origin, c.KnobStateResponse())}

	case "Set":
		var out []protocol.ResponseEnvelope
		switch req.Addr.Network {
		case "Clock":
			msgs, err := c.clocks.SetKnob(req.Addr.Clock, req.Value)
			if err != nil {
				return fail(err)
			}
			out = c.clockMessages(msgs)
		case "Wiggle":
			msgs, err := c.wiggles.SetKnob(req.Addr.Wiggle, req.Value)
			if err != nil {
				return fail(err)
			}
			out = c.wiggleMessages(msgs)
		default:
			return fail(fmt.Errorf("console: unknown knob network %q", req.Addr.Network))
		}
		out = append(out, addressed(origin, protocol.Response{
			Type:      "KnobValue",
			KnobValue: &protocol.KnobValueResponse{Addr: req.Addr, Value: req.Value},
		}))
		return out

	default:
		return fail(fmt.Errorf("console: unknown knob verb %q", req.Verb))
	}
}

func (c *Console) dispatchOutput(req *protocol.OutputRequest, origin protocol.ClientData) []protocol.ResponseEnvelope {
	fail := func(err error) []protocol.ResponseEnvelope {
		return []protocol.ResponseEnvelope{exclusive(origin, protocol.ErrorResponse(err))}
	}
	if req == nil {
		return fail(fmt.Errorf("console: empty output request"))
	}

	switch req.Verb {
	case "State":
	case "Enable":
		c.gate.SetEnabled(true)
	case "Disable":
		c.gate.SetEnabled(false)
	case "Blackout":
		// One-shot zero frame; the gate stays as it was.
		c.patch.WriteBlackout()
	default:
		return fail(fmt.Errorf("console: unknown output verb %q", req.Verb))
	}
	return []protocol.ResponseEnvelope{addressed(origin, c.OutputStateResponse())}
}
