// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

package patch

import "fmt"

// Error is the patch error kind: invalid fixture/universe
// id, invalid DMX address, fixture-too-long, address conflict, non-empty
// universe, unknown profile. Stringified, never panics across the reactor
// boundary.
type Error struct {
	Kind        string
	FixtureID   FixtureID
	UniverseID  UniverseID
	Address     int
	Conflicting []FixtureID
}

func (e *Error) Error() string {
	switch e.Kind {
	case "AddressConflict":
		return fmt.Sprintf("patch: address conflict for fixture %d at universe %d addr %d (conflicts with %v)",
			e.FixtureID, e.UniverseID, e.Address, e.Conflicting)
	case "InvalidFixtureID":
		return fmt.Sprintf("patch: no fixture %d", e.FixtureID)
	case "InvalidUniverseID":
		return fmt.Sprintf("patch: no universe %d", e.UniverseID)
	case "InvalidAddress":
		return fmt.Sprintf("patch: address %d out of range [1,512]", e.Address)
	case "FixtureTooLong":
		return fmt.Sprintf("patch: fixture %d does not fit at address %d", e.FixtureID, e.Address)
	case "NonEmptyUniverse":
		return fmt.Sprintf("patch: universe %d still has patched fixtures", e.UniverseID)
	case "UnknownProfile":
		return "patch: unknown profile"
	default:
		return "patch: " + e.Kind
	}
}

func errInvalidFixtureID(id FixtureID) error   { return &Error{Kind: "InvalidFixtureID", FixtureID: id} }
func errInvalidUniverseID(id UniverseID) error { return &Error{Kind: "InvalidUniverseID", UniverseID: id} }
func errInvalidAddress(addr int) error         { return &Error{Kind: "InvalidAddress", Address: addr} }
func errFixtureTooLong(fid FixtureID, addr int) error {
	return &Error{Kind: "FixtureTooLong", FixtureID: fid, Address: addr}
}
func errNonEmptyUniverse(uid UniverseID) error { return &Error{Kind: "NonEmptyUniverse", UniverseID: uid} }

func errAddressConflict(fid FixtureID, uid UniverseID, addr int, conflicting []FixtureID) error {
	return &Error{Kind: "AddressConflict", FixtureID: fid, UniverseID: uid, Address: addr, Conflicting: conflicting}
}
