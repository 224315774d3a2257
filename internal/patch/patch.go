// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

package patch

import (
	"fmt"

	"github.com/pierrej/lightboard-core/internal/dmxport"
	"github.com/pierrej/lightboard-core/internal/fixtureprofile"
)

// Patch is the fixture patch: a vector of universe slots and a vector of
// fixture items, addressed by monotone fixture ids and reusable
// universe slot indices.
type Patch struct {
	universes   []*Universe // nil entry = empty slot
	items       []*Item     // index is NOT the fixture id; see byID
	byID        map[FixtureID]int
	nextID      FixtureID
	nameCounter map[string]int
}

// New constructs an empty patch.
func New() *Patch {
	return &Patch{
		byID:        make(map[FixtureID]int),
		nameCounter: make(map[string]int),
	}
}

// AddUniverse fills the lowest empty slot or appends, returning its id.
func (p *Patch) AddUniverse(u *Universe) UniverseID {
	for i, existing := range p.universes {
		if existing == nil {
			p.universes[i] = u
			return UniverseID(i)
		}
	}
	p.universes = append(p.universes, u)
	return UniverseID(len(p.universes) - 1)
}

// Universe returns the live universe at uid, or InvalidUniverseID.
func (p *Patch) Universe(uid UniverseID) (*Universe, error) {
	if int(uid) < 0 || int(uid) >= len(p.universes) || p.universes[uid] == nil {
		return nil, errInvalidUniverseID(uid)
	}
	return p.universes[uid], nil
}

// RemoveUniverse deletes a universe slot. Without force it fails if any
// fixture is still patched in it; with force, every such fixture is
// unpatched and its id returned.
func (p *Patch) RemoveUniverse(uid UniverseID, force bool) ([]FixtureID, error) {
	if _, err := p.Universe(uid); err != nil {
		return nil, err
	}

	var occupants []FixtureID
	for _, it := range p.items {
		if it.Address != nil && it.Address.Universe == uid {
			occupants = append(occupants, it.ID)
		}
	}

	if len(occupants) > 0 && !force {
		return nil, errNonEmptyUniverse(uid)
	}

	for _, fid := range occupants {
		idx := p.byID[fid]
		p.items[idx].Address = nil
	}

	p.universes[uid] = nil
	return occupants, nil
}

// SetUniversePort swaps the hardware port while preserving the buffer and
// patch state.
func (p *Patch) SetUniversePort(uid UniverseID, port dmxport.Port) error {
	u, err := p.Universe(uid)
	if err != nil {
		return err
	}
	u.Port = port
	return nil
}

// Add creates a new, unpatched fixture from a named profile. name, if
// empty, is auto-generated from the profile name.
func (p *Patch) Add(profileName, name string) (FixtureID, error) {
	profile, err := fixtureprofile.Lookup(profileName)
	if err != nil {
		return 0, &Error{Kind: "UnknownProfile"}
	}

	if name == "" {
		p.nameCounter[profileName]++
		name = fmt.Sprintf("%s %d", profileName, p.nameCounter[profileName])
	}

	id := p.nextID
	p.nextID++

	controls := profile.MakeControls()
	item := &Item{
		ID:             id,
		Name:           name,
		ProfileName:    profileName,
		Active:         true,
		ChannelCount:   profile.ChannelCount,
		Controls:       controls,
		ControlSources: make([]SourceID, len(controls)),
	}
	p.items = append(p.items, item)
	p.byID[id] = len(p.items) - 1
	return id, nil
}

// AddAtAddress adds a fixture then attempts to repatch it; on failure the
// add is reverted.
func (p *Patch) AddAtAddress(profileName, name string, uid UniverseID, dmxAddr int) (FixtureID, error) {
	fid, err := p.Add(profileName, name)
	if err != nil {
		return 0, err
	}
	if err := p.Repatch(fid, uid, dmxAddr); err != nil {
		p.Remove(fid)
		return 0, err
	}
	return fid, nil
}

func (p *Patch) find(fid FixtureID) (*Item, error) {
	idx, ok := p.byID[fid]
	if !ok {
		return nil, errInvalidFixtureID(fid)
	}
	return p.items[idx], nil
}

// occupancy computes which channels of uid are claimed by which fixture,
// ignoring ignoreFID.
func (p *Patch) occupancy(uid UniverseID, ignoreFID FixtureID) map[int]FixtureID {
	out := make(map[int]FixtureID)
	for _, it := range p.items {
		if it.Address == nil || it.Address.Universe != uid || it.ID == ignoreFID {
			continue
		}
		for ch := it.Address.DMX; ch < it.Address.DMX+it.ChannelCount; ch++ {
			out[ch] = it.ID
		}
	}
	return out
}

// Repatch validates and (re)assigns a fixture's address, or returns
// AddressConflict leaving the patch unchanged.
func (p *Patch) Repatch(fid FixtureID, uid UniverseID, dmxAddr int) error {
	item, err := p.find(fid)
	if err != nil {
		return err
	}
	if _, err := p.Universe(uid); err != nil {
		return err
	}
	if dmxAddr < 1 || dmxAddr > 512 {
		return errInvalidAddress(dmxAddr)
	}
	if dmxAddr+item.ChannelCount-1 > 512 {
		return errFixtureTooLong(fid, dmxAddr)
	}

	occ := p.occupancy(uid, fid)
	var conflicting []FixtureID
	seen := make(map[FixtureID]bool)
	for ch := dmxAddr; ch < dmxAddr+item.ChannelCount; ch++ {
		if owner, ok := occ[ch]; ok && !seen[owner] {
			seen[owner] = true
			conflicting = append(conflicting, owner)
		}
	}
	if len(conflicting) > 0 {
		return errAddressConflict(fid, uid, dmxAddr, conflicting)
	}

	item.Address = &Address{Universe: uid, DMX: dmxAddr}
	return nil
}

// Unpatch clears a fixture's address without removing it.
func (p *Patch) Unpatch(fid FixtureID) error {
	item, err := p.find(fid)
	if err != nil {
		return err
	}
	item.Address = nil
	return nil
}

// Remove deletes a fixture entirely (unpatching it first if needed).
func (p *Patch) Remove(fid FixtureID) error {
	idx, ok := p.byID[fid]
	if !ok {
		return errInvalidFixtureID(fid)
	}
	p.items = append(p.items[:idx], p.items[idx+1:]...)
	delete(p.byID, fid)
	for id, i := range p.byID {
		if i > idx {
			p.byID[id] = i - 1
		}
	}
	return nil
}

// SetActive toggles whether a fixture participates in render.
func (p *Patch) SetActive(fid FixtureID, active bool) error {
	item, err := p.find(fid)
	if err != nil {
		return err
	}
	item.Active = active
	return nil
}

// Rename changes a fixture's display name.
func (p *Patch) Rename(fid FixtureID, name string) error {
	item, err := p.find(fid)
	if err != nil {
		return err
	}
	item.Name = name
	return nil
}

// SetControlSource binds (or clears, with nil src) one control's source.
func (p *Patch) SetControlSource(fid FixtureID, controlIdx int, src SourceID) error {
	item, err := p.find(fid)
	if err != nil {
		return err
	}
	if controlIdx < 0 || controlIdx >= len(item.ControlSources) {
		return fmt.Errorf("patch: control index %d out of range for fixture %d", controlIdx, fid)
	}
	item.ControlSources[controlIdx] = src
	return nil
}

// Item exposes one fixture for read access (console state reporting).
func (p *Patch) Item(fid FixtureID) (*Item, error) {
	return p.find(fid)
}

// Items returns every fixture, patch-order (not id-order after removals).
func (p *Patch) Items() []*Item { return p.items }

// Universes returns every non-empty universe id.
func (p *Patch) UniverseIDs() []UniverseID {
	var out []UniverseID
	for i, u := range p.universes {
		if u != nil {
			out = append(out, UniverseID(i))
		}
	}
	return out
}
