// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

package patch

// SourceCodec lets the console (which knows SourceID's concrete shape —
// typically a wiggle node id + output index) serialize and restore it. The
// patch itself stays opaque to SourceID
type SourceCodec interface {
	EncodeSource(SourceID) (string, bool)
	DecodeSource(string) (SourceID, error)
}

// SavedUniverse is a universe's serializable form. The console rebuilds
// the port itself from (Namespace, PortName) and calls RestoreUniverseAt;
// the patch does not know how to construct a port.
type SavedUniverse struct {
	Index     int
	Namespace string
	PortName  string
}

// SavedItem is a fixture's serializable form. On load the console hands
// it to RestoreItem, which recreates the fixture with its saved id and
// state and does not re-run the address conflict checks Add/Repatch make.
type SavedItem struct {
	ID             int
	Name           string
	ProfileName    string
	Active         bool
	Address        *Address
	ControlValues  []SavedControlValue
	ControlSources []*string // nil = unbound
}

// SavedControlValue preserves a control's live value across save/load so
// a reload without a bound source still shows the last rendered state.
type SavedControlValue struct {
	Datatype int
	Value    float64 // unipolar/bipolar sample value
	RateHz   float64
	UFloat   float64
	Button   bool
	Picker   string
}

// Snapshot serializes the whole patch. portNamespace supplies the
// namespace string used to recreate each live universe's port on load.
func (p *Patch) Snapshot(codec SourceCodec, portNamespace func(UniverseID) string) ([]SavedUniverse, []SavedItem) {
	var universes []SavedUniverse
	for i, u := range p.universes {
		if u == nil {
			continue
		}
		universes = append(universes, SavedUniverse{
			Index:     i,
			Namespace: portNamespace(UniverseID(i)),
			PortName:  u.Port.Name(),
		})
	}

	var items []SavedItem
	for _, it := range p.items {
		si := SavedItem{
			ID:          int(it.ID),
			Name:        it.Name,
			ProfileName: it.ProfileName,
			Active:      it.Active,
			Address:     it.Address,
		}
		for _, c := range it.Controls {
			si.ControlValues = append(si.ControlValues, encodeControlValue(c))
		}
		for _, src := range it.ControlSources {
			if src == nil {
				si.ControlSources = append(si.ControlSources, nil)
				continue
			}
			if enc, ok := codec.EncodeSource(src); ok {
				s := enc
				si.ControlSources = append(si.ControlSources, &s)
			} else {
				si.ControlSources = append(si.ControlSources, nil)
			}
		}
		items = append(items, si)
	}
	return universes, items
}

func encodeControlValue(c FixtureControl) SavedControlValue {
	v := c.Value
	return SavedControlValue{
		Datatype: int(v.Type),
		Value:    v.Sample.Value,
		RateHz:   v.Rate.Hz,
		UFloat:   v.UFloat,
		Button:   v.Button,
		Picker:   v.Picker,
	}
}

// NextID exposes the fixture id counter so the console can restore it
// verbatim after restoring saved items (ids are monotone and never
// reused, ).
func (p *Patch) NextID() FixtureID { return p.nextID }

// SetNextID restores the fixture id counter on load.
func (p *Patch) SetNextID(id FixtureID) { p.nextID = id }
