// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

package console

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/pierrej/lightboard-core/internal/clocknet"
	"github.com/pierrej/lightboard-core/internal/dmxport"
	"github.com/pierrej/lightboard-core/internal/patch"
	"github.com/pierrej/lightboard-core/internal/showlibrary"
	"github.com/pierrej/lightboard-core/internal/wigglenet"
)

// patchDoc is the patch sub-document of a save file.
type patchDoc struct {
	Universes     []patch.SavedUniverse
	Items         []patch.SavedItem
	NextID        int
	OutputEnabled bool
}

// Snapshot serializes the whole console into the library's save form. The
// three sub-documents are JSON so the TOML text saves stay readable and
// the binary autosaves stay compact.
func (c *Console) Snapshot(sessionID, showName string) (showlibrary.Snapshot, error) {
	clockNodes, err := c.clocks.Snapshot()
	if err != nil {
		return showlibrary.Snapshot{}, fmt.Errorf("console: snapshot clocks: %w", err)
	}
	wiggleNodes, err := c.wiggles.Snapshot()
	if err != nil {
		return showlibrary.Snapshot{}, fmt.Errorf("console: snapshot wiggles: %w", err)
	}

	universes, items := c.patch.Snapshot(sourceCodec{}, func(uid patch.UniverseID) string {
		return c.portRefs[uid].Namespace
	})
	pd := patchDoc{
		Universes:     universes,
		Items:         items,
		NextID:        int(c.patch.NextID()),
		OutputEnabled: c.gate.Enabled(),
	}

	clocksJSON, err := json.Marshal(clockNodes)
	if err != nil {
		return showlibrary.Snapshot{}, err
	}
	wigglesJSON, err := json.Marshal(wiggleNodes)
	if err != nil {
		return showlibrary.Snapshot{}, err
	}
	patchJSON, err := json.Marshal(pd)
	if err != nil {
		return showlibrary.Snapshot{}, err
	}

	return showlibrary.Snapshot{
		SessionID: sessionID,
		ShowName:  showName,
		Clocks:    string(clocksJSON),
		Wiggles:   string(wigglesJSON),
		Patch:     string(patchJSON),
	}, nil
}

// Restore rebuilds a console from a loaded snapshot. The clock network is
// restored first so wiggle clock references can be rebound through the
// saved slot-index mapping.
func Restore(logger *slog.Logger, ports PortFactory, gate *dmxport.Gate, snap showlibrary.Snapshot) (*Console, error) {
	var clockNodes []clocknet.SavedNode
	if snap.Clocks != "" {
		if err := json.Unmarshal([]byte(snap.Clocks), &clockNodes); err != nil {
			return nil, fmt.Errorf("console: decode clocks: %w", err)
		}
	}
	var wiggleNodes []wigglenet.SavedNode
	if snap.Wiggles != "" {
		if err := json.Unmarshal([]byte(snap.Wiggles), &wiggleNodes); err != nil {
			return nil, fmt.Errorf("console: decode wiggles: %w", err)
		}
	}
	pd := patchDoc{OutputEnabled: true}
	if snap.Patch != "" {
		if err := json.Unmarshal([]byte(snap.Patch), &pd); err != nil {
			return nil, fmt.Errorf("console: decode patch: %w", err)
		}
	}

	clocks, clockByIndex, err := clocknet.Restore(logger, clockNodes)
	if err != nil {
		return nil, err
	}
	wiggles, err := wigglenet.Restore(logger, wiggleNodes, clockByIndex)
	if err != nil {
		return nil, err
	}

	if gate == nil {
		gate = dmxport.NewGate()
	}
	c := &Console{
		logger:   logger,
		clocks:   clocks,
		wiggles:  wiggles,
		patch:    patch.New(),
		ports:    ports,
		gate:     gate,
		portRefs: make(map[patch.UniverseID]PortRef),
	}
	c.gate.SetEnabled(pd.OutputEnabled)

	for _, su := range pd.Universes {
		ref := PortRef{Namespace: su.Namespace, Name: su.PortName}
		port, err := ports.Open(ref)
		if err != nil {
			logger.Warn("console: saved port unavailable, using offline", "namespace", su.Namespace, "port", su.PortName, "error", err)
			ref = OfflineRef
			port = dmxport.NewOfflinePort(OfflineRef.Name)
		}
		c.patch.RestoreUniverseAt(su.Index, port)
		c.portRefs[patch.UniverseID(su.Index)] = ref
	}

	for _, si := range pd.Items {
		if err := c.patch.RestoreItem(si, sourceCodec{}); err != nil {
			return nil, err
		}
	}
	if pd.NextID > int(c.patch.NextID()) {
		c.patch.SetNextID(patch.FixtureID(pd.NextID))
	}

	return c, nil
}
