// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

// Package modbus is an optional Modbus-TCP surface onto the console:
// holding registers 0-511 mirror the first universe's rendered DMX frame
// (read-only — channel values are produced by the wiggle network, not
// poked externally), coil 0 is the grand-master output gate and coil 1
// fires a one-shot blackout.
package modbus

import (
	"encoding/binary"
	"log/slog"

	"github.com/tbrandon/mbserver"

	"github.com/pierrej/lightboard-core/internal/dmxport"
	"github.com/pierrej/lightboard-core/internal/protocol"
)

// Config for the Modbus TCP server.
type Config struct {
	Port string // ":502" or ":5020"
}

// Server is the Modbus TCP bridge.
type Server struct {
	cfg      Config
	logger   *slog.Logger
	mirror   *dmxport.TeePort
	gate     *dmxport.Gate
	commands chan<- protocol.CommandEnvelope
	clientID protocol.ClientID
	mb       *mbserver.Server
}

// NewServer creates the bridge. mirror carries the last frame written to
// the mirrored universe; gate is read for the coil state; commands is the
// reactor's intake, used for coil writes so the reactor stays the only
// mutator of show state.
func NewServer(cfg Config, clientID protocol.ClientID, mirror *dmxport.TeePort, gate *dmxport.Gate, commands chan<- protocol.CommandEnvelope, logger *slog.Logger) *Server {
	return &Server{
		cfg:      cfg,
		logger:   logger,
		mirror:   mirror,
		gate:     gate,
		commands: commands,
		clientID: clientID,
	}
}

// Start starts the Modbus TCP server.
func (s *Server) Start() error {
	s.mb = mbserver.NewServer()

	s.mb.RegisterFunctionHandler(3, s.handleReadHoldingRegisters) // FC03
	s.mb.RegisterFunctionHandler(6, s.handleRejectWrite)          // FC06
	s.mb.RegisterFunctionHandler(16, s.handleRejectWrite)         // FC16
	s.mb.RegisterFunctionHandler(1, s.handleReadCoils)            // FC01
	s.mb.RegisterFunctionHandler(5, s.handleWriteSingleCoil)      // FC05

	addr := s.cfg.Port
	if addr == "" {
		addr = ":502"
	}

	s.logger.Info("Modbus TCP server starting", "addr", addr)

	go func() {
		if err := s.mb.ListenTCP(addr); err != nil {
			s.logger.Error("Modbus TCP server error", "error", err)
		}
	}()

	return nil
}

// Stop stops the Modbus TCP server.
func (s *Server) Stop() {
	if s.mb != nil {
		s.mb.Close()
		s.logger.Info("Modbus TCP server stopped")
	}
}

// FC03: Read Holding Registers (rendered DMX channels)
func (s *Server) handleReadHoldingRegisters(_ *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
	data := frame.GetData()
	if len(data) < 4 {
		return []byte{}, &mbserver.IllegalDataValue
	}

	startAddr := binary.BigEndian.Uint16(data[0:2])
	quantity := binary.BigEndian.Uint16(data[2:4])

	if startAddr+quantity > 512 {
		return []byte{}, &mbserver.IllegalDataAddress
	}

	channels := s.mirror.LastFrame()

	// Each register = 1 channel, value in the low byte.
	resp := make([]byte, 1+quantity*2)
	resp[0] = byte(quantity * 2)

	for i := uint16(0); i < quantity; i++ {
		val := uint16(channels[startAddr+i])
		binary.BigEndian.PutUint16(resp[1+i*2:], val)
	}

	return resp, &mbserver.Success
}

// FC06/FC16: channel values come from the wiggle network, never from
// Modbus writes.
func (s *Server) handleRejectWrite(_ *mbserver.Server, _ mbserver.Framer) ([]byte, *mbserver.Exception) {
	return []byte{}, &mbserver.IllegalFunction
}

// FC01: Read Coils (output gate)
func (s *Server) handleReadCoils(_ *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
	data := frame.GetData()
	if len(data) < 4 {
		return []byte{}, &mbserver.IllegalDataValue
	}

	startAddr := binary.BigEndian.Uint16(data[0:2])
	quantity := binary.BigEndian.Uint16(data[2:4])

	if startAddr+quantity > 2 {
		return []byte{}, &mbserver.IllegalDataAddress
	}

	// Coil 0 = output enabled, coil 1 = always 0 (blackout is write-only).
	var coils byte
	if s.gate.Enabled() {
		coils |= 0x01
	}

	return []byte{1, coils}, &mbserver.Success
}

// FC05: Write Single Coil (enable/disable/blackout), routed through the
// reactor's command intake so the reactor stays the sole mutator.
func (s *Server) handleWriteSingleCoil(_ *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
	data := frame.GetData()
	if len(data) < 4 {
		return []byte{}, &mbserver.IllegalDataValue
	}

	addr := binary.BigEndian.Uint16(data[0:2])
	value := binary.BigEndian.Uint16(data[2:4])

	on := value == 0xFF00

	var verb string
	switch addr {
	case 0:
		if on {
			verb = "Enable"
		} else {
			verb = "Disable"
		}
	case 1:
		if !on {
			// Writing 0 to the blackout coil is a no-op.
			return data[:4], &mbserver.Success
		}
		verb = "Blackout"
	default:
		return []byte{}, &mbserver.IllegalDataAddress
	}

	s.commands <- protocol.CommandEnvelope{
		ClientData: protocol.ClientData{ID: s.clientID, Filter: protocol.FilterAll},
		Payload: protocol.Command{
			Verb:    "Console",
			Console: &protocol.ConsoleCommand{Family: "Output", Output: &protocol.OutputRequest{Verb: verb}},
		},
	}
	s.logger.Debug("Modbus coil write", "coil", addr, "verb", verb)

	return data[:4], &mbserver.Success
}
