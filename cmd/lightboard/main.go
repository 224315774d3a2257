// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pierrej/lightboard-core/internal/console"
	"github.com/pierrej/lightboard-core/internal/consoleconfig"
	"github.com/pierrej/lightboard-core/internal/dmxport"
	"github.com/pierrej/lightboard-core/internal/modbus"
	"github.com/pierrej/lightboard-core/internal/mqttbridge"
	"github.com/pierrej/lightboard-core/internal/protocol"
	"github.com/pierrej/lightboard-core/internal/reactor"
	"github.com/pierrej/lightboard-core/internal/router"
	"github.com/pierrej/lightboard-core/internal/showlibrary"
	"github.com/pierrej/lightboard-core/internal/transport/ws"
)

// Bridge sessions use fixed client ids far above anything the WebSocket
// transport will allocate.
const (
	mqttClientID   protocol.ClientID = 1 << 62
	modbusClientID protocol.ClientID = 1<<62 + 1
)

func main() {
	var (
		configPath = flag.String("config", "config.yaml", "Path to configuration file")
		logLevel   = flag.String("log-level", "INFO", "Log level (DEBUG, INFO, WARN, ERROR)")
		dryRun     = flag.Bool("dry-run", false, "Validate config and initial show, then exit")
		showFlag   = flag.String("show", "", "Show to load at startup (overrides config)")
	)
	flag.Parse()

	level := parseLogLevel(*logLevel)
	opts := &slog.HandlerOptions{Level: level}
	handler := slog.NewTextHandler(os.Stdout, opts)
	logger := slog.New(handler)
	slog.SetDefault(logger)

	logger.Info("Lightboard starting", "version", "1.0.0")

	cfg, err := consoleconfig.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("No configuration file, using defaults", "path", *configPath)
			cfg = consoleconfig.Default()
		} else {
			logger.Error("Failed to load configuration", "error", err, "path", *configPath)
			os.Exit(1)
		}
	}

	showName := cfg.Library.InitialShow
	if *showFlag != "" {
		showName = *showFlag
	}

	ports := newPortFactory(cfg, logger)
	gate := dmxport.NewGate()

	cons, loaded := loadInitialShow(logger, ports, gate, cfg.Library.Root, showName)
	if cons == nil {
		os.Exit(1)
	}
	if !loaded {
		for _, u := range cfg.Universes {
			ref := console.PortRef{Namespace: u.Namespace, Name: u.PortName}
			if _, err := cons.AddUniverse(ref); err != nil {
				logger.Warn("Cannot open configured universe port", "namespace", u.Namespace, "port", u.PortName, "error", err)
			}
		}
	}

	if *dryRun {
		logger.Info("Dry run mode - configuration and initial show are valid")
		os.Exit(0)
	}

	commands := make(chan protocol.CommandEnvelope, 64)
	responses := make(chan protocol.ResponseEnvelope, 256)

	rt := router.New(logger, responses)
	go rt.Run()

	reactorCfg := reactor.Config{
		UpdateInterval:   time.Duration(cfg.Reactor.UpdateMs) * time.Millisecond,
		RenderInterval:   time.Duration(cfg.Reactor.RenderMs) * time.Millisecond,
		AutosaveInterval: time.Duration(cfg.Reactor.AutosaveMs) * time.Millisecond,
		LibraryRoot:      cfg.Library.Root,
	}
	rc := reactor.New(logger, reactorCfg, ports, cons, showName, commands, responses, rt.Done())

	server := ws.NewServer(cfg.Server.HTTP, logger, commands, rt)
	server.Start()

	var modbusServer *modbus.Server
	if cfg.Modbus != nil {
		modbusServer = modbus.NewServer(modbus.Config{Port: cfg.Modbus.Port}, modbusClientID, ports.Mirror(), gate, commands, logger)
		if err := modbusServer.Start(); err != nil {
			logger.Error("Failed to start Modbus server", "error", err)
			os.Exit(1)
		}
	}

	var mqttBridge *mqttbridge.Bridge
	if cfg.MQTT != nil {
		mqttBridge = mqttbridge.New(mqttbridge.Config{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Username: cfg.MQTT.Username,
			Password: cfg.MQTT.Password,
			Prefix:   cfg.MQTT.TopicPrefix,
		}, mqttClientID, logger, commands, rt)
		if err := mqttBridge.Start(); err != nil {
			logger.Error("Failed to start MQTT bridge", "error", err)
			os.Exit(1)
		}
	}

	// Signals translate into an ordinary Quit command so the reactor
	// drains cleanly (autosave, Quit broadcast, stop).
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info("Received signal, shutting down", "signal", sig)
		commands <- protocol.CommandEnvelope{Payload: protocol.Command{Verb: "Quit"}}
	}()

	logger.Info("Lightboard ready",
		"http", cfg.Server.HTTP,
		"show", showName,
		"modbus", cfg.Modbus != nil,
		"mqtt", cfg.MQTT != nil)

	rc.Run()

	logger.Info("Initiating graceful shutdown...")

	if mqttBridge != nil {
		mqttBridge.Stop()
	}
	if modbusServer != nil {
		modbusServer.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	<-rt.Done()
	logger.Info("Lightboard stopped")
}

// loadInitialShow restores the latest save of showName, or builds a fresh
// console when the show has never been saved. The bool result reports
// whether state came from disk (configured universes are only seeded into
// fresh shows). A nil console means an unrecoverable startup error.
func loadInitialShow(logger *slog.Logger, ports console.PortFactory, gate *dmxport.Gate, root, showName string) (*console.Console, bool) {
	lib := showlibrary.New(root, showName)
	snap, err := lib.LoadLatest()
	if err != nil {
		var le *showlibrary.Error
		if errors.As(err, &le) && (le.Kind == "ShowDoesNotExist" || le.Kind == "SaveNotFound") {
			logger.Info("Starting fresh show", "show", showName)
			return console.New(logger, ports, gate), false
		}
		logger.Error("Failed to load initial show", "show", showName, "error", err)
		return nil, false
	}

	cons, err := console.Restore(logger, ports, gate, snap)
	if err != nil {
		logger.Error("Failed to restore initial show", "show", showName, "error", err)
		return nil, false
	}
	logger.Info("Loaded show", "show", showName)
	return cons, true
}

// portFactory opens DMX ports by (namespace, name): the offline namespace
// always resolves to a discard port; the subprocess namespace resolves
// through the universes configured in config.yaml. Each configured port is
// wrapped in a tee so the Modbus bridge can mirror the first one opened;
// offline ports are returned without a tee.
type portFactory struct {
	logger  *slog.Logger
	entries map[console.PortRef]consoleconfig.UniverseEntry
	mirror  *dmxport.TeePort
}

func newPortFactory(cfg *consoleconfig.Config, logger *slog.Logger) *portFactory {
	f := &portFactory{
		logger:  logger,
		entries: make(map[console.PortRef]consoleconfig.UniverseEntry),
		mirror:  dmxport.NewTeePort(dmxport.NewOfflinePort("offline")),
	}
	for _, u := range cfg.Universes {
		f.entries[console.PortRef{Namespace: u.Namespace, Name: u.PortName}] = u
	}
	return f
}

// Mirror is the tee carrying the first hardware port ever opened (or a
// discard port if none has been).
func (f *portFactory) Mirror() *dmxport.TeePort { return f.mirror }

func (f *portFactory) Open(ref console.PortRef) (dmxport.Port, error) {
	if ref.Namespace == console.OfflineRef.Namespace {
		return dmxport.NewOfflinePort(ref.Name), nil
	}

	entry, ok := f.entries[ref]
	if !ok {
		return nil, errors.New("unknown port " + ref.Namespace + "/" + ref.Name)
	}

	clientBin := entry.ClientBin
	if clientBin == "" {
		clientBin = "/usr/bin/dmx_client"
	}
	timeout := time.Duration(entry.TimeoutMs) * time.Millisecond
	if timeout == 0 {
		timeout = 2 * time.Second
	}

	port := dmxport.NewSubprocessPort(ref.Name, clientBin, entry.Device, timeout, f.logger)
	tee := dmxport.NewTeePort(port)
	if f.mirror == nil || f.mirrorIsOffline() {
		f.mirror = tee
	}
	return tee, nil
}

func (f *portFactory) mirrorIsOffline() bool {
	return f.mirror != nil && f.mirror.Name() == "offline"
}

func (f *portFactory) Available() []console.PortRef {
	out := []console.PortRef{console.OfflineRef}
	for ref := range f.entries {
		out = append(out, ref)
	}
	return out
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
