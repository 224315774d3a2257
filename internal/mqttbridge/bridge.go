// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

// Package mqttbridge mirrors the console over MQTT: commands arrive on
// <prefix>/cmd in the same envelope the WebSocket transport accepts, and
// every response routed to the bridge's client id is published on
// <prefix>/event.
package mqttbridge

import (
	"encoding/json"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/pierrej/lightboard-core/internal/protocol"
	"github.com/pierrej/lightboard-core/internal/router"
)

// Config for the MQTT bridge.
type Config struct {
	Broker   string
	ClientID string
	Username string
	Password string
	Prefix   string
}

// Bridge is one MQTT connection acting as a console client session.
type Bridge struct {
	cfg      Config
	logger   *slog.Logger
	commands chan<- protocol.CommandEnvelope
	router   *router.Router
	clientID protocol.ClientID

	client   mqtt.Client
	mailbox  chan protocol.Response
	stopChan chan struct{}
}

// New creates a bridge registered with the router under clientID.
func New(cfg Config, clientID protocol.ClientID, logger *slog.Logger, commands chan<- protocol.CommandEnvelope, rt *router.Router) *Bridge {
	if cfg.Prefix == "" {
		cfg.Prefix = "lightboard"
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "lightboard-core"
	}
	return &Bridge{
		cfg:      cfg,
		logger:   logger,
		commands: commands,
		router:   rt,
		clientID: clientID,
		stopChan: make(chan struct{}),
	}
}

// Start connects to the broker and subscribes to the command topic.
func (b *Bridge) Start() error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(b.cfg.Broker)
	opts.SetClientID(b.cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)

	if b.cfg.Username != "" {
		opts.SetUsername(b.cfg.Username)
		opts.SetPassword(b.cfg.Password)
	}

	opts.SetOnConnectHandler(b.onConnect)
	opts.SetConnectionLostHandler(b.onConnectionLost)

	b.client = mqtt.NewClient(opts)
	token := b.client.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return err
	}

	b.mailbox = b.router.Register(b.clientID)
	go b.forwardResponses()

	b.logger.Info("MQTT bridge started", "broker", b.cfg.Broker, "prefix", b.cfg.Prefix)
	return nil
}

// Stop disconnects from the broker.
func (b *Bridge) Stop() {
	close(b.stopChan)
	b.router.Unregister(b.clientID)
	if b.client != nil && b.client.IsConnected() {
		b.client.Disconnect(1000)
	}
	b.logger.Info("MQTT bridge stopped")
}

func (b *Bridge) onConnect(client mqtt.Client) {
	b.logger.Info("MQTT connected")
	cmdTopic := b.cfg.Prefix + "/cmd"
	client.Subscribe(cmdTopic, 1, b.handleCommand)
	b.logger.Debug("MQTT subscribed", "topic", cmdTopic)
}

func (b *Bridge) onConnectionLost(_ mqtt.Client, err error) {
	b.logger.Warn("MQTT connection lost", "error", err)
}

// handleCommand parses one command payload and feeds it to the reactor.
// MQTT is a broadcast medium, so the bridge always asks for All routing
// and lets its subscribers filter topics themselves.
func (b *Bridge) handleCommand(client mqtt.Client, msg mqtt.Message) {
	b.logger.Debug("MQTT command received", "topic", msg.Topic())

	var cmd protocol.Command
	if err := json.Unmarshal(msg.Payload(), &cmd); err != nil {
		b.publishError(err)
		return
	}

	b.commands <- protocol.CommandEnvelope{
		ClientData: protocol.ClientData{ID: b.clientID, Filter: protocol.FilterAll},
		Payload:    cmd,
	}
}

// forwardResponses publishes every routed response onto the event topic.
func (b *Bridge) forwardResponses() {
	topic := b.cfg.Prefix + "/event"
	for {
		select {
		case resp, ok := <-b.mailbox:
			if !ok {
				return
			}
			if b.client == nil || !b.client.IsConnected() {
				continue
			}
			data, err := json.Marshal(resp)
			if err != nil {
				continue
			}
			b.client.Publish(topic, 0, false, data)
		case <-b.stopChan:
			return
		}
	}
}

func (b *Bridge) publishError(err error) {
	if b.client == nil || !b.client.IsConnected() {
		return
	}
	data, merr := json.Marshal(protocol.ErrorResponse(err))
	if merr != nil {
		return
	}
	b.client.Publish(b.cfg.Prefix+"/event", 0, false, data)
}
