// SPDX-License-Identifier: BSD-3-Clause
// Copyright (c) 2025 Pierre Jay

package ws

import (
	"encoding/json"
	"log/slog"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pierrej/lightboard-core/internal/protocol"
	"github.com/pierrej/lightboard-core/internal/router"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

type fixture struct {
	commands  chan protocol.CommandEnvelope
	responses chan protocol.ResponseEnvelope
	rt        *router.Router
	ts        *httptest.Server
}

func startFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		commands:  make(chan protocol.CommandEnvelope, 16),
		responses: make(chan protocol.ResponseEnvelope, 16),
	}
	f.rt = router.New(testLogger(), f.responses)
	go f.rt.Run()

	s := NewServer(":0", testLogger(), f.commands, f.rt)
	f.ts = httptest.NewServer(s.server.Handler)
	t.Cleanup(func() {
		f.ts.Close()
		close(f.responses)
	})
	return f
}

func (f *fixture) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestCommandIntake(t *testing.T) {
	f := startFixture(t)
	conn := f.dial(t)

	msg := `{"filter":"all_but_self","command":{"Verb":"Save"}}`
	if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
		t.Fatalf("write: %v", err)
	}

	select {
	case env := <-f.commands:
		if env.Payload.Verb != "Save" {
			t.Errorf("verb = %s", env.Payload.Verb)
		}
		if env.ClientData.Filter != protocol.FilterAllButSelf {
			t.Errorf("filter = %v", env.ClientData.Filter)
		}
		if env.ClientData.ID == 0 {
			t.Errorf("client id not assigned")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("command never arrived")
	}
}

func TestResponseDelivery(t *testing.T) {
	f := startFixture(t)
	conn := f.dial(t)

	// Session ids are allocated sequentially per server; the first
	// connection is client 1. A broadcast reaches it.
	f.responses <- protocol.ResponseEnvelope{
		Payload: protocol.Response{Type: "PatchState", PatchState: &protocol.PatchState{}},
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var resp protocol.Response
	if err := json.Unmarshal(data, &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Type != "PatchState" {
		t.Errorf("type = %s", resp.Type)
	}
}

func TestInvalidCommandGetsError(t *testing.T) {
	f := startFixture(t)
	conn := f.dial(t)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatalf("write: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var resp protocol.Response
	if err := json.Unmarshal(data, &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Type != "Error" {
		t.Errorf("type = %s, want Error", resp.Type)
	}

	// Nothing reached the reactor.
	select {
	case env := <-f.commands:
		t.Errorf("unexpected command %+v", env)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHealthEndpoint(t *testing.T) {
	f := startFixture(t)

	resp, err := f.ts.Client().Get(f.ts.URL + "/api/health")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	var health healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if health.Goroutines <= 0 || health.GoVersion == "" {
		t.Errorf("health = %+v", health)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	f := startFixture(t)

	resp, err := f.ts.Client().Get(f.ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Errorf("status = %d", resp.StatusCode)
	}
}
