package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/roomchat-server/internal/broadcast"
	"github.com/vovakirdan/roomchat-server/internal/config"
	"github.com/vovakirdan/roomchat-server/internal/core"
	"github.com/vovakirdan/roomchat-server/internal/proto"
)

type testEnv struct {
	registry *core.Registry
	router   *core.Router
	hub      *broadcast.Hub
	handler  http.Handler
	ws       *WSHandler
	server   *httptest.Server
}

// newTestEnv wires a registry, router and hub behind an httptest server.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	gen, err := core.NewRandomCodeGenerator()
	if err != nil {
		t.Fatalf("code generator: %v", err)
	}
	registry := core.NewRegistry(gen)
	hub := broadcast.NewHub(16)
	router := core.NewRouter(registry, hub)

	disabledLogger := zerolog.Nop()
	cfg := config.Default()
	cfg.Addr = ":0"

	server, ws := NewServer(registry, router, hub, nil, &cfg, &disabledLogger)
	ts := httptest.NewServer(server.Handler)
	t.Cleanup(func() {
		hub.Close()
		ts.Close()
	})

	return &testEnv{registry: registry, router: router, hub: hub, handler: server.Handler, ws: ws, server: ts}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	resp := httptest.NewRecorder()
	e.handler.ServeHTTP(resp, req)
	return resp
}

func (e *testEnv) createRoom(t *testing.T, host string) string {
	t.Helper()

	room, err := e.registry.CreateRoom(host)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	return room.Code()
}

func (e *testEnv) dial(t *testing.T, ctx context.Context, code string) *websocket.Conn {
	t.Helper()

	wsURL := strings.Replace(e.server.URL, "http", "ws", 1) + "/ws/" + code
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", code, err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "done") })
	return conn
}

// rawOutbound mirrors proto.Outbound with undecoded data.
type rawOutbound struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

func send(t *testing.T, ctx context.Context, conn *websocket.Conn, typ string, data any) {
	t.Helper()

	payload, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal %s: %v", typ, err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: payload}); err != nil {
		t.Fatalf("send %s: %v", typ, err)
	}
}

func read(t *testing.T, ctx context.Context, conn *websocket.Conn) rawOutbound {
	t.Helper()

	var out rawOutbound
	if err := wsjson.Read(ctx, conn, &out); err != nil {
		t.Fatalf("read outbound: %v", err)
	}
	return out
}

// readMessage reads the next frame and expects a message event.
func readMessage(t *testing.T, ctx context.Context, conn *websocket.Conn) proto.ChatMessage {
	t.Helper()

	out := read(t, ctx, conn)
	if out.Type != proto.OutboundTypeEvent || out.Event != proto.EventMessage {
		t.Fatalf("expected message event, got %+v (data %s)", out, out.Data)
	}
	var msg proto.ChatMessage
	if err := json.Unmarshal(out.Data, &msg); err != nil {
		t.Fatalf("unmarshal message: %v", err)
	}
	return msg
}

// joinAs sends join and consumes the joined, history and own JOIN frames.
func joinAs(t *testing.T, ctx context.Context, conn *websocket.Conn, username string) proto.History {
	t.Helper()

	send(t, ctx, conn, proto.InboundTypeJoin, proto.JoinData{Username: username})

	joined := read(t, ctx, conn)
	if joined.Event != proto.EventJoined {
		t.Fatalf("expected joined event, got %+v", joined)
	}

	out := read(t, ctx, conn)
	if out.Event != proto.EventHistory {
		t.Fatalf("expected history event, got %+v", out)
	}
	var history proto.History
	if err := json.Unmarshal(out.Data, &history); err != nil {
		t.Fatalf("unmarshal history: %v", err)
	}

	own := readMessage(t, ctx, conn)
	if own.Type != string(core.MessageJoin) || own.Username != username {
		t.Fatalf("expected own join, got %+v", own)
	}
	return history
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
