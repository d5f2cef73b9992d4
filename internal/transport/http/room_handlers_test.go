package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/vovakirdan/roomchat-server/internal/core"
)

func TestCreateRoom(t *testing.T) {
	env := newTestEnv(t)

	// Test 1: valid host name
	resp := env.do(t, http.MethodPost, "/api/chatroom/create", `{"hostName":"  Alice "}`)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var roomResp RoomResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &roomResp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if roomResp.HostName != "Alice" {
		t.Errorf("expected host name 'Alice', got '%s'", roomResp.HostName)
	}
	if !core.IsValidRoomCode(roomResp.RoomCode) {
		t.Errorf("unexpected room code %q", roomResp.RoomCode)
	}
	if roomResp.Message != "Room created successfully" {
		t.Errorf("unexpected message %q", roomResp.Message)
	}
	if !env.registry.RoomExists(roomResp.RoomCode) {
		t.Errorf("room %s not registered", roomResp.RoomCode)
	}

	// Test 2: blank host name
	resp = env.do(t, http.MethodPost, "/api/chatroom/create", `{"hostName":"   "}`)
	if resp.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "Host name is required") {
		t.Errorf("unexpected body: %s", resp.Body.String())
	}

	// Test 3: malformed body
	resp = env.do(t, http.MethodPost, "/api/chatroom/create", `{"hostName":`)
	if resp.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", resp.Code)
	}

	if env.registry.Count() != 1 {
		t.Errorf("expected exactly one room, got %d", env.registry.Count())
	}
}

func TestJoinRoom(t *testing.T) {
	env := newTestEnv(t)
	code := env.createRoom(t, "Alice")

	tests := []struct {
		name   string
		body   string
		status int
		errMsg string
	}{
		{name: "ok", body: `{"roomCode":"` + code + `","username":"Bob"}`, status: http.StatusOK},
		{name: "lower case code", body: `{"roomCode":" ` + strings.ToLower(code) + `","username":"Bob"}`, status: http.StatusOK},
		{name: "missing code", body: `{"username":"Bob"}`, status: http.StatusBadRequest, errMsg: "Room code is required"},
		{name: "missing username", body: `{"roomCode":"` + code + `","username":" "}`, status: http.StatusBadRequest, errMsg: "Username is required"},
		{name: "unknown room", body: `{"roomCode":"ZZZZZZ","username":"Bob"}`, status: http.StatusNotFound, errMsg: "Room not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.do(t, http.MethodPost, "/api/chatroom/join", tt.body)
			if resp.Code != tt.status {
				t.Fatalf("expected status %d, got %d: %s", tt.status, resp.Code, resp.Body.String())
			}

			if tt.errMsg != "" {
				var errResp ErrorResponse
				if err := json.Unmarshal(resp.Body.Bytes(), &errResp); err != nil {
					t.Fatalf("failed to unmarshal error: %v", err)
				}
				if errResp.Error != tt.errMsg {
					t.Fatalf("expected error %q, got %q", tt.errMsg, errResp.Error)
				}
				return
			}

			var roomResp RoomResponse
			if err := json.Unmarshal(resp.Body.Bytes(), &roomResp); err != nil {
				t.Fatalf("failed to unmarshal response: %v", err)
			}
			if roomResp.RoomCode != code || roomResp.HostName != "Alice" {
				t.Fatalf("unexpected response: %+v", roomResp)
			}
		})
	}

	// Join over HTTP only validates; membership starts on the WebSocket.
	room, _ := env.registry.GetRoom(code)
	if room.UserCount() != 0 {
		t.Errorf("expected no members, got %d", room.UserCount())
	}
}

func TestGetRoomDetails(t *testing.T) {
	env := newTestEnv(t)
	code := env.createRoom(t, "Alice")

	for _, name := range []string{"Alice", "Bob"} {
		if _, err := env.router.AddUser(code, name, "sess-"+name); err != nil {
			t.Fatalf("add %s: %v", name, err)
		}
	}

	resp := env.do(t, http.MethodGet, "/api/chatroom/"+code, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var details RoomDetailsResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &details); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if details.RoomCode != code || details.HostName != "Alice" || details.UserCount != 2 {
		t.Fatalf("unexpected details: %+v", details)
	}
	if len(details.Users) != 2 || details.Users[0].Username != "Alice" || details.Users[1].Username != "Bob" {
		t.Fatalf("expected members in join order, got %+v", details.Users)
	}

	resp = env.do(t, http.MethodGet, "/api/chatroom/ZZZZZZ", "")
	if resp.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", resp.Code)
	}
}

func TestStatsAndHealth(t *testing.T) {
	env := newTestEnv(t)
	env.createRoom(t, "Alice")
	env.createRoom(t, "Bob")

	resp := env.do(t, http.MethodGet, "/api/stats", "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	var stats StatsResponse
	if err := json.Unmarshal(resp.Body.Bytes(), &stats); err != nil {
		t.Fatalf("failed to unmarshal stats: %v", err)
	}
	if stats.Rooms != 2 {
		t.Errorf("expected 2 rooms, got %d", stats.Rooms)
	}

	resp = env.do(t, http.MethodGet, "/health", "")
	if resp.Code != http.StatusOK || resp.Body.String() != "ok" {
		t.Errorf("unexpected health response %d %q", resp.Code, resp.Body.String())
	}
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/chatroom/create", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")

	resp := httptest.NewRecorder()
	env.handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", resp.Code)
	}
	if got := resp.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("unexpected allow origin %q", got)
	}
}

func TestCORSMiddlewareSpecificOrigins(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(CORSMiddleware([]string{"http://localhost:5173/"}))
	engine.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	get := func(origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("Origin", origin)
		resp := httptest.NewRecorder()
		engine.ServeHTTP(resp, req)
		return resp
	}

	allowed := get("http://localhost:5173")
	if got := allowed.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Fatalf("expected origin echoed, got %q", got)
	}

	denied := get("http://evil.example")
	if got := denied.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("expected no CORS header, got %q", got)
	}
	if denied.Code != http.StatusOK {
		t.Fatalf("CORS must not block simple requests, got %d", denied.Code)
	}
}
