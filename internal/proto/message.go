package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	InboundTypeJoin  = "join"
	InboundTypeLeave = "leave"
	InboundTypeMsg   = "msg"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"

	EventMessage = "message"
	EventHistory = "history"
	EventJoined  = "joined"
)

// JoinData announces the user taking part in the connection's room.
type JoinData struct {
	Username string `json:"username"`
}

// MsgData is a chat message from the client.
type MsgData struct {
	Content string `json:"content"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// ChatMessage is a room history entry as seen by clients.
type ChatMessage struct {
	RoomCode  string `json:"roomCode"`
	Username  string `json:"username"`
	Content   string `json:"content"`
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
}

// History is sent to a session right after it joins.
type History struct {
	RoomCode string        `json:"roomCode"`
	Messages []ChatMessage `json:"messages"`
}

// Joined confirms the session's membership.
type Joined struct {
	RoomCode  string `json:"roomCode"`
	HostName  string `json:"hostName"`
	Username  string `json:"username"`
	SessionID string `json:"sessionId"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
