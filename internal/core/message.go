package core

import "time"

// MessageType classifies an entry of a room's history.
type MessageType string

const (
	MessageChat  MessageType = "CHAT"
	MessageJoin  MessageType = "JOIN"
	MessageLeave MessageType = "LEAVE"
)

// ChatMessage is one event in a room's history.
type ChatMessage struct {
	Username  string
	Content   string
	Type      MessageType
	Timestamp time.Time
}

// NewChatMessage builds a message stamped with the given instant.
func NewChatMessage(username, content string, typ MessageType, at time.Time) ChatMessage {
	return ChatMessage{
		Username:  username,
		Content:   content,
		Type:      typ,
		Timestamp: at,
	}
}

func joinMessage(username string, at time.Time) ChatMessage {
	return NewChatMessage(username, username+" joined the room", MessageJoin, at)
}

func leaveMessage(username string, at time.Time) ChatMessage {
	return NewChatMessage(username, username+" left the room", MessageLeave, at)
}
