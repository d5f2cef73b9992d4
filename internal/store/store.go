package store

import (
	"context"
	"time"
)

// RoomEventKind is the lifecycle transition recorded in the audit log.
type RoomEventKind string

const (
	RoomEventCreated RoomEventKind = "created"
	RoomEventClosed  RoomEventKind = "closed"
)

// RoomEvent is one row of the room audit log. Chat content is never stored.
type RoomEvent struct {
	ID           int64
	RoomCode     string
	Kind         RoomEventKind
	HostName     string // set for created events
	MessageCount int    // set for closed events
	At           time.Time
}

// AuditStore persists room lifecycle events.
type AuditStore interface {
	RecordRoomEvent(ctx context.Context, ev RoomEvent) (*RoomEvent, error)
	// ListRoomEvents returns events for code, oldest first. An empty code lists every room.
	ListRoomEvents(ctx context.Context, code string, limit int) ([]RoomEvent, error)
	Close() error
}
