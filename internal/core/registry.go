package core

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// maxCodeAttempts bounds the collision-retry loop of CreateRoom. With 36^6 codes the
// bound is only reached when the code space is effectively full.
const maxCodeAttempts = 1024

// Observer is notified about room lifecycle transitions.
// Callbacks run while the registry lock is held and must not block.
type Observer interface {
	RoomCreated(code, hostName string, at time.Time)
	RoomClosed(code string, messageCount int, at time.Time)
}

// RegistryOption customizes a Registry.
type RegistryOption func(*Registry)

// WithObserver attaches a lifecycle observer.
func WithObserver(o Observer) RegistryOption {
	return func(r *Registry) {
		r.observer = o
	}
}

// WithRegistryClock overrides the clock used to stamp room creation.
func WithRegistryClock(now func() time.Time) RegistryOption {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// Registry owns the live rooms keyed by code.
//
// Lock order is registry.mu then Room.mu. Any operation that decides whether a room
// lives or dies holds both.
type Registry struct {
	gen      CodeGenerator
	now      func() time.Time
	observer Observer

	mu    sync.Mutex
	rooms map[string]*Room
}

// NewRegistry creates an empty registry minting codes with gen.
func NewRegistry(gen CodeGenerator, opts ...RegistryOption) *Registry {
	r := &Registry{
		gen:   gen,
		now:   time.Now,
		rooms: make(map[string]*Room),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CreateRoom registers a new empty room hosted by hostName under an unused code.
func (r *Registry) CreateRoom(hostName string) (*Room, error) {
	hostName = strings.TrimSpace(hostName)
	if hostName == "" {
		return nil, fmt.Errorf("%w: host name is required", ErrInvalidInput)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code := r.gen.Generate()
		if _, taken := r.rooms[code]; taken {
			continue
		}

		room := NewRoom(code, hostName, r.now())
		r.rooms[code] = room
		if r.observer != nil {
			r.observer.RoomCreated(code, hostName, room.CreatedAt())
		}
		return room, nil
	}

	return nil, fmt.Errorf("create room after %d attempts: %w", maxCodeAttempts, ErrCodeSpaceExhausted)
}

// RoomExists reports whether code names a live room.
func (r *Registry) RoomExists(code string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.rooms[code]
	return ok
}

// GetRoom looks up a live room.
func (r *Registry) GetRoom(code string) (*Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[code]
	if !ok {
		return nil, fmt.Errorf("room %q: %w", code, ErrRoomNotFound)
	}
	return room, nil
}

// RemoveRoom deletes the room. Removing an absent code is a no-op.
func (r *Registry) RemoveRoom(code string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[code]
	if !ok {
		return
	}

	room.mu.Lock()
	r.closeLocked(room)
	room.mu.Unlock()
}

// Count returns the number of live rooms.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms)
}

// lockRoom returns the room with its lock held. The registry lock is held only while
// acquiring the room lock, so a concurrent removal either happens entirely before
// (ErrRoomNotFound) or waits for the caller to unlock.
func (r *Registry) lockRoom(code string) (*Room, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.rooms[code]
	if !ok {
		return nil, fmt.Errorf("room %q: %w", code, ErrRoomNotFound)
	}
	room.mu.Lock()
	return room, nil
}

// closeLocked expects both r.mu and room.mu to be held.
func (r *Registry) closeLocked(room *Room) {
	delete(r.rooms, room.code)
	if r.observer != nil {
		r.observer.RoomClosed(room.code, len(room.messages), r.now())
	}
}
