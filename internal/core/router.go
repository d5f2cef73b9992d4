package core

import (
	"fmt"
	"strings"
	"time"
)

// TopicPrefix prefixes the broadcast topic of every room.
const TopicPrefix = "room/"

// Topic returns the broadcast topic for a room code.
func Topic(code string) string {
	return TopicPrefix + code
}

// Broadcaster delivers room events to subscribed transports.
// Publish is called with the room lock held and must not block.
type Broadcaster interface {
	Publish(topic string, msg ChatMessage)
}

// RouterOption customizes a Router.
type RouterOption func(*Router)

// WithClock overrides the clock used to stamp JOIN, LEAVE and unstamped CHAT messages.
func WithClock(now func() time.Time) RouterOption {
	return func(rt *Router) {
		if now != nil {
			rt.now = now
		}
	}
}

// Router applies join, leave and send events to rooms and fans the results out.
type Router struct {
	registry    *Registry
	broadcaster Broadcaster
	now         func() time.Time
}

// NewRouter creates a router over registry publishing through b.
func NewRouter(registry *Registry, b Broadcaster, opts ...RouterOption) *Router {
	rt := &Router{
		registry:    registry,
		broadcaster: b,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// AddUser appends a member to the room, records a JOIN message and publishes it.
// Usernames are not de-duplicated.
func (rt *Router) AddUser(code, username, sessionID string) (ChatMessage, error) {
	msg, _, err := rt.Join(code, username, sessionID, nil)
	return msg, err
}

// Join is AddUser for live sessions. It also returns the history preceding the JOIN, and
// runs attach (when non-nil) under the room lock right before the JOIN is published, so a
// subscription made in attach sees exactly the events that follow the returned history.
func (rt *Router) Join(code, username, sessionID string, attach func()) (ChatMessage, []ChatMessage, error) {
	if strings.TrimSpace(username) == "" {
		return ChatMessage{}, nil, fmt.Errorf("%w: username is required", ErrInvalidInput)
	}

	room, err := rt.registry.lockRoom(code)
	if err != nil {
		return ChatMessage{}, nil, err
	}
	defer room.mu.Unlock()

	var history []ChatMessage
	if attach != nil {
		history = make([]ChatMessage, len(room.messages))
		copy(history, room.messages)
		attach()
	}

	room.addUser(User{Username: username, SessionID: sessionID})
	msg := joinMessage(username, rt.now())
	room.appendMessage(msg)
	rt.broadcaster.Publish(Topic(code), msg)

	return msg, history, nil
}

// RemoveUser drops every member named username, records a LEAVE message and publishes it.
// The room is deleted from the registry once it has no members. Absent rooms are ignored.
func (rt *Router) RemoveUser(code, username string) {
	reg := rt.registry

	reg.mu.Lock()
	defer reg.mu.Unlock()

	room, ok := reg.rooms[code]
	if !ok {
		return
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	room.removeUser(username)
	msg := leaveMessage(username, rt.now())
	room.appendMessage(msg)
	rt.broadcaster.Publish(Topic(code), msg)

	if room.empty() {
		reg.closeLocked(room)
	}
}

// SendMessage records msg as a CHAT message and publishes it. It reports false and drops
// the message when the room does not exist.
func (rt *Router) SendMessage(code string, msg ChatMessage) (ChatMessage, bool) {
	room, err := rt.registry.lockRoom(code)
	if err != nil {
		return ChatMessage{}, false
	}
	defer room.mu.Unlock()

	msg.Type = MessageChat
	if msg.Timestamp.IsZero() {
		msg.Timestamp = rt.now()
	}
	room.appendMessage(msg)
	rt.broadcaster.Publish(Topic(code), msg)

	return msg, true
}

// History returns a snapshot of the room's messages.
func (rt *Router) History(code string) ([]ChatMessage, error) {
	room, err := rt.registry.GetRoom(code)
	if err != nil {
		return nil, err
	}
	return room.Messages(), nil
}
