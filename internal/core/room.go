package core

import (
	"sync"
	"time"
)

// User is a member of a room.
type User struct {
	Username  string
	SessionID string
}

// Room holds membership and message history of one chat session.
// All mutable state is guarded by mu; accessors return copies.
type Room struct {
	code      string
	hostName  string
	createdAt time.Time

	mu       sync.Mutex
	users    []User
	messages []ChatMessage
}

// NewRoom constructs a room with no users.
func NewRoom(code, hostName string, createdAt time.Time) *Room {
	return &Room{
		code:      code,
		hostName:  hostName,
		createdAt: createdAt,
	}
}

// Code returns the room code.
func (r *Room) Code() string { return r.code }

// HostName returns the display name of the room creator.
func (r *Room) HostName() string { return r.hostName }

// CreatedAt returns the creation instant.
func (r *Room) CreatedAt() time.Time { return r.createdAt }

// Users returns a snapshot of the members in join order.
func (r *Room) Users() []User {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]User, len(r.users))
	copy(out, r.users)
	return out
}

// UserCount returns the number of members.
func (r *Room) UserCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users)
}

// Messages returns a snapshot of the history in arrival order.
func (r *Room) Messages() []ChatMessage {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]ChatMessage, len(r.messages))
	copy(out, r.messages)
	return out
}

// The methods below expect r.mu to be held by the caller.

func (r *Room) addUser(u User) {
	r.users = append(r.users, u)
}

// removeUser drops every member named username and reports how many were removed.
func (r *Room) removeUser(username string) int {
	kept := r.users[:0]
	for _, u := range r.users {
		if u.Username != username {
			kept = append(kept, u)
		}
	}
	removed := len(r.users) - len(kept)
	// clear the tail so dropped users are not retained by the backing array
	for i := len(kept); i < len(r.users); i++ {
		r.users[i] = User{}
	}
	r.users = kept
	return removed
}

func (r *Room) appendMessage(m ChatMessage) {
	r.messages = append(r.messages, m)
}

func (r *Room) empty() bool {
	return len(r.users) == 0
}
