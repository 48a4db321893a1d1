package room

import (
	"github.com/google/uuid"

	"github.com/devroom-hq/devroom/internal/message"
)

// sendBuffer is the per-member event buffer. A member whose transport
// cannot drain this many events has fallen behind; further events are
// dropped for that member rather than stalling the room.
const sendBuffer = 64

// Member is one connected participant, bound to exactly one room for its
// lifetime. Created on successful admission, destroyed on disconnect.
type Member struct {
	ID     string // connection id
	UserID string
	Email  string

	room   *Room
	events chan message.ChatEvent
	closed bool // guarded by room.mu
}

func newMember(userID, email string) *Member {
	return &Member{
		ID:     uuid.NewString(),
		UserID: userID,
		Email:  email,
		events: make(chan message.ChatEvent, sendBuffer),
	}
}

// Events is the member's ordered event stream. The channel is closed when
// the member leaves its room.
func (m *Member) Events() <-chan message.ChatEvent {
	return m.events
}

// Room returns the room the member belongs to.
func (m *Member) Room() *Room {
	return m.room
}

// Sender returns the member's chat identity.
func (m *Member) Sender() message.Sender {
	return message.Sender{ID: m.UserID, Email: m.Email}
}
