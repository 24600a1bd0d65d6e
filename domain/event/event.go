package event

import (
	"time"

	"github.com/google/uuid"
)

// DomainEvent is anything the fanout can deliver to subscribers.
type DomainEvent interface {
	Conversation() string
}

// MessageAccepted is emitted after a message has durably committed.
// The store remains the source of truth; losing this event loses a
// live notification, never data.
type MessageAccepted struct {
	ID             uuid.UUID
	ConversationID string
	SenderID       string
	Content        string
	At             time.Time
}

func (m MessageAccepted) Conversation() string {
	return m.ConversationID
}

// Topic returns the destination subscribers listen on.
func (m MessageAccepted) Topic() string {
	return "/topic/chat/" + m.ConversationID
}
