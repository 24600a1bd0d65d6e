// Package domain contains core concepts of the chat pipeline.
// This file defines Message, the unit persisted by the store.
// Messages are immutable once accepted; the timestamp is always
// assigned server-side at acceptance, never taken from the caller.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Message represents an immutable chat event.
type Message struct {
	ID             uuid.UUID // unique identifier, also the sort-key tiebreaker
	ConversationID string
	SenderID       string
	Content        string
	CreatedAt      time.Time
}
