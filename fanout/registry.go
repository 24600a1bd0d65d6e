// Package fanout pushes accepted messages to live subscribers.
// Delivery is best effort: the store stays the source of truth and a
// failed delivery never affects the commit decision.
package fanout

import (
	"sync"

	"chat-pipeline/contract"
)

type set map[string]struct{}

// Registry tracks live subscriber connections per conversation.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]contract.EventSink // participant -> sink
	members  map[string]set                // conversation -> participants
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]contract.EventSink),
		members:  make(map[string]set),
	}
}

// GetSinksForConversation resolves the conversation's members into
// their live sinks. A participant subscribed to several conversations
// still has a single connection entry. Returns nil when nobody
// listens.
func (r *Registry) GetSinksForConversation(conversationID string) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	participants, ok := r.members[conversationID]
	if !ok {
		return nil
	}
	var sinks []contract.EventSink
	for participantID := range participants {
		if sink, exists := r.sessions[participantID]; exists {
			sinks = append(sinks, sink)
		}
	}
	return sinks
}

// Subscribe registers a participant's connection and adds them to the
// conversation, initializing the member set on first use.
func (r *Registry) Subscribe(participantID, conversationID string, sink contract.EventSink) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[participantID] = sink
	if _, ok := r.members[conversationID]; !ok {
		r.members[conversationID] = make(set)
	}
	r.members[conversationID][participantID] = struct{}{}
}

// Unsubscribe drops the participant's session and conversation
// membership. Empty member sets are removed so long-lived processes
// don't accumulate dead conversations.
func (r *Registry) Unsubscribe(participantID, conversationID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, participantID)
	if participants, ok := r.members[conversationID]; ok {
		delete(participants, participantID)
		if len(participants) == 0 {
			delete(r.members, conversationID)
		}
	}
}
