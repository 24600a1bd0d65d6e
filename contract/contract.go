package contract

import (
	"chat-pipeline/domain/event"
	"context"
	"reflect"
)

// Worker doesn't protect itself.
// Can be silly, focused; the supervisor handles crashes.
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes, avoiding the need
// for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink receives delivered events. Implementations must be safe
// for concurrent use; a failing sink only loses its own delivery.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// Registry tracks which sinks are live for a conversation.
type Registry interface {
	GetSinksForConversation(conversationID string) []EventSink
	Subscribe(participantID, conversationID string, sink EventSink)
	Unsubscribe(participantID, conversationID string)
}
