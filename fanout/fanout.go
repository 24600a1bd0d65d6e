package fanout

import (
	"context"
	"log/slog"

	"chat-pipeline/contract"
	"chat-pipeline/domain/event"
	"chat-pipeline/observability"
)

// DeliveryFanout consumes accepted-message events and delivers them to
// every live subscriber of the event's conversation.
//
// It provides best-effort fan-out with no guarantees regarding
// delivery, ordering, durability, or retries. DeliveryFanout is not a
// message broker; subscribers needing history read the store.
//
// Safe for concurrent use by multiple goroutines.
type DeliveryFanout struct {
	log      *slog.Logger
	registry contract.Registry
	events   chan event.DomainEvent
	metrics  *observability.PipelineMetrics
}

func NewDeliveryFanout(registry contract.Registry, bufferSize int, metrics *observability.PipelineMetrics, log *slog.Logger) *DeliveryFanout {
	return &DeliveryFanout{
		log:      log,
		registry: registry,
		events:   make(chan event.DomainEvent, bufferSize),
		metrics:  metrics,
	}
}

// Publish enqueues an event without blocking the submit path. When the
// queue is full the notification is dropped and counted; the message
// itself has already committed.
func (f *DeliveryFanout) Publish(e event.DomainEvent) {
	select {
	case f.events <- e:
	default:
		f.metrics.IncrFanoutDropped()
		f.log.Warn("Fanout queue full, notification lost", "conversation", e.Conversation())
	}
}

func (f *DeliveryFanout) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			f.log.Debug("Context done, stopping delivery fanout")
			return nil
		case evt := <-f.events:
			f.deliver(ctx, evt)
		}
	}
}

// deliver pushes one event to each sink. A failing subscriber loses
// its own delivery only; the loop continues.
func (f *DeliveryFanout) deliver(ctx context.Context, evt event.DomainEvent) {
	for _, sink := range f.registry.GetSinksForConversation(evt.Conversation()) {
		if err := sink.Consume(ctx, evt); err != nil {
			f.metrics.IncrFanoutDropped()
			f.log.Debug("Subscriber delivery failed", "conversation", evt.Conversation(), "error", err)
			continue
		}
		f.metrics.IncrFanoutDelivered()
	}
}
