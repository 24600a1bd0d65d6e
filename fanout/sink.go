package fanout

import (
	"context"
	"fmt"

	"chat-pipeline/domain/event"
)

var ErrSubscriberLagging = fmt.Errorf("subscriber channel full")

// ChannelSink bridges the fanout to one connected subscriber. The
// transport handler owns the channel and drains it; a full channel
// means the subscriber is lagging and this delivery is dropped.
type ChannelSink struct {
	Events chan event.DomainEvent
}

func NewChannelSink(bufferSize int) *ChannelSink {
	return &ChannelSink{Events: make(chan event.DomainEvent, bufferSize)}
}

func (s *ChannelSink) Consume(ctx context.Context, e event.DomainEvent) error {
	select {
	case s.Events <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrSubscriberLagging
	}
}
