package fanout

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"chat-pipeline/domain/event"
	"chat-pipeline/observability"
)

func accepted(conversationID, sender, content string) event.MessageAccepted {
	return event.MessageAccepted{
		ID:             uuid.New(),
		ConversationID: conversationID,
		SenderID:       sender,
		Content:        content,
		At:             time.Now().UTC(),
	}
}

func Test_Registry_Subscribe_And_Resolve(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	conv := "clan-hall"

	sink1 := NewChannelSink(1)
	sink2 := NewChannelSink(1)
	registry.Subscribe("alice", conv, sink1)
	registry.Subscribe("bob", conv, sink2)

	sinks := registry.GetSinksForConversation(conv)
	req.Len(sinks, 2)

	registry.Unsubscribe("alice", conv)
	req.Len(registry.GetSinksForConversation(conv), 1)

	registry.Unsubscribe("bob", conv)
	req.Nil(registry.GetSinksForConversation(conv))
}

func Test_Fanout_Delivers_To_All_Conversation_Subscribers(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	metrics := observability.NewPipelineMetrics()
	f := NewDeliveryFanout(registry, 8, metrics, slog.Default())

	sink1 := NewChannelSink(4)
	sink2 := NewChannelSink(4)
	other := NewChannelSink(4)
	registry.Subscribe("alice", "clan-hall", sink1)
	registry.Subscribe("bob", "clan-hall", sink2)
	registry.Subscribe("clara", "officers", other)

	evt := accepted("clan-hall", "alice", "war starts in 10")
	f.deliver(context.Background(), evt)

	req.Len(sink1.Events, 1)
	req.Len(sink2.Events, 1)
	req.Empty(other.Events, "other conversations stay quiet")
	req.EqualValues(2, metrics.Snapshot().FanoutDelivered)

	got := <-sink1.Events
	posted, ok := got.(event.MessageAccepted)
	req.True(ok)
	req.Equal("/topic/chat/clan-hall", posted.Topic())
}

func Test_Fanout_Lagging_Subscriber_Does_Not_Block_Others(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	metrics := observability.NewPipelineMetrics()
	f := NewDeliveryFanout(registry, 8, metrics, slog.Default())

	laggard := NewChannelSink(1)
	healthy := NewChannelSink(4)
	registry.Subscribe("slow", "clan-hall", laggard)
	registry.Subscribe("fast", "clan-hall", healthy)

	// Fill the laggard's buffer
	laggard.Events <- accepted("clan-hall", "x", "filler")

	f.deliver(context.Background(), accepted("clan-hall", "alice", "hello"))

	req.Len(healthy.Events, 1, "healthy subscriber still served")
	req.EqualValues(1, metrics.Snapshot().FanoutDropped)
}

func Test_Fanout_Publish_Never_Blocks(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	metrics := observability.NewPipelineMetrics()
	f := NewDeliveryFanout(registry, 1, metrics, slog.Default())

	// Nobody drains the queue; the second publish must drop, not hang
	f.Publish(accepted("clan-hall", "alice", "one"))
	f.Publish(accepted("clan-hall", "alice", "two"))

	req.EqualValues(1, metrics.Snapshot().FanoutDropped)
}

func Test_Fanout_Run_Consumes_Published_Events(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	metrics := observability.NewPipelineMetrics()
	f := NewDeliveryFanout(registry, 8, metrics, slog.Default())

	sink := NewChannelSink(4)
	registry.Subscribe("alice", "clan-hall", sink)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = f.Run(ctx)
		close(done)
	}()

	f.Publish(accepted("clan-hall", "bob", "ping"))

	select {
	case evt := <-sink.Events:
		req.Equal("clan-hall", evt.Conversation())
	case <-time.After(2 * time.Second):
		t.Fatal("event never delivered")
	}

	cancel()
	<-done
}
