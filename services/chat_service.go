// Package services exposes the pipeline to transports. Callers hand in
// already-authenticated submissions and receive a typed outcome plus
// the stored message on acceptance.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"chat-pipeline/contract"
	"chat-pipeline/domain"
	"chat-pipeline/domain/event"
	pipeerrors "chat-pipeline/errors"
	"chat-pipeline/fanout"
	"chat-pipeline/moderation"
	"chat-pipeline/observability"
	"chat-pipeline/repositories"
)

// SubmitCommand is one inbound message. The timestamp is deliberately
// absent: it is assigned server-side at acceptance.
type SubmitCommand struct {
	UserID         string `validate:"required"`
	ConversationID string `validate:"required"`
	Text           string `validate:"required,max=2000"`
}

type HistoryQuery struct {
	ConversationID string `validate:"required"`
	Limit          int    `validate:"gt=0,lte=200"`
	Before         *time.Time
}

type ChatService struct {
	gate     *moderation.Gate
	store    *repositories.MessageStore
	delivery *fanout.DeliveryFanout
	registry contract.Registry
	validate *validator.Validate
	metrics  *observability.PipelineMetrics
	log      *slog.Logger

	shards       int
	storeTimeout time.Duration
	now          func() time.Time
}

func NewChatService(
	gate *moderation.Gate,
	store *repositories.MessageStore,
	delivery *fanout.DeliveryFanout,
	registry contract.Registry,
	metrics *observability.PipelineMetrics,
	shards int,
	storeTimeout time.Duration,
	log *slog.Logger,
) *ChatService {
	return &ChatService{
		gate:         gate,
		store:        store,
		delivery:     delivery,
		registry:     registry,
		validate:     validator.New(),
		metrics:      metrics,
		log:          log,
		shards:       shards,
		storeTimeout: storeTimeout,
		now:          time.Now,
	}
}

// Submit runs the full write path: gate, append, publish. A rejection
// is a normal result, not an error; the message pointer is non-nil only
// for allowed submissions. Append failures are retryable and nothing
// has been published for them.
func (s *ChatService) Submit(ctx context.Context, cmd SubmitCommand) (domain.Outcome, *domain.Message, error) {
	if err := s.validate.Struct(cmd); err != nil {
		return domain.Outcome{}, nil, fmt.Errorf("%w: %w", pipeerrors.ErrInvalidCommand, err)
	}

	outcome := s.gate.Evaluate(ctx, cmd.UserID, cmd.Text)
	if !outcome.Allowed() {
		return outcome, nil, nil
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	msg, err := s.store.Append(storeCtx, cmd.ConversationID, cmd.UserID, cmd.Text, s.now())
	if err != nil {
		return outcome, nil, err
	}
	s.metrics.IncrAccepted()

	// Committed messages are never retracted; the notification is a
	// best-effort extra on top of the durable store.
	s.delivery.Publish(event.MessageAccepted{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		SenderID:       msg.SenderID,
		Content:        msg.Content,
		At:             msg.CreatedAt,
	})
	return outcome, &msg, nil
}

// SubmitGlobal posts to the sender's shard of the global feed.
func (s *ChatService) SubmitGlobal(ctx context.Context, userID, text string) (domain.Outcome, *domain.Message, error) {
	return s.Submit(ctx, SubmitCommand{
		UserID:         userID,
		ConversationID: domain.GlobalShardID(userID, s.shards),
		Text:           text,
	})
}

// History returns at most Limit messages, ascending, strictly older
// than Before when it is set.
func (s *ChatService) History(ctx context.Context, q HistoryQuery) ([]domain.Message, error) {
	if err := s.validate.Struct(q); err != nil {
		return nil, fmt.Errorf("%w: %w", pipeerrors.ErrInvalidCommand, err)
	}
	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	return s.store.List(storeCtx, q.ConversationID, q.Limit, q.Before)
}

// GlobalHistory merges every global-feed shard.
func (s *ChatService) GlobalHistory(ctx context.Context, limit int, before *time.Time) ([]domain.Message, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", pipeerrors.ErrInvalidCommand, limit)
	}
	storeCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	return s.store.ListGlobal(storeCtx, s.shards, limit, before)
}

// DirectConversation returns the canonical id shared by both users.
func (s *ChatService) DirectConversation(a, b string) string {
	return domain.DirectConversationID(a, b)
}

// JoinConversation attaches a live subscriber; LeaveConversation
// detaches it. Missed events are recovered from History.
func (s *ChatService) JoinConversation(participantID, conversationID string, sink contract.EventSink) {
	s.registry.Subscribe(participantID, conversationID, sink)
	s.log.Debug("Participant joined", "participant", participantID, "conversation", conversationID)
}

func (s *ChatService) LeaveConversation(participantID, conversationID string) {
	s.registry.Unsubscribe(participantID, conversationID)
	s.log.Debug("Participant left", "participant", participantID, "conversation", conversationID)
}
