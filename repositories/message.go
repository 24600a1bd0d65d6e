// Package repositories persists accepted chat messages.
package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"chat-pipeline/domain"
	pipeerrors "chat-pipeline/errors"
)

const (
	partitionPrefix = "CHAT#"
	sortPrefix      = "MSG#"

	// Fixed-width UTC layout: byte order of the key equals time order,
	// unlike RFC3339Nano which trims trailing zeros.
	sortKeyTimeLayout = "2006-01-02T15:04:05.000000000Z"

	messageTTL = 30 * 24 * time.Hour
)

// MessageStore is the durable, time-ordered append-and-query store.
//
// Keys follow the partition/sort design
// "CHAT#<conversation>#MSG#<timestamp>#<uuid>": the uuid suffix breaks
// timestamp ties so concurrent appends to one conversation never
// collide, and a prefix scan over the partition walks messages in time
// order. One Set per append means a message is either fully absent or
// fully present.
type MessageStore struct {
	db  *badger.DB
	log *slog.Logger
}

func NewMessageStore(db *badger.DB, log *slog.Logger) *MessageStore {
	return &MessageStore{db: db, log: log}
}

type storedMessage struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

func conversationPrefix(conversationID string) []byte {
	return []byte(partitionPrefix + conversationID + "#" + sortPrefix)
}

func messageKey(conversationID string, ts time.Time, id uuid.UUID) []byte {
	key := conversationPrefix(conversationID)
	key = append(key, ts.UTC().Format(sortKeyTimeLayout)...)
	key = append(key, '#')
	key = append(key, id.String()...)
	return key
}

// Append persists one message and returns the stored copy. Store
// failures wrap ErrStoreUnavailable so callers can retry; they are
// never silently treated as success.
func (s *MessageStore) Append(ctx context.Context, conversationID, senderID, content string, ts time.Time) (domain.Message, error) {
	if conversationID == "" || senderID == "" {
		return domain.Message{}, fmt.Errorf("%w: conversation and sender are required", pipeerrors.ErrInvalidCommand)
	}
	if err := ctx.Err(); err != nil {
		return domain.Message{}, err
	}

	msg := domain.Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		CreatedAt:      ts.UTC(),
	}
	value, err := json.Marshal(storedMessage{
		ID:             msg.ID.String(),
		ConversationID: msg.ConversationID,
		SenderID:       msg.SenderID,
		Content:        msg.Content,
		CreatedAt:      msg.CreatedAt,
	})
	if err != nil {
		return domain.Message{}, fmt.Errorf("encode message: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(messageKey(conversationID, msg.CreatedAt, msg.ID), value).WithTTL(messageTTL)
		return txn.SetEntry(entry)
	})
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: append to %s: %w", pipeerrors.ErrStoreUnavailable, conversationID, err)
	}
	s.log.Debug("Message appended", "conversation", conversationID, "id", msg.ID)
	return msg, nil
}

// List returns at most limit messages of the conversation in ascending
// timestamp order. When before is set, only messages strictly older
// than it are returned; passing the oldest returned timestamp back as
// the next cursor pages through history without re-reading items, and
// appends newer than the cursor never show up in an older page.
func (s *MessageStore) List(ctx context.Context, conversationID string, limit int, before *time.Time) ([]domain.Message, error) {
	if conversationID == "" {
		return nil, fmt.Errorf("%w: conversation is required", pipeerrors.ErrInvalidCommand)
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", pipeerrors.ErrInvalidCommand, limit)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prefix := conversationPrefix(conversationID)
	var values [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		// Reverse seek positions at the largest key <= seekKey. Stored
		// keys always carry a "#<uuid>" suffix after the timestamp, so
		// seeking at the bare cursor timestamp lands strictly before
		// every message written at or after it.
		seekKey := prefix
		if before != nil {
			seekKey = append(seekKey, before.UTC().Format(sortKeyTimeLayout)...)
		} else {
			seekKey = append(seekKey, 0xFF)
		}

		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if len(values) == limit {
				break
			}
			err := it.Item().Value(func(val []byte) error {
				values = append(values, append([]byte(nil), val...))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %w", pipeerrors.ErrStoreUnavailable, conversationID, err)
	}

	// Scanned newest-first for cheap "most recent" retrieval; callers
	// always get ascending order.
	messages := make([]domain.Message, 0, len(values))
	for i := len(values) - 1; i >= 0; i-- {
		msg, err := decodeMessage(values[i])
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// ListGlobal merges the most recent messages of every global-feed
// shard and returns the newest limit of them, ascending.
func (s *MessageStore) ListGlobal(ctx context.Context, shards, limit int, before *time.Time) ([]domain.Message, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", pipeerrors.ErrInvalidCommand, limit)
	}

	var merged []domain.Message
	for _, shardID := range domain.GlobalShardIDs(shards) {
		messages, err := s.List(ctx, shardID, limit, before)
		if err != nil {
			return nil, err
		}
		merged = append(merged, messages...)
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].CreatedAt.Equal(merged[j].CreatedAt) {
			return merged[i].ID.String() < merged[j].ID.String()
		}
		return merged[i].CreatedAt.Before(merged[j].CreatedAt)
	})
	if len(merged) > limit {
		merged = merged[len(merged)-limit:]
	}
	return merged, nil
}

func decodeMessage(value []byte) (domain.Message, error) {
	var stored storedMessage
	if err := json.Unmarshal(value, &stored); err != nil {
		return domain.Message{}, fmt.Errorf("decode message: %w", err)
	}
	id, err := uuid.Parse(stored.ID)
	if err != nil {
		return domain.Message{}, fmt.Errorf("decode message id: %w", err)
	}
	return domain.Message{
		ID:             id,
		ConversationID: stored.ConversationID,
		SenderID:       stored.SenderID,
		Content:        stored.Content,
		CreatedAt:      stored.CreatedAt.UTC(),
	}, nil
}
