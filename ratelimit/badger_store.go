package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/dgraph-io/badger/v4"
)

const maxConflictRetries = 25

// BadgerStore keeps rate state in the embedded database. A single
// Update transaction covers both keys of a user, which gives the
// required atomicity under concurrent evaluations; a conflicting
// concurrent reservation surfaces as badger.ErrConflict and is
// retried.
type BadgerStore struct {
	db *badger.DB
}

func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

func (s *BadgerStore) Reserve(_ context.Context, userID string, now int64) (Decision, error) {
	var decision Decision
	for attempt := 0; ; attempt++ {
		err := s.db.Update(func(txn *badger.Txn) error {
			st := State{
				DelaySeconds:  readInt(txn, delayKeyPrefix+userID),
				NextAllowedAt: readInt(txn, nextKeyPrefix+userID),
			}
			decision = advance(st, now)
			if err := writeInt(txn, delayKeyPrefix+userID, decision.DelaySeconds); err != nil {
				return err
			}
			return writeInt(txn, nextKeyPrefix+userID, decision.NextAllowedAt)
		})
		if err == nil {
			return decision, nil
		}
		if errors.Is(err, badger.ErrConflict) && attempt < maxConflictRetries {
			continue
		}
		return Decision{}, fmt.Errorf("rate state reservation for %s: %w", userID, err)
	}
}

// readInt treats a missing or malformed entry as zero; bad state must
// never be fatal to the pipeline.
func readInt(txn *badger.Txn, key string) int64 {
	item, err := txn.Get([]byte(key))
	if err != nil {
		return 0
	}
	var n int64
	err = item.Value(func(val []byte) error {
		parsed, parseErr := strconv.ParseInt(string(val), 10, 64)
		if parseErr != nil {
			return parseErr
		}
		n = parsed
		return nil
	})
	if err != nil {
		return 0
	}
	return n
}

func writeInt(txn *badger.Txn, key string, n int64) error {
	entry := badger.NewEntry([]byte(key), []byte(strconv.FormatInt(n, 10))).WithTTL(stateTTL)
	return txn.SetEntry(entry)
}
