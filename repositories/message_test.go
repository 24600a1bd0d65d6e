package repositories

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"

	"chat-pipeline/domain"
	pipeerrors "chat-pipeline/errors"
)

func openTestStore(t *testing.T) *MessageStore {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewMessageStore(db, slog.Default())
}

func Test_Append_And_List_In_Ascending_Order(t *testing.T) {
	req := require.New(t)
	store := openTestStore(t)
	ctx := context.Background()
	conv := domain.DirectConversationID("alice", "bob")
	at := time.Now().UTC()

	senders := []string{"alice", "bob", "alice"}
	for i, sender := range senders {
		_, err := store.Append(ctx, conv, sender, fmt.Sprintf("message %d", i), at.Add(time.Duration(i)*time.Minute))
		req.NoError(err)
	}

	messages, err := store.List(ctx, conv, 10, nil)
	req.NoError(err)
	req.Len(messages, len(senders))
	for i := 1; i < len(messages); i++ {
		req.True(messages[i-1].CreatedAt.Before(messages[i].CreatedAt))
	}
	req.Equal("message 0", messages[0].Content)
	req.Equal("message 2", messages[2].Content)
}

func Test_List_Honors_Limit_And_Returns_Most_Recent(t *testing.T) {
	req := require.New(t)
	store := openTestStore(t)
	ctx := context.Background()
	conv := "clan-hall"
	at := time.Now().UTC()

	for i := 0; i < 5; i++ {
		_, err := store.Append(ctx, conv, "alice", fmt.Sprintf("message %d", i), at.Add(time.Duration(i)*time.Second))
		req.NoError(err)
	}

	messages, err := store.List(ctx, conv, 2, nil)
	req.NoError(err)
	req.Len(messages, 2)
	req.Equal("message 3", messages[0].Content)
	req.Equal("message 4", messages[1].Content)
}

func Test_Identical_Timestamps_Do_Not_Collide(t *testing.T) {
	req := require.New(t)
	store := openTestStore(t)
	ctx := context.Background()
	conv := "clan-hall"
	at := time.Now().UTC()

	first, err := store.Append(ctx, conv, "alice", "same instant", at)
	req.NoError(err)
	second, err := store.Append(ctx, conv, "bob", "same instant", at)
	req.NoError(err)
	req.NotEqual(first.ID, second.ID)

	messages, err := store.List(ctx, conv, 10, nil)
	req.NoError(err)
	req.Len(messages, 2, "the unique suffix must keep both")
}

func Test_Pagination_Yields_Full_History_Exactly_Once(t *testing.T) {
	req := require.New(t)
	store := openTestStore(t)
	ctx := context.Background()
	conv := "clan-hall"
	at := time.Now().UTC()

	total := 10
	for i := 0; i < total; i++ {
		_, err := store.Append(ctx, conv, "alice", fmt.Sprintf("message %d", i), at.Add(time.Duration(i)*time.Second))
		req.NoError(err)
	}

	var collected []domain.Message
	var cursor *time.Time
	for {
		page, err := store.List(ctx, conv, 3, cursor)
		req.NoError(err)
		if len(page) == 0 {
			break
		}
		// Pages arrive newest-block-first; each page itself ascends
		collected = append(page, collected...)
		oldest := page[0].CreatedAt
		cursor = &oldest
	}

	req.Len(collected, total)
	seen := map[string]bool{}
	for i, msg := range collected {
		req.Equal(fmt.Sprintf("message %d", i), msg.Content, "no gaps, no duplicates, ascending")
		req.False(seen[msg.ID.String()])
		seen[msg.ID.String()] = true
	}
}

func Test_Pagination_Is_Stable_Under_Concurrent_Appends(t *testing.T) {
	req := require.New(t)
	store := openTestStore(t)
	ctx := context.Background()
	conv := "clan-hall"
	at := time.Now().UTC()

	for i := 0; i < 6; i++ {
		_, err := store.Append(ctx, conv, "alice", fmt.Sprintf("old %d", i), at.Add(time.Duration(i)*time.Second))
		req.NoError(err)
	}

	page, err := store.List(ctx, conv, 3, nil)
	req.NoError(err)
	cursor := page[0].CreatedAt

	// New traffic lands after the cursor and must not leak into older pages
	_, err = store.Append(ctx, conv, "bob", "new traffic", at.Add(time.Hour))
	req.NoError(err)

	older, err := store.List(ctx, conv, 10, &cursor)
	req.NoError(err)
	req.Len(older, 3)
	for _, msg := range older {
		req.True(msg.CreatedAt.Before(cursor))
		req.NotEqual("new traffic", msg.Content)
	}
}

func Test_Concurrent_Appends_All_Persist(t *testing.T) {
	req := require.New(t)
	store := openTestStore(t)
	conv := "clan-hall"
	at := time.Now().UTC()

	n := 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := store.Append(context.Background(), conv, fmt.Sprintf("sender-%d", i), "hello", at)
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		req.NoError(err)
	}

	messages, err := store.List(context.Background(), conv, n*2, nil)
	req.NoError(err)
	req.Len(messages, n)

	senders := map[string]bool{}
	for _, msg := range messages {
		senders[msg.SenderID] = true
	}
	req.Len(senders, n, "every sender's message survived")
}

func Test_Global_Shard_Mapping_Is_Deterministic_And_Bounded(t *testing.T) {
	req := require.New(t)

	shardSet := map[string]bool{}
	for i := 0; i < 200; i++ {
		user := fmt.Sprintf("user-%d", i)
		first := domain.GlobalShardID(user, domain.DefaultShardCount)
		second := domain.GlobalShardID(user, domain.DefaultShardCount)
		req.Equal(first, second)
		shardSet[first] = true
	}

	valid := map[string]bool{}
	for _, id := range domain.GlobalShardIDs(domain.DefaultShardCount) {
		valid[id] = true
	}
	for shard := range shardSet {
		req.True(valid[shard], "shard %s outside [0, N)", shard)
	}
}

func Test_ListGlobal_Merges_Shards(t *testing.T) {
	req := require.New(t)
	store := openTestStore(t)
	ctx := context.Background()
	at := time.Now().UTC()

	users := []string{"alice", "bob", "clara", "dmitri"}
	for i, user := range users {
		shard := domain.GlobalShardID(user, domain.DefaultShardCount)
		_, err := store.Append(ctx, shard, user, fmt.Sprintf("global %d", i), at.Add(time.Duration(i)*time.Second))
		req.NoError(err)
	}

	messages, err := store.ListGlobal(ctx, domain.DefaultShardCount, 10, nil)
	req.NoError(err)
	req.Len(messages, len(users))
	req.True(sort.SliceIsSorted(messages, func(i, j int) bool {
		return messages[i].CreatedAt.Before(messages[j].CreatedAt)
	}))
}

func Test_Validation_Failures_Have_No_Side_Effects(t *testing.T) {
	req := require.New(t)
	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.Append(ctx, "", "alice", "text", time.Now())
	req.ErrorIs(err, pipeerrors.ErrInvalidCommand)

	_, err = store.Append(ctx, "clan-hall", "", "text", time.Now())
	req.ErrorIs(err, pipeerrors.ErrInvalidCommand)

	_, err = store.List(ctx, "clan-hall", -1, nil)
	req.ErrorIs(err, pipeerrors.ErrInvalidCommand)

	messages, err := store.List(ctx, "clan-hall", 10, nil)
	req.NoError(err)
	req.Empty(messages)
}
