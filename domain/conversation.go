package domain

import (
	"fmt"
	"hash/fnv"
	"strings"
)

// A conversation has no record of its own; it is a logical partition
// identified by its id. Direct chats use a canonical pair id, the
// global feed is spread over a fixed number of shard conversations.

const (
	directPrefix      = "direct#"
	globalShardPrefix = "global#shard-"

	// DefaultShardCount bounds per-partition write throughput for the
	// global feed. Reads merge all shards.
	DefaultShardCount = 20
)

// DirectConversationID returns the canonical id for a direct chat
// between two users. The pair is ordered so both participants derive
// the same id.
func DirectConversationID(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return directPrefix + a + "#" + b
}

// GlobalShardID maps a sender to their global-feed shard. The mapping
// is deterministic: the same user always lands on the same shard.
func GlobalShardID(userID string, shards int) string {
	if shards <= 0 {
		shards = DefaultShardCount
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return fmt.Sprintf("%s%d", globalShardPrefix, h.Sum32()%uint32(shards))
}

// GlobalShardIDs lists every shard conversation of the global feed.
func GlobalShardIDs(shards int) []string {
	if shards <= 0 {
		shards = DefaultShardCount
	}
	ids := make([]string, shards)
	for i := range ids {
		ids[i] = fmt.Sprintf("%s%d", globalShardPrefix, i)
	}
	return ids
}

// IsGlobalShard reports whether id addresses a global-feed shard.
func IsGlobalShard(id string) bool {
	return strings.HasPrefix(id, globalShardPrefix)
}
