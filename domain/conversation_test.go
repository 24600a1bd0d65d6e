package domain

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_DirectConversationID_Is_Order_Insensitive(t *testing.T) {
	req := require.New(t)

	req.Equal(DirectConversationID("alice", "bob"), DirectConversationID("bob", "alice"))
	req.Equal("direct#alice#bob", DirectConversationID("bob", "alice"))
}

func Test_GlobalShardID_Is_Deterministic(t *testing.T) {
	req := require.New(t)

	for i := 0; i < 50; i++ {
		user := fmt.Sprintf("user-%d", i)
		req.Equal(GlobalShardID(user, 20), GlobalShardID(user, 20))
	}
}

func Test_GlobalShardIDs_Covers_The_Range(t *testing.T) {
	req := require.New(t)

	ids := GlobalShardIDs(5)
	req.Len(ids, 5)
	req.Equal("global#shard-0", ids[0])
	req.Equal("global#shard-4", ids[4])
	for _, id := range ids {
		req.True(IsGlobalShard(id))
	}
	req.False(IsGlobalShard("direct#alice#bob"))
}

func Test_GlobalShardID_Falls_Back_To_Default_Count(t *testing.T) {
	req := require.New(t)

	// Non-positive shard counts use the default instead of dividing by zero
	req.Equal(GlobalShardID("alice", DefaultShardCount), GlobalShardID("alice", 0))
}
