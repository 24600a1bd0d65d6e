package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"

	"chat-pipeline/domain"
	"chat-pipeline/internal"
	"chat-pipeline/repositories"
)

// Read-only look at recent messages while the pipeline is running.
func main() {
	conversation := flag.String("conversation", "", "conversation id; empty reads the global feed")
	limit := flag.Int("limit", 20, "number of messages to display")
	flag.Parse()

	// 1. Load config
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		log.Fatalf("Config error: %v", err)
	}

	// 2. Open Badger in Read-Only mode
	// Note: BypassLockGuard allows opening if another process (chatd) holds the lock
	opts := badger.DefaultOptions(config.BadgerFilepath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.WARNING)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	store := repositories.NewMessageStore(db, logs.GetLoggerFromString(config.LogLevel))
	ctx := context.Background()

	var messages []domain.Message
	if *conversation == "" {
		messages, err = store.ListGlobal(ctx, config.GlobalShardCount, *limit, nil)
	} else {
		messages, err = store.List(ctx, *conversation, *limit, nil)
	}
	if err != nil {
		log.Fatalf("Failed to load messages: %v", err)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"At", "Conversation", "Sender", "Content"})
	for _, msg := range messages {
		table.Append([]string{
			msg.CreatedAt.Format(time.RFC3339),
			msg.ConversationID,
			color.Cyan.Sprint(msg.SenderID),
			msg.Content,
		})
	}
	table.Render()
	fmt.Printf("%d message(s)\n", len(messages))
}
