package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"github.com/redis/go-redis/v9"

	"chat-pipeline/fanout"
	"chat-pipeline/internal"
	"chat-pipeline/moderation"
	"chat-pipeline/observability"
	"chat-pipeline/ratelimit"
	"chat-pipeline/repositories"
	"chat-pipeline/runtime/workers"
	"chat-pipeline/services"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the lifecycle, and
// centralizes error reporting so defers execute before exit.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.INFO))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Moderation gate (rate limiter + content filter)
	metrics := observability.NewPipelineMetrics()
	rateStore, err := newRateStore(config, db, log)
	if err != nil {
		return err
	}
	limiter := ratelimit.NewLimiter(rateStore, metrics, log)

	detector, err := moderation.NewDetector(config.Denylist(moderation.DefaultDenylist))
	if err != nil {
		return fmt.Errorf("denylist setup failed: %w", err)
	}
	filter := moderation.NewFilter(detector, newClassifier(config, log), metrics, log)
	gate := moderation.NewGate(limiter, filter, metrics, log)

	// 4. Store, fanout and the service facade
	store := repositories.NewMessageStore(db, log)
	registry := fanout.NewRegistry()
	delivery := fanout.NewDeliveryFanout(registry, config.FanoutBufferSize, metrics, log)
	service := services.NewChatService(gate, store, delivery, registry, metrics,
		config.GlobalShardCount, config.StoreTimeout, log)
	_ = service // transport adapters attach here

	// 5. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 6. Supervised workers
	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.Add(delivery, observability.NewReporter(metrics, config.MetricInterval, log))

	log.Info("Chat pipeline started",
		"shards", config.GlobalShardCount,
		"redis", config.RedisAddr != "",
		"classifier", config.OpenAIAPIKey != "")
	sup.Run(ctx)

	log.Info("Program stopped cleanly")
	return nil
}

// newRateStore prefers a shared redis so any instance can serve any
// user; without one the embedded database holds the state.
func newRateStore(config internal.Config, db *badger.DB, log *slog.Logger) (ratelimit.Store, error) {
	if config.RedisAddr == "" {
		log.Info("Rate state in embedded store")
		return ratelimit.NewBadgerStore(db), nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     config.RedisAddr,
		Password: config.RedisPassword,
		DB:       config.RedisDB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	log.Info("Rate state in redis", "addr", config.RedisAddr)
	return ratelimit.NewRedisStore(client), nil
}

// newClassifier selects the no-op stage when no credential is present.
func newClassifier(config internal.Config, log *slog.Logger) moderation.Classifier {
	if config.OpenAIAPIKey == "" {
		log.Warn("Classifier not initialized - API key is missing, lexical-only moderation")
		return moderation.NoopClassifier{}
	}
	return moderation.NewOpenAIClassifier(config.OpenAIAPIKey, config.ClassifierTimeout, log)
}
