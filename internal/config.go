package internal

import (
	"strings"
	"time"
)

// Config is loaded from the environment by the commands. Optional
// collaborators (redis, the classifier) stay disabled when their
// settings are empty.
type Config struct {
	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`
	LogLevel       string `env:"LOG_LEVEL,required=true"`

	// Rate state lives in badger unless a shared redis is configured.
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB"`

	// Classifier stage is skipped entirely without a key.
	OpenAIAPIKey      string        `env:"OPENAI_API_KEY"`
	ClassifierTimeout time.Duration `env:"CLASSIFIER_TIMEOUT,default=5s"`

	StoreTimeout     time.Duration `env:"STORE_TIMEOUT,default=2s"`
	GlobalShardCount int           `env:"GLOBAL_SHARD_COUNT,default=20"`
	FanoutBufferSize int           `env:"FANOUT_BUFFER_SIZE,default=256"`
	MetricInterval   time.Duration `env:"METRIC_INTERVAL,default=1m"`
	RestartInterval  time.Duration `env:"RESTART_INTERVAL,default=200ms"`

	// Comma-separated overrides for the built-in denylist.
	DenylistTerms string `env:"DENYLIST_TERMS"`
}

// Denylist returns the configured terms, or defaults when unset.
func (c Config) Denylist(defaults []string) []string {
	if c.DenylistTerms == "" {
		return defaults
	}
	var terms []string
	for _, term := range strings.Split(c.DenylistTerms, ",") {
		if term = strings.TrimSpace(term); term != "" {
			terms = append(terms, term)
		}
	}
	if len(terms) == 0 {
		return defaults
	}
	return terms
}
