package moderation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sashabaranov/go-openai"
)

// ClassifierResult carries the verdict of the external moderation
// service together with its per-category scores. Scores are kept for
// the audit trail even when nothing is flagged.
type ClassifierResult struct {
	Flagged    bool
	Categories map[string]float64
}

// Classifier is the optional second moderation stage. The no-op
// implementation is selected at startup when no credential is
// configured, so the gate never null-checks.
type Classifier interface {
	Moderate(ctx context.Context, text string) (ClassifierResult, error)
}

// NoopClassifier skips the external stage entirely.
type NoopClassifier struct{}

func (NoopClassifier) Moderate(context.Context, string) (ClassifierResult, error) {
	return ClassifierResult{}, nil
}

// OpenAIClassifier submits text to the OpenAI moderation endpoint.
type OpenAIClassifier struct {
	client  *openai.Client
	timeout time.Duration
	log     *slog.Logger
}

func NewOpenAIClassifier(apiKey string, timeout time.Duration, log *slog.Logger) *OpenAIClassifier {
	log.Info("Moderation classifier initialized", "model", openai.ModerationOmniLatest)
	return &OpenAIClassifier{client: openai.NewClient(apiKey), timeout: timeout, log: log}
}

func (c *OpenAIClassifier) Moderate(ctx context.Context, text string) (ClassifierResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.Moderations(ctx, openai.ModerationRequest{
		Input: text,
		Model: openai.ModerationOmniLatest,
	})
	if err != nil {
		return ClassifierResult{}, fmt.Errorf("moderation call failed: %w", err)
	}
	if len(resp.Results) == 0 {
		return ClassifierResult{}, nil
	}

	result := resp.Results[0]
	scores := result.CategoryScores
	categories := map[string]float64{
		"harassment":             float64(scores.Harassment),
		"harassment_threatening": float64(scores.HarassmentThreatening),
		"hate":                   float64(scores.Hate),
		"hate_threatening":       float64(scores.HateThreatening),
		"self_harm":              float64(scores.SelfHarm),
		"self_harm_instructions": float64(scores.SelfHarmInstructions),
		"self_harm_intent":       float64(scores.SelfHarmIntent),
		"sexual":                 float64(scores.Sexual),
		"sexual_minors":          float64(scores.SexualMinors),
		"violence":               float64(scores.Violence),
		"violence_graphic":       float64(scores.ViolenceGraphic),
		// Harassment doubles as the toxicity signal, as in the legacy
		// service.
		"toxicity": float64(scores.Harassment),
	}
	return ClassifierResult{Flagged: result.Flagged, Categories: categories}, nil
}
