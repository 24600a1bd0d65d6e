package moderation

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"chat-pipeline/domain"
	"chat-pipeline/observability"
	"chat-pipeline/ratelimit"
)

const (
	// Score thresholds carried over from the legacy moderation layer.
	banThreshold  = 0.8
	muteThreshold = 0.8
	warnThreshold = 0.7

	muteDuration = 30 * time.Minute
)

// Gate composes the rate limiter and the content filter into one
// accept/reject decision. Checks run cheapest first: the limiter is a
// single fast-store reservation and rejects floods before any
// classification is paid for.
type Gate struct {
	limiter *ratelimit.Limiter
	filter  *Filter
	metrics *observability.PipelineMetrics
	log     *slog.Logger
}

func NewGate(limiter *ratelimit.Limiter, filter *Filter, metrics *observability.PipelineMetrics, log *slog.Logger) *Gate {
	return &Gate{limiter: limiter, filter: filter, metrics: metrics, log: log}
}

// Evaluate returns exactly one outcome per submission. Rejections are
// values, not errors; nothing is persisted here.
func (g *Gate) Evaluate(ctx context.Context, userID, text string) domain.Outcome {
	if g.limiter.Check(ctx, userID) {
		return g.resolved(userID, domain.Block("rate limited", nil))
	}

	c := g.filter.Classify(ctx, text)
	if c.Categories["sexual_minors"] >= banThreshold || c.Categories["extremism"] >= banThreshold {
		return g.resolved(userID, domain.Ban(topCategory(c.Categories), c.Categories))
	}
	if c.Blocked {
		return g.resolved(userID, domain.Block(c.Reason, c.Categories))
	}
	if name, score := strongestSignal(c.Categories); score >= muteThreshold {
		return g.resolved(userID, domain.Mute(name, muteDuration, c.Categories))
	}
	if tox := c.Categories["toxicity"]; tox >= warnThreshold && tox < muteThreshold {
		return g.resolved(userID, domain.Warn("toxicity", c.Categories))
	}
	return g.resolved(userID, domain.Allow(c.Categories))
}

func (g *Gate) resolved(userID string, outcome domain.Outcome) domain.Outcome {
	if !outcome.Allowed() {
		g.metrics.IncrRejected()
		g.log.Info("Moderation outcome",
			"user", userID,
			"verdict", outcome.Verdict.String(),
			"reason", outcome.Reason)
	}
	return outcome
}

// strongestSignal ignores the derived toxicity score and the language
// audit tags.
func strongestSignal(categories map[string]float64) (string, float64) {
	var name string
	var score float64
	for k, v := range categories {
		if k == "toxicity" || strings.HasPrefix(k, "lang:") {
			continue
		}
		if v > score {
			name, score = k, v
		}
	}
	return name, score
}
