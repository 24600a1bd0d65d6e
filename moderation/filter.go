package moderation

import (
	"context"
	"log/slog"
	"strings"

	"github.com/abadojack/whatlanggo"
	"github.com/samber/lo"

	"chat-pipeline/observability"
)

// Classification is the content verdict handed to the gate. Categories
// are audit metadata and survive even when nothing blocks.
type Classification struct {
	Blocked    bool
	Reason     string
	Categories map[string]float64
}

// Filter chains the moderation stages, cheapest first: the lexical
// denylist short-circuits before the external classifier is paid for.
type Filter struct {
	lexical    *Detector
	classifier Classifier
	metrics    *observability.PipelineMetrics
	log        *slog.Logger
}

func NewFilter(lexical *Detector, classifier Classifier, metrics *observability.PipelineMetrics, log *slog.Logger) *Filter {
	return &Filter{lexical: lexical, classifier: classifier, metrics: metrics, log: log}
}

// Classify runs both stages. A classifier transport failure is
// fail-open: the text passes with lexical-only filtering, the
// degradation is counted and logged so trust-and-safety can see it.
func (f *Filter) Classify(ctx context.Context, text string) Classification {
	categories := map[string]float64{}

	// Detected language travels with the audit categories, it never
	// blocks anything.
	info := whatlanggo.Detect(text)
	if iso := info.Lang.Iso6391(); iso != "" {
		categories["lang:"+iso] = info.Confidence
	}

	if terms := f.lexical.Detect(text); len(terms) > 0 {
		categories["profanity"] = 1.0
		f.log.Debug("Denylist hit", "terms", terms)
		return Classification{Blocked: true, Reason: "profanity", Categories: categories}
	}

	result, err := f.classifier.Moderate(ctx, text)
	if err != nil {
		f.metrics.IncrClassifierFailures()
		f.log.Warn("Classifier unavailable, passing lexical-only", "error", err)
		return Classification{Categories: categories}
	}
	for name, score := range result.Categories {
		categories[name] = score
	}
	if result.Flagged {
		return Classification{Blocked: true, Reason: topCategory(result.Categories), Categories: categories}
	}
	return Classification{Categories: categories}
}

// topCategory names the strongest classifier signal for the rejection
// reason; toxicity is derived, not a category of its own.
func topCategory(categories map[string]float64) string {
	entries := lo.Entries(categories)
	entries = lo.Filter(entries, func(e lo.Entry[string, float64], _ int) bool {
		return e.Key != "toxicity" && !strings.HasPrefix(e.Key, "lang:")
	})
	if len(entries) == 0 {
		return "flagged"
	}
	best := lo.MaxBy(entries, func(a, b lo.Entry[string, float64]) bool {
		return a.Value > b.Value
	})
	return best.Key
}
