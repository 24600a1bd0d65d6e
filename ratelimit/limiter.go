// Package ratelimit implements the per-user adaptive cooldown gate.
//
// Every evaluation updates two TTL-backed entries, a current delay and
// the next allowed send time. Rapid messages double the delay (capped),
// compliant behavior halves it (floored), so sustained flooding earns
// exponentially growing mandatory gaps while good citizens converge
// back to one second.
package ratelimit

import (
	"context"
	"log/slog"
	"time"

	"chat-pipeline/observability"
)

const (
	minDelaySeconds = 1
	maxDelaySeconds = 60

	// Entries expire after inactivity so stale users are never
	// throttled forever.
	stateTTL = 10 * time.Minute

	delayKeyPrefix = "chat:delay:"
	nextKeyPrefix  = "chat:next:"
)

// State is the stored per-user rate state. Zero value means "first
// message"; malformed stored values are treated the same way.
type State struct {
	DelaySeconds  int64
	NextAllowedAt int64
}

// Decision is the result of one reservation.
type Decision struct {
	Throttled     bool
	DelaySeconds  int64
	NextAllowedAt int64
}

// advance applies the cooldown rules to st at epoch second now.
// Pure so both store backends and the tests share one source of truth.
func advance(st State, now int64) Decision {
	delay := st.DelaySeconds
	if delay < minDelaySeconds {
		delay = minDelaySeconds
	}
	if now < st.NextAllowedAt {
		delay *= 2
		if delay > maxDelaySeconds {
			delay = maxDelaySeconds
		}
		return Decision{Throttled: true, DelaySeconds: delay, NextAllowedAt: st.NextAllowedAt + delay}
	}
	delay /= 2
	if delay < minDelaySeconds {
		delay = minDelaySeconds
	}
	return Decision{Throttled: false, DelaySeconds: delay, NextAllowedAt: now + delay}
}

// Store applies one reservation atomically with respect to concurrent
// reservations for the same user. Cross-user state is independent.
type Store interface {
	Reserve(ctx context.Context, userID string, now int64) (Decision, error)
}

// Limiter is the gate-facing API.
type Limiter struct {
	store   Store
	metrics *observability.PipelineMetrics
	log     *slog.Logger
	now     func() time.Time
}

func NewLimiter(store Store, metrics *observability.PipelineMetrics, log *slog.Logger) *Limiter {
	return &Limiter{store: store, metrics: metrics, log: log, now: time.Now}
}

// WithClock overrides the time source. Tests pin it so throttle
// decisions don't depend on wall-clock second boundaries.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.now = now
	return l
}

// Check reports whether userID must be throttled right now.
// A store failure is fail-open: chat must not go down with the rate
// store, but the degradation is counted and logged.
func (l *Limiter) Check(ctx context.Context, userID string) bool {
	decision, err := l.store.Reserve(ctx, userID, l.now().Unix())
	if err != nil {
		l.metrics.IncrRateStoreFailures()
		l.log.Warn("Rate store unavailable, allowing message", "user", userID, "error", err)
		return false
	}
	if decision.Throttled {
		l.metrics.IncrThrottled()
		l.log.Debug("Sender throttled",
			"user", userID,
			"delay_s", decision.DelaySeconds,
			"next_allowed_at", decision.NextAllowedAt)
	}
	return decision.Throttled
}
