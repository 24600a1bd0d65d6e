package domain

import (
	"fmt"
	"time"
)

// Verdict enumerates the closed set of moderation results.
type Verdict int

const (
	VerdictAllowed Verdict = iota
	VerdictWarned
	VerdictMuted
	VerdictBanned
	VerdictReadOnly
	VerdictBlocked
)

func (v Verdict) String() string {
	switch v {
	case VerdictAllowed:
		return "allowed"
	case VerdictWarned:
		return "warned"
	case VerdictMuted:
		return "muted"
	case VerdictBanned:
		return "banned"
	case VerdictReadOnly:
		return "readonly"
	case VerdictBlocked:
		return "blocked"
	default:
		return fmt.Sprintf("verdict(%d)", int(v))
	}
}

// Outcome is the tagged result of one gate evaluation. Exactly one
// verdict applies; Reason and Categories are audit metadata for every
// non-allowed verdict, MuteDuration is meaningful for VerdictMuted
// only. Outcomes are returned to the caller and never persisted by
// this pipeline.
type Outcome struct {
	Verdict      Verdict
	Reason       string
	MuteDuration time.Duration
	Categories   map[string]float64
}

// Allowed reports whether the message may be persisted.
func (o Outcome) Allowed() bool {
	return o.Verdict == VerdictAllowed
}

func Allow(categories map[string]float64) Outcome {
	return Outcome{Verdict: VerdictAllowed, Categories: categories}
}

func Warn(reason string, categories map[string]float64) Outcome {
	return Outcome{Verdict: VerdictWarned, Reason: reason, Categories: categories}
}

func Mute(reason string, d time.Duration, categories map[string]float64) Outcome {
	return Outcome{Verdict: VerdictMuted, Reason: reason, MuteDuration: d, Categories: categories}
}

func Ban(reason string, categories map[string]float64) Outcome {
	return Outcome{Verdict: VerdictBanned, Reason: reason, Categories: categories}
}

// ReadOnly is emitted by callers that map an existing restriction onto
// a submission; the gate itself resolves throttling to Block.
func ReadOnly(reason string) Outcome {
	return Outcome{Verdict: VerdictReadOnly, Reason: reason}
}

func Block(reason string, categories map[string]float64) Outcome {
	return Outcome{Verdict: VerdictBlocked, Reason: reason, Categories: categories}
}
