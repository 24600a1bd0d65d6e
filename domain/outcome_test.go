package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func Test_Outcome_Exactly_One_Verdict(t *testing.T) {
	req := require.New(t)

	req.True(Allow(nil).Allowed())

	for _, outcome := range []Outcome{
		Warn("toxicity", nil),
		Mute("harassment", 30*time.Minute, nil),
		Ban("sexual_minors", nil),
		ReadOnly("spam"),
		Block("rate limited", nil),
	} {
		req.False(outcome.Allowed())
	}

	muted := Mute("harassment", 30*time.Minute, map[string]float64{"harassment": 0.9})
	req.Equal(VerdictMuted, muted.Verdict)
	req.Equal(30*time.Minute, muted.MuteDuration)
	req.Equal("harassment", muted.Reason)
}

func Test_Verdict_Names(t *testing.T) {
	req := require.New(t)

	req.Equal("allowed", VerdictAllowed.String())
	req.Equal("blocked", VerdictBlocked.String())
	req.Equal("readonly", VerdictReadOnly.String())
}
