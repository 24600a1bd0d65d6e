// Package moderation implements the layered content checks and the
// gate that turns them into a single typed outcome.
package moderation

import (
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"

	pipeerrors "chat-pipeline/errors"
)

// DefaultDenylist mirrors the spam/scam markers of the legacy regex
// filter. URL schemes are listed as plain terms; normalization strips
// the separators so any link trips them.
var DefaultDenylist = []string{
	"viagra",
	"free money",
	"http://",
	"https://",
	"fuck",
	"shit",
	"spam",
}

// Detector finds denylisted terms with an Aho-Corasick automaton over
// normalized runes. Normalization lowercases, folds common leet-speak
// substitutions and drops punctuation, spacing and symbols, so
// "V.1.a.g.r.a" still matches "viagra".
type Detector struct {
	matcher *goahocorasick.Machine
}

func NewDetector(terms []string) (*Detector, error) {
	patterns := make([][]rune, 0, len(terms))
	for _, term := range terms {
		normalized := normalizeRunes([]rune(term))
		if len(normalized) == 0 {
			continue
		}
		patterns = append(patterns, normalized)
	}
	if len(patterns) == 0 {
		return nil, pipeerrors.ErrEmptyDenylist
	}
	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return nil, err
	}
	return &Detector{matcher: m}, nil
}

// Detect returns the normalized denylist terms present in text, in
// match order. An empty result means the text is lexically clean.
func (d *Detector) Detect(text string) []string {
	normalized := normalizeRunes([]rune(text))
	if len(normalized) == 0 {
		return nil
	}
	spans := d.matcher.MultiPatternSearch(normalized, false)
	if len(spans) == 0 {
		return nil
	}
	found := make([]string, 0, len(spans))
	for _, span := range spans {
		found = append(found, string(span.Word))
	}
	return found
}

// normalizeRunes applies simplification and noise removal.
func normalizeRunes(input []rune) []rune {
	out := make([]rune, 0, len(input))
	for _, r := range input {
		clean := simplifyRune(r)
		if isNoise(clean) {
			continue
		}
		out = append(out, unicode.ToLower(clean))
	}
	return out
}

// simplifyRune maps common leet-speak characters back to their
// standard alphabet counterparts.
func simplifyRune(r rune) rune {
	switch r {
	case '4', '@':
		return 'a'
	case '3', '€':
		return 'e'
	case '1', '!', '|':
		return 'i'
	case '0':
		return 'o'
	case '5', '$':
		return 's'
	default:
		return r
	}
}

// isNoise identifies characters ignored during matching.
func isNoise(r rune) bool {
	return unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r)
}
