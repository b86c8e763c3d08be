package router

import (
	"context"
	"strings"
	"unicode"
)

// KeywordClassifier is the built-in deterministic classifier: it scores each
// candidate by token overlap between the utterance and the capability
// summary. It stands in wherever no model-backed classifier is configured and
// doubles as the reproducible implementation for tests.
type KeywordClassifier struct{}

// NewKeywordClassifier creates a KeywordClassifier.
func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{}
}

// Classify returns every candidate sharing the highest non-zero overlap with
// the utterance, preserving candidate order.
func (c *KeywordClassifier) Classify(_ context.Context, utterance string, candidates []Candidate) ([]string, error) {
	words := tokenize(utterance)
	if len(words) == 0 {
		return nil, nil
	}

	best := 0
	scores := make([]int, len(candidates))
	for i, cand := range candidates {
		capWords := tokenize(cand.Capability)
		score := 0
		for w := range words {
			if capWords[w] {
				score++
			}
		}
		scores[i] = score
		if score > best {
			best = score
		}
	}
	if best == 0 {
		return nil, nil
	}

	var ids []string
	for i, cand := range candidates {
		if scores[i] == best {
			ids = append(ids, cand.Identifier)
		}
	}
	return ids, nil
}

// tokenize lowercases, splits on non-alphanumeric runes and folds trivial
// plurals so "services" matches "service".
func tokenize(s string) map[string]bool {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := make(map[string]bool, len(fields))
	for _, f := range fields {
		if len(f) > 3 && strings.HasSuffix(f, "s") && !strings.HasSuffix(f, "ss") {
			f = strings.TrimSuffix(f, "s")
		}
		out[f] = true
	}
	return out
}
