package dictionary

import (
	"cmp"
	"slices"
	"strings"

	"github.com/antzucaro/matchr"
)

const (
	phoneticThreshold = 0.70
	fuzzyThreshold    = 0.85
)

// Suggest ranks candidates that look or sound like word, best first, and
// returns at most limit of them. A candidate qualifies when it shares a Double
// Metaphone code with word and scores at least 0.70 Jaro-Winkler, or scores at
// least 0.85 without a phonetic match. Double Metaphone only encodes Latin
// script, so Cyrillic input relies on the fuzzy threshold.
func Suggest(word string, candidates []string, limit int) []string {
	word = strings.ToLower(strings.TrimSpace(word))
	if word == "" || limit <= 0 {
		return nil
	}
	wordCodes := metaphoneCodes(word)

	type scored struct {
		term  string
		score float64
	}
	var hits []scored
	seen := make(map[string]bool)
	for _, c := range candidates {
		lc := strings.ToLower(strings.TrimSpace(c))
		if lc == "" || lc == word || seen[lc] {
			continue
		}
		seen[lc] = true

		score := matchr.JaroWinkler(word, lc, false)
		threshold := fuzzyThreshold
		if overlaps(wordCodes, metaphoneCodes(lc)) {
			threshold = phoneticThreshold
		}
		if score >= threshold {
			hits = append(hits, scored{term: c, score: score})
		}
	}

	slices.SortStableFunc(hits, func(a, b scored) int { return cmp.Compare(b.score, a.score) })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.term
	}
	return out
}

func metaphoneCodes(s string) map[string]bool {
	codes := make(map[string]bool)
	for _, tok := range strings.Fields(s) {
		p, sec := matchr.DoubleMetaphone(tok)
		if p != "" {
			codes[p] = true
		}
		if sec != "" {
			codes[sec] = true
		}
	}
	return codes
}

func overlaps(a, b map[string]bool) bool {
	for c := range a {
		if b[c] {
			return true
		}
	}
	return false
}
