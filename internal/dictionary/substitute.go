// Package dictionary applies and manages per-chat custom dictionaries: literal
// term replacements that run before a message is translated.
package dictionary

import (
	"cmp"
	"context"
	"log/slog"
	"regexp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/MrWong99/lingvox/internal/store"
)

// TermSource provides the stored terms for a chat and language pair key.
// [store.Guard] satisfies it.
type TermSource interface {
	Terms(ctx context.Context, chatID, pairKey string) []store.Term
}

// Substitutor replaces dictionary terms in message text.
type Substitutor struct {
	terms TermSource
}

// NewSubstitutor returns a Substitutor reading from terms.
func NewSubstitutor(terms TermSource) *Substitutor {
	return &Substitutor{terms: terms}
}

// Substitute replaces every whole-word, case-insensitive occurrence of each
// stored source term with its target. Longer sources are applied first so a
// phrase wins over a word it contains. text is returned unchanged when chatID
// is empty or the chat has no terms.
func (s *Substitutor) Substitute(ctx context.Context, text, chatID, pairKey string) string {
	if chatID == "" || text == "" {
		return text
	}
	terms := s.terms.Terms(ctx, chatID, pairKey)
	if len(terms) == 0 {
		return text
	}
	return Apply(text, terms)
}

// Apply runs the substitution for an explicit term list.
func Apply(text string, terms []store.Term) string {
	sorted := slices.Clone(terms)
	slices.SortStableFunc(sorted, func(a, b store.Term) int {
		return cmp.Compare(utf8.RuneCountInString(b.Source), utf8.RuneCountInString(a.Source))
	})

	out := text
	for _, t := range sorted {
		if strings.TrimSpace(t.Source) == "" {
			continue
		}
		re, err := regexp.Compile(`(?i)` + regexp.QuoteMeta(t.Source))
		if err != nil {
			slog.Warn("dictionary: skipping malformed term", "source", t.Source, "err", err)
			continue
		}
		out = replaceWords(out, re, t.Target)
	}
	return out
}

// replaceWords replaces the matches of re that start and end on a word
// boundary. A match rejected for its boundaries is retried one rune later,
// so an overlapping match starting inside it is still found.
func replaceWords(text string, re *regexp.Regexp, repl string) string {
	var sb strings.Builder
	last, pos := 0, 0
	for pos < len(text) {
		loc := re.FindStringIndex(text[pos:])
		if loc == nil {
			break
		}
		start, end := pos+loc[0], pos+loc[1]
		if end == start || !atBoundary(text, start) || !atBoundary(text, end) {
			_, size := utf8.DecodeRuneInString(text[start:])
			pos = start + max(size, 1)
			continue
		}
		sb.WriteString(text[last:start])
		sb.WriteString(repl)
		last, pos = end, end
	}
	if last == 0 {
		return text
	}
	sb.WriteString(text[last:])
	return sb.String()
}

// atBoundary reports whether byte offset i sits between a word and a non-word
// character (or the text edge), using Unicode letters and digits.
func atBoundary(text string, i int) bool {
	before, after := false, false
	if i > 0 {
		r, _ := utf8.DecodeLastRuneInString(text[:i])
		before = isWord(r)
	}
	if i < len(text) {
		r, _ := utf8.DecodeRuneInString(text[i:])
		after = isWord(r)
	}
	return before != after
}

func isWord(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r)
}
