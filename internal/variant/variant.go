// Package variant expands a dictionary word into the inflected forms it is
// likely to take in running Russian text, so that a single dictionary entry
// such as "Ян" also matches "Яна", "Яну", "Яном" and "Яне".
//
// The rules assume a nominative-case noun or given name and only look at the
// final letter. They are a recall aid, not a morphological analyser.
package variant

import (
	"strings"
	"unicode/utf8"
)

const consonants = "бвгджзклмнпрстфхцчшщ"

// Generate returns word together with its generated variants. The word itself
// is always the first element. Blank input yields nil.
func Generate(word string) []string {
	word = strings.TrimSpace(word)
	if word == "" {
		return nil
	}

	_, size := utf8.DecodeLastRuneInString(word)
	base := word[:len(word)-size]
	lower := []rune(strings.ToLower(word))
	end := lower[len(lower)-1]

	var forms []string
	switch {
	case strings.ContainsRune(consonants, end):
		forms = suffixed(word, "а", "у", "ом", "е")
	case end == 'й':
		forms = suffixed(base, "я", "ю", "ем", "е", "и")
	case end == 'а':
		forms = suffixed(base, "ы", "е", "у", "ой")
	case end == 'я' && len(lower) > 2 && lower[len(lower)-2] == 'и':
		forms = suffixed(base, "и", "ю", "ей")
	case end == 'я':
		forms = suffixed(base, "и", "е", "ю", "ей", "ёй")
	case end == 'ь':
		forms = suffixed(base, "я", "ю", "ем", "е", "и")
		forms = append(forms, word+"ю")
	}

	out := make([]string, 0, len(forms)+1)
	seen := make(map[string]bool, len(forms)+1)
	for _, f := range append([]string{word}, forms...) {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out
}

func suffixed(base string, suffixes ...string) []string {
	out := make([]string, len(suffixes))
	for i, s := range suffixes {
		out[i] = base + s
	}
	return out
}
