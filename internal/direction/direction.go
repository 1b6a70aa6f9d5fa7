// Package direction decides which of a chat's two languages a message is
// written in and translates it into the other one.
//
// There is no language identifier. A message whose original text contains
// Cyrillic is taken to be in a Cyrillic primary language; anything else is
// probed by translating it into the primary language and checking whether
// the text changed. Any change, including punctuation or spelling the provider
// normalised, counts as "not the primary language", so the message is
// translated into the primary language. Numbers, URLs and names translate to
// themselves and are therefore sent toward the secondary language.
package direction

import (
	"context"
	"strings"

	"github.com/MrWong99/lingvox/internal/lang"
)

// TranslateFunc translates text into the target language code.
type TranslateFunc func(ctx context.Context, text, target string) (string, error)

// Result describes one resolved translation.
type Result struct {
	Text   string
	Target string
	// Probed is true when a probe translation was issued.
	Probed bool
	// Reused is true when the probe result was returned as the translation.
	Reused bool
}

// Resolver holds the injected translate capability.
type Resolver struct {
	translate TranslateFunc
}

// New returns a Resolver that calls translate for both probes and
// translations.
func New(translate TranslateFunc) *Resolver {
	return &Resolver{translate: translate}
}

// Resolve translates text between primary and secondary. original is the
// message before dictionary substitution; direction checks only look at it.
// Errors from the translate function are returned unchanged.
func (r *Resolver) Resolve(ctx context.Context, text, original, primary, secondary string) (Result, error) {
	if lang.IsCyrillic(primary) && lang.HasCyrillic(original) {
		out, err := r.translate(ctx, text, secondary)
		if err != nil {
			return Result{}, err
		}
		return Result{Text: out, Target: secondary}, nil
	}

	probe, err := r.translate(ctx, original, primary)
	if err != nil {
		return Result{}, err
	}

	target := primary
	if sameText(probe, original) {
		target = secondary
	}

	if target == primary && text == original {
		return Result{Text: probe, Target: primary, Probed: true, Reused: true}, nil
	}

	out, err := r.translate(ctx, text, target)
	if err != nil {
		return Result{}, err
	}
	return Result{Text: out, Target: target, Probed: true}, nil
}

func sameText(a, b string) bool {
	return strings.ToLower(strings.TrimSpace(a)) == strings.ToLower(strings.TrimSpace(b))
}
