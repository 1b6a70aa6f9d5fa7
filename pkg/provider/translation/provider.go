// Package translation defines the Provider interface for text translation
// backends.
//
// A translation provider wraps a machine translation service (an LLM prompted
// as a translator, a phrase translation API, a self-hosted engine) and exposes
// a single request/response call. Providers are interchangeable: the
// translation fallback chain tries them in order and the first success wins.
//
// Implementations must be safe for concurrent use.
package translation

import "context"

// AutoDetect is the Source value that asks the provider to detect the input
// language itself.
const AutoDetect = "auto"

// Request is one translation call.
type Request struct {
	// Text is the text to translate. Providers may assume it is not blank.
	Text string

	// Source is the language code of Text, or [AutoDetect].
	Source string

	// Target is the language code to translate into.
	Target string
}

// Provider is the abstraction over any translation backend.
type Provider interface {
	// Translate returns Text translated into Target. Returns an error if the
	// backend cannot be reached, rejects the request or returns an empty
	// translation.
	Translate(ctx context.Context, req Request) (string, error)
}
