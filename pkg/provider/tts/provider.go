// Package tts defines the Provider interface for Text-to-Speech backends.
//
// A TTS provider wraps a speech synthesis service (a multi-speaker model
// server, a generic cloud voice, a streaming voice API) and turns text into
// audio. Providers return either raw mono PCM, which the caller encodes and
// transcodes itself, or an already encoded payload.
//
// Implementations must be safe for concurrent use.
package tts

import (
	"context"
	"errors"
)

// ErrUnsupportedLanguage is returned by providers that have no voice for the
// requested language. Fallback chains skip such a provider without counting
// a failure against it.
var ErrUnsupportedLanguage = errors.New("tts: language not supported")

// Request is one synthesis call.
type Request struct {
	// Text is the text to speak.
	Text string

	// Language is the language code of Text.
	Language string

	// Speaker selects a provider-specific voice. Providers keyed only by
	// language ignore it.
	Speaker string
}

// Audio is the result of a synthesis call. Exactly one of Samples and Data
// is set.
type Audio struct {
	// Samples holds raw signed 16-bit mono PCM.
	Samples []int16

	// SampleRate is the rate of Samples in Hz.
	SampleRate int

	// Data holds an encoded payload in Format.
	Data []byte

	// Format is the container of Data, for example "mp3" or "wav".
	Format string
}

// IsPCM reports whether the audio carries raw samples.
func (a *Audio) IsPCM() bool { return a != nil && len(a.Samples) > 0 }

// Provider is the abstraction over any TTS backend.
type Provider interface {
	// Synthesize returns audio for req. Returns [ErrUnsupportedLanguage] if the
	// provider has no voice for req.Language, or another error if synthesis
	// fails.
	Synthesize(ctx context.Context, req Request) (*Audio, error)
}
