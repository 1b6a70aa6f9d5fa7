// Package stt defines the Provider interface for Speech-to-Text backends.
//
// An STT provider wraps a transcription service (a cloud Whisper-compatible
// API, a local whisper.cpp model, a self-hosted whisper server) and turns a
// recorded audio file into text. Voice notes arrive as complete files, so the
// interface is a single request/response call rather than a stream.
//
// Implementations must be safe for concurrent use.
package stt

import "context"

// Request describes one audio file to transcribe.
type Request struct {
	// Path is the local path of the audio file. Providers that need raw PCM
	// decode it themselves; the caller owns the file and deletes it afterwards.
	Path string

	// Language is an optional ISO-639-1 hint. Empty lets the provider detect
	// the spoken language.
	Language string
}

// Provider is the abstraction over any STT backend.
type Provider interface {
	// Transcribe returns the text spoken in the file. A recording without
	// speech yields an empty string and a nil error. Returns an error if the
	// file cannot be read or the backend fails.
	Transcribe(ctx context.Context, req Request) (string, error)
}
