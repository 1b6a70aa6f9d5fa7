package resilience

import (
	"context"

	"github.com/MrWong99/lingvox/pkg/provider/stt"
)

// STTFallback implements [stt.Provider] with failover across several
// transcription backends, typically a cloud API followed by a local model.
type STTFallback struct {
	group *FallbackGroup[stt.Provider]
}

var _ stt.Provider = (*STTFallback)(nil)

// NewSTTFallback creates an empty [STTFallback].
func NewSTTFallback(cfg FallbackConfig) *STTFallback {
	if cfg.Kind == "" {
		cfg.Kind = "stt"
	}
	return &STTFallback{group: NewFallbackGroup[stt.Provider](cfg)}
}

// Add registers an STT provider after the ones already added.
func (f *STTFallback) Add(name string, p stt.Provider) {
	f.group.Add(name, p)
}

// Names returns the provider names in try order.
func (f *STTFallback) Names() []string { return f.group.Names() }

// Transcribe returns the transcript of the first provider that succeeds. An
// empty transcript is a success; interpreting it is up to the caller.
func (f *STTFallback) Transcribe(ctx context.Context, req stt.Request) (string, error) {
	return ExecuteWithResult(ctx, f.group, func(ctx context.Context, p stt.Provider) (string, error) {
		return p.Transcribe(ctx, req)
	})
}
