package resilience

import (
	"context"
	"errors"

	"github.com/MrWong99/lingvox/pkg/provider/tts"
)

// TTSFallback implements [tts.Provider] with failover across several speech
// synthesis backends. A provider that answers [tts.ErrUnsupportedLanguage] is
// passed over without counting against its circuit breaker, so a
// multi-speaker model with a fixed language table can sit in front of a
// generic always-available voice.
type TTSFallback struct {
	group *FallbackGroup[tts.Provider]
}

var _ tts.Provider = (*TTSFallback)(nil)

// NewTTSFallback creates an empty [TTSFallback].
func NewTTSFallback(cfg FallbackConfig) *TTSFallback {
	if cfg.Kind == "" {
		cfg.Kind = "tts"
	}
	neutral := cfg.CircuitBreaker.Neutral
	cfg.CircuitBreaker.Neutral = func(err error) bool {
		if errors.Is(err, tts.ErrUnsupportedLanguage) {
			return true
		}
		return neutral != nil && neutral(err)
	}
	return &TTSFallback{group: NewFallbackGroup[tts.Provider](cfg)}
}

// Add registers a TTS provider after the ones already added.
func (f *TTSFallback) Add(name string, p tts.Provider) {
	f.group.Add(name, p)
}

// Names returns the provider names in try order.
func (f *TTSFallback) Names() []string { return f.group.Names() }

// Synthesize returns audio from the first provider that succeeds.
func (f *TTSFallback) Synthesize(ctx context.Context, req tts.Request) (*tts.Audio, error) {
	return ExecuteWithResult(ctx, f.group, func(ctx context.Context, p tts.Provider) (*tts.Audio, error) {
		return p.Synthesize(ctx, req)
	})
}
