// Package transcribe turns recorded voice messages into text through the
// speech-to-text provider chain.
package transcribe

import (
	"context"
	"strings"

	"github.com/MrWong99/lingvox/internal/observe"
	"github.com/MrWong99/lingvox/internal/workpool"
	"github.com/MrWong99/lingvox/pkg/provider/stt"
)

// Orchestrator transcribes audio files on the shared worker pool.
type Orchestrator struct {
	provider stt.Provider
	pool     *workpool.Pool
	metrics  *observe.Metrics
}

// Option configures an [Orchestrator].
type Option func(*Orchestrator)

// WithMetrics records outcomes on m.
func WithMetrics(m *observe.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// New builds an [Orchestrator] over provider, usually a
// resilience.STTFallback.
func New(provider stt.Provider, pool *workpool.Pool, opts ...Option) *Orchestrator {
	o := &Orchestrator{provider: provider, pool: pool}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Transcribe returns the text spoken in the file at path. It returns false
// when every provider failed or the recording contains no speech. The caller
// owns the file.
func (o *Orchestrator) Transcribe(ctx context.Context, path string) (string, bool) {
	return o.TranscribeHint(ctx, path, "")
}

// TranscribeHint is [Orchestrator.Transcribe] with a spoken-language hint
// passed through to the providers.
func (o *Orchestrator) TranscribeHint(ctx context.Context, path, language string) (string, bool) {
	ctx, _ = observe.StartOp(ctx, observe.KindSTT, "")
	text, err := workpool.Do(ctx, o.pool, func(ctx context.Context) (string, error) {
		return o.provider.Transcribe(ctx, stt.Request{Path: path, Language: language})
	})
	if err != nil {
		observe.Logger(ctx).Warn("transcribe: failed", "path", path, "err", err)
		o.record(ctx, "failed")
		return "", false
	}
	text = strings.TrimSpace(text)
	if text == "" {
		observe.Logger(ctx).Debug("transcribe: no speech", "path", path)
		o.record(ctx, "empty")
		return "", false
	}
	o.record(ctx, "ok")
	return text, true
}

func (o *Orchestrator) record(ctx context.Context, status string) {
	observe.FinishOp(ctx, status)
	if o.metrics != nil {
		o.metrics.RecordResult(ctx, observe.KindSTT, status)
	}
}
