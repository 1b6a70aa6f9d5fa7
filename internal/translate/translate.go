// Package translate is the translation entry point used by the front ends.
//
// A call loads the chat's language pair, applies the chat's dictionary,
// resolves the translation direction against the unsubstituted text and
// translates through the provider chain, all inside one worker pool job.
// Failures never escape: they are logged and reported as a missing result.
package translate

import (
	"context"
	"strings"

	"github.com/MrWong99/lingvox/internal/dictionary"
	"github.com/MrWong99/lingvox/internal/direction"
	"github.com/MrWong99/lingvox/internal/lang"
	"github.com/MrWong99/lingvox/internal/observe"
	"github.com/MrWong99/lingvox/internal/store"
	"github.com/MrWong99/lingvox/internal/workpool"
	"github.com/MrWong99/lingvox/pkg/provider/translation"
)

// LanguageSource returns a chat's language pair, falling back to the
// default pair.
type LanguageSource interface {
	Languages(ctx context.Context, chatID string) lang.Pair
}

// Orchestrator translates chat messages.
type Orchestrator struct {
	langs    LanguageSource
	subst    *dictionary.Substitutor
	provider translation.Provider
	pool     *workpool.Pool
	metrics  *observe.Metrics
}

// Option configures an [Orchestrator].
type Option func(*Orchestrator)

// WithMetrics records outcomes on m.
func WithMetrics(m *observe.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// New builds an [Orchestrator]. guard supplies language pairs and dictionary
// terms; provider is usually a resilience.TranslationFallback.
func New(guard *store.Guard, provider translation.Provider, pool *workpool.Pool, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		langs:    guard,
		subst:    dictionary.NewSubstitutor(guard),
		provider: provider,
		pool:     pool,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Translate translates text for chatID using the chat's language pair.
// Returns false for blank input or when translation failed.
func (o *Orchestrator) Translate(ctx context.Context, text, chatID string) (string, bool) {
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	return o.run(ctx, text, chatID, nil)
}

// TranslatePair is [Orchestrator.Translate] with an explicit pair instead of
// the stored one. The chat's dictionary still applies when chatID is set.
func (o *Orchestrator) TranslatePair(ctx context.Context, text, chatID string, pair lang.Pair) (string, bool) {
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	return o.run(ctx, text, chatID, &pair)
}

func (o *Orchestrator) run(ctx context.Context, text, chatID string, pair *lang.Pair) (string, bool) {
	ctx, _ = observe.StartOp(ctx, observe.KindTranslation, chatID)
	res, err := workpool.Do(ctx, o.pool, func(ctx context.Context) (direction.Result, error) {
		p := lang.DefaultPair()
		switch {
		case pair != nil:
			p = *pair
		case chatID != "":
			p = o.langs.Languages(ctx, chatID)
		}
		substituted := o.subst.Substitute(ctx, text, chatID, p.Key())
		return direction.New(o.translateTo).Resolve(ctx, substituted, text, p.Primary, p.Secondary)
	})
	if err != nil {
		observe.Logger(ctx).Warn("translate: failed", "err", err)
		o.record(ctx, "failed")
		return "", false
	}
	out := strings.TrimSpace(res.Text)
	if out == "" {
		o.record(ctx, "empty")
		return "", false
	}
	observe.Logger(ctx).Debug("translate: done",
		"target", res.Target, "probed", res.Probed, "reused", res.Reused)
	o.record(ctx, "ok")
	return out, true
}

func (o *Orchestrator) translateTo(ctx context.Context, text, target string) (string, error) {
	return o.provider.Translate(ctx, translation.Request{
		Text:   text,
		Source: translation.AutoDetect,
		Target: target,
	})
}

func (o *Orchestrator) record(ctx context.Context, status string) {
	observe.FinishOp(ctx, status)
	if o.metrics != nil {
		o.metrics.RecordResult(ctx, observe.KindTranslation, status)
	}
}
