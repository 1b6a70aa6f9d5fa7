package resilience

import (
	"context"

	"github.com/MrWong99/lingvox/pkg/provider/translation"
)

// TranslationFallback implements [translation.Provider] with failover across
// several translation backends, typically an LLM translator followed by a
// phrase translation API.
type TranslationFallback struct {
	group *FallbackGroup[translation.Provider]
}

var _ translation.Provider = (*TranslationFallback)(nil)

// NewTranslationFallback creates an empty [TranslationFallback].
func NewTranslationFallback(cfg FallbackConfig) *TranslationFallback {
	if cfg.Kind == "" {
		cfg.Kind = "translation"
	}
	return &TranslationFallback{group: NewFallbackGroup[translation.Provider](cfg)}
}

// Add registers a translation provider after the ones already added.
func (f *TranslationFallback) Add(name string, p translation.Provider) {
	f.group.Add(name, p)
}

// Names returns the provider names in try order.
func (f *TranslationFallback) Names() []string { return f.group.Names() }

// Translate returns the first successful translation.
func (f *TranslationFallback) Translate(ctx context.Context, req translation.Request) (string, error) {
	return ExecuteWithResult(ctx, f.group, func(ctx context.Context, p translation.Provider) (string, error) {
		return p.Translate(ctx, req)
	})
}
