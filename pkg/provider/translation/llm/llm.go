// Package llm implements translation.Provider by prompting a chat model to act
// as a translator.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MrWong99/lingvox/internal/lang"
	"github.com/MrWong99/lingvox/pkg/provider/llm"
	"github.com/MrWong99/lingvox/pkg/provider/translation"
)

var _ translation.Provider = (*Provider)(nil)

// DefaultTemperature keeps translations close to literal.
const DefaultTemperature = 0.3

// Option configures a [Provider].
type Option func(*Provider)

// WithTemperature overrides [DefaultTemperature].
func WithTemperature(t float64) Option {
	return func(p *Provider) { p.temperature = t }
}

// WithMaxTokens caps the length of a translation.
func WithMaxTokens(n int) Option {
	return func(p *Provider) { p.maxTokens = n }
}

// Provider translates through an llm.Provider.
type Provider struct {
	model       llm.Provider
	temperature float64
	maxTokens   int
}

// New returns a Provider that sends translation prompts to model.
func New(model llm.Provider, opts ...Option) *Provider {
	p := &Provider{model: model, temperature: DefaultTemperature}
	for _, o := range opts {
		o(p)
	}
	return p
}

// SystemPrompt returns the instruction sent with every translation.
func SystemPrompt(source, target string) string {
	from := "the detected language"
	if source != "" && source != translation.AutoDetect {
		from = lang.Name(source)
	}
	return fmt.Sprintf("You are a professional translator. Translate the following text from %s to %s. "+
		"Output only the translation, without quotes, notes or explanations. "+
		"Keep names, numbers, emoji and formatting unchanged.", from, lang.Name(target))
}

// Translate implements translation.Provider.
func (p *Provider) Translate(ctx context.Context, req translation.Request) (string, error) {
	if req.Target == "" {
		return "", errors.New("llm translate: target language is required")
	}
	resp, err := p.model.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: SystemPrompt(req.Source, req.Target),
		Messages:     []llm.Message{{Role: llm.RoleUser, Content: req.Text}},
		Temperature:  p.temperature,
		MaxTokens:    p.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("llm translate: %w", err)
	}
	out := strings.TrimSpace(resp.Content)
	if out == "" {
		return "", errors.New("llm translate: empty translation")
	}
	return out, nil
}
