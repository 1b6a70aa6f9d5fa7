// Package mock provides a test double for the translation.Provider interface.
//
// Example:
//
//	p := &mock.Provider{Results: map[string]string{"ru": "Привет"}}
//	out, _ := p.Translate(ctx, translation.Request{Text: "Hi", Target: "ru"})
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/lingvox/pkg/provider/translation"
)

// Provider is a mock implementation of translation.Provider.
type Provider struct {
	mu sync.Mutex

	// --- Configurable responses ---

	// Func, if set, computes the response and takes precedence over the
	// other fields.
	Func func(req translation.Request) (string, error)

	// Results maps a target language to the returned translation. Targets
	// without an entry echo the input text.
	Results map[string]string

	// Err, if non-nil, is returned from every call.
	Err error

	// --- Call records ---

	// Calls records every request in order.
	Calls []translation.Request
}

var _ translation.Provider = (*Provider)(nil)

// Translate implements translation.Provider.
func (p *Provider) Translate(_ context.Context, req translation.Request) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = append(p.Calls, req)
	if p.Func != nil {
		return p.Func(req)
	}
	if p.Err != nil {
		return "", p.Err
	}
	if out, ok := p.Results[req.Target]; ok {
		return out, nil
	}
	return req.Text, nil
}

// CallCount returns the number of Translate calls.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}

// Reset clears all call records.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = nil
}
