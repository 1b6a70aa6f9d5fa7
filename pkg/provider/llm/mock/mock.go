// Package mock provides a test double for the llm.Provider interface.
//
// Example:
//
//	p := &mock.Provider{Response: &llm.CompletionResponse{Content: "Hallo"}}
//	resp, err := p.Complete(ctx, req)
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/lingvox/pkg/provider/llm"
)

// Provider is a mock implementation of llm.Provider. A nil Response makes
// Complete return an empty response.
type Provider struct {
	mu sync.Mutex

	// Response is returned by Complete when Err is nil.
	Response *llm.CompletionResponse

	// Err, if non-nil, is returned by Complete.
	Err error

	// Calls records every CompletionRequest passed to Complete.
	Calls []llm.CompletionRequest
}

var _ llm.Provider = (*Provider)(nil)

// Complete records the call and returns the configured response.
func (p *Provider) Complete(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = append(p.Calls, req)
	if p.Err != nil {
		return nil, p.Err
	}
	if p.Response == nil {
		return &llm.CompletionResponse{}, nil
	}
	resp := *p.Response
	return &resp, nil
}

// CallCount returns the number of Complete calls.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}
