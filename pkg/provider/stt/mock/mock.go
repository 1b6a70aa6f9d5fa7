// Package mock provides a test double for the stt.Provider interface.
//
// Example:
//
//	p := &mock.Provider{Text: "hello world"}
//	text, _ := p.Transcribe(ctx, stt.Request{Path: "voice.ogg"})
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/lingvox/pkg/provider/stt"
)

// Provider is a mock implementation of stt.Provider.
type Provider struct {
	mu sync.Mutex

	// --- Configurable responses ---

	// Text is returned by Transcribe when Err is nil.
	Text string

	// Err, if non-nil, is returned from Transcribe.
	Err error

	// --- Call records ---

	// Calls records every request in order.
	Calls []stt.Request
}

var _ stt.Provider = (*Provider)(nil)

// Transcribe records the call and returns Text, Err.
func (p *Provider) Transcribe(_ context.Context, req stt.Request) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = append(p.Calls, req)
	if p.Err != nil {
		return "", p.Err
	}
	return p.Text, nil
}

// CallCount returns the number of Transcribe calls.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}
