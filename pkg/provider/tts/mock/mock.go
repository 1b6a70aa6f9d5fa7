// Package mock provides a test double for the tts.Provider interface.
//
// Example:
//
//	p := &mock.Provider{Result: &tts.Audio{Samples: []int16{0, 1}, SampleRate: 48000}}
//	audio, _ := p.Synthesize(ctx, tts.Request{Text: "hi", Language: "en"})
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/lingvox/pkg/provider/tts"
)

// Provider is a mock implementation of tts.Provider.
type Provider struct {
	mu sync.Mutex

	// --- Configurable responses ---

	// Result is returned by Synthesize when Err is nil.
	Result *tts.Audio

	// Err, if non-nil, is returned from Synthesize.
	Err error

	// --- Call records ---

	// Calls records every request in order.
	Calls []tts.Request
}

var _ tts.Provider = (*Provider)(nil)

// Synthesize records the call and returns Result, Err.
func (p *Provider) Synthesize(_ context.Context, req tts.Request) (*tts.Audio, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = append(p.Calls, req)
	if p.Err != nil {
		return nil, p.Err
	}
	return p.Result, nil
}

// CallCount returns the number of Synthesize calls.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}

// Reset clears all recorded calls.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = nil
}
