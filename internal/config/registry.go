package config

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/MrWong99/lingvox/pkg/provider/stt"
	"github.com/MrWong99/lingvox/pkg/provider/translation"
	"github.com/MrWong99/lingvox/pkg/provider/tts"
)

// ErrProviderNotRegistered is returned by the Create methods for a provider
// name without a factory.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// Factory builds a provider from its config entry.
type Factory[P any] func(ProviderEntry) (P, error)

// factories is the name table of one provider kind.
type factories[P any] struct {
	kind string
	byID map[string]Factory[P]
}

func newFactories[P any](kind string) factories[P] {
	return factories[P]{kind: kind, byID: make(map[string]Factory[P])}
}

// create looks the factory up under mu and runs it unlocked.
func create[P any](mu *sync.RWMutex, f factories[P], entry ProviderEntry) (P, error) {
	mu.RLock()
	mk, ok := f.byID[entry.Name]
	mu.RUnlock()
	if !ok {
		var zero P
		return zero, fmt.Errorf("%w: %s/%q", ErrProviderNotRegistered, f.kind, entry.Name)
	}
	return mk(entry)
}

// Registry maps provider names in the config to constructors. Later
// registrations under a name replace earlier ones. It is safe for concurrent
// use.
type Registry struct {
	mu          sync.RWMutex
	translation factories[translation.Provider]
	stt         factories[stt.Provider]
	tts         factories[tts.Provider]
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		translation: newFactories[translation.Provider](KindTranslation),
		stt:         newFactories[stt.Provider](KindSTT),
		tts:         newFactories[tts.Provider](KindTTS),
	}
}

// RegisterTranslation registers a translation provider under name.
func (r *Registry) RegisterTranslation(name string, f Factory[translation.Provider]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.translation.byID[name] = f
}

// RegisterSTT registers a speech-to-text provider under name.
func (r *Registry) RegisterSTT(name string, f Factory[stt.Provider]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stt.byID[name] = f
}

// RegisterTTS registers a text-to-speech provider under name.
func (r *Registry) RegisterTTS(name string, f Factory[tts.Provider]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tts.byID[name] = f
}

// CreateTranslation builds the translation provider named by entry.
func (r *Registry) CreateTranslation(entry ProviderEntry) (translation.Provider, error) {
	return create(&r.mu, r.translation, entry)
}

// CreateSTT builds the speech-to-text provider named by entry.
func (r *Registry) CreateSTT(entry ProviderEntry) (stt.Provider, error) {
	return create(&r.mu, r.stt, entry)
}

// CreateTTS builds the text-to-speech provider named by entry.
func (r *Registry) CreateTTS(entry ProviderEntry) (tts.Provider, error) {
	return create(&r.mu, r.tts, entry)
}

// Names returns the registered provider names of kind, sorted.
func (r *Registry) Names(kind string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	switch kind {
	case KindTranslation:
		return slices.Sorted(maps.Keys(r.translation.byID))
	case KindSTT:
		return slices.Sorted(maps.Keys(r.stt.byID))
	case KindTTS:
		return slices.Sorted(maps.Keys(r.tts.byID))
	}
	return nil
}
