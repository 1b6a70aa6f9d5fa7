// Package memory is an in-process [store.Store]. It is the default for local
// development and the backing store in tests; nothing survives a restart.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/MrWong99/lingvox/internal/lang"
	"github.com/MrWong99/lingvox/internal/store"
)

type termKey struct {
	chatID, pair, source string
}

type presetKey struct {
	chatID, lang string
	gender       store.Gender
}

type export struct {
	payload string
	created time.Time
}

// Option configures a [Store].
type Option func(*Store)

// WithClock overrides the time source used for export expiry.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// Store keeps everything in maps guarded by one mutex.
type Store struct {
	mu        sync.Mutex
	now       func() time.Time
	languages map[string]lang.Pair
	terms     map[termKey]string
	presets   map[presetKey]string
	modes     map[string]store.Mode
	genders   map[string]store.Gender
	exports   map[string]export
}

var _ store.Store = (*Store)(nil)

// New returns an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		now:       time.Now,
		languages: make(map[string]lang.Pair),
		terms:     make(map[termKey]string),
		presets:   make(map[presetKey]string),
		modes:     make(map[string]store.Mode),
		genders:   make(map[string]store.Gender),
		exports:   make(map[string]export),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) Languages(_ context.Context, chatID string) (lang.Pair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.languages[chatID]
	if !ok {
		return lang.Pair{}, store.ErrNotFound
	}
	return p, nil
}

func (s *Store) SetLanguages(_ context.Context, chatID string, pair lang.Pair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.languages[chatID] = pair
	return nil
}

func (s *Store) Terms(_ context.Context, chatID, pairKey string) ([]store.Term, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []store.Term
	for k, target := range s.terms {
		if k.chatID == chatID && k.pair == pairKey {
			out = append(out, store.Term{Source: k.source, Target: target})
		}
	}
	slices.SortFunc(out, func(a, b store.Term) int { return strings.Compare(a.Source, b.Source) })
	return out, nil
}

func (s *Store) AddTerm(_ context.Context, chatID, pairKey string, term store.Term) error {
	t, err := store.NormalizeTerm(term)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.terms[termKey{chatID, pairKey, t.Source}] = t.Target
	return nil
}

func (s *Store) RemoveTerm(_ context.Context, chatID, pairKey, source string) (bool, error) {
	k := termKey{chatID, pairKey, strings.ToLower(strings.TrimSpace(source))}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.terms[k]; !ok {
		return false, nil
	}
	delete(s.terms, k)
	return true, nil
}

func (s *Store) VoicePreset(_ context.Context, chatID, language string, gender store.Gender) (string, error) {
	l, g := store.NormalizeVoiceKey(language, gender)
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.presets[presetKey{chatID, l, g}]
	if !ok {
		return "", store.ErrNotFound
	}
	return v, nil
}

func (s *Store) SetVoicePreset(_ context.Context, chatID, language string, gender store.Gender, speaker string) error {
	l, g := store.NormalizeVoiceKey(language, gender)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.presets[presetKey{chatID, l, g}] = speaker
	return nil
}

func (s *Store) Mode(_ context.Context, chatID string) (store.Mode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.modes[chatID]
	if !ok {
		return "", store.ErrNotFound
	}
	return m, nil
}

func (s *Store) SetMode(_ context.Context, chatID string, mode store.Mode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.modes[chatID] = mode
	return nil
}

func (s *Store) VoiceGender(_ context.Context, chatID string) (store.Gender, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.genders[chatID]
	if !ok {
		return "", store.ErrNotFound
	}
	return g, nil
}

func (s *Store) SetVoiceGender(_ context.Context, chatID string, gender store.Gender) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.genders[chatID] = gender
	return nil
}

func (s *Store) CreateExport(_ context.Context, payload string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		code, err := store.NewExportCode()
		if err != nil {
			return "", err
		}
		if _, taken := s.exports[code]; taken {
			continue
		}
		s.exports[code] = export{payload: payload, created: s.now()}
		return code, nil
	}
}

func (s *Store) Export(_ context.Context, code string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-store.ExportTTL)
	for c, e := range s.exports {
		if e.created.Before(cutoff) {
			delete(s.exports, c)
		}
	}
	e, ok := s.exports[store.NormalizeCode(code)]
	if !ok {
		return "", store.ErrNotFound
	}
	return e.payload, nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }
