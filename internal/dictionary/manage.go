package dictionary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/MrWong99/lingvox/internal/store"
	"github.com/MrWong99/lingvox/internal/variant"
)

var (
	// ErrEmptyDictionary is returned when exporting a chat without terms.
	ErrEmptyDictionary = errors.New("dictionary: nothing to export")
	// ErrUnknownCode is returned for invalid or expired export codes.
	ErrUnknownCode = errors.New("dictionary: invalid or expired export code")
	// ErrExportFailed is returned when the export could not be stored.
	ErrExportFailed = errors.New("dictionary: export could not be stored")
)

// Manager implements the dictionary commands shared by the bot and the HTTP
// API.
type Manager struct {
	store *store.Guard
}

// NewManager returns a Manager over g.
func NewManager(g *store.Guard) *Manager {
	return &Manager{store: g}
}

// Add stores source together with its generated variants, all mapped to
// target, and returns how many rows were written.
func (m *Manager) Add(ctx context.Context, chatID, pairKey, source, target string) int {
	forms := variant.Generate(source)
	if len(forms) == 0 {
		forms = []string{source}
	}
	added := 0
	for _, f := range forms {
		if m.store.AddTerm(ctx, chatID, pairKey, store.Term{Source: f, Target: target}) {
			added++
		}
	}
	return added
}

// Remove deletes source. When nothing was removed it returns up to three
// similar stored terms as suggestions.
func (m *Manager) Remove(ctx context.Context, chatID, pairKey, source string) (removed bool, suggestions []string) {
	if m.store.RemoveTerm(ctx, chatID, pairKey, source) {
		return true, nil
	}
	terms := m.store.Terms(ctx, chatID, pairKey)
	sources := make([]string, len(terms))
	for i, t := range terms {
		sources[i] = t.Source
	}
	return false, Suggest(source, sources, 3)
}

// List returns the chat's terms for pairKey.
func (m *Manager) List(ctx context.Context, chatID, pairKey string) []store.Term {
	return m.store.Terms(ctx, chatID, pairKey)
}

// Export serialises the chat's terms as a JSON list of [source, target] pairs
// and stores them under a fresh export code.
func (m *Manager) Export(ctx context.Context, chatID, pairKey string) (code string, count int, err error) {
	terms := m.store.Terms(ctx, chatID, pairKey)
	if len(terms) == 0 {
		return "", 0, ErrEmptyDictionary
	}
	pairs := make([][2]string, len(terms))
	for i, t := range terms {
		pairs[i] = [2]string{t.Source, t.Target}
	}
	data, err := json.Marshal(pairs)
	if err != nil {
		return "", 0, fmt.Errorf("dictionary: encode export: %w", err)
	}
	code = m.store.CreateExport(ctx, string(data))
	if code == "" {
		return "", 0, ErrExportFailed
	}
	return code, len(terms), nil
}

// Import adds every pair stored under code to the chat and returns how many
// were written.
func (m *Manager) Import(ctx context.Context, chatID, pairKey, code string) (int, error) {
	payload := m.store.Export(ctx, code)
	if payload == "" {
		return 0, ErrUnknownCode
	}
	return m.ImportJSON(ctx, chatID, pairKey, strings.NewReader(payload))
}

// ImportJSON adds the pairs of an exported dictionary read from r, a JSON
// list of [source, target] pairs.
func (m *Manager) ImportJSON(ctx context.Context, chatID, pairKey string, r io.Reader) (int, error) {
	var pairs [][2]string
	if err := json.NewDecoder(r).Decode(&pairs); err != nil {
		return 0, fmt.Errorf("dictionary: decode export: %w", err)
	}
	added := 0
	for _, p := range pairs {
		if m.store.AddTerm(ctx, chatID, pairKey, store.Term{Source: p[0], Target: p[1]}) {
			added++
		}
	}
	return added, nil
}
