// Package store defines the per-chat persistence used by the translation core:
// language pairs, dictionary terms, voice settings and dictionary export
// bundles.
//
// Implementations live in the memory, sqlite and postgres sub-packages. Callers
// in the orchestration core go through [Guard], which turns storage failures
// into defaults so that a broken database degrades translation quality instead
// of failing requests.
package store

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrWong99/lingvox/internal/lang"
)

// ErrNotFound is returned by reads when nothing is stored for the key.
var ErrNotFound = errors.New("store: not found")

// ErrInvalidTerm is returned when a term has an empty source or target after
// trimming.
var ErrInvalidTerm = errors.New("store: term source and target must not be empty")

// ExportTTL is how long a dictionary export code stays redeemable.
const ExportTTL = 24 * time.Hour

// Term is one dictionary substitution rule.
type Term struct {
	Source string `json:"source" db:"source_term"`
	Target string `json:"target" db:"target_term"`
}

// NormalizeTerm lowercases and trims the source and trims the target.
func NormalizeTerm(t Term) (Term, error) {
	t.Source = strings.ToLower(strings.TrimSpace(t.Source))
	t.Target = strings.TrimSpace(t.Target)
	if t.Source == "" || t.Target == "" {
		return Term{}, ErrInvalidTerm
	}
	return t, nil
}

// Mode controls how the bot reacts to chat messages.
type Mode string

const (
	// ModeAuto translates every message.
	ModeAuto Mode = "auto"
	// ModeInteractive replies with a translate button instead.
	ModeInteractive Mode = "interactive"
	// ModeManual only translates on explicit request.
	ModeManual Mode = "manual"
	// ModeOff ignores the chat.
	ModeOff Mode = "off"
)

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, bool) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeAuto, ModeInteractive, ModeManual, ModeOff:
		return m, true
	}
	return "", false
}

// Gender selects the voice used for speech synthesis.
type Gender string

const (
	Male   Gender = "male"
	Female Gender = "female"
)

// ParseGender validates a gender name.
func ParseGender(s string) (Gender, bool) {
	switch g := Gender(strings.ToLower(strings.TrimSpace(s))); g {
	case Male, Female:
		return g, true
	}
	return "", false
}

// Store is the persistence contract. Implementations must be safe for
// concurrent use. Reads of unset keys return [ErrNotFound].
type Store interface {
	Languages(ctx context.Context, chatID string) (lang.Pair, error)
	SetLanguages(ctx context.Context, chatID string, pair lang.Pair) error

	// Terms returns every term stored for the chat and language pair key.
	Terms(ctx context.Context, chatID, pairKey string) ([]Term, error)
	// AddTerm inserts or replaces the term keyed by its normalised source.
	AddTerm(ctx context.Context, chatID, pairKey string, term Term) error
	// RemoveTerm deletes a term and reports whether it existed.
	RemoveTerm(ctx context.Context, chatID, pairKey, source string) (bool, error)

	VoicePreset(ctx context.Context, chatID, language string, gender Gender) (string, error)
	SetVoicePreset(ctx context.Context, chatID, language string, gender Gender, speaker string) error

	Mode(ctx context.Context, chatID string) (Mode, error)
	SetMode(ctx context.Context, chatID string, mode Mode) error
	VoiceGender(ctx context.Context, chatID string) (Gender, error)
	SetVoiceGender(ctx context.Context, chatID string, gender Gender) error

	// CreateExport stores payload under a fresh export code.
	CreateExport(ctx context.Context, payload string) (string, error)
	// Export returns the payload for code (case-insensitive) and purges
	// expired exports. Expired or unknown codes yield [ErrNotFound].
	Export(ctx context.Context, code string) (string, error)

	Ping(ctx context.Context) error
	Close() error
}

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewExportCode returns a random code of the form DICT-XXXXXX.
func NewExportCode() (string, error) {
	var buf [6]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("store: export code: %w", err)
	}
	var sb strings.Builder
	sb.WriteString("DICT-")
	for _, b := range buf {
		sb.WriteByte(codeAlphabet[int(b)%len(codeAlphabet)])
	}
	return sb.String(), nil
}

// NormalizeCode trims and uppercases a user supplied export code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// NormalizeVoiceKey lowercases the language and gender of a preset key.
func NormalizeVoiceKey(language string, gender Gender) (string, Gender) {
	return strings.ToLower(strings.TrimSpace(language)), Gender(strings.ToLower(strings.TrimSpace(string(gender))))
}
