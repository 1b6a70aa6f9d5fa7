package store

import (
	"context"
	"errors"
	"log/slog"

	"github.com/MrWong99/lingvox/internal/lang"
)

// Guard wraps a [Store] with default-on-miss reads and boolean writes.
// Storage errors are logged and never returned.
type Guard struct {
	s Store
}

// NewGuard returns a Guard over s.
func NewGuard(s Store) *Guard {
	return &Guard{s: s}
}

// Store returns the wrapped store.
func (g *Guard) Store() Store { return g.s }

func logErr(op, chatID string, err error) {
	if errors.Is(err, ErrNotFound) {
		return
	}
	slog.Warn("store: operation failed", "op", op, "chat_id", chatID, "err", err)
}

// Languages returns the chat's pair or the ru/en default.
func (g *Guard) Languages(ctx context.Context, chatID string) lang.Pair {
	if chatID == "" {
		return lang.DefaultPair()
	}
	p, err := g.s.Languages(ctx, chatID)
	if err != nil || p.Primary == "" || p.Secondary == "" {
		if err != nil {
			logErr("languages", chatID, err)
		}
		return lang.DefaultPair()
	}
	return p
}

// SetLanguages stores the chat's pair.
func (g *Guard) SetLanguages(ctx context.Context, chatID string, p lang.Pair) bool {
	if err := g.s.SetLanguages(ctx, chatID, p); err != nil {
		logErr("set_languages", chatID, err)
		return false
	}
	return true
}

// Terms returns the chat's terms for pairKey, or nil.
func (g *Guard) Terms(ctx context.Context, chatID, pairKey string) []Term {
	if chatID == "" {
		return nil
	}
	terms, err := g.s.Terms(ctx, chatID, pairKey)
	if err != nil {
		logErr("terms", chatID, err)
		return nil
	}
	return terms
}

// AddTerm stores one term.
func (g *Guard) AddTerm(ctx context.Context, chatID, pairKey string, t Term) bool {
	if err := g.s.AddTerm(ctx, chatID, pairKey, t); err != nil {
		logErr("add_term", chatID, err)
		return false
	}
	return true
}

// RemoveTerm deletes one term and reports whether a row was removed.
func (g *Guard) RemoveTerm(ctx context.Context, chatID, pairKey, source string) bool {
	ok, err := g.s.RemoveTerm(ctx, chatID, pairKey, source)
	if err != nil {
		logErr("remove_term", chatID, err)
		return false
	}
	return ok
}

// VoicePreset returns the chat's speaker for language and gender, or "".
func (g *Guard) VoicePreset(ctx context.Context, chatID, language string, gender Gender) string {
	if chatID == "" {
		return ""
	}
	speaker, err := g.s.VoicePreset(ctx, chatID, language, gender)
	if err != nil {
		logErr("voice_preset", chatID, err)
		return ""
	}
	return speaker
}

// SetVoicePreset stores a speaker preset.
func (g *Guard) SetVoicePreset(ctx context.Context, chatID, language string, gender Gender, speaker string) bool {
	if err := g.s.SetVoicePreset(ctx, chatID, language, gender, speaker); err != nil {
		logErr("set_voice_preset", chatID, err)
		return false
	}
	return true
}

// Mode returns the chat mode, defaulting to [ModeAuto].
func (g *Guard) Mode(ctx context.Context, chatID string) Mode {
	m, err := g.s.Mode(ctx, chatID)
	if err != nil {
		logErr("mode", chatID, err)
		return ModeAuto
	}
	return m
}

// SetMode stores the chat mode.
func (g *Guard) SetMode(ctx context.Context, chatID string, m Mode) bool {
	if err := g.s.SetMode(ctx, chatID, m); err != nil {
		logErr("set_mode", chatID, err)
		return false
	}
	return true
}

// VoiceGender returns the chat's voice gender, defaulting to [Male].
func (g *Guard) VoiceGender(ctx context.Context, chatID string) Gender {
	v, err := g.s.VoiceGender(ctx, chatID)
	if err != nil {
		logErr("voice_gender", chatID, err)
		return Male
	}
	return v
}

// SetVoiceGender stores the chat's voice gender.
func (g *Guard) SetVoiceGender(ctx context.Context, chatID string, v Gender) bool {
	if err := g.s.SetVoiceGender(ctx, chatID, v); err != nil {
		logErr("set_voice_gender", chatID, err)
		return false
	}
	return true
}

// CreateExport stores payload and returns its code, or "" on failure.
func (g *Guard) CreateExport(ctx context.Context, payload string) string {
	code, err := g.s.CreateExport(ctx, payload)
	if err != nil {
		logErr("create_export", "", err)
		return ""
	}
	return code
}

// Export returns the payload stored under code, or "".
func (g *Guard) Export(ctx context.Context, code string) string {
	payload, err := g.s.Export(ctx, code)
	if err != nil {
		logErr("export", "", err)
		return ""
	}
	return payload
}
