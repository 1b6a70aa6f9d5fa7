package memory

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/MrWong99/lingvox/internal/lang"
	"github.com/MrWong99/lingvox/internal/store"
)

var codeRe = regexp.MustCompile(`^DICT-[A-Z0-9]{6}$`)

func TestStore_Terms(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := New()

	if err := s.AddTerm(ctx, "c1", "en-ru", store.Term{Source: "  Ян ", Target: " Ian "}); err != nil {
		t.Fatalf("AddTerm: %v", err)
	}
	if err := s.AddTerm(ctx, "c1", "en-ru", store.Term{Source: "ЯН", Target: "Yan"}); err != nil {
		t.Fatalf("AddTerm replace: %v", err)
	}
	if err := s.AddTerm(ctx, "c1", "de-ru", store.Term{Source: "ян", Target: "Jan"}); err != nil {
		t.Fatalf("AddTerm other pair: %v", err)
	}
	if err := s.AddTerm(ctx, "c1", "en-ru", store.Term{Source: " ", Target: "x"}); !errors.Is(err, store.ErrInvalidTerm) {
		t.Fatalf("AddTerm blank source err = %v, want ErrInvalidTerm", err)
	}

	terms, err := s.Terms(ctx, "c1", "en-ru")
	if err != nil {
		t.Fatalf("Terms: %v", err)
	}
	if len(terms) != 1 || terms[0] != (store.Term{Source: "ян", Target: "Yan"}) {
		t.Fatalf("Terms = %+v, want [{ян Yan}]", terms)
	}

	removed, err := s.RemoveTerm(ctx, "c1", "en-ru", " ЯН")
	if err != nil || !removed {
		t.Fatalf("RemoveTerm = %v, %v; want true, nil", removed, err)
	}
	removed, _ = s.RemoveTerm(ctx, "c1", "en-ru", "ян")
	if removed {
		t.Fatal("second RemoveTerm reported a removal")
	}
	if terms, _ := s.Terms(ctx, "c1", "de-ru"); len(terms) != 1 {
		t.Fatalf("other pair terms = %+v, want one", terms)
	}
}

func TestStore_SettingsNotFound(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := New()

	if _, err := s.Languages(ctx, "c"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Languages err = %v, want ErrNotFound", err)
	}
	if _, err := s.Mode(ctx, "c"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Mode err = %v, want ErrNotFound", err)
	}
	_ = s.SetLanguages(ctx, "c", lang.Pair{Primary: "uk", Secondary: "de"})
	p, err := s.Languages(ctx, "c")
	if err != nil || p.Primary != "uk" || p.Secondary != "de" {
		t.Fatalf("Languages = %+v, %v", p, err)
	}
}

func TestStore_VoicePresetCaseInsensitive(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	s := New()
	_ = s.SetVoicePreset(ctx, "c", "RU", "Female", "baya")

	got, err := s.VoicePreset(ctx, "c", "ru", store.Female)
	if err != nil || got != "baya" {
		t.Fatalf("VoicePreset = %q, %v; want baya", got, err)
	}
}

func TestStore_ExportRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s := New(WithClock(func() time.Time { return now }))

	code, err := s.CreateExport(ctx, `[["foo","bar"]]`)
	if err != nil {
		t.Fatalf("CreateExport: %v", err)
	}
	if !codeRe.MatchString(code) {
		t.Fatalf("code = %q, want DICT-XXXXXX", code)
	}

	got, err := s.Export(ctx, " "+code[:5]+lowerASCII(code[5:])+" ")
	if err != nil || got != `[["foo","bar"]]` {
		t.Fatalf("Export = %q, %v", got, err)
	}

	now = now.Add(store.ExportTTL + time.Minute)
	if _, err := s.Export(ctx, code); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Export after expiry err = %v, want ErrNotFound", err)
	}
	if len(s.exports) != 0 {
		t.Fatalf("expired export not purged: %d rows", len(s.exports))
	}
}

func lowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + 'a' - 'A'
		}
	}
	return string(b)
}
