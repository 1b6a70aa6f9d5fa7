package translate

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/MrWong99/lingvox/internal/lang"
	"github.com/MrWong99/lingvox/internal/resilience"
	"github.com/MrWong99/lingvox/internal/store"
	"github.com/MrWong99/lingvox/internal/store/memory"
	"github.com/MrWong99/lingvox/internal/workpool"
	"github.com/MrWong99/lingvox/pkg/provider/translation"
	translationmock "github.com/MrWong99/lingvox/pkg/provider/translation/mock"
)

type fixture struct {
	orch      *Orchestrator
	guard     *store.Guard
	primary   *translationmock.Provider
	secondary *translationmock.Provider
}

func newFixture(t *testing.T, primary, secondary *translationmock.Provider) fixture {
	t.Helper()
	pool := workpool.New(2)
	t.Cleanup(pool.Close)

	chain := resilience.NewTranslationFallback(resilience.FallbackConfig{})
	chain.Add("llm", primary)
	chain.Add("google", secondary)

	guard := store.NewGuard(memory.New())
	return fixture{
		orch:      New(guard, chain, pool),
		guard:     guard,
		primary:   primary,
		secondary: secondary,
	}
}

func requests(p *translationmock.Provider) []translation.Request {
	return slices.Clone(p.Calls)
}

func TestTranslate_DictionaryTextReachesProvider(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	primary := &translationmock.Provider{Func: func(req translation.Request) (string, error) {
		return "RU(" + req.Text + ")", nil
	}}
	f := newFixture(t, primary, &translationmock.Provider{})

	if !f.guard.SetLanguages(ctx, "chat", lang.Pair{Primary: "ru", Secondary: "en"}) {
		t.Fatal("SetLanguages failed")
	}
	if !f.guard.AddTerm(ctx, "chat", "en-ru", store.Term{Source: "foo", Target: "bar"}) {
		t.Fatal("AddTerm failed")
	}

	got, ok := f.orch.Translate(ctx, "This is foo test", "chat")
	if !ok {
		t.Fatal("Translate reported failure")
	}
	if got != "RU(This is bar test)" {
		t.Fatalf("Translate = %q, want %q", got, "RU(This is bar test)")
	}

	want := []translation.Request{
		{Text: "This is foo test", Source: translation.AutoDetect, Target: "ru"},
		{Text: "This is bar test", Source: translation.AutoDetect, Target: "ru"},
	}
	if calls := requests(primary); !slices.Equal(calls, want) {
		t.Fatalf("provider calls = %+v, want %+v", calls, want)
	}
}

func TestTranslate_DefaultPairAndCyrillicShortcut(t *testing.T) {
	t.Parallel()
	primary := &translationmock.Provider{Results: map[string]string{"en": "Hello world"}}
	f := newFixture(t, primary, &translationmock.Provider{})

	got, ok := f.orch.Translate(context.Background(), "Привет мир", "never-configured")
	if !ok || got != "Hello world" {
		t.Fatalf("Translate = %q, %v; want Hello world, true", got, ok)
	}
	if primary.CallCount() != 1 {
		t.Fatalf("provider calls = %d, want 1", primary.CallCount())
	}
	if primary.Calls[0].Target != "en" {
		t.Fatalf("target = %q, want en", primary.Calls[0].Target)
	}
}

func TestTranslate_ProbeReusedWhenDictionaryIdle(t *testing.T) {
	t.Parallel()
	primary := &translationmock.Provider{Results: map[string]string{"ru": "Привет мир"}}
	f := newFixture(t, primary, &translationmock.Provider{})

	got, ok := f.orch.Translate(context.Background(), "Hello world", "chat")
	if !ok || got != "Привет мир" {
		t.Fatalf("Translate = %q, %v; want Привет мир, true", got, ok)
	}
	if primary.CallCount() != 1 {
		t.Fatalf("provider calls = %d, want 1", primary.CallCount())
	}
}

func TestTranslate_BlankInputSkipsProviders(t *testing.T) {
	t.Parallel()
	primary := &translationmock.Provider{}
	f := newFixture(t, primary, &translationmock.Provider{})

	for _, in := range []string{"", "   ", "\n\t"} {
		if got, ok := f.orch.Translate(context.Background(), in, "chat"); ok || got != "" {
			t.Fatalf("Translate(%q) = %q, %v; want empty, false", in, got, ok)
		}
	}
	if primary.CallCount() != 0 {
		t.Fatalf("provider calls = %d, want 0", primary.CallCount())
	}
}

func TestTranslate_FallbackProviderAnswers(t *testing.T) {
	t.Parallel()
	primary := &translationmock.Provider{Err: errors.New("llm down")}
	secondary := &translationmock.Provider{Results: map[string]string{"en": "Good morning"}}
	f := newFixture(t, primary, secondary)

	got, ok := f.orch.Translate(context.Background(), "Доброе утро", "chat")
	if !ok || got != "Good morning" {
		t.Fatalf("Translate = %q, %v; want Good morning, true", got, ok)
	}
	if primary.CallCount() != 1 || secondary.CallCount() != 1 {
		t.Fatalf("calls = %d/%d, want 1/1", primary.CallCount(), secondary.CallCount())
	}
}

func TestTranslate_AllProvidersFail(t *testing.T) {
	t.Parallel()
	f := newFixture(t,
		&translationmock.Provider{Err: errors.New("llm down")},
		&translationmock.Provider{Err: errors.New("google down")},
	)

	got, ok := f.orch.Translate(context.Background(), "Hello", "chat")
	if ok || got != "" {
		t.Fatalf("Translate = %q, %v; want empty, false", got, ok)
	}
}

func TestTranslatePair_OverridesStoredPair(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	primary := &translationmock.Provider{Results: map[string]string{"de": "Guten Tag"}}
	f := newFixture(t, primary, &translationmock.Provider{})

	got, ok := f.orch.TranslatePair(ctx, "Good day", "", lang.Pair{Primary: "de", Secondary: "en"})
	if !ok || got != "Guten Tag" {
		t.Fatalf("TranslatePair = %q, %v; want Guten Tag, true", got, ok)
	}
	if primary.Calls[0].Target != "de" {
		t.Fatalf("probe target = %q, want de", primary.Calls[0].Target)
	}
}
