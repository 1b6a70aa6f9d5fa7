package lazy

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func TestValue_ConcurrentFirstUseBuildsOnce(t *testing.T) {
	t.Parallel()
	var builds atomic.Int32
	v := New(func(context.Context) (*int, error) {
		builds.Add(1)
		n := 42
		return &n, nil
	})

	var wg sync.WaitGroup
	results := make([]*int, 16)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := v.Get(context.Background())
			if err != nil {
				t.Errorf("Get: %v", err)
			}
			results[i] = p
		}()
	}
	wg.Wait()

	if got := builds.Load(); got != 1 {
		t.Fatalf("builds = %d, want 1", got)
	}
	for i, p := range results {
		if p != results[0] {
			t.Fatalf("result %d is a different handle", i)
		}
	}
}

func TestValue_FailedInitIsRetried(t *testing.T) {
	t.Parallel()
	calls := 0
	v := New(func(context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("model file missing")
		}
		return "model", nil
	})

	if _, err := v.Get(context.Background()); err == nil {
		t.Fatal("expected first Get to fail")
	}
	if v.Loaded() {
		t.Fatal("failed init must not be cached")
	}
	got, err := v.Get(context.Background())
	if err != nil {
		t.Fatalf("second Get: %v", err)
	}
	if got != "model" {
		t.Fatalf("Get = %q, want model", got)
	}
}

func TestValue_Close(t *testing.T) {
	t.Parallel()
	v := New(func(context.Context) (string, error) { return "handle", nil })

	var released []string
	release := func(s string) error { released = append(released, s); return nil }

	if err := v.Close(release); err != nil {
		t.Fatalf("Close before load: %v", err)
	}
	if len(released) != 0 {
		t.Fatal("released a handle that was never built")
	}

	_, _ = v.Get(context.Background())
	if err := v.Close(release); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if len(released) != 1 || released[0] != "handle" {
		t.Fatalf("released = %v, want [handle]", released)
	}
	if v.Loaded() {
		t.Fatal("Loaded() = true after Close")
	}
}

func TestMap_PerKey(t *testing.T) {
	t.Parallel()
	var mu sync.Mutex
	builds := map[string]int{}
	m := NewMap(func(_ context.Context, lang string) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		builds[lang]++
		return "client-" + lang, nil
	})

	var wg sync.WaitGroup
	for range 8 {
		for _, lang := range []string{"ru", "en", "de"} {
			wg.Add(1)
			go func() {
				defer wg.Done()
				got, err := m.Get(context.Background(), lang)
				if err != nil || got != "client-"+lang {
					t.Errorf("Get(%q) = %q, %v", lang, got, err)
				}
			}()
		}
	}
	wg.Wait()

	for lang, n := range builds {
		if n != 1 {
			t.Errorf("builds[%q] = %d, want 1", lang, n)
		}
	}
	if m.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", m.Len())
	}

	if err := m.Close(nil); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if m.Len() != 0 {
		t.Fatalf("Len() after Close = %d, want 0", m.Len())
	}
}
