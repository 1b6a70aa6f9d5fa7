package google

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MrWong99/lingvox/pkg/provider/translation"
)

func TestParseSingle(t *testing.T) {
	t.Parallel()
	body := `[[["Привет. ","Hello. ",null,null,10],["Как дела?","How are you?",null,null,10]],null,"en"]`
	got, err := parseSingle([]byte(body))
	if err != nil {
		t.Fatalf("parseSingle: %v", err)
	}
	if got != "Привет. Как дела?" {
		t.Errorf("parseSingle = %q", got)
	}
}

func TestParseSingle_Invalid(t *testing.T) {
	t.Parallel()
	for _, body := range []string{`{}`, `[]`, `not json`, `["x"]`} {
		if _, err := parseSingle([]byte(body)); err == nil {
			t.Errorf("parseSingle(%q): expected error", body)
		}
	}
}

func TestTranslate(t *testing.T) {
	t.Parallel()
	var gotQuery map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != singleEndpoint {
			http.NotFound(w, r)
			return
		}
		q := r.URL.Query()
		gotQuery = map[string]string{"sl": q.Get("sl"), "tl": q.Get("tl"), "q": q.Get("q"), "client": q.Get("client")}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[[["Guten Morgen","Good morning",null,null,1]],null,"en"]`))
	}))
	defer srv.Close()

	p := New(WithBaseURL(srv.URL))
	got, err := p.Translate(context.Background(), translation.Request{Text: "Good morning", Target: "de"})
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if got != "Guten Morgen" {
		t.Errorf("Translate = %q", got)
	}
	want := map[string]string{"sl": "auto", "tl": "de", "q": "Good morning", "client": "gtx"}
	for k, v := range want {
		if gotQuery[k] != v {
			t.Errorf("query %s = %q, want %q", k, gotQuery[k], v)
		}
	}
}

func TestTranslate_Errors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusTooManyRequests, "slow down"},
		{"empty translation", http.StatusOK, `[[["","x",null,null,1]],null,"en"]`},
		{"garbage", http.StatusOK, `<html></html>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			if _, err := New(WithBaseURL(srv.URL)).Translate(context.Background(), translation.Request{Text: "x", Target: "en"}); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestTranslate_TooLong(t *testing.T) {
	t.Parallel()
	p := New(WithBaseURL("http://127.0.0.1:1"))
	_, err := p.Translate(context.Background(), translation.Request{Text: strings.Repeat("я", MaxLength+1), Target: "en"})
	if !errors.Is(err, ErrTooLong) {
		t.Fatalf("err = %v, want ErrTooLong", err)
	}
}
