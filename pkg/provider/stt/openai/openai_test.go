package openai

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/MrWong99/lingvox/pkg/provider/stt"
)

type seen struct {
	path, auth, model, language, filename string
	data                                  []byte
}

func newServer(t *testing.T, status int, body string, got *seen) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.path = r.URL.Path
		got.auth = r.Header.Get("Authorization")
		if err := r.ParseMultipartForm(1 << 20); err == nil {
			got.model = r.FormValue("model")
			got.language = r.FormValue("language")
			if f, hdr, err := r.FormFile("file"); err == nil {
				got.filename = hdr.Filename
				got.data, _ = io.ReadAll(f)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func audioFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "voice.ogg")
	if err := os.WriteFile(path, []byte("OggS"), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNew_EmptyAPIKey(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Fatal("expected error for empty api key")
	}
}

func TestTranscribe(t *testing.T) {
	var got seen
	srv := newServer(t, http.StatusOK, `{"text": " Добрый день "}`, &got)
	p, err := New("gsk-test", WithBaseURL(srv.URL+"/openai/v1"), WithMaxRetries(0))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	text, err := p.Transcribe(context.Background(), stt.Request{Path: audioFile(t), Language: "ru"})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if text != "Добрый день" {
		t.Errorf("Transcribe = %q", text)
	}
	if got.path != "/openai/v1/audio/transcriptions" {
		t.Errorf("path = %q", got.path)
	}
	if got.auth != "Bearer gsk-test" {
		t.Errorf("auth = %q", got.auth)
	}
	if got.model != DefaultModel || got.language != "ru" {
		t.Errorf("model=%q language=%q", got.model, got.language)
	}
	if string(got.data) != "OggS" {
		t.Errorf("uploaded %q", got.data)
	}
}

func TestTranscribe_NoLanguageHint(t *testing.T) {
	var got seen
	srv := newServer(t, http.StatusOK, `{"text": "hi"}`, &got)
	p, _ := New("sk-test", WithBaseURL(srv.URL), WithModel("whisper-1"), WithMaxRetries(0))

	if _, err := p.Transcribe(context.Background(), stt.Request{Path: audioFile(t)}); err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if got.language != "" || got.model != "whisper-1" {
		t.Errorf("language=%q model=%q", got.language, got.model)
	}
}

func TestTranscribe_ServerError(t *testing.T) {
	var got seen
	srv := newServer(t, http.StatusInternalServerError, `{"error": {"message": "boom"}}`, &got)
	p, _ := New("sk-test", WithBaseURL(srv.URL), WithMaxRetries(0))

	if _, err := p.Transcribe(context.Background(), stt.Request{Path: audioFile(t)}); err == nil {
		t.Fatal("expected error")
	}
}

func TestTranscribe_MissingFile(t *testing.T) {
	p, _ := New("sk-test", WithBaseURL("http://127.0.0.1:1"))
	if _, err := p.Transcribe(context.Background(), stt.Request{Path: "/nope.ogg"}); err == nil {
		t.Fatal("expected error for missing file")
	}
}
