package elevenlabs

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/coder/websocket"

	"github.com/MrWong99/lingvox/pkg/provider/tts"
)

// fakeStream is a WebSocket server that records the text messages it
// receives and answers with the configured responses.
type fakeStream struct {
	responses []audioResponse

	mu       sync.Mutex
	received []textMessage
	query    string
	path     string
}

func (f *fakeStream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	defer conn.CloseNow()

	f.mu.Lock()
	f.query = r.URL.RawQuery
	f.path = r.URL.Path
	f.mu.Unlock()

	ctx := r.Context()
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		var m textMessage
		_ = json.Unmarshal(data, &m)
		f.mu.Lock()
		f.received = append(f.received, m)
		f.mu.Unlock()
		if m.Text == "" {
			break
		}
	}
	for _, resp := range f.responses {
		data, _ := json.Marshal(resp)
		if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
			return
		}
	}
	// Wait for the client to hang up.
	_, _, _ = conn.Read(ctx)
}

func pcmChunk(samples ...int16) string {
	b := make([]byte, 2*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(b[2*i:], uint16(s))
	}
	return base64.StdEncoding.EncodeToString(b)
}

func newTestProvider(t *testing.T, f *fakeStream, opts ...Option) *Provider {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	opts = append([]Option{WithBaseURL("ws" + strings.TrimPrefix(srv.URL, "http"))}, opts...)
	p, err := New("key-123", "voice-abc", opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()
	if _, err := New("", "voice"); err == nil {
		t.Error("expected error for empty api key")
	}
	if _, err := New("key", ""); err == nil {
		t.Error("expected error for empty voice id")
	}
	if _, err := New("key", "voice", WithOutputFormat("mp3_44100_128")); err == nil {
		t.Error("expected error for non-PCM output format")
	}
}

func TestNew_Defaults(t *testing.T) {
	t.Parallel()
	p, err := New("key", "voice")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.model != defaultModel || p.outputFormat != defaultOutputFmt || p.baseURL != defaultBaseURL {
		t.Errorf("defaults = %q %q %q", p.model, p.outputFormat, p.baseURL)
	}
}

func TestSampleRate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		format string
		want   int
		ok     bool
	}{
		{"pcm_16000", 16000, true},
		{"pcm_24000", 24000, true},
		{"pcm_", 0, false},
		{"pcm_abc", 0, false},
		{"mp3_44100", 0, false},
	}
	for _, tt := range tests {
		got, err := sampleRate(tt.format)
		if got != tt.want || (err == nil) != tt.ok {
			t.Errorf("sampleRate(%q) = %d, %v; want %d, ok=%v", tt.format, got, err, tt.want, tt.ok)
		}
	}
}

func TestSynthesize(t *testing.T) {
	t.Parallel()
	f := &fakeStream{responses: []audioResponse{
		{Audio: pcmChunk(1, 2)},
		{Audio: pcmChunk(3)},
		{IsFinal: true},
	}}
	p := newTestProvider(t, f)

	got, err := p.Synthesize(context.Background(), tts.Request{Text: "Hallo Welt", Language: "de"})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if got.SampleRate != 16000 || !slices.Equal(got.Samples, []int16{1, 2, 3}) {
		t.Errorf("audio = %d Hz %v, want 16000 Hz [1 2 3]", got.SampleRate, got.Samples)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.received) != 3 {
		t.Fatalf("messages = %d, want 3", len(f.received))
	}
	if f.received[0].XiAPIKey != "key-123" || f.received[0].Text != " " {
		t.Errorf("opening message = %+v", f.received[0])
	}
	if f.received[1].Text != "Hallo Welt " {
		t.Errorf("text message = %q", f.received[1].Text)
	}
	if f.path != "/v1/text-to-speech/voice-abc/stream-input" {
		t.Errorf("path = %q", f.path)
	}
	if !strings.Contains(f.query, "model_id=eleven_multilingual_v2") {
		t.Errorf("query = %q", f.query)
	}
}

func TestSynthesize_LanguageCodeForFlashModel(t *testing.T) {
	t.Parallel()
	f := &fakeStream{responses: []audioResponse{{Audio: pcmChunk(5), IsFinal: true}}}
	p := newTestProvider(t, f, WithModel("eleven_flash_v2_5"))

	if _, err := p.Synthesize(context.Background(), tts.Request{Text: "hola", Language: "es"}); err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if !strings.Contains(f.query, "language_code=es") {
		t.Errorf("query = %q, want language_code", f.query)
	}
}

func TestSynthesize_ServerError(t *testing.T) {
	t.Parallel()
	f := &fakeStream{responses: []audioResponse{{Error: "quota_exceeded", Message: "out of credits"}}}
	p := newTestProvider(t, f)

	_, err := p.Synthesize(context.Background(), tts.Request{Text: "hi", Language: "en"})
	if err == nil || !strings.Contains(err.Error(), "quota_exceeded") {
		t.Fatalf("err = %v, want quota error", err)
	}
}

func TestSynthesize_RestrictedLanguages(t *testing.T) {
	t.Parallel()
	p, err := New("key", "voice", WithLanguages("en", "de"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = p.Synthesize(context.Background(), tts.Request{Text: "hi", Language: "ja"})
	if !errors.Is(err, tts.ErrUnsupportedLanguage) {
		t.Fatalf("err = %v, want ErrUnsupportedLanguage", err)
	}
}

func TestSynthesize_EmptyText(t *testing.T) {
	t.Parallel()
	p, _ := New("key", "voice")
	if _, err := p.Synthesize(context.Background(), tts.Request{Text: " ", Language: "en"}); err == nil {
		t.Fatal("expected error for blank text")
	}
}
