package discord

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/MrWong99/lingvox/internal/lang"
	"github.com/MrWong99/lingvox/internal/pending"
	"github.com/MrWong99/lingvox/internal/store"
	"github.com/MrWong99/lingvox/internal/store/memory"
	"github.com/MrWong99/lingvox/internal/synth"
)

type sentReply struct {
	chatID, messageID, content, button string
}

type fakeMessenger struct {
	mu      sync.Mutex
	replies []sentReply
	err     error
}

func (f *fakeMessenger) Reply(_ context.Context, chatID, messageID, content, button string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.replies = append(f.replies, sentReply{chatID, messageID, content, button})
	return "bot-" + messageID, nil
}

type fakeTranslator struct {
	mu    sync.Mutex
	fn    func(text string) (string, bool)
	texts []string
}

func (f *fakeTranslator) Translate(_ context.Context, text, _ string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	return f.fn(text)
}

type fakeTranscriber struct {
	text  string
	ok    bool
	paths []string
}

func (f *fakeTranscriber) Transcribe(_ context.Context, path string) (string, bool) {
	f.paths = append(f.paths, path)
	data, err := os.ReadFile(path)
	if err != nil || len(data) == 0 {
		return "", false
	}
	return f.text, f.ok
}

type fakeSynth struct {
	dir  string
	ok   bool
	reqs []synth.Request
}

func (f *fakeSynth) Synthesize(_ context.Context, req synth.Request) (string, bool) {
	f.reqs = append(f.reqs, req)
	if !f.ok {
		return "", false
	}
	p := filepath.Join(f.dir, "speech.mp3")
	os.WriteFile(p, []byte("audio"), 0o600)
	return p, true
}

func (f *fakeSynth) Format() string { return "mp3" }

type harness struct {
	h       *Handler
	guard   *store.Guard
	tr      *fakeTranslator
	stt     *fakeTranscriber
	synth   *fakeSynth
	pending *pending.Memory
	out     *fakeMessenger
	tempDir string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	x := &harness{
		guard: store.NewGuard(memory.New()),
		tr: &fakeTranslator{fn: func(text string) (string, bool) {
			return "EN(" + text + ")", true
		}},
		stt:     &fakeTranscriber{text: "привет мир", ok: true},
		synth:   &fakeSynth{dir: t.TempDir(), ok: true},
		pending: pending.NewMemory(),
		out:     &fakeMessenger{},
		tempDir: t.TempDir(),
	}
	x.h = NewHandler(x.tr, x.stt, x.synth, x.guard, x.pending, WithTempDir(x.tempDir))
	return x
}

func (x *harness) setMode(t *testing.T, chatID string, m store.Mode) {
	t.Helper()
	if !x.guard.SetMode(context.Background(), chatID, m) {
		t.Fatal("SetMode failed")
	}
}

func voiceServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("OggS-voice"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHandleMessage_AutoTranslates(t *testing.T) {
	t.Parallel()
	x := newHarness(t)

	x.h.HandleMessage(context.Background(), Message{ChatID: "c", ID: "m1", Content: "привет"}, x.out)

	if len(x.out.replies) != 1 {
		t.Fatalf("replies = %d, want 1", len(x.out.replies))
	}
	got := x.out.replies[0]
	want := sentReply{"c", "m1", "||EN(привет)||", ButtonSpeak}
	if got != want {
		t.Errorf("reply = %+v, want %+v", got, want)
	}
}

func TestHandleMessage_Skips(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		mode  store.Mode
		msg   Message
		trans func(string) (string, bool)
	}{
		{name: "off mode", mode: store.ModeOff, msg: Message{ChatID: "c", ID: "1", Content: "hi"}},
		{name: "manual mode", mode: store.ModeManual, msg: Message{ChatID: "c", ID: "1", Content: "hi"}},
		{name: "bot author", mode: store.ModeAuto, msg: Message{ChatID: "c", ID: "1", Content: "hi", FromBot: true}},
		{name: "no word characters", mode: store.ModeAuto, msg: Message{ChatID: "c", ID: "1", Content: "👍 !!! ..."}},
		{
			name:  "translation identical to source",
			mode:  store.ModeAuto,
			msg:   Message{ChatID: "c", ID: "1", Content: "OK"},
			trans: func(string) (string, bool) { return "ok", true },
		},
		{
			name:  "translation failed",
			mode:  store.ModeAuto,
			msg:   Message{ChatID: "c", ID: "1", Content: "hello"},
			trans: func(string) (string, bool) { return "", false },
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			x := newHarness(t)
			if tc.trans != nil {
				x.tr.fn = tc.trans
			}
			x.setMode(t, "c", tc.mode)

			x.h.HandleMessage(context.Background(), tc.msg, x.out)
			if len(x.out.replies) != 0 {
				t.Errorf("replies = %+v, want none", x.out.replies)
			}
		})
	}
}

func TestHandleMessage_InteractiveText(t *testing.T) {
	t.Parallel()
	x := newHarness(t)
	x.setMode(t, "c", store.ModeInteractive)

	x.h.HandleMessage(context.Background(), Message{ChatID: "c", ID: "m1", Content: "hello"}, x.out)

	if len(x.out.replies) != 1 || x.out.replies[0].button != ButtonTranslate {
		t.Fatalf("replies = %+v, want one translate button", x.out.replies)
	}
	if len(x.tr.texts) != 0 {
		t.Errorf("translator called %d times, want 0", len(x.tr.texts))
	}

	got, err := x.h.TranslateButton(context.Background(), "c", "bot-m1", x.out.replies[0].content, "hello")
	if err != nil {
		t.Fatalf("TranslateButton: %v", err)
	}
	if got != "EN(hello)" {
		t.Errorf("content = %q, want EN(hello)", got)
	}
}

func TestHandleMessage_VoiceAuto(t *testing.T) {
	t.Parallel()
	x := newHarness(t)
	srv := voiceServer(t)

	x.h.HandleMessage(context.Background(), Message{
		ChatID:      "c",
		ID:          "m1",
		Attachments: []Attachment{{URL: srv.URL + "/voice-message.ogg", Filename: "voice-message.ogg", ContentType: "audio/ogg"}},
	}, x.out)

	if len(x.out.replies) != 1 {
		t.Fatalf("replies = %d, want 1", len(x.out.replies))
	}
	want := "🎤 *привет мир*\n||EN(привет мир)||"
	if got := x.out.replies[0].content; got != want {
		t.Errorf("content = %q, want %q", got, want)
	}
	if len(x.stt.paths) != 1 {
		t.Fatalf("transcriber calls = %d, want 1", len(x.stt.paths))
	}
	if _, err := os.Stat(x.stt.paths[0]); !os.IsNotExist(err) {
		t.Errorf("voice note %q not removed", x.stt.paths[0])
	}
}

func TestHandleMessage_VoiceInteractiveStoresPending(t *testing.T) {
	t.Parallel()
	x := newHarness(t)
	x.setMode(t, "c", store.ModeInteractive)
	srv := voiceServer(t)

	x.h.HandleMessage(context.Background(), Message{
		ChatID:      "c",
		ID:          "m1",
		Attachments: []Attachment{{URL: srv.URL, Filename: "note.ogg"}},
	}, x.out)

	key := pending.Key{ChatID: "c", MessageID: "bot-m1"}
	if text, ok := x.pending.Get(key); !ok || text != "привет мир" {
		t.Fatalf("pending = %q, %v", text, ok)
	}

	got, err := x.h.TranslateButton(context.Background(), "c", "bot-m1", voiceMarker, "")
	if err != nil {
		t.Fatalf("TranslateButton: %v", err)
	}
	if want := "🎤 *привет мир*\nEN(привет мир)"; got != want {
		t.Errorf("content = %q, want %q", got, want)
	}
	if x.pending.Len() != 0 {
		t.Error("pending transcription not removed after translation")
	}
}

func TestHandleMessage_VoiceDownloadFails(t *testing.T) {
	t.Parallel()
	x := newHarness(t)
	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)

	x.h.HandleMessage(context.Background(), Message{
		ChatID:      "c",
		ID:          "m1",
		Attachments: []Attachment{{URL: srv.URL, Filename: "note.ogg"}},
	}, x.out)

	if len(x.out.replies) != 0 || len(x.stt.paths) != 0 {
		t.Errorf("replies = %d, transcriptions = %d, want none", len(x.out.replies), len(x.stt.paths))
	}
}

func TestTranslateButton(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("nothing found", func(t *testing.T) {
		t.Parallel()
		x := newHarness(t)
		if _, err := x.h.TranslateButton(ctx, "c", "b", textMarker, ""); !errors.Is(err, ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})

	t.Run("translation fails keeps pending", func(t *testing.T) {
		t.Parallel()
		x := newHarness(t)
		x.tr.fn = func(string) (string, bool) { return "", false }
		x.pending.Put(pending.Key{ChatID: "c", MessageID: "b"}, "текст")
		if _, err := x.h.TranslateButton(ctx, "c", "b", voiceMarker, ""); !errors.Is(err, ErrFailed) {
			t.Errorf("err = %v, want ErrFailed", err)
		}
		if x.pending.Len() != 1 {
			t.Error("pending transcription dropped on failure")
		}
	})

	t.Run("transcription shown in message", func(t *testing.T) {
		t.Parallel()
		x := newHarness(t)
		got, err := x.h.TranslateButton(ctx, "c", "b", "🎤 *добрый\\_день*", "")
		if err != nil {
			t.Fatal(err)
		}
		if x.tr.texts[0] != "добрый_день" {
			t.Errorf("translated %q, want добрый_день", x.tr.texts[0])
		}
		if !strings.HasSuffix(got, "\nEN(добрый_день)") {
			t.Errorf("content = %q", got)
		}
	})
}

func TestSpeakButton(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	tests := []struct {
		name     string
		pair     lang.Pair
		content  string
		wantText string
		wantLang string
	}{
		{"spoiler translation", lang.Pair{Primary: "ru", Secondary: "en"}, "||Hello there||", "Hello there", "en"},
		{"voice note uses last line", lang.Pair{Primary: "ru", Secondary: "en"}, "🎤 *Hello*\n||Привет||", "Привет", "ru"},
		{"cyrillic secondary", lang.Pair{Primary: "de", Secondary: "uk"}, "||Привіт||", "Привіт", "uk"},
		{"latin without english", lang.Pair{Primary: "ru", Secondary: "de"}, "Guten Tag", "Guten Tag", "de"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			x := newHarness(t)
			x.guard.SetLanguages(ctx, "c", tc.pair)

			path, err := x.h.SpeakButton(ctx, "c", tc.content)
			if err != nil {
				t.Fatalf("SpeakButton: %v", err)
			}
			if path == "" {
				t.Fatal("empty path")
			}
			req := x.synth.reqs[0]
			if req.Text != tc.wantText || req.Language != tc.wantLang || req.ChatID != "c" {
				t.Errorf("request = %+v, want text %q lang %q", req, tc.wantText, tc.wantLang)
			}
		})
	}

	t.Run("failure", func(t *testing.T) {
		t.Parallel()
		x := newHarness(t)
		x.synth.ok = false
		if _, err := x.h.SpeakButton(ctx, "c", "hello"); !errors.Is(err, ErrFailed) {
			t.Errorf("err = %v, want ErrFailed", err)
		}
		if _, err := x.h.SpeakButton(ctx, "c", voiceMarker); !errors.Is(err, ErrNotFound) {
			t.Errorf("empty content err = %v, want ErrNotFound", err)
		}
	})
}

func TestAttachment_IsAudio(t *testing.T) {
	t.Parallel()
	tests := []struct {
		a    Attachment
		want bool
	}{
		{Attachment{ContentType: "audio/ogg"}, true},
		{Attachment{Filename: "voice-message.OGG"}, true},
		{Attachment{Filename: "clip.m4a", ContentType: "application/octet-stream"}, true},
		{Attachment{Filename: "photo.png", ContentType: "image/png"}, false},
		{Attachment{Filename: "noext"}, false},
	}
	for _, tc := range tests {
		if got := tc.a.IsAudio(); got != tc.want {
			t.Errorf("IsAudio(%+v) = %v, want %v", tc.a, got, tc.want)
		}
	}
}

func TestDownloader_Fetch(t *testing.T) {
	t.Parallel()
	srv := voiceServer(t)
	dir := t.TempDir()

	d := NewDownloader(5)
	path := filepath.Join(dir, "a.ogg")
	if err := d.Fetch(context.Background(), Attachment{URL: srv.URL, Size: 100}, path); !errors.Is(err, ErrTooLarge) {
		t.Errorf("declared size: err = %v, want ErrTooLarge", err)
	}
	if err := d.Fetch(context.Background(), Attachment{URL: srv.URL}, path); !errors.Is(err, ErrTooLarge) {
		t.Errorf("actual size: err = %v, want ErrTooLarge", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("partial download left behind")
	}

	if err := NewDownloader(0).Fetch(context.Background(), Attachment{URL: srv.URL}, path); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if data, _ := os.ReadFile(path); string(data) != "OggS-voice" {
		t.Errorf("downloaded %q", data)
	}
}
