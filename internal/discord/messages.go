package discord

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/MrWong99/lingvox/internal/lang"
	"github.com/MrWong99/lingvox/internal/observe"
	"github.com/MrWong99/lingvox/internal/pending"
	"github.com/MrWong99/lingvox/internal/store"
	"github.com/MrWong99/lingvox/internal/synth"
	"github.com/MrWong99/lingvox/pkg/audio"
)

// Button custom IDs.
const (
	ButtonTranslate = "lingvox:translate"
	ButtonSpeak     = "lingvox:speak"
)

// Message prefixes. The zero-width space keeps Discord from collapsing a
// message that is only an emoji into a large emoji.
const (
	voicePrefix = "🎤"
	textMarker  = "📝\u200b"
	voiceMarker = "🎤\u200b"
)

var (
	// ErrNotFound is returned by the translate button when neither a pending
	// transcription nor the original message can be found.
	ErrNotFound = errors.New("discord: content expired or not found")

	// ErrFailed is returned when the underlying orchestrator gave no result.
	ErrFailed = errors.New("discord: operation failed")
)

var wordRe = regexp.MustCompile(`[\p{L}\p{N}_]`)

// Translator translates text with a chat's stored language pair.
// *translate.Orchestrator satisfies it.
type Translator interface {
	Translate(ctx context.Context, text, chatID string) (string, bool)
}

// Transcriber transcribes an audio file. *transcribe.Orchestrator satisfies
// it.
type Transcriber interface {
	Transcribe(ctx context.Context, path string) (string, bool)
}

// Synthesizer renders speech to a file. *synth.Orchestrator satisfies it.
type Synthesizer interface {
	Synthesize(ctx context.Context, req synth.Request) (string, bool)
	Format() string
}

// Settings is the per-chat state the message handler reads.
// *store.Guard satisfies it.
type Settings interface {
	Mode(ctx context.Context, chatID string) store.Mode
	Languages(ctx context.Context, chatID string) lang.Pair
}

// Messenger posts replies into a channel. The bot implements it over the
// Discord REST API.
type Messenger interface {
	// Reply posts content as a reply to messageID, with an optional button,
	// and returns the ID of the new message.
	Reply(ctx context.Context, chatID, messageID, content, button string) (string, error)
}

// Attachment is a file attached to a chat message.
type Attachment struct {
	URL         string
	Filename    string
	ContentType string
	Size        int64
}

// IsAudio reports whether the attachment looks like a voice note or audio
// file.
func (a Attachment) IsAudio() bool {
	if strings.HasPrefix(strings.ToLower(a.ContentType), "audio/") {
		return true
	}
	switch strings.ToLower(extension(a.Filename)) {
	case "ogg", "oga", "opus", "mp3", "wav", "m4a", "flac", "webm":
		return true
	}
	return false
}

// Message is an incoming chat message, detached from the Discord types.
type Message struct {
	ChatID      string
	ID          string
	Content     string
	FromBot     bool
	Attachments []Attachment
}

// Handler reacts to chat messages and to the translate and speak buttons.
type Handler struct {
	translator  Translator
	transcriber Transcriber
	synth       Synthesizer
	settings    Settings
	pending     pending.Store
	download    *Downloader
	tempDir     string
}

// HandlerOption configures a [Handler].
type HandlerOption func(*Handler)

// WithTempDir sets the directory for downloaded voice notes.
func WithTempDir(dir string) HandlerOption {
	return func(h *Handler) { h.tempDir = dir }
}

// WithDownloader replaces the attachment downloader.
func WithDownloader(d *Downloader) HandlerOption {
	return func(h *Handler) { h.download = d }
}

// NewHandler returns a Handler. pend stores transcriptions waiting for the
// translate button.
func NewHandler(tr Translator, stt Transcriber, sy Synthesizer, settings Settings, pend pending.Store, opts ...HandlerOption) *Handler {
	h := &Handler{
		translator:  tr,
		transcriber: stt,
		synth:       sy,
		settings:    settings,
		pending:     pend,
	}
	for _, o := range opts {
		o(h)
	}
	if h.download == nil {
		h.download = NewDownloader(0)
	}
	return h
}

// HandleMessage applies the chat's mode to one incoming message. Off and
// manual chats are ignored. Interactive chats get a translate button; auto
// chats get the translation with a speak button.
func (h *Handler) HandleMessage(ctx context.Context, m Message, out Messenger) {
	if m.FromBot || m.ChatID == "" {
		return
	}
	mode := h.settings.Mode(ctx, m.ChatID)
	if mode == store.ModeOff || mode == store.ModeManual {
		return
	}
	log := observe.Logger(ctx).With("chat_id", m.ChatID)

	for _, a := range m.Attachments {
		if a.IsAudio() {
			h.handleVoice(ctx, m, a, mode, out)
			return
		}
	}

	if !wordRe.MatchString(m.Content) {
		return
	}

	if mode == store.ModeInteractive {
		if _, err := out.Reply(ctx, m.ChatID, m.ID, textMarker, ButtonTranslate); err != nil {
			log.Warn("discord: send translate button", "err", err)
		}
		return
	}

	tr, ok := h.translator.Translate(ctx, m.Content, m.ChatID)
	if !ok || sameText(tr, m.Content) {
		log.Debug("discord: no translation posted")
		return
	}
	if _, err := out.Reply(ctx, m.ChatID, m.ID, spoiler(tr), ButtonSpeak); err != nil {
		log.Warn("discord: send translation", "err", err)
	}
}

func (h *Handler) handleVoice(ctx context.Context, m Message, a Attachment, mode store.Mode, out Messenger) {
	log := observe.Logger(ctx).With("chat_id", m.ChatID)

	path := audio.TempPath(h.tempDir, extensionOr(a.Filename, "ogg"))
	defer audio.Remove(path)
	if err := h.download.Fetch(ctx, a, path); err != nil {
		log.Warn("discord: download voice note", "err", err)
		return
	}

	text, ok := h.transcriber.Transcribe(ctx, path)
	if !ok {
		log.Info("discord: voice note not transcribed")
		return
	}

	if mode == store.ModeInteractive {
		id, err := out.Reply(ctx, m.ChatID, m.ID, voiceMarker, ButtonTranslate)
		if err != nil {
			log.Warn("discord: send translate button", "err", err)
			return
		}
		h.pending.Put(pending.Key{ChatID: m.ChatID, MessageID: id}, text)
		return
	}

	content := voiceLine(text)
	if tr, ok := h.translator.Translate(ctx, text, m.ChatID); ok && !sameText(tr, text) {
		content += "\n" + spoiler(tr)
	}
	if _, err := out.Reply(ctx, m.ChatID, m.ID, content, ButtonSpeak); err != nil {
		log.Warn("discord: send transcription", "err", err)
	}
}

// TranslateButton resolves the text behind a translate button on the bot
// message messageID and returns the content that replaces it. shown is the
// button message's current content and referenced the content of the
// message it replies to, if any.
func (h *Handler) TranslateButton(ctx context.Context, chatID, messageID, shown, referenced string) (string, error) {
	key := pending.Key{ChatID: chatID, MessageID: messageID}
	text, isVoice := h.pending.Get(key)
	if !isVoice {
		if t := unescapeMarkdown(strings.Trim(stripMarkers(shown), "*_")); strings.HasPrefix(shown, voicePrefix) && t != "" {
			text, isVoice = t, true
		} else if strings.TrimSpace(referenced) != "" {
			text = referenced
		} else {
			return "", ErrNotFound
		}
	}

	tr, ok := h.translator.Translate(ctx, text, chatID)
	if !ok {
		return "", ErrFailed
	}
	h.pending.Delete(key)
	if isVoice {
		return voiceLine(text) + "\n" + tr, nil
	}
	return tr, nil
}

// SpeakButton synthesizes the last line of a bot message in the chat's
// speech language and returns the audio file path. The caller removes the
// file.
func (h *Handler) SpeakButton(ctx context.Context, chatID, content string) (string, error) {
	text := speakableText(content)
	if text == "" {
		return "", ErrNotFound
	}
	pair := h.settings.Languages(ctx, chatID)
	path, ok := h.synth.Synthesize(ctx, synth.Request{
		Text:     text,
		Language: lang.SpeechLanguage(text, pair),
		ChatID:   chatID,
	})
	if !ok {
		return "", ErrFailed
	}
	return path, nil
}

// Format returns the file extension of synthesized audio.
func (h *Handler) Format() string { return h.synth.Format() }

// speakableText strips bot markup from content and keeps the last line,
// which holds the translation of a voice note.
func speakableText(content string) string {
	text := strings.TrimSpace(stripMarkers(content))
	if i := strings.LastIndexByte(text, '\n'); i >= 0 {
		text = text[i+1:]
	}
	text = strings.ReplaceAll(text, "||", "")
	return unescapeMarkdown(strings.Trim(strings.TrimSpace(text), "*_"))
}

func stripMarkers(s string) string {
	s = strings.ReplaceAll(s, "\u200b", "")
	s = strings.ReplaceAll(s, voicePrefix, "")
	s = strings.ReplaceAll(s, "📝", "")
	return strings.TrimSpace(s)
}

func voiceLine(text string) string {
	return voicePrefix + " *" + escapeMarkdown(text) + "*"
}

func spoiler(text string) string {
	return "||" + strings.ReplaceAll(text, "|", "\\|") + "||"
}

func escapeMarkdown(s string) string {
	return strings.NewReplacer("*", "\\*", "_", "\\_", "|", "\\|", "`", "\\`").Replace(s)
}

func unescapeMarkdown(s string) string {
	return strings.TrimSpace(strings.NewReplacer("\\*", "*", "\\_", "_", "\\|", "|", "\\`", "`").Replace(s))
}

func sameText(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

func extension(name string) string {
	i := strings.LastIndexByte(name, '.')
	if i < 0 || i == len(name)-1 {
		return ""
	}
	return name[i+1:]
}

func extensionOr(name, def string) string {
	if ext := extension(name); ext != "" {
		return ext
	}
	return def
}
