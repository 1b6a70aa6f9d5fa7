// Package synth turns text into a playable audio file through the speech
// synthesis provider chain.
//
// The speaker is resolved before the chain runs: an explicit override wins,
// then the chat's stored preset for the language and gender, then the
// built-in default. A language with none of these is sent without a speaker,
// which makes the multi-speaker provider step aside for the generic one.
//
// Raw samples are written to an intermediate WAV file and transcoded to the
// delivery format. The WAV file is removed on every path.
package synth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/MrWong99/lingvox/internal/observe"
	"github.com/MrWong99/lingvox/internal/store"
	"github.com/MrWong99/lingvox/internal/workpool"
	"github.com/MrWong99/lingvox/pkg/audio"
	"github.com/MrWong99/lingvox/pkg/provider/tts"
)

// Defaults for [Orchestrator] output.
const (
	DefaultFormat     = "mp3"
	DefaultSampleRate = 48000
)

// Transcoder converts the audio file in to format at out. *audio.FFmpeg
// satisfies it.
type Transcoder interface {
	Transcode(ctx context.Context, in, out, format string, rate int) error
}

// VoiceSettings supplies a chat's stored voice gender and presets.
// *store.Guard satisfies it.
type VoiceSettings interface {
	VoiceGender(ctx context.Context, chatID string) store.Gender
	VoicePreset(ctx context.Context, chatID, language string, gender store.Gender) string
}

// Request is one synthesis call.
type Request struct {
	Text     string
	Language string

	// ChatID selects stored presets and the stored gender. Optional.
	ChatID string

	// Gender overrides the chat's stored voice gender.
	Gender store.Gender

	// Speaker overrides every other speaker source.
	Speaker string
}

// Orchestrator synthesizes speech on the shared worker pool.
type Orchestrator struct {
	voices     VoiceSettings
	speakers   *tts.SpeakerTable
	provider   tts.Provider
	transcoder Transcoder
	pool       *workpool.Pool
	metrics    *observe.Metrics

	format     string
	sampleRate int
	tempDir    string
}

// Option configures an [Orchestrator].
type Option func(*Orchestrator)

// WithMetrics records outcomes on m.
func WithMetrics(m *observe.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithFormat sets the delivery format, one of audio.Formats.
func WithFormat(format string) Option {
	return func(o *Orchestrator) { o.format = strings.ToLower(format) }
}

// WithSampleRate sets the rate of the intermediate and delivered audio.
func WithSampleRate(rate int) Option {
	return func(o *Orchestrator) { o.sampleRate = rate }
}

// WithTempDir sets where audio files are created.
func WithTempDir(dir string) Option {
	return func(o *Orchestrator) { o.tempDir = dir }
}

// New builds an [Orchestrator]. provider is usually a resilience.TTSFallback
// whose first entry is the multi-speaker synthesizer.
func New(voices VoiceSettings, speakers *tts.SpeakerTable, provider tts.Provider, transcoder Transcoder, pool *workpool.Pool, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		voices:     voices,
		speakers:   speakers,
		provider:   provider,
		transcoder: transcoder,
		pool:       pool,
		format:     DefaultFormat,
		sampleRate: DefaultSampleRate,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Format returns the delivery format.
func (o *Orchestrator) Format() string { return o.format }

// Synthesize returns the path of a new audio file speaking req.Text. It
// returns false when the text is blank or every provider failed. The caller
// owns the file and must remove it.
func (o *Orchestrator) Synthesize(ctx context.Context, req Request) (string, bool) {
	if strings.TrimSpace(req.Text) == "" {
		return "", false
	}
	ctx, _ = observe.StartOp(ctx, observe.KindTTS, req.ChatID)
	path, err := workpool.DoDiscard(ctx, o.pool, func(ctx context.Context) (string, error) {
		speaker := o.Speaker(ctx, req)
		log := observe.Logger(ctx).With("lang", req.Language, "speaker", speaker)
		log.Debug("synth: synthesizing", "chars", len(req.Text))

		a, err := o.provider.Synthesize(ctx, tts.Request{Text: req.Text, Language: req.Language, Speaker: speaker})
		if err != nil {
			return "", err
		}
		return o.encode(ctx, a)
	}, func(late string) {
		// The caller gave up before the file was handed over.
		if err := os.Remove(late); err != nil && !os.IsNotExist(err) {
			observe.Logger(ctx).Warn("synth: remove abandoned output", "path", late, "err", err)
		}
	})
	if err != nil {
		observe.Logger(ctx).Warn("synth: failed", "lang", req.Language, "err", err)
		o.record(ctx, "failed")
		return "", false
	}
	o.record(ctx, "ok")
	return path, true
}

// Speaker resolves the speaker for req, or "" when the language has no
// speaker at all.
func (o *Orchestrator) Speaker(ctx context.Context, req Request) string {
	if req.Speaker != "" {
		return req.Speaker
	}
	gender := o.gender(ctx, req)
	if req.ChatID != "" && o.voices != nil {
		if s := o.voices.VoicePreset(ctx, req.ChatID, req.Language, gender); s != "" {
			return s
		}
	}
	if o.speakers != nil {
		if s, ok := o.speakers.Speaker(req.Language, string(gender)); ok {
			return s
		}
	}
	return ""
}

func (o *Orchestrator) gender(ctx context.Context, req Request) store.Gender {
	if req.Gender != "" {
		return req.Gender
	}
	if req.ChatID != "" && o.voices != nil {
		return o.voices.VoiceGender(ctx, req.ChatID)
	}
	return store.Male
}

// encode writes a to a new file in the delivery format.
func (o *Orchestrator) encode(ctx context.Context, a *tts.Audio) (string, error) {
	switch {
	case a.IsPCM():
		samples := audio.Resample(a.Samples, a.SampleRate, o.sampleRate)
		wav := audio.TempPath(o.tempDir, "wav")
		if err := audio.WriteWAV(wav, samples, o.sampleRate); err != nil {
			return "", err
		}
		if o.format == "wav" {
			return wav, nil
		}
		defer audio.Remove(wav)
		return o.transcode(ctx, wav)

	case len(a.Data) > 0:
		format := strings.ToLower(a.Format)
		if format == o.format {
			out := audio.TempPath(o.tempDir, o.format)
			if err := os.WriteFile(out, a.Data, 0o600); err != nil {
				return "", fmt.Errorf("synth: write audio: %w", err)
			}
			return out, nil
		}
		if format == "" {
			format = "bin"
		}
		in := audio.TempPath(o.tempDir, format)
		if err := os.WriteFile(in, a.Data, 0o600); err != nil {
			return "", fmt.Errorf("synth: write audio: %w", err)
		}
		defer audio.Remove(in)
		return o.transcode(ctx, in)

	default:
		return "", errors.New("synth: provider returned no audio")
	}
}

func (o *Orchestrator) transcode(ctx context.Context, in string) (string, error) {
	out := audio.TempPath(o.tempDir, o.format)
	if err := o.transcoder.Transcode(ctx, in, out, o.format, o.sampleRate); err != nil {
		audio.Remove(out)
		return "", err
	}
	return out, nil
}

func (o *Orchestrator) record(ctx context.Context, status string) {
	observe.FinishOp(ctx, status)
	if o.metrics != nil {
		o.metrics.RecordResult(ctx, observe.KindTTS, status)
	}
}
