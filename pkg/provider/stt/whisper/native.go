// This file contains the NativeProvider implementation backed by the
// whisper.cpp CGO bindings. The whisper.cpp static library (libwhisper.a)
// and headers (whisper.h) must be available at link time via LIBRARY_PATH
// and C_INCLUDE_PATH environment variables.

package whisper

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"strings"

	whisperlib "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"github.com/MrWong99/lingvox/internal/lazy"
	"github.com/MrWong99/lingvox/pkg/audio"
	"github.com/MrWong99/lingvox/pkg/provider/stt"
)

// DefaultBeamSize is the beam width used for native decoding.
const DefaultBeamSize = 5

var _ stt.Provider = (*NativeProvider)(nil)

// NativeProvider implements stt.Provider using whisper.cpp Go bindings. The
// model is loaded on first use and shared by all calls; each call gets its
// own whisper context.
type NativeProvider struct {
	modelPath string
	decoder   Decoder
	language  string
	beamSize  int
	threads   int

	model *lazy.Value[whisperlib.Model]
}

// NativeOption is a functional option for configuring a NativeProvider.
type NativeOption func(*NativeProvider)

// WithNativeLanguage sets the default language hint. Empty means auto-detect.
func WithNativeLanguage(lang string) NativeOption {
	return func(p *NativeProvider) { p.language = lang }
}

// WithBeamSize overrides [DefaultBeamSize].
func WithBeamSize(n int) NativeOption {
	return func(p *NativeProvider) { p.beamSize = n }
}

// WithThreads sets the number of CPU threads per transcription. Defaults to
// the number of CPUs.
func WithThreads(n int) NativeOption {
	return func(p *NativeProvider) { p.threads = n }
}

// NewNative creates a NativeProvider for the model file at modelPath. The
// file is not read until the first Transcribe call. decoder converts input
// files to 16 kHz samples.
func NewNative(modelPath string, decoder Decoder, opts ...NativeOption) (*NativeProvider, error) {
	if modelPath == "" {
		return nil, errors.New("whisper: modelPath must not be empty")
	}
	if decoder == nil {
		return nil, errors.New("whisper: decoder must not be nil")
	}
	p := &NativeProvider{
		modelPath: modelPath,
		decoder:   decoder,
		beamSize:  DefaultBeamSize,
		threads:   runtime.NumCPU(),
	}
	for _, o := range opts {
		o(p)
	}
	p.model = lazy.New(func(context.Context) (whisperlib.Model, error) {
		slog.Info("whisper: loading model", "path", p.modelPath)
		m, err := whisperlib.New(p.modelPath)
		if err != nil {
			return nil, fmt.Errorf("whisper: load model %q: %w", p.modelPath, err)
		}
		return m, nil
	})
	return p, nil
}

// Loaded reports whether the model has been loaded.
func (p *NativeProvider) Loaded() bool { return p.model.Loaded() }

// Close releases the model if it was loaded.
func (p *NativeProvider) Close() error {
	return p.model.Close(func(m whisperlib.Model) error { return m.Close() })
}

// Transcribe decodes the audio at req.Path and runs whisper.cpp over it.
// Segments are joined with a single space.
func (p *NativeProvider) Transcribe(ctx context.Context, req stt.Request) (string, error) {
	samples, err := p.decoder.DecodePCM(ctx, req.Path, SampleRate)
	if err != nil {
		return "", fmt.Errorf("whisper: decode: %w", err)
	}
	if len(samples) == 0 {
		return "", nil
	}

	model, err := p.model.Get(ctx)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	// Contexts are not safe for concurrent use; the model is.
	wctx, err := model.NewContext()
	if err != nil {
		return "", fmt.Errorf("whisper: create context: %w", err)
	}

	lang := req.Language
	if lang == "" {
		lang = p.language
	}
	if lang == "" {
		lang = "auto"
	}
	if err := wctx.SetLanguage(lang); err != nil {
		slog.Warn("whisper: failed to set language, using auto-detect", "language", lang, "err", err)
		_ = wctx.SetLanguage("auto")
	}
	wctx.SetBeamSize(p.beamSize)
	if p.threads > 0 {
		wctx.SetThreads(uint(p.threads))
	}

	if err := wctx.Process(audio.Float32(samples), nil, nil, nil); err != nil {
		return "", fmt.Errorf("whisper: process audio: %w", err)
	}

	var parts []string
	for {
		segment, err := wctx.NextSegment()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("whisper: read segment: %w", err)
		}
		if text := strings.TrimSpace(segment.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " "), nil
}
