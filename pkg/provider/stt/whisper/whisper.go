// Package whisper provides local whisper.cpp-backed STT providers.
//
// Two variants are offered:
//
//   - Provider talks to a running whisper-server binary, which exposes a REST
//     API at POST /inference. Audio files are uploaded as multipart form data.
//
//   - NativeProvider runs whisper.cpp in-process through the CGO bindings. Its
//     model is loaded on the first transcription and shared afterwards.
//
// Both accept any audio file ffmpeg can read when given a [Decoder]; without
// one the server variant uploads the file as is and relies on the server's
// own conversion.
//
// Usage:
//
//	p, err := whisper.New("http://localhost:8080", whisper.WithDecoder(audio.NewFFmpeg()))
//	text, err := p.Transcribe(ctx, stt.Request{Path: "/tmp/voice.ogg"})
package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MrWong99/lingvox/pkg/audio"
	"github.com/MrWong99/lingvox/pkg/provider/stt"
)

const (
	// SampleRate is the rate whisper.cpp models expect.
	SampleRate = 16000

	defaultTimeout    = 2 * time.Minute
	inferenceEndpoint = "/inference"
)

var _ stt.Provider = (*Provider)(nil)

// Decoder turns an audio file into mono 16-bit samples at rate.
// *audio.FFmpeg satisfies it.
type Decoder interface {
	DecodePCM(ctx context.Context, path string, rate int) ([]int16, error)
}

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithModel sets the model identifier forwarded to the whisper.cpp server
// (e.g., "base", "small"). When empty the server uses whichever model it was
// started with.
func WithModel(model string) Option {
	return func(p *Provider) { p.model = model }
}

// WithLanguage sets the default language hint. Empty means auto-detect.
func WithLanguage(lang string) Option {
	return func(p *Provider) { p.language = lang }
}

// WithDecoder converts every input to 16 kHz mono WAV before upload.
func WithDecoder(d Decoder) Option {
	return func(p *Provider) { p.decoder = d }
}

// WithTimeout sets the HTTP timeout of one inference request.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) { p.httpClient.Timeout = d }
}

// WithTempDir sets where converted WAV files are written.
func WithTempDir(dir string) Option {
	return func(p *Provider) { p.tempDir = dir }
}

// Provider implements stt.Provider against a whisper-server.
type Provider struct {
	serverURL  string
	model      string
	language   string
	decoder    Decoder
	tempDir    string
	httpClient *http.Client
}

// New creates a Provider for the whisper-server at serverURL.
func New(serverURL string, opts ...Option) (*Provider, error) {
	if serverURL == "" {
		return nil, errors.New("whisper: serverURL must not be empty")
	}
	p := &Provider{
		serverURL:  strings.TrimRight(serverURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Transcribe uploads the audio at req.Path and returns the recognised text.
func (p *Provider) Transcribe(ctx context.Context, req stt.Request) (string, error) {
	path := req.Path
	if p.decoder != nil {
		samples, err := p.decoder.DecodePCM(ctx, req.Path, SampleRate)
		if err != nil {
			return "", fmt.Errorf("whisper: decode: %w", err)
		}
		path = audio.TempPath(p.tempDir, "wav")
		if err := audio.WriteWAV(path, samples, SampleRate); err != nil {
			return "", fmt.Errorf("whisper: %w", err)
		}
		defer audio.Remove(path)
	}

	lang := req.Language
	if lang == "" {
		lang = p.language
	}
	return p.infer(ctx, path, lang)
}

// infer POSTs the file at path to the /inference endpoint as
// multipart/form-data.
func (p *Provider) infer(ctx context.Context, path, lang string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("whisper: open audio: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return "", fmt.Errorf("whisper: create form file: %w", err)
	}
	if _, err := io.Copy(fw, f); err != nil {
		return "", fmt.Errorf("whisper: write audio data: %w", err)
	}

	if lang == "" {
		lang = "auto"
	}
	fields := [][2]string{{"language", lang}, {"response_format", "json"}}
	if p.model != "" {
		fields = append(fields, [2]string{"model", p.model})
	}
	for _, kv := range fields {
		if err := mw.WriteField(kv[0], kv[1]); err != nil {
			return "", fmt.Errorf("whisper: write %s field: %w", kv[0], err)
		}
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("whisper: close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.serverURL+inferenceEndpoint, &body)
	if err != nil {
		return "", fmt.Errorf("whisper: create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("whisper: http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("whisper: server returned HTTP %d", resp.StatusCode)
	}

	var result struct {
		Text  string `json:"text"`
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("whisper: parse JSON response: %w", err)
	}
	if result.Error != "" {
		return "", fmt.Errorf("whisper: server error: %s", result.Error)
	}
	return strings.TrimSpace(result.Text), nil
}
