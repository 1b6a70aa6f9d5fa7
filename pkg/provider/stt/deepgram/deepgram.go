// Package deepgram provides a Deepgram-backed STT provider using the
// pre-recorded /v1/listen REST API. It implements the stt.Provider interface.
package deepgram

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/MrWong99/lingvox/pkg/provider/stt"
)

var _ stt.Provider = (*Provider)(nil)

const (
	defaultBaseURL = "https://api.deepgram.com"
	listenEndpoint = "/v1/listen"
	defaultModel   = "nova-3"
	defaultTimeout = time.Minute
)

// Option is a functional option for configuring the Deepgram Provider.
type Option func(*Provider)

// WithModel sets the Deepgram model to use (e.g., "nova-3", "base").
func WithModel(model string) Option {
	return func(p *Provider) { p.model = model }
}

// WithBaseURL overrides the API host, mostly for tests.
func WithBaseURL(u string) Option {
	return func(p *Provider) { p.baseURL = strings.TrimRight(u, "/") }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) { p.timeout = d }
}

// Provider implements stt.Provider backed by the Deepgram REST API.
type Provider struct {
	apiKey  string
	model   string
	baseURL string
	timeout time.Duration
	client  *resty.Client
}

// New creates a new Deepgram Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("deepgram: apiKey must not be empty")
	}
	p := &Provider{
		apiKey:  apiKey,
		model:   defaultModel,
		baseURL: defaultBaseURL,
		timeout: defaultTimeout,
	}
	for _, o := range opts {
		o(p)
	}
	p.client = resty.New().
		SetBaseURL(p.baseURL).
		SetTimeout(p.timeout).
		SetHeader("Authorization", "Token "+p.apiKey)
	return p, nil
}

// listenResponse is the subset of the /v1/listen response we read.
type listenResponse struct {
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string  `json:"transcript"`
				Confidence float64 `json:"confidence"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

// Transcribe uploads the file at req.Path and returns the best transcript.
// Without a language hint Deepgram detects the language.
func (p *Provider) Transcribe(ctx context.Context, req stt.Request) (string, error) {
	data, err := os.ReadFile(req.Path)
	if err != nil {
		return "", fmt.Errorf("deepgram: read audio: %w", err)
	}

	params := map[string]string{
		"model":        p.model,
		"smart_format": "true",
	}
	if req.Language != "" {
		params["language"] = req.Language
	} else {
		params["detect_language"] = "true"
	}

	var out listenResponse
	res, err := p.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		SetHeader("Content-Type", contentType(req.Path)).
		SetBody(data).
		SetResult(&out).
		Post(listenEndpoint)
	if err != nil {
		return "", fmt.Errorf("deepgram: POST %s: %w", listenEndpoint, err)
	}
	if res.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("deepgram: POST %s returned status %d", listenEndpoint, res.StatusCode())
	}

	if len(out.Results.Channels) == 0 || len(out.Results.Channels[0].Alternatives) == 0 {
		return "", nil
	}
	return strings.TrimSpace(out.Results.Channels[0].Alternatives[0].Transcript), nil
}

func contentType(path string) string {
	if t := mime.TypeByExtension(filepath.Ext(path)); strings.HasPrefix(t, "audio/") {
		return t
	}
	return "audio/*"
}
