// Package google implements translation.Provider against the public Google
// Translate phrase endpoint used by the browser extension ("gtx" client).
package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"

	"github.com/MrWong99/lingvox/pkg/provider/translation"
)

var _ translation.Provider = (*Provider)(nil)

const (
	defaultBaseURL = "https://translate.googleapis.com"
	defaultTimeout = 15 * time.Second
	singleEndpoint = "/translate_a/single"

	// MaxLength is the longest text the endpoint translates in one call.
	MaxLength = 5000
)

// ErrTooLong is returned for text over [MaxLength] characters.
var ErrTooLong = errors.New("google translate: text too long")

// Option configures a [Provider].
type Option func(*Provider)

// WithBaseURL overrides the endpoint host, mostly for tests.
func WithBaseURL(u string) Option {
	return func(p *Provider) { p.baseURL = strings.TrimRight(u, "/") }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) { p.timeout = d }
}

// Provider implements translation.Provider.
type Provider struct {
	baseURL string
	timeout time.Duration
	client  *resty.Client
}

// New creates a Provider.
func New(opts ...Option) *Provider {
	p := &Provider{baseURL: defaultBaseURL, timeout: defaultTimeout}
	for _, o := range opts {
		o(p)
	}
	p.client = resty.New().
		SetBaseURL(p.baseURL).
		SetTimeout(p.timeout).
		SetHeader("Accept", "application/json")
	return p
}

// Translate implements translation.Provider.
func (p *Provider) Translate(ctx context.Context, req translation.Request) (string, error) {
	if utf8.RuneCountInString(req.Text) > MaxLength {
		return "", ErrTooLong
	}
	source := req.Source
	if source == "" {
		source = translation.AutoDetect
	}

	res, err := p.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"client": "gtx",
			"sl":     source,
			"tl":     req.Target,
			"dt":     "t",
			"q":      req.Text,
		}).
		Get(singleEndpoint)
	if err != nil {
		return "", fmt.Errorf("google translate: GET %s: %w", singleEndpoint, err)
	}
	if res.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("google translate: status code: %d, body: %s", res.StatusCode(), truncate(res.String(), 200))
	}

	out, err := parseSingle(res.Body())
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(out) == "" {
		return "", errors.New("google translate: empty translation")
	}
	return out, nil
}

// parseSingle extracts the translated text from the nested array response.
// The first element lists sentence segments, each starting with the
// translated sentence.
func parseSingle(body []byte) (string, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil || len(raw) == 0 {
		return "", fmt.Errorf("google translate: unexpected response: %s", truncate(string(body), 200))
	}
	var segments [][]any
	if err := json.Unmarshal(raw[0], &segments); err != nil {
		return "", fmt.Errorf("google translate: unexpected segments: %w", err)
	}
	var b strings.Builder
	for _, seg := range segments {
		if len(seg) == 0 {
			continue
		}
		if s, ok := seg[0].(string); ok {
			b.WriteString(s)
		}
	}
	return b.String(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
