// Package gtts provides a TTS provider backed by the public Google Translate
// speech endpoint. It speaks any language Google Translate supports with one
// generic voice per language and returns MP3.
//
// Long text is split into chunks of at most 100 characters on word
// boundaries; the MP3 frames of every chunk are concatenated in order.
package gtts

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/go-resty/resty/v2"

	"github.com/MrWong99/lingvox/pkg/provider/tts"
)

var _ tts.Provider = (*Provider)(nil)

const (
	defaultTLD     = "com"
	defaultTimeout = 20 * time.Second
	speechEndpoint = "/translate_tts"

	// maxChunk is the longest text the endpoint accepts in one request.
	maxChunk = 100
)

// Option is a functional option for [Provider].
type Option func(*Provider)

// WithBaseURL overrides the endpoint host, mostly for tests.
func WithBaseURL(u string) Option {
	return func(p *Provider) { p.baseURL = strings.TrimRight(u, "/") }
}

// WithTLD selects a regional Google host such as "co.uk", which changes the
// accent of some voices. Ignored when [WithBaseURL] is also given.
func WithTLD(tld string) Option {
	return func(p *Provider) { p.tld = tld }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) { p.timeout = d }
}

// WithSlow requests the slower speaking rate.
func WithSlow() Option {
	return func(p *Provider) { p.slow = true }
}

// Provider implements tts.Provider against translate_tts.
type Provider struct {
	baseURL string
	tld     string
	timeout time.Duration
	slow    bool
	client  *resty.Client
}

// New creates a Provider.
func New(opts ...Option) *Provider {
	p := &Provider{tld: defaultTLD, timeout: defaultTimeout}
	for _, o := range opts {
		o(p)
	}
	if p.baseURL == "" {
		p.baseURL = "https://translate.google." + p.tld
	}
	p.client = resty.New().
		SetBaseURL(p.baseURL).
		SetTimeout(p.timeout).
		SetHeader("User-Agent", "Mozilla/5.0 (X11; Linux x86_64)").
		SetHeader("Referer", p.baseURL+"/")
	return p
}

// Synthesize speaks req.Text in req.Language. req.Speaker is ignored.
func (p *Provider) Synthesize(ctx context.Context, req tts.Request) (*tts.Audio, error) {
	if req.Language == "" {
		return nil, tts.ErrUnsupportedLanguage
	}
	chunks := Chunks(req.Text, maxChunk)
	if len(chunks) == 0 {
		return nil, errors.New("gtts: no text to speak")
	}
	lang := req.Language
	if lang == "ua" {
		lang = "uk"
	}
	speed := "1"
	if p.slow {
		speed = "0.3"
	}

	var out []byte
	for i, chunk := range chunks {
		res, err := p.client.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"ie":       "UTF-8",
				"client":   "tw-ob",
				"q":        chunk,
				"tl":       lang,
				"ttsspeed": speed,
				"total":    strconv.Itoa(len(chunks)),
				"idx":      strconv.Itoa(i),
				"textlen":  strconv.Itoa(utf8.RuneCountInString(chunk)),
			}).
			Get(speechEndpoint)
		if err != nil {
			return nil, fmt.Errorf("gtts: GET %s: %w", speechEndpoint, err)
		}
		switch res.StatusCode() {
		case http.StatusOK:
		case http.StatusNotFound, http.StatusBadRequest:
			return nil, fmt.Errorf("gtts: %q: %w", req.Language, tts.ErrUnsupportedLanguage)
		default:
			return nil, fmt.Errorf("gtts: GET %s returned status %d", speechEndpoint, res.StatusCode())
		}
		out = append(out, res.Body()...)
	}
	if len(out) == 0 {
		return nil, errors.New("gtts: empty audio response")
	}
	return &tts.Audio{Data: out, Format: "mp3"}, nil
}

// Chunks splits text into pieces of at most limit runes, breaking on
// whitespace where possible. Blank pieces are dropped.
func Chunks(text string, limit int) []string {
	var out []string
	rest := strings.TrimSpace(text)
	for rest != "" {
		if utf8.RuneCountInString(rest) <= limit {
			out = append(out, rest)
			break
		}
		cut := byteOffset(rest, limit)
		if sp := strings.LastIndexFunc(rest[:cut], unicode.IsSpace); sp > 0 {
			cut = sp
		}
		if piece := strings.TrimSpace(rest[:cut]); piece != "" {
			out = append(out, piece)
		}
		rest = strings.TrimSpace(rest[cut:])
	}
	return out
}

// byteOffset returns the byte index just after the first n runes of s.
func byteOffset(s string, n int) int {
	i := 0
	for range n {
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return i
}
