// Package coqui provides a multi-speaker TTS provider backed by Coqui TTS
// servers, one server per language. It implements the tts.Provider interface.
//
// Two API modes are supported:
//
//   - APIModeStandard (default): targets the standard Coqui TTS server
//     (ghcr.io/coqui-ai/tts-cpu). Synthesis is performed via GET /api/tts with
//     URL query parameters; the speaker list is retrieved from GET /details.
//
//   - APIModeXTTS: targets the Coqui XTTS v2 API server. Synthesis is performed
//     via POST /tts_to_audio/ with a JSON body; the speaker list is retrieved
//     from GET /studio_speakers.
//
// The speaker list of each language server is fetched once, on the first
// request for that language, and reused afterwards. Requests for a language
// without a configured server fail with tts.ErrUnsupportedLanguage so a
// fallback chain moves on to the next provider.
//
// Typical usage:
//
//	p, err := coqui.New(map[string]string{
//	    "ru": "http://silero-ru:5002",
//	    "en": "http://silero-en:5002",
//	}, coqui.WithTimeout(15*time.Second))
//	audio, err := p.Synthesize(ctx, tts.Request{Text: "Hello", Language: "en", Speaker: "en_2"})
package coqui

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/MrWong99/lingvox/internal/lazy"
	"github.com/MrWong99/lingvox/pkg/audio"
	"github.com/MrWong99/lingvox/pkg/provider/tts"
)

var _ tts.Provider = (*Provider)(nil)

const (
	defaultTimeout         = 30 * time.Second
	ttsEndpoint            = "/tts_to_audio/"
	studioSpeakersEndpoint = "/studio_speakers"
	apiTTSEndpoint         = "/api/tts"
	detailsEndpoint        = "/details"
)

// APIMode selects which Coqui server API the provider will target.
type APIMode string

const (
	// APIModeXTTS targets the Coqui XTTS v2 API server (/tts_to_audio/).
	APIModeXTTS APIMode = "xtts"

	// APIModeStandard targets the standard Coqui TTS server (/api/tts).
	// This is the default mode.
	APIModeStandard APIMode = "standard"
)

// Option is a functional option for configuring a Coqui Provider.
type Option func(*Provider)

// WithTimeout sets the per-request HTTP timeout for calls to the TTS servers.
// Defaults to 30 s if not set.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		p.httpClient.Timeout = d
	}
}

// WithAPIMode sets the server API mode.
func WithAPIMode(mode APIMode) Option {
	return func(p *Provider) {
		p.apiMode = mode
	}
}

// WithOutputSampleRate resamples synthesised PCM to rate. When set to 0
// (default), PCM is returned at the model's native rate.
func WithOutputSampleRate(rate int) Option {
	return func(p *Provider) {
		p.outputRate = rate
	}
}

// WithLanguageCodes overrides the language code sent to the server for a
// language. The default maps "uk" to "ua", which is what Silero models use.
func WithLanguageCodes(codes map[string]string) Option {
	return func(p *Provider) {
		maps.Copy(p.codes, codes)
	}
}

// WithHTTPClient replaces the HTTP client used for all requests.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = c
	}
}

// Provider implements tts.Provider against per-language Coqui servers.
type Provider struct {
	servers    map[string]string
	codes      map[string]string
	apiMode    APIMode
	outputRate int
	httpClient *http.Client

	models *lazy.Map[string, *model]
}

// model describes a loaded language server.
type model struct {
	name     string
	speakers []string
}

func (m *model) hasSpeaker(s string) bool {
	return len(m.speakers) == 0 || slices.Contains(m.speakers, s)
}

// New creates a Provider for the given language to server URL map.
func New(servers map[string]string, opts ...Option) (*Provider, error) {
	if len(servers) == 0 {
		return nil, errors.New("coqui: at least one language server is required")
	}
	p := &Provider{
		servers:    make(map[string]string, len(servers)),
		codes:      map[string]string{"uk": "ua"},
		apiMode:    APIModeStandard,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for lang, u := range servers {
		if u == "" {
			return nil, fmt.Errorf("coqui: empty server URL for language %q", lang)
		}
		p.servers[normalize(lang)] = strings.TrimRight(u, "/")
	}
	for _, o := range opts {
		o(p)
	}
	p.models = lazy.NewMap(p.loadModel)
	return p, nil
}

func normalize(lang string) string {
	l := strings.ToLower(strings.TrimSpace(lang))
	if l == "ua" {
		return "uk"
	}
	return l
}

// Languages returns the languages with a configured server, sorted.
func (p *Provider) Languages() []string {
	return slices.Sorted(maps.Keys(p.servers))
}

// Loaded returns the number of language servers whose speaker list has been
// fetched.
func (p *Provider) Loaded() int {
	return p.models.Len()
}

// Synthesize renders req.Text with req.Speaker on the server for req.Language
// and returns mono PCM.
func (p *Provider) Synthesize(ctx context.Context, req tts.Request) (*tts.Audio, error) {
	lang := normalize(req.Language)
	if _, ok := p.servers[lang]; !ok || req.Speaker == "" {
		return nil, tts.ErrUnsupportedLanguage
	}
	m, err := p.models.Get(ctx, lang)
	if err != nil {
		return nil, err
	}
	if !m.hasSpeaker(req.Speaker) {
		return nil, fmt.Errorf("coqui: speaker %q not offered by model %q", req.Speaker, m.name)
	}

	var wav []byte
	if p.apiMode == APIModeXTTS {
		wav, err = p.synthesizeXTTS(ctx, lang, req)
	} else {
		wav, err = p.synthesizeStandard(ctx, lang, req)
	}
	if err != nil {
		return nil, err
	}

	samples, rate, err := audio.ReadWAV(bytes.NewReader(wav))
	if err != nil {
		return nil, fmt.Errorf("coqui: %w", err)
	}
	if p.outputRate > 0 && rate != p.outputRate {
		samples = audio.Resample(samples, rate, p.outputRate)
		rate = p.outputRate
	}
	return &tts.Audio{Samples: samples, SampleRate: rate}, nil
}

func (p *Provider) code(lang string) string {
	if c, ok := p.codes[lang]; ok {
		return c
	}
	return lang
}

// ttsRequest is the JSON body sent to POST /tts_to_audio/ (XTTS mode).
type ttsRequest struct {
	Text       string `json:"text"`
	SpeakerWav string `json:"speaker_wav"`
	Language   string `json:"language"`
}

func (p *Provider) synthesizeXTTS(ctx context.Context, lang string, r tts.Request) ([]byte, error) {
	data, err := json.Marshal(ttsRequest{
		Text:       r.Text,
		SpeakerWav: r.Speaker,
		Language:   p.code(lang),
	})
	if err != nil {
		return nil, fmt.Errorf("coqui: marshal tts request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.servers[lang]+ttsEndpoint, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("coqui: create tts request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/wav")
	return p.fetch(req, ttsEndpoint)
}

func (p *Provider) synthesizeStandard(ctx context.Context, lang string, r tts.Request) ([]byte, error) {
	params := url.Values{}
	params.Set("text", r.Text)
	params.Set("speaker_id", r.Speaker)
	params.Set("language_id", p.code(lang))

	reqURL := p.servers[lang] + apiTTSEndpoint + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("coqui: create tts request: %w", err)
	}
	req.Header.Set("Accept", "audio/wav")
	return p.fetch(req, apiTTSEndpoint)
}

func (p *Provider) fetch(req *http.Request, endpoint string) ([]byte, error) {
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("coqui: %s %s: %w", req.Method, endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("coqui: %s %s returned status %d", req.Method, endpoint, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("coqui: read %s response: %w", endpoint, err)
	}
	return body, nil
}

// detailsResponse is the JSON body returned by GET /details (standard mode).
// Speakers is nil for single-speaker models.
type detailsResponse struct {
	ModelName string   `json:"model_name"`
	Language  string   `json:"language"`
	Speakers  []string `json:"speakers"`
}

// loadModel fetches the speaker list of the server for lang.
func (p *Provider) loadModel(ctx context.Context, lang string) (*model, error) {
	endpoint := detailsEndpoint
	if p.apiMode == APIModeXTTS {
		endpoint = studioSpeakersEndpoint
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.servers[lang]+endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("coqui: create speakers request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	body, err := p.fetch(req, endpoint)
	if err != nil {
		return nil, err
	}

	if p.apiMode == APIModeXTTS {
		var studio map[string]json.RawMessage
		if err := json.Unmarshal(body, &studio); err != nil {
			return nil, fmt.Errorf("coqui: decode studio speakers: %w", err)
		}
		return &model{name: "xtts-" + lang, speakers: slices.Sorted(maps.Keys(studio))}, nil
	}

	var details detailsResponse
	if err := json.Unmarshal(body, &details); err != nil {
		return nil, fmt.Errorf("coqui: decode details response: %w", err)
	}
	name := details.ModelName
	if name == "" {
		name = lang
	}
	speakers := slices.Clone(details.Speakers)
	slices.Sort(speakers)
	return &model{name: name, speakers: speakers}, nil
}
