// Package httpapi exposes translation, transcription, synthesis and the
// per-chat dictionary over a small JSON HTTP API, for services that want the
// translator as a sidecar instead of through the chat bot.
//
// Routes:
//
//	GET  /languages              supported translation languages
//	GET  /voices/{lang}          synthesis speakers for a language
//	GET  /status/{chat_id}       stored settings of a chat
//	POST /translate              translate text
//	POST /stt                    transcribe an uploaded audio file (multipart "file")
//	POST /tts                    synthesize speech, returns the audio file
//	POST /dict/add               add a dictionary term and its variants
//	POST /dict/remove            remove a dictionary term
//	GET  /dict/list/{chat_id}    list dictionary terms
//
// Liveness, readiness and metrics routes are mounted when the corresponding
// handlers are supplied in [Deps].
//
// Errors are JSON objects with a "detail" message. Requests failing
// validation answer 422 with a per-field "errors" map.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"

	"github.com/MrWong99/lingvox/internal/dictionary"
	"github.com/MrWong99/lingvox/internal/health"
	"github.com/MrWong99/lingvox/internal/lang"
	"github.com/MrWong99/lingvox/internal/observe"
	"github.com/MrWong99/lingvox/internal/store"
	"github.com/MrWong99/lingvox/internal/synth"
	"github.com/MrWong99/lingvox/pkg/provider/tts"
)

const (
	maxJSONBody   = 1 << 20
	defaultUpload = 25 << 20
)

// Translator translates text between an explicit language pair.
// *translate.Orchestrator satisfies it.
type Translator interface {
	TranslatePair(ctx context.Context, text, chatID string, pair lang.Pair) (string, bool)
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

// Deps are the collaborators of a [Server]. Settings, Dictionary, Speakers
// and the three orchestrators are required.
type Deps struct {
	Translator  Translator
	Transcriber Transcriber
	Synthesizer Synthesizer
	Dictionary  *dictionary.Manager
	Settings    *store.Guard
	Speakers    *tts.SpeakerTable

	// Health serves /healthz and /readyz when set.
	Health *health.Handler

	// Metrics instruments every request when set.
	Metrics *observe.Metrics

	// MetricsHandler serves /metrics when set.
	MetricsHandler http.Handler

	// TempDir receives uploaded audio. Defaults to the OS temp dir.
	TempDir string

	// MaxUpload caps the size of /stt uploads in bytes. Defaults to 25 MiB.
	MaxUpload int64
}

// Server is the HTTP API. Create it with [New].
type Server struct {
	deps     Deps
	validate *validator.Validate
	trans    ut.Translator
	mux      *http.ServeMux
}

// New builds a Server and registers its routes.
func New(deps Deps) (*Server, error) {
	if deps.Translator == nil || deps.Transcriber == nil || deps.Synthesizer == nil {
		return nil, errors.New("httpapi: translator, transcriber and synthesizer are required")
	}
	if deps.Dictionary == nil || deps.Settings == nil || deps.Speakers == nil {
		return nil, errors.New("httpapi: dictionary, settings and speakers are required")
	}
	if deps.MaxUpload <= 0 {
		deps.MaxUpload = defaultUpload
	}
	validate, trans, err := newValidator()
	if err != nil {
		return nil, err
	}
	s := &Server{deps: deps, validate: validate, trans: trans, mux: http.NewServeMux()}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /languages", s.handleLanguages)
	s.mux.HandleFunc("GET /voices/{lang}", s.handleVoices)
	s.mux.HandleFunc("GET /status/{chat_id}", s.handleStatus)
	s.mux.HandleFunc("POST /translate", s.handleTranslate)
	s.mux.HandleFunc("POST /stt", s.handleSTT)
	s.mux.HandleFunc("POST /tts", s.handleTTS)
	s.mux.HandleFunc("POST /dict/add", s.handleDictAdd)
	s.mux.HandleFunc("POST /dict/remove", s.handleDictRemove)
	s.mux.HandleFunc("GET /dict/list/{chat_id}", s.handleDictList)
	if s.deps.Health != nil {
		s.deps.Health.Register(s.mux)
	}
	if s.deps.MetricsHandler != nil {
		s.mux.Handle("GET /metrics", s.deps.MetricsHandler)
	}
}

// Handler returns the root handler, wrapped in the observability middleware
// when metrics are configured.
func (s *Server) Handler() http.Handler {
	if s.deps.Metrics == nil {
		return s.mux
	}
	return observe.Middleware(s.deps.Metrics)(s.mux)
}

// newValidator builds a validator that names fields by their JSON tag and
// knows the "lang" and "gender" tags.
func newValidator() (*validator.Validate, ut.Translator, error) {
	validate := validator.New()

	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	trans, _ := uni.GetTranslator("en")
	if err := enTranslations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, nil, fmt.Errorf("httpapi: register translations: %w", err)
	}

	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	custom := []struct {
		tag, message string
		fn           validator.Func
	}{
		{"lang", "{0} must be a supported language", func(fl validator.FieldLevel) bool {
			_, ok := lang.Normalize(fl.Field().String())
			return ok
		}},
		{"gender", "{0} must be male or female", func(fl validator.FieldLevel) bool {
			_, ok := store.ParseGender(fl.Field().String())
			return ok
		}},
	}
	for _, c := range custom {
		if err := validate.RegisterValidation(c.tag, c.fn); err != nil {
			return nil, nil, fmt.Errorf("httpapi: register %s validation: %w", c.tag, err)
		}
		msg := c.message
		tag := c.tag
		if err := validate.RegisterTranslation(tag, trans, func(ut ut.Translator) error {
			return ut.Add(tag, msg, true)
		}, func(ut ut.Translator, fe validator.FieldError) string {
			t, _ := ut.T(tag, fe.Field())
			return t
		}); err != nil {
			return nil, nil, fmt.Errorf("httpapi: register %s translation: %w", tag, err)
		}
	}
	return validate, trans, nil
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Detail      string            `json:"detail"`
	Errors      map[string]string `json:"errors,omitempty"`
	Suggestions []string          `json:"suggestions,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorBody{Detail: detail})
}

// decode reads a JSON body into v and validates it. It writes the error
// response itself and reports whether the handler may continue.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return s.check(w, v)
}

// check validates v and writes a 422 response on failure.
func (s *Server) check(w http.ResponseWriter, v any) bool {
	err := s.validate.Struct(v)
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Translate(s.trans)
	}
	writeJSON(w, http.StatusUnprocessableEntity, errorBody{Detail: "validation failed", Errors: fields})
	return false
}

// normalize maps a validated language input to its canonical code. "auto"
// passes through.
func normalize(code string) string {
	if strings.EqualFold(code, "auto") {
		return "auto"
	}
	if c, ok := lang.Normalize(code); ok {
		return c
	}
	return code
}
