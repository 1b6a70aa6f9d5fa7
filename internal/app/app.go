// Package app wires all lingvox subsystems into a running application.
//
// The App struct owns the full lifecycle: New opens the store, builds the
// provider fallback chains and the orchestrators, Run serves the HTTP API and
// the Discord bot, and Shutdown tears everything down in order.
//
// For testing, inject doubles via functional options (WithStore,
// WithTranscoder, WithMetrics). Providers are injected by registering mock
// factories in the [config.Registry] passed to New.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/lingvox/internal/config"
	"github.com/MrWong99/lingvox/internal/dictionary"
	"github.com/MrWong99/lingvox/internal/discord"
	"github.com/MrWong99/lingvox/internal/discord/commands"
	"github.com/MrWong99/lingvox/internal/health"
	"github.com/MrWong99/lingvox/internal/httpapi"
	"github.com/MrWong99/lingvox/internal/observe"
	"github.com/MrWong99/lingvox/internal/pending"
	"github.com/MrWong99/lingvox/internal/resilience"
	"github.com/MrWong99/lingvox/internal/store"
	"github.com/MrWong99/lingvox/internal/synth"
	"github.com/MrWong99/lingvox/internal/transcribe"
	"github.com/MrWong99/lingvox/internal/translate"
	"github.com/MrWong99/lingvox/internal/workpool"
	"github.com/MrWong99/lingvox/pkg/audio"
	"github.com/MrWong99/lingvox/pkg/provider/tts"
)

// readHeaderTimeout bounds how long the HTTP server waits for request headers.
const readHeaderTimeout = 10 * time.Second

// App owns all subsystem lifetimes.
type App struct {
	cfg     *config.Config
	metrics *observe.Metrics

	// Subsystems, initialised in New and torn down in Shutdown.
	store       store.Store
	guard       *store.Guard
	pool        *workpool.Pool
	speakers    *tts.SpeakerTable
	transcoder  synth.Transcoder
	translator  *translate.Orchestrator
	transcriber *transcribe.Orchestrator
	synth       *synth.Orchestrator
	dict        *dictionary.Manager
	pending     *pending.Memory
	health      *health.Handler
	api         *httpapi.Server
	server      *http.Server
	bot         *discord.Bot

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithStore injects a store instead of opening the configured backend.
func WithStore(s store.Store) Option {
	return func(a *App) { a.store = s }
}

// WithTranscoder replaces the ffmpeg runner used by speech synthesis.
func WithTranscoder(t synth.Transcoder) Option {
	return func(a *App) { a.transcoder = t }
}

// WithMetrics replaces [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// ─── New ─────────────────────────────────────────────────────────────────────

// New creates an App by wiring all subsystems together. Providers are
// created from cfg.Providers through reg, in configured order. The Discord
// bot connects during New when a token is configured; ctx then scopes the
// work started by its events.
func New(ctx context.Context, cfg *config.Config, reg *config.Registry, opts ...Option) (*App, error) {
	a := &App{cfg: cfg}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}

	// ── 1. Store ─────────────────────────────────────────────────────────
	if err := a.initStore(ctx); err != nil {
		return nil, err
	}

	// ── 2. Worker pool ───────────────────────────────────────────────────
	a.pool = workpool.New(cfg.Workers.Size, workpool.WithMetrics(a.metrics))
	a.closers = append(a.closers, func() error {
		a.pool.Close()
		return nil
	})

	// ── 3. Provider chains + orchestrators ───────────────────────────────
	if err := a.initOrchestrators(reg); err != nil {
		a.closeAll()
		return nil, err
	}

	// ── 4. Health ────────────────────────────────────────────────────────
	checkers := []health.Checker{health.Ping("store", a.store)}
	if ff, ok := a.transcoder.(*audio.FFmpeg); ok {
		checkers = append(checkers, health.Checker{Name: "ffmpeg", Check: ff.Check})
	}
	a.health = health.New(checkers...)

	// ── 5. HTTP API ──────────────────────────────────────────────────────
	if err := a.initHTTP(); err != nil {
		a.closeAll()
		return nil, err
	}

	// ── 6. Discord bot ───────────────────────────────────────────────────
	if err := a.initDiscord(ctx); err != nil {
		a.closeAll()
		return nil, err
	}

	return a, nil
}

// ─── Init helpers ────────────────────────────────────────────────────────────

func (a *App) initStore(ctx context.Context) error {
	if a.store == nil {
		s, err := OpenStore(ctx, a.cfg.Store)
		if err != nil {
			return err
		}
		a.store = s
		slog.Info("store opened", "driver", a.cfg.Store.Driver)
	}
	a.closers = append(a.closers, a.store.Close)
	a.guard = store.NewGuard(a.store)
	return nil
}

// fallbackConfig returns the chain settings shared by all provider kinds.
func (a *App) fallbackConfig(kind string) resilience.FallbackConfig {
	cb := a.cfg.Providers.CircuitBreaker
	return resilience.FallbackConfig{
		Kind: kind,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			MaxFailures:  cb.MaxFailures,
			ResetTimeout: cb.ResetTimeout,
		},
		OnAttempt:       a.metrics.RecordAttempt,
		OnFallback:      a.metrics.RecordFallback,
		OnBreakerChange: func(kind, provider string, _, to resilience.State) {
			a.metrics.RecordBreakerChange(context.Background(), kind, provider, to.String())
		},
	}
}

// BuildChains creates the translation, STT and TTS fallback chains of cfg
// through reg. Providers implementing io.Closer are returned in closers.
func BuildChains(cfg config.ProvidersConfig, reg *config.Registry, fc func(kind string) resilience.FallbackConfig) (
	tr *resilience.TranslationFallback,
	st *resilience.STTFallback,
	sp *resilience.TTSFallback,
	closers []io.Closer,
	err error,
) {
	track := func(p any) {
		if c, ok := p.(io.Closer); ok {
			closers = append(closers, c)
		}
	}

	tr = resilience.NewTranslationFallback(fc(config.KindTranslation))
	for _, e := range cfg.Translation {
		p, err := reg.CreateTranslation(e)
		if err != nil {
			return nil, nil, nil, closers, fmt.Errorf("app: create translation provider %q: %w", e.Name, err)
		}
		track(p)
		tr.Add(e.Name, p)
	}

	st = resilience.NewSTTFallback(fc(config.KindSTT))
	for _, e := range cfg.STT {
		p, err := reg.CreateSTT(e)
		if err != nil {
			return nil, nil, nil, closers, fmt.Errorf("app: create stt provider %q: %w", e.Name, err)
		}
		track(p)
		st.Add(e.Name, p)
	}

	sp = resilience.NewTTSFallback(fc(config.KindTTS))
	for _, e := range cfg.TTS {
		p, err := reg.CreateTTS(e)
		if err != nil {
			return nil, nil, nil, closers, fmt.Errorf("app: create tts provider %q: %w", e.Name, err)
		}
		track(p)
		sp.Add(e.Name, p)
	}
	return tr, st, sp, closers, nil
}

func (a *App) initOrchestrators(reg *config.Registry) error {
	tr, st, sp, closers, err := BuildChains(a.cfg.Providers, reg, a.fallbackConfig)
	for _, c := range closers {
		a.closers = append(a.closers, c.Close)
	}
	if err != nil {
		return err
	}
	slog.Info("provider chains built",
		"translation", tr.Names(),
		"stt", st.Names(),
		"tts", sp.Names(),
	)

	a.speakers = tts.DefaultSpeakers()
	ApplySpeakers(a.speakers, a.cfg.Synthesis.Speakers)

	if a.transcoder == nil {
		a.transcoder = audio.NewFFmpeg(
			audio.WithBinary(a.cfg.Synthesis.FFmpegPath),
			audio.WithBitrate(a.cfg.Synthesis.Bitrate),
			audio.WithObserver(func(ctx context.Context, d time.Duration) {
				a.metrics.TranscodeDuration.Record(ctx, d.Seconds())
			}),
		)
	}

	a.translator = translate.New(a.guard, tr, a.pool, translate.WithMetrics(a.metrics))
	a.transcriber = transcribe.New(st, a.pool, transcribe.WithMetrics(a.metrics))
	a.synth = synth.New(a.guard, a.speakers, sp, a.transcoder, a.pool,
		synth.WithMetrics(a.metrics),
		synth.WithFormat(a.cfg.Synthesis.Format),
		synth.WithSampleRate(a.cfg.Synthesis.SampleRate),
		synth.WithTempDir(a.cfg.Synthesis.TempDir),
	)
	a.dict = dictionary.NewManager(a.guard)
	a.pending = pending.NewMemory()
	return nil
}

func (a *App) initHTTP() error {
	api, err := httpapi.New(httpapi.Deps{
		Translator:     a.translator,
		Transcriber:    a.transcriber,
		Synthesizer:    a.synth,
		Dictionary:     a.dict,
		Settings:       a.guard,
		Speakers:       a.speakers,
		Health:         a.health,
		Metrics:        a.metrics,
		MetricsHandler: promhttp.Handler(),
		TempDir:        a.cfg.Synthesis.TempDir,
	})
	if err != nil {
		return fmt.Errorf("app: init http api: %w", err)
	}
	a.api = api
	if a.cfg.Server.ListenAddr != "" {
		a.server = &http.Server{
			Addr:              a.cfg.Server.ListenAddr,
			Handler:           api.Handler(),
			ReadHeaderTimeout: readHeaderTimeout,
		}
	}
	return nil
}

func (a *App) initDiscord(ctx context.Context) error {
	if a.cfg.Discord.Token == "" {
		return nil
	}
	handler := discord.NewHandler(a.translator, a.transcriber, a.synth, a.guard, a.pending,
		discord.WithTempDir(a.cfg.Synthesis.TempDir),
		discord.WithDownloader(discord.NewDownloader(a.cfg.Discord.MaxAttachmentSize)),
	)
	bot, err := discord.New(ctx, discord.Config{
		Token:         a.cfg.Discord.Token,
		GuildID:       a.cfg.Discord.GuildID,
		ManagerRoleID: a.cfg.Discord.ManagerRoleID,
	}, handler)
	if err != nil {
		return fmt.Errorf("app: init discord: %w", err)
	}
	a.bot = bot
	a.closers = append(a.closers, bot.Close)

	RegisterCommands(bot.Router(), bot.Permissions(), a.guard, a.dict, a.speakers)
	slog.Info("discord bot connected", "guild_id", a.cfg.Discord.GuildID)
	return nil
}

// RegisterCommands installs every slash command on router.
func RegisterCommands(router *discord.CommandRouter, perms *discord.PermissionChecker, guard *store.Guard, dict *dictionary.Manager, speakers *tts.SpeakerTable) {
	commands.NewLangCommands(perms, guard).Register(router)
	commands.NewDictCommands(perms, guard, dict).Register(router)
	commands.NewVoiceCommands(perms, guard, speakers).Register(router)
	commands.NewModeCommands(perms, guard).Register(router)
	commands.HelpCommand{}.Register(router)
}

// ApplySpeakers copies configured default speaker overrides into t.
func ApplySpeakers(t *tts.SpeakerTable, overrides map[string]map[string]string) {
	for language, genders := range overrides {
		for gender, speaker := range genders {
			t.SetDefault(language, gender, speaker)
		}
	}
}

// ─── Accessors ───────────────────────────────────────────────────────────────

// Handler returns the HTTP API handler.
func (a *App) Handler() http.Handler { return a.api.Handler() }

// Speakers returns the speaker table shared by synthesis and the front ends.
func (a *App) Speakers() *tts.SpeakerTable { return a.speakers }

// ─── Run ─────────────────────────────────────────────────────────────────────

// Run serves the HTTP API and the Discord bot until ctx is cancelled or one
// of them fails. It returns nil after a clean cancellation.
func (a *App) Run(ctx context.Context) error {
	if a.server == nil && a.bot == nil {
		slog.Warn("neither server.listen_addr nor discord.token is set; idling")
		<-ctx.Done()
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)

	if a.server != nil {
		g.Go(func() error {
			slog.Info("http api listening", "addr", a.server.Addr)
			if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("app: http api: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return a.server.Shutdown(shutdownCtx)
		})
	}

	if a.bot != nil {
		g.Go(func() error { return a.bot.Run(gctx) })
	}

	slog.Info("app running", "http", a.server != nil, "discord", a.bot != nil)
	return g.Wait()
}

// ─── Shutdown ────────────────────────────────────────────────────────────────

// Shutdown tears down all subsystems in reverse-init order. It respects the
// context deadline: if ctx expires before all closers finish, remaining
// closers are skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))
		for i := len(a.closers) - 1; i >= 0; i-- {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", i+1)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := a.closers[i](); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}
		slog.Info("shutdown complete")
	})
	return shutdownErr
}

// closeAll releases what New acquired before failing.
func (a *App) closeAll() {
	_ = a.Shutdown(context.Background())
}
