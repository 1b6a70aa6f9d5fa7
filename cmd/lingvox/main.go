// Command lingvox is the main entry point for the lingvox translation server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/MrWong99/lingvox/internal/app"
	"github.com/MrWong99/lingvox/internal/config"
	"github.com/MrWong99/lingvox/internal/observe"
	"github.com/MrWong99/lingvox/pkg/audio"
	"github.com/MrWong99/lingvox/pkg/provider/llm/anyllm"
	"github.com/MrWong99/lingvox/pkg/provider/stt"
	"github.com/MrWong99/lingvox/pkg/provider/stt/deepgram"
	oastt "github.com/MrWong99/lingvox/pkg/provider/stt/openai"
	"github.com/MrWong99/lingvox/pkg/provider/stt/whisper"
	"github.com/MrWong99/lingvox/pkg/provider/translation"
	"github.com/MrWong99/lingvox/pkg/provider/translation/google"
	llmtr "github.com/MrWong99/lingvox/pkg/provider/translation/llm"
	"github.com/MrWong99/lingvox/pkg/provider/tts"
	"github.com/MrWong99/lingvox/pkg/provider/tts/coqui"
	"github.com/MrWong99/lingvox/pkg/provider/tts/elevenlabs"
	"github.com/MrWong99/lingvox/pkg/provider/tts/gtts"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "lingvox: config file %q not found, copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "lingvox: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	var level slog.LevelVar
	level.Set(slogLevel(cfg.Server.LogLevel))
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: &level})))

	slog.Info("lingvox starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"store", cfg.Store.Driver,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.Setup(ctx, observe.WithService(observe.ServiceName, version))
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		if err := otelShutdown(context.Background()); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Provider registry ─────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg, cfg.Synthesis)

	application, err := app.New(ctx, cfg, reg)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	// ── Config hot reload ─────────────────────────────────────────────────────
	watcher, err := config.NewWatcher(*configPath, func(d config.ConfigDiff, _ *config.Config) {
		if d.LogLevelChanged {
			level.Set(slogLevel(d.NewLogLevel))
			slog.Info("log level changed", "level", d.NewLogLevel)
		}
		for _, sc := range d.SpeakerChanges {
			application.Speakers().SetDefault(sc.Language, sc.Gender, sc.Speaker)
			slog.Info("default speaker changed", "language", sc.Language, "gender", sc.Gender, "speaker", sc.Speaker)
		}
	})
	if err != nil {
		slog.Warn("config hot reload disabled", "err", err)
	} else {
		go watcher.Run(ctx)
	}

	slog.Info("server ready, press Ctrl+C to shut down")

	runErr := application.Run(ctx)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		slog.Error("run error", "err", runErr)
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	slog.Info("stopping")
	if err := application.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// registerBuiltinProviders wires all built-in provider factories into reg.
// Each factory receives a config.ProviderEntry and constructs the provider
// from its implementation package. syn supplies the ffmpeg binary and temp
// dir shared with the local Whisper decoders.
func registerBuiltinProviders(reg *config.Registry, syn config.SynthesisConfig) {
	decoder := audio.NewFFmpeg(audio.WithBinary(syn.FFmpegPath))

	// ── Translation ───────────────────────────────────────────────────────────

	// llm prompts a chat model; options.backend picks the any-llm provider
	// (groq, openai, anthropic, gemini, ollama, mistral, deepseek).
	reg.RegisterTranslation("llm", func(entry config.ProviderEntry) (translation.Provider, error) {
		backend := entry.String("backend")
		if backend == "" {
			backend = "groq"
		}
		var llmOpts []anyllmlib.Option
		if entry.APIKey != "" {
			llmOpts = append(llmOpts, anyllmlib.WithAPIKey(entry.APIKey))
		}
		if entry.BaseURL != "" {
			llmOpts = append(llmOpts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		model, err := anyllm.New(backend, entry.Model, llmOpts...)
		if err != nil {
			return nil, err
		}
		var opts []llmtr.Option
		if t := entry.String("temperature"); t != "" {
			f, err := strconv.ParseFloat(t, 64)
			if err != nil {
				return nil, fmt.Errorf("llm: temperature %q: %w", t, err)
			}
			opts = append(opts, llmtr.WithTemperature(f))
		}
		if n := entry.Int("max_tokens", 0); n > 0 {
			opts = append(opts, llmtr.WithMaxTokens(n))
		}
		return llmtr.New(model, opts...), nil
	})

	reg.RegisterTranslation("google", func(entry config.ProviderEntry) (translation.Provider, error) {
		var opts []google.Option
		if entry.BaseURL != "" {
			opts = append(opts, google.WithBaseURL(entry.BaseURL))
		}
		if d := entry.Duration("timeout", 0); d > 0 {
			opts = append(opts, google.WithTimeout(d))
		}
		return google.New(opts...), nil
	})

	// ── STT ───────────────────────────────────────────────────────────────────

	reg.RegisterSTT("openai", func(entry config.ProviderEntry) (stt.Provider, error) {
		var opts []oastt.Option
		if entry.BaseURL != "" {
			opts = append(opts, oastt.WithBaseURL(entry.BaseURL))
		}
		if entry.Model != "" {
			opts = append(opts, oastt.WithModel(entry.Model))
		}
		if d := entry.Duration("timeout", 0); d > 0 {
			opts = append(opts, oastt.WithTimeout(d))
		}
		if n := entry.Int("max_retries", -1); n >= 0 {
			opts = append(opts, oastt.WithMaxRetries(n))
		}
		return oastt.New(entry.APIKey, opts...)
	})

	reg.RegisterSTT("whisper", func(entry config.ProviderEntry) (stt.Provider, error) {
		opts := []whisper.Option{whisper.WithDecoder(decoder)}
		if entry.Model != "" {
			opts = append(opts, whisper.WithModel(entry.Model))
		}
		if lang := entry.String("language"); lang != "" {
			opts = append(opts, whisper.WithLanguage(lang))
		}
		if d := entry.Duration("timeout", 0); d > 0 {
			opts = append(opts, whisper.WithTimeout(d))
		}
		if syn.TempDir != "" {
			opts = append(opts, whisper.WithTempDir(syn.TempDir))
		}
		return whisper.New(entry.BaseURL, opts...)
	})

	reg.RegisterSTT("whisper-native", func(entry config.ProviderEntry) (stt.Provider, error) {
		modelPath := entry.Model
		if modelPath == "" {
			modelPath = entry.String("model_path")
		}
		var opts []whisper.NativeOption
		if lang := entry.String("language"); lang != "" {
			opts = append(opts, whisper.WithNativeLanguage(lang))
		}
		if n := entry.Int("beam_size", 0); n > 0 {
			opts = append(opts, whisper.WithBeamSize(n))
		}
		if n := entry.Int("threads", 0); n > 0 {
			opts = append(opts, whisper.WithThreads(n))
		}
		return whisper.NewNative(modelPath, decoder, opts...)
	})

	reg.RegisterSTT("deepgram", func(entry config.ProviderEntry) (stt.Provider, error) {
		var opts []deepgram.Option
		if entry.Model != "" {
			opts = append(opts, deepgram.WithModel(entry.Model))
		}
		if entry.BaseURL != "" {
			opts = append(opts, deepgram.WithBaseURL(entry.BaseURL))
		}
		if d := entry.Duration("timeout", 0); d > 0 {
			opts = append(opts, deepgram.WithTimeout(d))
		}
		return deepgram.New(entry.APIKey, opts...)
	})

	// ── TTS ───────────────────────────────────────────────────────────────────

	// coqui reads one model server per language from options.servers; a
	// plain base_url serves options.languages (default ru, uk, en).
	reg.RegisterTTS("coqui", func(entry config.ProviderEntry) (tts.Provider, error) {
		servers := entry.StringMap("servers")
		if len(servers) == 0 && entry.BaseURL != "" {
			langs := entry.StringList("languages")
			if len(langs) == 0 {
				langs = []string{"ru", "uk", "en"}
			}
			servers = make(map[string]string, len(langs))
			for _, l := range langs {
				servers[l] = entry.BaseURL
			}
		}
		var opts []coqui.Option
		if mode := entry.String("api_mode"); mode != "" {
			opts = append(opts, coqui.WithAPIMode(coqui.APIMode(mode)))
		}
		if rate := entry.Int("output_sample_rate", 0); rate > 0 {
			opts = append(opts, coqui.WithOutputSampleRate(rate))
		}
		if codes := entry.StringMap("language_codes"); len(codes) > 0 {
			opts = append(opts, coqui.WithLanguageCodes(codes))
		}
		if d := entry.Duration("timeout", 0); d > 0 {
			opts = append(opts, coqui.WithTimeout(d))
		}
		return coqui.New(servers, opts...)
	})

	reg.RegisterTTS("gtts", func(entry config.ProviderEntry) (tts.Provider, error) {
		var opts []gtts.Option
		if entry.BaseURL != "" {
			opts = append(opts, gtts.WithBaseURL(entry.BaseURL))
		}
		if tld := entry.String("tld"); tld != "" {
			opts = append(opts, gtts.WithTLD(tld))
		}
		if d := entry.Duration("timeout", 0); d > 0 {
			opts = append(opts, gtts.WithTimeout(d))
		}
		if entry.String("slow") == "true" {
			opts = append(opts, gtts.WithSlow())
		}
		return gtts.New(opts...), nil
	})

	reg.RegisterTTS("elevenlabs", func(entry config.ProviderEntry) (tts.Provider, error) {
		var opts []elevenlabs.Option
		if entry.Model != "" {
			opts = append(opts, elevenlabs.WithModel(entry.Model))
		}
		if outputFmt := entry.String("output_format"); outputFmt != "" {
			opts = append(opts, elevenlabs.WithOutputFormat(outputFmt))
		}
		if langs := entry.StringList("languages"); len(langs) > 0 {
			opts = append(opts, elevenlabs.WithLanguages(langs...))
		}
		if entry.BaseURL != "" {
			opts = append(opts, elevenlabs.WithBaseURL(entry.BaseURL))
		}
		return elevenlabs.New(entry.APIKey, entry.String("voice_id"), opts...)
	})

	for _, kind := range []string{config.KindTranslation, config.KindSTT, config.KindTTS} {
		slog.Debug("registered providers", "kind", kind, "names", reg.Names(kind))
	}
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
