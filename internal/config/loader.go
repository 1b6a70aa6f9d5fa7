package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/MrWong99/lingvox/internal/lang"
	"github.com/MrWong99/lingvox/pkg/audio"
)

// Provider kinds as used in error messages and the [Registry].
const (
	KindTranslation = "translation"
	KindSTT         = "stt"
	KindTTS         = "tts"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	KindTranslation: {"llm", "google"},
	KindSTT:         {"openai", "whisper", "whisper-native", "deepgram"},
	KindTTS:         {"coqui", "gtts", "elevenlabs"},
}

// Defaults applied by [ApplyDefaults].
const (
	DefaultWorkers         = 4
	DefaultConnectAttempts = 5
	DefaultFormat          = "mp3"
	DefaultSampleRate      = 48000
	DefaultMaxAttachment   = 25 << 20
)

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, fills in defaults and
// validates the result. ${VAR} references are replaced with environment
// variables before decoding so secrets can stay out of the file.
func LoadFromReader(r io.Reader) (*Config, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("config: read: %w", err)
	}
	expanded := os.ExpandEnv(string(raw))

	cfg := &Config{}
	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults fills zero fields of cfg with their defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if cfg.Store.Driver == "" {
		cfg.Store.Driver = StoreMemory
	}
	if cfg.Store.ConnectAttempts == 0 {
		cfg.Store.ConnectAttempts = DefaultConnectAttempts
	}
	if cfg.Workers.Size == 0 {
		cfg.Workers.Size = DefaultWorkers
	}
	if cfg.Synthesis.Format == "" {
		cfg.Synthesis.Format = DefaultFormat
	}
	if cfg.Synthesis.SampleRate == 0 {
		cfg.Synthesis.SampleRate = DefaultSampleRate
	}
	if cfg.Discord.MaxAttachmentSize == 0 {
		cfg.Discord.MaxAttachmentSize = DefaultMaxAttachment
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Store
	if !cfg.Store.Driver.IsValid() {
		errs = append(errs, fmt.Errorf("store.driver %q is invalid; valid values: memory, sqlite, postgres", cfg.Store.Driver))
	}
	if (cfg.Store.Driver == StoreSQLite || cfg.Store.Driver == StorePostgres) && cfg.Store.DSN == "" {
		errs = append(errs, fmt.Errorf("store.dsn is required for driver %q", cfg.Store.Driver))
	}
	if cfg.Store.ConnectAttempts < 0 {
		errs = append(errs, fmt.Errorf("store.connect_attempts %d must not be negative", cfg.Store.ConnectAttempts))
	}

	// Workers
	if cfg.Workers.Size <= 0 {
		errs = append(errs, fmt.Errorf("workers.size %d must be positive", cfg.Workers.Size))
	}

	// Providers
	if len(cfg.Providers.Translation) == 0 {
		errs = append(errs, errors.New("providers.translation needs at least one entry"))
	}
	if len(cfg.Providers.TTS) == 0 {
		errs = append(errs, errors.New("providers.tts needs at least one entry"))
	}
	if len(cfg.Providers.STT) == 0 {
		slog.Warn("no STT provider configured; voice messages will not be transcribed")
	}
	errs = append(errs, validateEntries(KindTranslation, cfg.Providers.Translation)...)
	errs = append(errs, validateEntries(KindSTT, cfg.Providers.STT)...)
	errs = append(errs, validateEntries(KindTTS, cfg.Providers.TTS)...)

	// Synthesis
	if !slices.Contains(audio.Formats(), cfg.Synthesis.Format) {
		errs = append(errs, fmt.Errorf("synthesis.format %q is invalid; valid values: %v", cfg.Synthesis.Format, audio.Formats()))
	}
	if cfg.Synthesis.SampleRate < 0 {
		errs = append(errs, fmt.Errorf("synthesis.sample_rate %d must not be negative", cfg.Synthesis.SampleRate))
	}
	for code, genders := range cfg.Synthesis.Speakers {
		if _, ok := lang.Normalize(code); !ok {
			errs = append(errs, fmt.Errorf("synthesis.speakers: unknown language %q", code))
		}
		for g := range genders {
			if g != "male" && g != "female" {
				errs = append(errs, fmt.Errorf("synthesis.speakers.%s: gender %q must be male or female", code, g))
			}
		}
	}

	if cfg.Discord.MaxAttachmentSize < 0 {
		errs = append(errs, fmt.Errorf("discord.max_attachment_size %d must not be negative", cfg.Discord.MaxAttachmentSize))
	}
	if cfg.Discord.Token == "" && cfg.Server.ListenAddr == "" {
		errs = append(errs, errors.New("neither discord.token nor server.listen_addr is set; nothing to serve"))
	}

	return errors.Join(errs...)
}

// validateEntries checks one provider list for missing and duplicate names.
func validateEntries(kind string, entries []ProviderEntry) []error {
	var errs []error
	seen := make(map[string]int, len(entries))
	for i, e := range entries {
		prefix := fmt.Sprintf("providers.%s[%d]", kind, i)
		if e.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
			continue
		}
		if prev, ok := seen[e.Name]; ok {
			errs = append(errs, fmt.Errorf("%s.name %q is a duplicate of providers.%s[%d]", prefix, e.Name, kind, prev))
		}
		seen[e.Name] = i
		validateProviderName(kind, e.Name)
	}
	return errs
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name, may be a typo or a third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
