// Package config provides the configuration schema, loader, and provider registry
// for the lingvox translation service.
package config

import (
	"fmt"
	"strconv"
	"time"
)

// LogLevel controls log verbosity for the lingvox server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// StoreDriver selects the persistence backend.
type StoreDriver string

const (
	// StoreMemory keeps everything in process memory. Nothing survives a
	// restart.
	StoreMemory StoreDriver = "memory"

	// StoreSQLite uses an embedded SQLite database file.
	StoreSQLite StoreDriver = "sqlite"

	// StorePostgres uses a PostgreSQL server.
	StorePostgres StoreDriver = "postgres"
)

// IsValid reports whether d is a recognised store driver.
func (d StoreDriver) IsValid() bool {
	switch d {
	case StoreMemory, StoreSQLite, StorePostgres:
		return true
	}
	return false
}

// Config is the root configuration structure for lingvox.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Store     StoreConfig     `yaml:"store"`
	Workers   WorkersConfig   `yaml:"workers"`
	Providers ProvidersConfig `yaml:"providers"`
	Synthesis SynthesisConfig `yaml:"synthesis"`
	Discord   DiscordConfig   `yaml:"discord"`
}

// ServerConfig holds network and logging settings for the HTTP API.
type ServerConfig struct {
	// ListenAddr is the TCP address the HTTP API listens on (e.g., ":8080").
	// Empty disables the HTTP API.
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// StoreConfig selects and locates the persistence backend.
type StoreConfig struct {
	// Driver is one of memory, sqlite or postgres. Defaults to memory.
	Driver StoreDriver `yaml:"driver"`

	// DSN is the SQLite file path or the PostgreSQL connection string.
	DSN string `yaml:"dsn"`

	// ConnectAttempts is how often opening the store is tried before startup
	// fails. Defaults to 5.
	ConnectAttempts int `yaml:"connect_attempts"`
}

// WorkersConfig sizes the shared worker pool.
type WorkersConfig struct {
	// Size is the number of concurrent provider calls. Defaults to 4.
	Size int `yaml:"size"`
}

// ProvidersConfig lists the fallback chain of each provider kind. Entries are
// tried in the order given; each Name selects a provider registered in the
// [Registry].
type ProvidersConfig struct {
	Translation []ProviderEntry `yaml:"translation"`
	STT         []ProviderEntry `yaml:"stt"`
	TTS         []ProviderEntry `yaml:"tts"`

	// CircuitBreaker tunes the breaker wrapped around every entry.
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
}

// CircuitBreakerConfig mirrors the tunables of resilience.CircuitBreaker.
// Zero values select the breaker defaults.
type CircuitBreakerConfig struct {
	MaxFailures  int           `yaml:"max_failures"`
	ResetTimeout time.Duration `yaml:"reset_timeout"`
}

// ProviderEntry is the common configuration block shared by all provider types.
// The Name field is used to look up the constructor in the [Registry].
type ProviderEntry struct {
	// Name selects the registered provider implementation (e.g., "llm", "coqui").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	// Leave empty to use the provider's built-in default.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider (e.g.,
	// "llama-3.3-70b-versatile", "whisper-large-v3").
	Model string `yaml:"model"`

	// Options holds provider-specific configuration values not covered by the
	// standard fields above. Values may be strings, numbers, booleans, or nested maps.
	Options map[string]any `yaml:"options"`
}

// String returns the option stored under key, or "" if it is absent or not a
// scalar.
func (e ProviderEntry) String(key string) string {
	switch v := e.Options[key].(type) {
	case string:
		return v
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	}
	return ""
}

// Int returns the integer option stored under key, or def.
func (e ProviderEntry) Int(key string, def int) int {
	switch v := e.Options[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// Duration returns the duration option stored under key, or def. Values are
// Go duration strings ("15s") or plain numbers of seconds.
func (e ProviderEntry) Duration(key string, def time.Duration) time.Duration {
	switch v := e.Options[key].(type) {
	case string:
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	case int:
		return time.Duration(v) * time.Second
	case float64:
		return time.Duration(v * float64(time.Second))
	}
	return def
}

// StringMap returns the nested string map stored under key, or nil.
func (e ProviderEntry) StringMap(key string) map[string]string {
	raw, ok := e.Options[key].(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		out[k] = fmt.Sprint(v)
	}
	return out
}

// StringList returns the list of strings stored under key, or nil.
func (e ProviderEntry) StringList(key string) []string {
	raw, ok := e.Options[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		out = append(out, fmt.Sprint(v))
	}
	return out
}

// SynthesisConfig controls how synthesised speech is encoded and which
// speakers are used.
type SynthesisConfig struct {
	// Format is the delivered container, "mp3" (default) or "ogg".
	Format string `yaml:"format"`

	// SampleRate is the rate raw PCM is resampled to before encoding.
	// Defaults to 48000.
	SampleRate int `yaml:"sample_rate"`

	// Bitrate in kbit/s for lossy formats. Defaults to 128.
	Bitrate int `yaml:"bitrate"`

	// FFmpegPath overrides the ffmpeg executable. Defaults to "ffmpeg".
	FFmpegPath string `yaml:"ffmpeg_path"`

	// TempDir holds intermediate audio files. Defaults to the OS temp dir.
	TempDir string `yaml:"temp_dir"`

	// Speakers overrides the built-in default speaker per language and gender,
	// e.g. {"de": {"male": "thorsten"}}.
	Speakers map[string]map[string]string `yaml:"speakers"`
}

// DiscordConfig configures the Discord front end. An empty Token disables
// the bot.
type DiscordConfig struct {
	Token string `yaml:"token"`

	// GuildID registers slash commands in one guild instead of globally,
	// which makes them available immediately.
	GuildID string `yaml:"guild_id"`

	// ManagerRoleID restricts settings commands to members with this role.
	// Empty allows everyone.
	ManagerRoleID string `yaml:"manager_role_id"`

	// MaxAttachmentSize caps voice attachment downloads in bytes. Defaults
	// to 25 MiB.
	MaxAttachmentSize int64 `yaml:"max_attachment_size"`
}
