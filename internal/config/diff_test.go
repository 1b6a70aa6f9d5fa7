package config_test

import (
	"testing"

	"github.com/MrWong99/lingvox/internal/config"
)

func diffBase() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{ListenAddr: ":8080", LogLevel: config.LogInfo},
		Providers: config.ProvidersConfig{
			Translation: []config.ProviderEntry{{Name: "llm", Options: map[string]any{"backend": "groq"}}},
			TTS: []config.ProviderEntry{{Name: "coqui", Options: map[string]any{
				"servers": map[string]any{"ru": "http://ru:5002"},
			}}},
		},
		Synthesis: config.SynthesisConfig{
			Format:   "mp3",
			Speakers: map[string]map[string]string{"ru": {"male": "aidar"}},
		},
	}
}

func TestDiff_NoChanges(t *testing.T) {
	t.Parallel()
	d := config.Diff(diffBase(), diffBase())
	if d.LogLevelChanged || d.RestartRequired || len(d.SpeakerChanges) != 0 {
		t.Errorf("Diff of identical configs = %+v, want empty", d)
	}
}

func TestDiff_LogLevelChanged(t *testing.T) {
	t.Parallel()
	newCfg := diffBase()
	newCfg.Server.LogLevel = config.LogDebug

	d := config.Diff(diffBase(), newCfg)
	if !d.LogLevelChanged {
		t.Error("expected LogLevelChanged=true")
	}
	if d.NewLogLevel != config.LogDebug {
		t.Errorf("NewLogLevel = %q, want debug", d.NewLogLevel)
	}
	if d.RestartRequired {
		t.Error("log level change must not require a restart")
	}
}

func TestDiff_SpeakerChanges(t *testing.T) {
	t.Parallel()
	newCfg := diffBase()
	newCfg.Synthesis.Speakers = map[string]map[string]string{
		"ru": {"male": "eugene", "female": "baya"},
		"de": {"male": "thorsten"},
	}

	d := config.Diff(diffBase(), newCfg)
	if len(d.SpeakerChanges) != 3 {
		t.Fatalf("SpeakerChanges = %+v, want 3 entries", d.SpeakerChanges)
	}
	found := false
	for _, c := range d.SpeakerChanges {
		if c.Language == "ru" && c.Gender == "male" && c.Speaker == "eugene" {
			found = true
		}
	}
	if !found {
		t.Errorf("SpeakerChanges = %+v, missing ru/male=eugene", d.SpeakerChanges)
	}
	if d.RestartRequired {
		t.Error("speaker change must not require a restart")
	}
}

func TestDiff_RestartRequired(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"listen addr", func(c *config.Config) { c.Server.ListenAddr = ":9090" }},
		{"store", func(c *config.Config) { c.Store.DSN = "other.db" }},
		{"workers", func(c *config.Config) { c.Workers.Size = 2 }},
		{"format", func(c *config.Config) { c.Synthesis.Format = "ogg" }},
		{"provider order", func(c *config.Config) {
			c.Providers.Translation = append(c.Providers.Translation, config.ProviderEntry{Name: "google"})
		}},
		{"nested option", func(c *config.Config) {
			c.Providers.TTS[0].Options["servers"] = map[string]any{"ru": "http://other:5002"}
		}},
		{"discord", func(c *config.Config) { c.Discord.Token = "new" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			newCfg := diffBase()
			tt.mutate(newCfg)
			if d := config.Diff(diffBase(), newCfg); !d.RestartRequired {
				t.Errorf("Diff = %+v, want RestartRequired", d)
			}
		})
	}
}
