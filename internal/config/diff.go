package config

import "maps"

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// SpeakerChanges lists the default speakers that were added or changed.
	// Removed overrides are not reported: the built-in default is only
	// restored on restart.
	SpeakerChanges []SpeakerDiff

	// RestartRequired is set when anything else changed. Those changes are
	// ignored until the process restarts.
	RestartRequired bool
}

// SpeakerDiff is one changed default speaker.
type SpeakerDiff struct {
	Language string
	Gender   string
	Speaker  string
}

// Diff compares old and new configs and returns what changed.
// Only tracks changes that are safe to apply without restart.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	// Log level
	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	// Speaker overrides
	for code, genders := range new.Synthesis.Speakers {
		prev := old.Synthesis.Speakers[code]
		for g, speaker := range genders {
			if prev[g] != speaker {
				d.SpeakerChanges = append(d.SpeakerChanges, SpeakerDiff{Language: code, Gender: g, Speaker: speaker})
			}
		}
	}

	d.RestartRequired = restartRelevant(old) != restartRelevant(new) ||
		!providersEqual(old.Providers, new.Providers)
	return d
}

// restartView is the comparable part of a config that cannot be hot-reloaded.
type restartView struct {
	listen     string
	store      StoreConfig
	workers    WorkersConfig
	format     string
	sampleRate int
	bitrate    int
	ffmpeg     string
	tempDir    string
	discord    DiscordConfig
}

func restartRelevant(c *Config) restartView {
	return restartView{
		listen:     c.Server.ListenAddr,
		store:      c.Store,
		workers:    c.Workers,
		format:     c.Synthesis.Format,
		sampleRate: c.Synthesis.SampleRate,
		bitrate:    c.Synthesis.Bitrate,
		ffmpeg:     c.Synthesis.FFmpegPath,
		tempDir:    c.Synthesis.TempDir,
		discord:    c.Discord,
	}
}

func providersEqual(a, b ProvidersConfig) bool {
	if a.CircuitBreaker != b.CircuitBreaker {
		return false
	}
	return entriesEqual(a.Translation, b.Translation) &&
		entriesEqual(a.STT, b.STT) &&
		entriesEqual(a.TTS, b.TTS)
}

func entriesEqual(a, b []ProviderEntry) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		x, y := a[i], b[i]
		if x.Name != y.Name || x.APIKey != y.APIKey || x.BaseURL != y.BaseURL || x.Model != y.Model {
			return false
		}
		if !maps.EqualFunc(x.Options, y.Options, func(v, w any) bool { return optionEqual(v, w) }) {
			return false
		}
	}
	return true
}

// optionEqual compares decoded YAML option values. Nested maps and lists are
// compared by their formatted form.
func optionEqual(a, b any) bool {
	switch av := a.(type) {
	case map[string]any:
		bv, ok := b.(map[string]any)
		return ok && maps.EqualFunc(av, bv, optionEqual)
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !optionEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	}
	return a == b
}
