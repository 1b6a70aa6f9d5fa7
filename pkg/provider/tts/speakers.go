package tts

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
)

// Gender values used by [SpeakerTable].
const (
	GenderMale    = "male"
	GenderFemale  = "female"
	GenderUnknown = "unknown"
)

// Voice is one speaker offered by the multi-speaker synthesizer.
type Voice struct {
	Name   string `json:"name"`
	Gender string `json:"gender"`
}

// SpeakerTable maps languages to the default speaker per gender and to the
// catalogue of selectable voices. Lookups accept "ua" for Ukrainian. It is
// safe for concurrent use; defaults may change while the table is shared.
type SpeakerTable struct {
	mu       sync.RWMutex
	defaults map[string]map[string]string
	voices   map[string][]Voice
}

// DefaultSpeakers returns the built-in table. Default speakers exist for
// Russian, Ukrainian and English; German, Spanish and French voices can be
// chosen through presets.
func DefaultSpeakers() *SpeakerTable {
	en := make([]Voice, 118)
	for i := range en {
		en[i] = Voice{Name: fmt.Sprintf("en_%d", i), Gender: GenderUnknown}
	}
	return &SpeakerTable{
		defaults: map[string]map[string]string{
			"ru": {GenderMale: "aidar", GenderFemale: "kseniya"},
			"uk": {GenderMale: "mykyta"},
			"en": {GenderMale: "en_2", GenderFemale: "en_1"},
		},
		voices: map[string][]Voice{
			"ru": {
				{"aidar", GenderMale},
				{"baya", GenderFemale},
				{"kseniya", GenderFemale},
				{"xenia", GenderFemale},
				{"eugene", GenderMale},
				{"random", GenderUnknown},
			},
			"uk": {{"mykyta", GenderMale}},
			"de": {{"thorsten", GenderMale}},
			"es": {{"es_0", GenderMale}},
			"fr": {
				{"fr_0", GenderMale},
				{"fr_1", GenderFemale},
				{"fr_2", GenderMale},
				{"fr_3", GenderMale},
				{"fr_4", GenderMale},
				{"fr_5", GenderFemale},
			},
			"en": en,
		},
	}
}

func tableKey(language string) string {
	l := strings.ToLower(strings.TrimSpace(language))
	if l == "ua" {
		return "uk"
	}
	return l
}

// Speaker returns the default speaker for language and gender. A language
// with only a male default uses it for every gender.
func (t *SpeakerTable) Speaker(language, gender string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	byGender, ok := t.defaults[tableKey(language)]
	if !ok {
		return "", false
	}
	if s, ok := byGender[strings.ToLower(gender)]; ok {
		return s, true
	}
	s, ok := byGender[GenderMale]
	return s, ok
}

// Voices returns the selectable voices for language.
func (t *SpeakerTable) Voices(language string) ([]Voice, bool) {
	v, ok := t.voices[tableKey(language)]
	return slices.Clone(v), ok
}

// Languages returns the languages that have a default speaker, sorted.
func (t *SpeakerTable) Languages() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Sorted(maps.Keys(t.defaults))
}

// SetDefault overrides the default speaker for language and gender.
func (t *SpeakerTable) SetDefault(language, gender, speaker string) {
	key := tableKey(language)
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.defaults[key] == nil {
		t.defaults[key] = make(map[string]string)
	}
	t.defaults[key][strings.ToLower(gender)] = speaker
}
