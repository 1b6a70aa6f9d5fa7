// Package lang holds the table of supported translation languages and the
// helpers used to normalise user input into canonical language codes.
package lang

import (
	"slices"
	"strings"
	"unicode"
)

// Default language pair used for chats that never configured one.
const (
	DefaultPrimary   = "ru"
	DefaultSecondary = "en"
)

// Language describes one supported translation language.
type Language struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// supported maps canonical codes to English display names. The LLM
// translator uses the names in its system prompt.
var supported = map[string]string{
	"af": "Afrikaans", "sq": "Albanian", "am": "Amharic", "ar": "Arabic",
	"hy": "Armenian", "az": "Azerbaijani", "eu": "Basque", "be": "Belarusian",
	"bn": "Bengali", "bs": "Bosnian", "bg": "Bulgarian", "ca": "Catalan",
	"zh-CN": "Chinese (Simplified)", "zh-TW": "Chinese (Traditional)",
	"hr": "Croatian", "cs": "Czech", "da": "Danish", "nl": "Dutch",
	"en": "English", "eo": "Esperanto", "et": "Estonian", "fi": "Finnish",
	"fr": "French", "gl": "Galician", "ka": "Georgian", "de": "German",
	"el": "Greek", "gu": "Gujarati", "iw": "Hebrew", "hi": "Hindi",
	"hu": "Hungarian", "is": "Icelandic", "id": "Indonesian", "ga": "Irish",
	"it": "Italian", "ja": "Japanese", "kn": "Kannada", "kk": "Kazakh",
	"ko": "Korean", "ky": "Kyrgyz", "lv": "Latvian", "lt": "Lithuanian",
	"mk": "Macedonian", "ms": "Malay", "ml": "Malayalam", "mt": "Maltese",
	"mr": "Marathi", "mn": "Mongolian", "ne": "Nepali", "no": "Norwegian",
	"fa": "Persian", "pl": "Polish", "pt": "Portuguese", "pa": "Punjabi",
	"ro": "Romanian", "ru": "Russian", "sr": "Serbian", "sk": "Slovak",
	"sl": "Slovenian", "es": "Spanish", "sw": "Swahili", "sv": "Swedish",
	"tg": "Tajik", "ta": "Tamil", "te": "Telugu", "th": "Thai",
	"tr": "Turkish", "uk": "Ukrainian", "ur": "Urdu", "uz": "Uzbek",
	"vi": "Vietnamese", "cy": "Welsh", "yi": "Yiddish",
}

var aliases = map[string]string{
	"cn": "zh-CN",
	"ua": "uk",
	"cz": "cs",
	"jp": "ja",
	"kr": "ko",
	"rs": "sr",
	"by": "be",
}

// cyrillicPrimary lists the languages whose presence of Cyrillic text is
// enough to assume the message is already written in them.
var cyrillicPrimary = map[string]bool{
	"ru": true, "uk": true, "be": true, "sr": true, "bg": true,
	"mk": true, "kk": true, "ky": true, "tg": true,
}

// Normalize resolves a language code or English name (case-insensitive,
// aliases allowed) to its canonical code. It reports false for unknown input.
func Normalize(input string) (string, bool) {
	in := strings.ToLower(strings.TrimSpace(input))
	if in == "" {
		return "", false
	}
	if a, ok := aliases[in]; ok {
		in = strings.ToLower(a)
	}
	for code, name := range supported {
		if strings.ToLower(code) == in || strings.ToLower(name) == in {
			return code, true
		}
	}
	return "", false
}

// Name returns the English name for code, or the code itself when unknown.
func Name(code string) string {
	if n, ok := supported[code]; ok {
		return n
	}
	if c, ok := Normalize(code); ok {
		return supported[c]
	}
	return code
}

// Supported returns every supported language sorted by name.
func Supported() []Language {
	out := make([]Language, 0, len(supported))
	for code, name := range supported {
		out = append(out, Language{Code: code, Name: name})
	}
	slices.SortFunc(out, func(a, b Language) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// IsCyrillic reports whether code belongs to the Cyrillic-script set.
func IsCyrillic(code string) bool {
	return cyrillicPrimary[strings.ToLower(code)]
}

// HasCyrillic reports whether text contains any code point of the Cyrillic
// script, including the letters Ukrainian, Serbian or Kazakh add to Russian.
func HasCyrillic(text string) bool {
	return strings.ContainsFunc(text, func(r rune) bool { return unicode.Is(unicode.Cyrillic, r) })
}

// PairKey returns the order-independent key of a language pair: both codes
// sorted alphabetically and joined with "-".
func PairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "-" + b
}

// Pair is a chat's configured primary and secondary language.
type Pair struct {
	Primary   string `json:"primary"`
	Secondary string `json:"secondary"`
}

// DefaultPair returns the ru/en pair.
func DefaultPair() Pair {
	return Pair{Primary: DefaultPrimary, Secondary: DefaultSecondary}
}

// Key returns the dictionary key of p.
func (p Pair) Key() string { return PairKey(p.Primary, p.Secondary) }

// SpeechLanguage picks the synthesis language for text within a chat's pair:
// Cyrillic text is voiced in the pair's Cyrillic language (ru when neither
// is), other text in English when the pair contains it, else in the
// secondary language.
func SpeechLanguage(text string, p Pair) string {
	if HasCyrillic(text) {
		switch {
		case IsCyrillic(p.Primary):
			return p.Primary
		case IsCyrillic(p.Secondary):
			return p.Secondary
		default:
			return "ru"
		}
	}
	if p.Primary == "en" || p.Secondary == "en" {
		return "en"
	}
	return p.Secondary
}
