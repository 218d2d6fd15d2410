// Package lang holds the static table of languages a learner can pick as
// native or target language.
package lang

import "strings"

// Default language codes used until the learner picks their own.
const (
	DefaultNative = "en"
	DefaultTarget = "es"
)

// Language is immutable reference data.
type Language struct {
	Code string
	Name string
	Flag string
}

var languages = []Language{
	{Code: "en", Name: "English", Flag: "🇺🇸"},
	{Code: "es", Name: "Spanish", Flag: "🇪🇸"},
	{Code: "fr", Name: "French", Flag: "🇫🇷"},
	{Code: "de", Name: "German", Flag: "🇩🇪"},
	{Code: "it", Name: "Italian", Flag: "🇮🇹"},
	{Code: "pt", Name: "Portuguese", Flag: "🇧🇷"},
	{Code: "ja", Name: "Japanese", Flag: "🇯🇵"},
	{Code: "ko", Name: "Korean", Flag: "🇰🇷"},
	{Code: "zh", Name: "Chinese", Flag: "🇨🇳"},
	{Code: "ru", Name: "Russian", Flag: "🇷🇺"},
	{Code: "bg", Name: "Bulgarian", Flag: "🇧🇬"},
	{Code: "nl", Name: "Dutch", Flag: "🇳🇱"},
}

// All returns a copy of the language table in display order.
func All() []Language {
	out := make([]Language, len(languages))
	copy(out, languages)
	return out
}

// Lookup finds a language by its code, case-insensitively.
func Lookup(code string) (Language, bool) {
	code = strings.ToLower(strings.TrimSpace(code))
	for _, l := range languages {
		if l.Code == code {
			return l, true
		}
	}
	return Language{}, false
}

// Valid reports whether code is in the table.
func Valid(code string) bool {
	_, ok := Lookup(code)
	return ok
}

// NativeName returns the display name for a native language code,
// falling back to English.
func NativeName(code string) string {
	if l, ok := Lookup(code); ok {
		return l.Name
	}
	return "English"
}

// TargetName returns the display name for a target language code,
// falling back to Spanish.
func TargetName(code string) string {
	if l, ok := Lookup(code); ok {
		return l.Name
	}
	return "Spanish"
}

// Label renders "🇪🇸 Spanish" style labels for menus.
func Label(code string) string {
	l, ok := Lookup(code)
	if !ok {
		return code
	}
	return l.Flag + " " + l.Name
}
