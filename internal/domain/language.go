package domain

import "strings"

// Language is a two-letter ISO-639-1 code.
type Language string

// Supported response languages.
const (
	English Language = "en"
	Hindi   Language = "hi"
	Marathi Language = "mr"
	Spanish Language = "es"
	French  Language = "fr"
	German  Language = "de"
)

// DefaultLanguage is used whenever nothing better is known.
const DefaultLanguage = English

var supportedLanguages = []Language{English, Hindi, Marathi, Spanish, French, German}

var languageNames = map[Language]string{
	English: "English",
	Hindi:   "Hindi",
	Marathi: "Marathi",
	Spanish: "Spanish",
	French:  "French",
	German:  "German",
}

// SupportedLanguages returns the closed list of response languages in display order.
func SupportedLanguages() []Language {
	out := make([]Language, len(supportedLanguages))
	copy(out, supportedLanguages)
	return out
}

// IsSupported reports whether l is one of the supported response languages.
func (l Language) IsSupported() bool {
	_, ok := languageNames[l]
	return ok
}

// DisplayName returns the English name of the language, or "English" for
// anything unsupported.
func (l Language) DisplayName() string {
	if name, ok := languageNames[l]; ok {
		return name
	}
	return languageNames[English]
}

// String implements fmt.Stringer.
func (l Language) String() string {
	return string(l)
}

// ParseLanguage accepts either a code ("fr") or a display name ("French").
func ParseLanguage(s string) (Language, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	if code := Language(strings.ToLower(s)); code.IsSupported() {
		return code, true
	}
	for code, name := range languageNames {
		if strings.EqualFold(name, s) {
			return code, true
		}
	}
	return "", false
}
