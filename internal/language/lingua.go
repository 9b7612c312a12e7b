package language

import (
	"strings"

	"github.com/ashureev/wellness-companion/internal/domain"
	"github.com/pemistahl/lingua-go"
)

// candidates is wider than the supported set so that text in, say, Italian
// is recognised as unsupported instead of being forced onto Spanish.
var candidates = []lingua.Language{
	lingua.English,
	lingua.Hindi,
	lingua.Marathi,
	lingua.Spanish,
	lingua.French,
	lingua.German,
	lingua.Italian,
	lingua.Portuguese,
	lingua.Dutch,
	lingua.Russian,
	lingua.Arabic,
	lingua.Bengali,
	lingua.Gujarati,
	lingua.Punjabi,
	lingua.Tamil,
	lingua.Telugu,
	lingua.Urdu,
	lingua.Chinese,
	lingua.Japanese,
}

// LinguaDetector detects languages with lingua's n-gram models. Its output
// depends only on the input text.
type LinguaDetector struct {
	detector lingua.LanguageDetector
}

// NewLinguaDetector builds a detector over the fixed candidate set. Models
// are loaded lazily on first use.
func NewLinguaDetector() *LinguaDetector {
	return &LinguaDetector{
		detector: lingua.NewLanguageDetectorBuilder().
			FromLanguages(candidates...).
			Build(),
	}
}

// Detect implements Detector.
func (d *LinguaDetector) Detect(text string) (domain.Language, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyText
	}
	lang, ok := d.detector.DetectLanguageOf(text)
	if !ok {
		return "", ErrUndetermined
	}
	return domain.Language(strings.ToLower(lang.IsoCode639_1().String())), nil
}
