// Package language decides which natural language a turn is answered in.
package language

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/ashureev/wellness-companion/internal/domain"
)

var (
	// ErrEmptyText is returned by detectors for blank input.
	ErrEmptyText = errors.New("no text to detect")
	// ErrUndetermined is returned when a detector has no confident answer.
	ErrUndetermined = errors.New("language could not be determined")
)

// Detector guesses the language of a piece of text. Implementations must be
// deterministic and safe for concurrent use.
type Detector interface {
	Detect(text string) (domain.Language, error)
}

// Resolution is the outcome of resolving the language for one turn.
type Resolution struct {
	Language domain.Language
	// Detected is the raw detector answer, empty when detection was skipped.
	Detected domain.Language
	// Changed reports whether the session language should be updated.
	Changed bool
}

// Resolver picks the response language from the session settings and,
// when auto-detect is on, from the text itself.
type Resolver struct {
	detector Detector
	logger   *slog.Logger
}

// NewResolver creates a resolver. A nil detector behaves as if every
// detection failed.
func NewResolver(detector Detector, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{detector: detector, logger: logger}
}

// Resolve returns the language for text given the session's stored language
// and auto-detect flag. It never fails: detection errors resolve to English.
func (r *Resolver) Resolve(text string, current domain.Language, autoDetect bool) Resolution {
	if !autoDetect {
		return Resolution{Language: current}
	}

	detected := r.detect(text)
	if !detected.IsSupported() {
		return Resolution{Language: current, Detected: detected}
	}
	return Resolution{
		Language: detected,
		Detected: detected,
		Changed:  detected != current,
	}
}

func (r *Resolver) detect(text string) (lang domain.Language) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Warn("language detector panicked", "panic", fmt.Sprint(rec))
			lang = domain.English
		}
	}()

	if r.detector == nil {
		return domain.English
	}
	detected, err := r.detector.Detect(text)
	if err != nil {
		r.logger.Debug("language detection failed, using English", "error", err)
		return domain.English
	}
	return detected
}
