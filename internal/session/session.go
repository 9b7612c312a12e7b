// Package session holds per-user runtime state and the registry that owns it.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ashureev/wellness-companion/internal/domain"
	"github.com/ashureev/wellness-companion/internal/memory"
)

var (
	// ErrSessionNotFound is returned when no session exists for a user.
	ErrSessionNotFound = errors.New("session not found")
	// ErrUnsupportedLanguage is returned when a session is switched to a
	// language the companion cannot answer in.
	ErrUnsupportedLanguage = errors.New("unsupported language")
)

// Session bundles a user's identity, language preference, and conversation
// memory. Settings may be read and written from any goroutine; turns must go
// through Exclusive so appends land in the order replies complete.
type Session struct {
	userID    string
	createdAt time.Time

	mu           sync.RWMutex
	language     domain.Language
	autoDetect   bool
	voiceEnabled bool

	memOnce sync.Once
	memory  *memory.Conversation

	turnMu sync.Mutex
}

// New creates a session for userID with the given preferences. An
// unsupported language is replaced by the default.
func New(userID string, prefs domain.Preferences) *Session {
	lang := prefs.Language
	if !lang.IsSupported() {
		lang = domain.DefaultLanguage
	}
	return &Session{
		userID:       userID,
		createdAt:    time.Now(),
		language:     lang,
		autoDetect:   prefs.AutoDetect,
		voiceEnabled: prefs.VoiceEnabled,
	}
}

// UserID returns the immutable owner of the session.
func (s *Session) UserID() string { return s.userID }

// CreatedAt returns when the session was started.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// Language returns the current response language.
func (s *Session) Language() domain.Language {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.language
}

// SetLanguage switches the response language.
func (s *Session) SetLanguage(lang domain.Language) error {
	if !lang.IsSupported() {
		return fmt.Errorf("%w: %q", ErrUnsupportedLanguage, lang)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.language = lang
	return nil
}

// AutoDetect reports whether the language follows the user's input.
func (s *Session) AutoDetect() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.autoDetect
}

// SetAutoDetect toggles language auto-detection.
func (s *Session) SetAutoDetect(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.autoDetect = on
}

// VoiceEnabled reports whether replies should also be spoken.
func (s *Session) VoiceEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.voiceEnabled
}

// SetVoiceEnabled toggles spoken replies.
func (s *Session) SetVoiceEnabled(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.voiceEnabled = on
}

// Preferences returns a snapshot of the user-controlled settings.
func (s *Session) Preferences() domain.Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.Preferences{
		Language:     s.language,
		AutoDetect:   s.autoDetect,
		VoiceEnabled: s.voiceEnabled,
	}
}

// Apply replaces all settings at once.
func (s *Session) Apply(prefs domain.Preferences) error {
	if !prefs.Language.IsSupported() {
		return fmt.Errorf("%w: %q", ErrUnsupportedLanguage, prefs.Language)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.language = prefs.Language
	s.autoDetect = prefs.AutoDetect
	s.voiceEnabled = prefs.VoiceEnabled
	return nil
}

// Memory returns the session's conversation, creating it on first access.
func (s *Session) Memory() *memory.Conversation {
	s.memOnce.Do(func() {
		s.memory = memory.NewConversation()
	})
	return s.memory
}

// Exclusive runs fn while holding the session's turn lock, serializing
// whole request/response cycles for this user.
func (s *Session) Exclusive(fn func()) {
	s.turnMu.Lock()
	defer s.turnMu.Unlock()
	fn()
}
