// Package domain contains core domain types for the wellness companion.
package domain

import (
	"time"
)

// User represents an anonymous visitor and the preferences they chose when
// starting their journey.
type User struct {
	UserID       string    `json:"user_id"`
	Username     string    `json:"username"`
	Language     Language  `json:"language"`
	AutoDetect   bool      `json:"auto_detect"`
	VoiceEnabled bool      `json:"voice_enabled"`
	LastSeenAt   time.Time `json:"last_seen_at"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Preferences returns the session-facing settings stored for the user.
func (u *User) Preferences() Preferences {
	lang := u.Language
	if !lang.IsSupported() {
		lang = DefaultLanguage
	}
	return Preferences{
		Language:     lang,
		AutoDetect:   u.AutoDetect,
		VoiceEnabled: u.VoiceEnabled,
	}
}

// Preferences are the user-controlled settings of a session.
type Preferences struct {
	Language     Language `json:"language"`
	AutoDetect   bool     `json:"auto_detect"`
	VoiceEnabled bool     `json:"voice_enabled"`
}
