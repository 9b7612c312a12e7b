package domain

import "time"

// EntryKind classifies long-term store entries.
type EntryKind string

const (
	// EntryMood is written after a mood analysis exchange.
	EntryMood EntryKind = "mood"
	// EntryJournal is a journal entry saved by the user.
	EntryJournal EntryKind = "journal"
)

// Entry is a best-effort long-term record of something the user shared.
type Entry struct {
	ID        string            `json:"id"`
	UserID    string            `json:"user_id"`
	Kind      EntryKind         `json:"type"`
	Text      string            `json:"text"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}
