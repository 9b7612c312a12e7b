// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/ashureev/wellness-companion/internal/domain"
)

// Repository persists users, their preferences, and long-term entries.
type Repository interface {
	// GetUser retrieves a user by their user ID. It returns nil, nil when the
	// user does not exist.
	GetUser(ctx context.Context, userID string) (*domain.User, error)

	// UpsertUser creates a user record or refreshes an existing one.
	// Preferences are only written on insert.
	UpsertUser(ctx context.Context, user *domain.User) error

	// UpdatePreferences replaces a user's language, auto-detect and voice settings.
	UpdatePreferences(ctx context.Context, userID string, prefs domain.Preferences) error

	// UpdateLastSeen updates the last_seen_at timestamp for a user.
	UpdateLastSeen(ctx context.Context, userID string, lastSeen time.Time) error

	// AddEntry stores a long-term entry. ID and CreatedAt are filled in when empty.
	AddEntry(ctx context.Context, entry domain.Entry) error

	// ListEntries returns a user's entries, newest first. An empty kind
	// matches every kind; limit <= 0 means no limit.
	ListEntries(ctx context.Context, userID string, kind domain.EntryKind, limit int) ([]domain.Entry, error)

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
