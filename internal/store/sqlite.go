package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ashureev/wellness-companion/internal/domain"
	"github.com/ashureev/wellness-companion/internal/shared"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrUserNotFound is returned by updates addressed to a missing user.
var ErrUserNotFound = errors.New("user not found")

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db    *sql.DB
	retry shared.RetryPolicy
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// WAL mode lets readers proceed while the single writer holds the lock.
	dsn := "file:" + dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db, retry: shared.DefaultRetryPolicy}
	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	CREATE TABLE IF NOT EXISTS users (
		user_id TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		language TEXT NOT NULL DEFAULT 'en',
		auto_detect INTEGER NOT NULL DEFAULT 1,
		voice_enabled INTEGER NOT NULL DEFAULT 0,
		last_seen_at INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_last_seen ON users(last_seen_at);

	CREATE TABLE IF NOT EXISTS entries (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		text TEXT NOT NULL,
		metadata_json TEXT NOT NULL DEFAULT '{}',
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_entries_user ON entries(user_id, created_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetUser retrieves a user by their user ID.
func (s *SQLiteStore) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	query := `
		SELECT user_id, username, language, auto_detect, voice_enabled,
		       last_seen_at, created_at, updated_at
		FROM users WHERE user_id = ?`

	row := s.db.QueryRowContext(ctx, query, userID)

	var user domain.User
	var language string
	var lastSeen, createdAt, updatedAt int64

	err := row.Scan(
		&user.UserID, &user.Username, &language, &user.AutoDetect, &user.VoiceEnabled,
		&lastSeen, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user row: %w", err)
	}

	user.Language = domain.Language(language)
	user.LastSeenAt = time.Unix(lastSeen, 0)
	user.CreatedAt = time.Unix(createdAt, 0)
	user.UpdatedAt = time.Unix(updatedAt, 0)

	return &user, nil
}

// UpsertUser creates or updates a user record.
func (s *SQLiteStore) UpsertUser(ctx context.Context, user *domain.User) error {
	query := `
	INSERT INTO users (user_id, username, language, auto_detect, voice_enabled, last_seen_at, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET
		username = excluded.username,
		last_seen_at = excluded.last_seen_at,
		updated_at = excluded.updated_at`

	lang := user.Language
	if !lang.IsSupported() {
		lang = domain.DefaultLanguage
	}

	return shared.RetryOnConflict(ctx, s.retry, "upsert user", func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, query,
			user.UserID, user.Username, string(lang), user.AutoDetect, user.VoiceEnabled,
			user.LastSeenAt.Unix(), user.CreatedAt.Unix(), user.UpdatedAt.Unix(),
		)
		if err != nil {
			return fmt.Errorf("upsert user: %w", err)
		}
		return nil
	})
}

// UpdatePreferences replaces the stored session settings for a user.
func (s *SQLiteStore) UpdatePreferences(ctx context.Context, userID string, prefs domain.Preferences) error {
	if !prefs.Language.IsSupported() {
		return fmt.Errorf("update preferences: unsupported language %q", prefs.Language)
	}
	query := `UPDATE users SET language = ?, auto_detect = ?, voice_enabled = ?, updated_at = ? WHERE user_id = ?`

	return shared.RetryOnConflict(ctx, s.retry, "update preferences", func(ctx context.Context) error {
		result, err := s.db.ExecContext(ctx, query,
			string(prefs.Language), prefs.AutoDetect, prefs.VoiceEnabled, time.Now().Unix(), userID)
		if err != nil {
			return fmt.Errorf("update preferences: %w", err)
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("get rows affected: %w", err)
		}
		if rows == 0 {
			return ErrUserNotFound
		}
		return nil
	})
}

// UpdateLastSeen updates the last_seen_at timestamp for a user.
func (s *SQLiteStore) UpdateLastSeen(ctx context.Context, userID string, lastSeen time.Time) error {
	query := `UPDATE users SET last_seen_at = ?, updated_at = ? WHERE user_id = ?`

	return shared.RetryOnConflict(ctx, s.retry, "update last_seen", func(ctx context.Context) error {
		result, err := s.db.ExecContext(ctx, query, lastSeen.Unix(), time.Now().Unix(), userID)
		if err != nil {
			return fmt.Errorf("update last_seen: %w", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("get rows affected: %w", err)
		}
		if rows == 0 {
			slog.Warn("UpdateLastSeen affected 0 rows", "user_id", userID)
		}
		return nil
	})
}

// AddEntry stores a long-term entry.
func (s *SQLiteStore) AddEntry(ctx context.Context, entry domain.Entry) error {
	if entry.UserID == "" {
		return errors.New("add entry: user id is required")
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	meta := entry.Metadata
	if meta == nil {
		meta = map[string]string{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encode entry metadata: %w", err)
	}

	query := `INSERT INTO entries (id, user_id, kind, text, metadata_json, created_at) VALUES (?, ?, ?, ?, ?, ?)`
	return shared.RetryOnConflict(ctx, s.retry, "add entry", func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx, query,
			entry.ID, entry.UserID, string(entry.Kind), entry.Text, string(metaJSON), entry.CreatedAt.UnixMilli())
		if err != nil {
			return fmt.Errorf("insert entry: %w", err)
		}
		return nil
	})
}

// ListEntries returns a user's entries, newest first.
func (s *SQLiteStore) ListEntries(ctx context.Context, userID string, kind domain.EntryKind, limit int) ([]domain.Entry, error) {
	query := `SELECT id, user_id, kind, text, metadata_json, created_at FROM entries WHERE user_id = ?`
	args := []any{userID}
	if kind != "" {
		query += ` AND kind = ?`
		args = append(args, string(kind))
	}
	query += ` ORDER BY created_at DESC, rowid DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close entry rows", "error", closeErr)
		}
	}()

	var entries []domain.Entry
	for rows.Next() {
		var e domain.Entry
		var kindStr, metaJSON string
		var createdAt int64
		if err := rows.Scan(&e.ID, &e.UserID, &kindStr, &e.Text, &metaJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("scan entry row: %w", err)
		}
		e.Kind = domain.EntryKind(kindStr)
		e.CreatedAt = time.UnixMilli(createdAt)
		if err := json.Unmarshal([]byte(metaJSON), &e.Metadata); err != nil {
			slog.Warn("entry has unreadable metadata", "entry_id", e.ID, "error", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}

	return entries, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
