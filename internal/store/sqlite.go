package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/learnspace-ai/learnspace/internal/domain"
	"github.com/learnspace-ai/learnspace/internal/shared"
	_ "modernc.org/sqlite"
)

const currentUserKey = "current_user"

// SQLiteStore implements Repository using SQLite. Each user record is stored
// as one JSON blob; mutations rewrite the whole blob.
type SQLiteStore struct {
	db       *sql.DB
	recordMu sync.Mutex // Serializes record writes to prevent SQLITE_BUSY
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS user_records (
		username TEXT PRIMARY KEY,
		record_json TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS app_state (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
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

// LoadUser retrieves the full record for a username.
func (s *SQLiteStore) LoadUser(ctx context.Context, username string) (*domain.UserRecord, error) {
	query := `SELECT record_json FROM user_records WHERE username = ?`

	var raw string
	err := s.db.QueryRowContext(ctx, query, username).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user record: %w", err)
	}

	var record domain.UserRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return nil, fmt.Errorf("decode user record %q: %w", username, err)
	}
	return &record, nil
}

// SaveUser overwrites the full record for record.Username.
func (s *SQLiteStore) SaveUser(ctx context.Context, record *domain.UserRecord) error {
	if record.Username == "" {
		return fmt.Errorf("save user record: empty username")
	}

	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode user record %q: %w", record.Username, err)
	}

	s.recordMu.Lock()
	defer s.recordMu.Unlock()

	query := `
	INSERT INTO user_records (username, record_json, updated_at)
	VALUES (?, ?, ?)
	ON CONFLICT(username) DO UPDATE SET
		record_json = excluded.record_json,
		updated_at = excluded.updated_at`

	// Every message rewrites the whole record, so transient SQLITE_BUSY
	// errors are retried with backoff before surfacing.
	maxRetries := 3
	baseDelay := 100 * time.Millisecond
	for i := 0; i < maxRetries; i++ {
		_, err = s.db.ExecContext(ctx, query, record.Username, string(raw), time.Now().Unix())
		if err == nil {
			return nil
		}
		if shared.IsSQLiteConflictError(err) && i < maxRetries-1 {
			delay := baseDelay * time.Duration(1<<i)
			slog.Debug("SaveUser hit SQLITE_BUSY, retrying",
				"username", record.Username,
				"attempt", i+1,
				"delay", delay)
			time.Sleep(delay)
			continue
		}
		break
	}
	return fmt.Errorf("upsert user record: %w", err)
}

// CurrentUser returns the logged-in username, or "" when logged out.
func (s *SQLiteStore) CurrentUser(ctx context.Context) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM app_state WHERE key = ?`, currentUserKey).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("scan current user pointer: %w", err)
	}
	return value, nil
}

// SetCurrentUser stores the logged-in username.
func (s *SQLiteStore) SetCurrentUser(ctx context.Context, username string) error {
	query := `
	INSERT INTO app_state (key, value) VALUES (?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value`

	if _, err := s.db.ExecContext(ctx, query, currentUserKey, username); err != nil {
		return fmt.Errorf("set current user pointer: %w", err)
	}
	return nil
}

// ClearCurrentUser removes the logged-in username.
func (s *SQLiteStore) ClearCurrentUser(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM app_state WHERE key = ?`, currentUserKey); err != nil {
		return fmt.Errorf("clear current user pointer: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
