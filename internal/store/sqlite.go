package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "embed"

	_ "github.com/mattn/go-sqlite3"

	"github.com/olkaphoto/concierge/internal/models"
)

// DefaultDirPermissions defines the default permissions for database directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore is a Store backed by a single SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN is a file path; its directory is created if missing.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run SQLite migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

// loadRecord fetches the raw profile/history blobs for a user. A missing
// row degrades to empty defaults.
func (s *SQLiteStore) loadRecord(userID int64) (profile, history string, err error) {
	row := s.db.QueryRow(`SELECT profile, history FROM user_records WHERE user_id = ?`, userID)
	err = row.Scan(&profile, &history)
	if err == sql.ErrNoRows {
		return "", "", nil
	}
	if err != nil {
		return "", "", fmt.Errorf("failed to load user record %d: %w", userID, err)
	}
	return profile, history, nil
}

func (s *SQLiteStore) saveRecord(userID int64, profile, history string) error {
	_, err := s.db.Exec(`
		INSERT INTO user_records (user_id, profile, history, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET profile = excluded.profile, history = excluded.history, updated_at = excluded.updated_at`,
		userID, profile, history, time.Now())
	if err != nil {
		return fmt.Errorf("failed to save user record %d: %w", userID, err)
	}
	return nil
}

func (s *SQLiteStore) GetProfile(userID int64) (models.Profile, error) {
	rawProfile, _, err := s.loadRecord(userID)
	if err != nil {
		slog.Error("SQLiteStore GetProfile failed", "error", err, "userID", userID)
		return models.Profile{}, err
	}
	return decodeProfile(rawProfile), nil
}

func (s *SQLiteStore) MergeProfile(userID int64, fields models.Profile) error {
	rawProfile, rawHistory, err := s.loadRecord(userID)
	if err != nil {
		slog.Error("SQLiteStore MergeProfile load failed", "error", err, "userID", userID)
		return err
	}
	p := decodeProfile(rawProfile)
	p.Merge(fields)
	return s.saveRecord(userID, encodeProfile(p), orDefault(rawHistory, "[]"))
}

func (s *SQLiteStore) ClearProfile(userID int64) error {
	_, rawHistory, err := s.loadRecord(userID)
	if err != nil {
		return err
	}
	return s.saveRecord(userID, "{}", orDefault(rawHistory, "[]"))
}

func (s *SQLiteStore) GetHistory(userID int64, limit int) ([]models.HistoryMessage, error) {
	_, rawHistory, err := s.loadRecord(userID)
	if err != nil {
		slog.Error("SQLiteStore GetHistory failed", "error", err, "userID", userID)
		return nil, err
	}
	return tailHistory(decodeHistory(rawHistory), limit), nil
}

func (s *SQLiteStore) AppendHistory(userID int64, role, content string, capacity int) error {
	rawProfile, rawHistory, err := s.loadRecord(userID)
	if err != nil {
		slog.Error("SQLiteStore AppendHistory load failed", "error", err, "userID", userID)
		return err
	}
	h := append(decodeHistory(rawHistory), models.HistoryMessage{Role: role, Content: content})
	h = capHistory(h, capacity)
	return s.saveRecord(userID, orDefault(rawProfile, "{}"), encodeHistory(h))
}

func (s *SQLiteStore) ClearHistory(userID int64) error {
	rawProfile, _, err := s.loadRecord(userID)
	if err != nil {
		return err
	}
	return s.saveRecord(userID, orDefault(rawProfile, "{}"), "[]")
}

func (s *SQLiteStore) AddLead(lead models.Lead) error {
	_, err := s.db.Exec(`
		INSERT INTO leads (submitted_at, user_id, level, org_number, album_type, count_children, contact_method, contact, username, full_name)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		lead.SubmittedAt, lead.UserID, string(lead.Level), lead.OrgNumber, string(lead.AlbumType),
		lead.CountChildren, string(lead.ContactMethod), lead.Contact, lead.Username, lead.FullName)
	if err != nil {
		slog.Error("SQLiteStore AddLead failed", "error", err, "userID", lead.UserID)
		return fmt.Errorf("failed to insert lead for %d: %w", lead.UserID, err)
	}
	slog.Debug("SQLiteStore AddLead succeeded", "userID", lead.UserID)
	return nil
}

func (s *SQLiteStore) GetLeads() ([]models.Lead, error) {
	rows, err := s.db.Query(`
		SELECT submitted_at, user_id, level, org_number, album_type, count_children, contact_method, contact, username, full_name
		FROM leads ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query leads: %w", err)
	}
	defer rows.Close()
	return scanLeads(rows)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
