package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	_ "github.com/lib/pq"

	"github.com/olkaphoto/concierge/internal/models"
)

// Database connection pool configuration constants.
const (
	DefaultMaxOpenConns    = 25
	DefaultMaxIdleConns    = 25
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore is a Store backed by PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}
	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run Postgres migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")

	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) loadRecord(userID int64) (profile, history string, err error) {
	row := s.db.QueryRow(`SELECT profile, history FROM user_records WHERE user_id = $1`, userID)
	err = row.Scan(&profile, &history)
	if err == sql.ErrNoRows {
		return "", "", nil
	}
	if err != nil {
		return "", "", fmt.Errorf("failed to load user record %d: %w", userID, err)
	}
	return profile, history, nil
}

func (s *PostgresStore) saveRecord(userID int64, profile, history string) error {
	_, err := s.db.Exec(`
		INSERT INTO user_records (user_id, profile, history, updated_at) VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET profile = EXCLUDED.profile, history = EXCLUDED.history, updated_at = EXCLUDED.updated_at`,
		userID, profile, history, time.Now())
	if err != nil {
		return fmt.Errorf("failed to save user record %d: %w", userID, err)
	}
	return nil
}

func (s *PostgresStore) GetProfile(userID int64) (models.Profile, error) {
	rawProfile, _, err := s.loadRecord(userID)
	if err != nil {
		slog.Error("PostgresStore GetProfile failed", "error", err, "userID", userID)
		return models.Profile{}, err
	}
	return decodeProfile(rawProfile), nil
}

func (s *PostgresStore) MergeProfile(userID int64, fields models.Profile) error {
	rawProfile, rawHistory, err := s.loadRecord(userID)
	if err != nil {
		slog.Error("PostgresStore MergeProfile load failed", "error", err, "userID", userID)
		return err
	}
	p := decodeProfile(rawProfile)
	p.Merge(fields)
	return s.saveRecord(userID, encodeProfile(p), orDefault(rawHistory, "[]"))
}

func (s *PostgresStore) ClearProfile(userID int64) error {
	_, rawHistory, err := s.loadRecord(userID)
	if err != nil {
		return err
	}
	return s.saveRecord(userID, "{}", orDefault(rawHistory, "[]"))
}

func (s *PostgresStore) GetHistory(userID int64, limit int) ([]models.HistoryMessage, error) {
	_, rawHistory, err := s.loadRecord(userID)
	if err != nil {
		slog.Error("PostgresStore GetHistory failed", "error", err, "userID", userID)
		return nil, err
	}
	return tailHistory(decodeHistory(rawHistory), limit), nil
}

func (s *PostgresStore) AppendHistory(userID int64, role, content string, capacity int) error {
	rawProfile, rawHistory, err := s.loadRecord(userID)
	if err != nil {
		slog.Error("PostgresStore AppendHistory load failed", "error", err, "userID", userID)
		return err
	}
	h := append(decodeHistory(rawHistory), models.HistoryMessage{Role: role, Content: content})
	h = capHistory(h, capacity)
	return s.saveRecord(userID, orDefault(rawProfile, "{}"), encodeHistory(h))
}

func (s *PostgresStore) ClearHistory(userID int64) error {
	rawProfile, _, err := s.loadRecord(userID)
	if err != nil {
		return err
	}
	return s.saveRecord(userID, orDefault(rawProfile, "{}"), "[]")
}

func (s *PostgresStore) AddLead(lead models.Lead) error {
	_, err := s.db.Exec(`
		INSERT INTO leads (submitted_at, user_id, level, org_number, album_type, count_children, contact_method, contact, username, full_name)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		lead.SubmittedAt, lead.UserID, string(lead.Level), lead.OrgNumber, string(lead.AlbumType),
		lead.CountChildren, string(lead.ContactMethod), lead.Contact, lead.Username, lead.FullName)
	if err != nil {
		slog.Error("PostgresStore AddLead failed", "error", err, "userID", lead.UserID)
		return fmt.Errorf("failed to insert lead for %d: %w", lead.UserID, err)
	}
	return nil
}

func (s *PostgresStore) GetLeads() ([]models.Lead, error) {
	rows, err := s.db.Query(`
		SELECT submitted_at, user_id, level, org_number, album_type, count_children, contact_method, contact, username, full_name
		FROM leads ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query leads: %w", err)
	}
	defer rows.Close()
	return scanLeads(rows)
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
