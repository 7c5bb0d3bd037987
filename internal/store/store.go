// Package store provides durable per-user storage backends for the
// concierge bot: profile mappings, bounded conversation history and the
// lead log. Backends: in-memory, SQLite and PostgreSQL.
//
// Missing or corrupt backing records degrade to empty defaults rather
// than fail the request. Read-modify-write sequences are not serialized
// per user; two rapid messages from the same user can race with
// last-writer-wins semantics.
package store

import (
	"sync"

	"github.com/olkaphoto/concierge/internal/models"
)

// Store is the durable storage contract consumed by the conversation core.
type Store interface {
	// GetProfile returns the accumulated profile for a user, empty if none.
	GetProfile(userID int64) (models.Profile, error)
	// MergeProfile overwrites profile fields with non-empty values.
	MergeProfile(userID int64, fields models.Profile) error
	// ClearProfile removes all profile fields for a user.
	ClearProfile(userID int64) error

	// GetHistory returns up to limit most recent history entries,
	// oldest-first. limit <= 0 returns the full transcript.
	GetHistory(userID int64, limit int) ([]models.HistoryMessage, error)
	// AppendHistory appends one entry, evicting oldest entries beyond
	// capacity.
	AppendHistory(userID int64, role, content string, capacity int) error
	// ClearHistory removes the transcript for a user.
	ClearHistory(userID int64) error

	// AddLead appends one completed booking intake.
	AddLead(lead models.Lead) error
	// GetLeads returns all recorded leads in insertion order.
	GetLeads() ([]models.Lead, error)

	// Close releases backend resources.
	Close() error
}

// InMemoryStore is a map-backed Store used in tests and when no database
// DSN is configured.
type InMemoryStore struct {
	mu       sync.RWMutex
	profiles map[int64]models.Profile
	history  map[int64][]models.HistoryMessage
	leads    []models.Lead
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		profiles: make(map[int64]models.Profile),
		history:  make(map[int64][]models.HistoryMessage),
	}
}

func (s *InMemoryStore) GetProfile(userID int64) (models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := models.Profile{}
	for k, v := range s.profiles[userID] {
		out[k] = v
	}
	return out, nil
}

func (s *InMemoryStore) MergeProfile(userID int64, fields models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		p = models.Profile{}
		s.profiles[userID] = p
	}
	p.Merge(fields)
	return nil
}

func (s *InMemoryStore) ClearProfile(userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.profiles, userID)
	return nil
}

func (s *InMemoryStore) GetHistory(userID int64, limit int) ([]models.HistoryMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return tailHistory(s.history[userID], limit), nil
}

func (s *InMemoryStore) AppendHistory(userID int64, role, content string, capacity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := append(s.history[userID], models.HistoryMessage{Role: role, Content: content})
	s.history[userID] = capHistory(h, capacity)
	return nil
}

func (s *InMemoryStore) ClearHistory(userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.history, userID)
	return nil
}

func (s *InMemoryStore) AddLead(lead models.Lead) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leads = append(s.leads, lead)
	return nil
}

func (s *InMemoryStore) GetLeads() ([]models.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Lead, len(s.leads))
	copy(out, s.leads)
	return out, nil
}

func (s *InMemoryStore) Close() error { return nil }

// tailHistory returns the most recent limit entries, oldest-first.
func tailHistory(h []models.HistoryMessage, limit int) []models.HistoryMessage {
	if limit > 0 && len(h) > limit {
		h = h[len(h)-limit:]
	}
	out := make([]models.HistoryMessage, len(h))
	copy(out, h)
	return out
}

// capHistory drops oldest entries beyond capacity. capacity <= 0 means
// unbounded.
func capHistory(h []models.HistoryMessage, capacity int) []models.HistoryMessage {
	if capacity > 0 && len(h) > capacity {
		h = h[len(h)-capacity:]
	}
	return h
}
