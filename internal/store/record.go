package store

import (
	"encoding/json"
	"log/slog"

	"github.com/olkaphoto/concierge/internal/models"
)

// decodeProfile parses a stored profile JSON blob. Corrupt data degrades
// to an empty profile so a conversation can always proceed.
func decodeProfile(raw string) models.Profile {
	if raw == "" {
		return models.Profile{}
	}
	var p models.Profile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		slog.Warn("store.decodeProfile: corrupt profile record, using empty default", "error", err)
		return models.Profile{}
	}
	if p == nil {
		return models.Profile{}
	}
	return p
}

// decodeHistory parses a stored history JSON blob. Corrupt data degrades
// to an empty transcript.
func decodeHistory(raw string) []models.HistoryMessage {
	if raw == "" {
		return nil
	}
	var h []models.HistoryMessage
	if err := json.Unmarshal([]byte(raw), &h); err != nil {
		slog.Warn("store.decodeHistory: corrupt history record, using empty default", "error", err)
		return nil
	}
	return h
}

func encodeProfile(p models.Profile) string {
	b, err := json.Marshal(p)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func encodeHistory(h []models.HistoryMessage) string {
	if h == nil {
		h = []models.HistoryMessage{}
	}
	b, err := json.Marshal(h)
	if err != nil {
		return "[]"
	}
	return string(b)
}
