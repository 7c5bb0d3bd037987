package store

import (
	"testing"

	"github.com/olkaphoto/concierge/internal/models"
)

func TestDecodeProfile_CorruptDegradesToEmpty(t *testing.T) {
	p := decodeProfile("{not json")
	if len(p) != 0 {
		t.Errorf("expected empty profile for corrupt record, got %v", p)
	}
	p = decodeProfile("")
	if len(p) != 0 {
		t.Errorf("expected empty profile for blank record, got %v", p)
	}
	p = decodeProfile("null")
	if p == nil {
		t.Error("expected non-nil profile for null record")
	}
}

func TestDecodeHistory_CorruptDegradesToEmpty(t *testing.T) {
	h := decodeHistory("[{broken")
	if len(h) != 0 {
		t.Errorf("expected empty history for corrupt record, got %v", h)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	p := models.Profile{"level": "школа", "org_number": "27"}
	got := decodeProfile(encodeProfile(p))
	if got["level"] != "школа" || got["org_number"] != "27" {
		t.Errorf("profile round trip mismatch: %v", got)
	}

	h := []models.HistoryMessage{
		{Role: models.RoleUser, Content: "привет"},
		{Role: models.RoleAssistant, Content: "здравствуйте"},
	}
	gotH := decodeHistory(encodeHistory(h))
	if len(gotH) != 2 || gotH[1].Content != "здравствуйте" {
		t.Errorf("history round trip mismatch: %v", gotH)
	}

	if encodeHistory(nil) != "[]" {
		t.Errorf("nil history must encode as [], got %q", encodeHistory(nil))
	}
}
