package messaging

import (
	"testing"

	"github.com/olkaphoto/concierge/internal/models"
)

func TestNewTelegramService_EmptyToken(t *testing.T) {
	_, err := NewTelegramService("")
	if err == nil {
		t.Error("expected error for an empty bot token, got nil")
	}
}

func TestInlineRows_PreservesRowLayout(t *testing.T) {
	choices := [][]models.Choice{
		{{Label: "Детский сад", Data: "level_kinder"}, {Label: "Школа", Data: "level_school"}},
		{{Label: "✅ Отправить", Data: "confirm_send"}},
		{},
	}

	rows := inlineRows(choices)
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows (empty row dropped), got %d", len(rows))
	}
	if len(rows[0]) != 2 || len(rows[1]) != 1 {
		t.Fatalf("expected row widths 2 and 1, got %d and %d", len(rows[0]), len(rows[1]))
	}
	if rows[0][0].Text != "Детский сад" || *rows[1][0].CallbackData != "confirm_send" {
		t.Errorf("unexpected button contents: %v", rows)
	}
}

func TestOptions(t *testing.T) {
	cfg := Opts{PollTimeout: DefaultPollTimeout}
	WithPollTimeout(5)(&cfg)
	WithDebug()(&cfg)
	if cfg.PollTimeout != 5 {
		t.Errorf("expected poll timeout 5, got %d", cfg.PollTimeout)
	}
	if !cfg.Debug {
		t.Error("expected debug enabled")
	}
}
