package leadlog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/olkaphoto/concierge/internal/models"
)

func testLead() models.Lead {
	return models.Lead{
		SubmittedAt:   time.Date(2026, 2, 10, 14, 30, 0, 0, time.UTC),
		UserID:        42,
		Level:         models.LevelSchool,
		OrgNumber:     "27",
		AlbumType:     models.AlbumIndividual,
		CountChildren: 18,
		ContactMethod: models.ContactWhatsApp,
		Contact:       "+7 999 123-45-67",
		Username:      "anna",
		FullName:      "Анна Петрова",
	}
}

func TestRow_ColumnOrder(t *testing.T) {
	row := Row(testLead())
	want := "2026-02-10 14:30:00,42,школа,27,индивидуальный,18,WhatsApp,+7 999 123-45-67,anna,Анна Петрова"
	if row != want {
		t.Errorf("row mismatch:\n got %q\nwant %q", row, want)
	}
	if got, header := len(strings.Split(row, ",")), len(strings.Split(Header, ",")); got != header {
		t.Errorf("row has %d columns, header has %d", got, header)
	}
}

func TestRow_CommasReplaced(t *testing.T) {
	lead := testLead()
	lead.FullName = "Петрова, Анна"
	row := Row(lead)
	if strings.Count(row, ",") != strings.Count(Header, ",") {
		t.Errorf("comma inside a field must not add a column: %q", row)
	}
	if !strings.Contains(row, "Петрова  Анна") {
		t.Errorf("expected comma replaced with space, got %q", row)
	}
}

func TestAppend_CreatesFileWithHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leads.csv")
	l := New(path)

	if err := l.Append(testLead()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := l.Append(testLead()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read lead log: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d lines", len(lines))
	}
	if lines[0] != Header {
		t.Errorf("first line must be the header, got %q", lines[0])
	}
	if lines[1] != lines[2] {
		t.Errorf("identical leads must render identical rows")
	}
}

func TestAppend_CreatesMissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "leads.csv")
	l := New(path)
	if err := l.Append(testLead()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("lead log file not created: %v", err)
	}
}
