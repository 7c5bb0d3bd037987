// Package leadlog appends completed booking intakes to a flat CSV file,
// one row per lead. The format stays flat: commas inside field values are
// replaced with spaces rather than escaped.
package leadlog

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/olkaphoto/concierge/internal/models"
)

// Header is the first line of a fresh lead log file. The column order is
// fixed and load-bearing for downstream spreadsheet imports.
const Header = "ts,user_id,level,org_number,album_type,count_children,contact_method,contact,username,full_name"

// TimestampLayout formats the submission timestamp column.
const TimestampLayout = "2006-01-02 15:04:05"

// Log is an append-only CSV lead sink.
type Log struct {
	mu   sync.Mutex
	path string
}

// New creates a lead log writing to the given file path.
func New(path string) *Log {
	return &Log{path: path}
}

// Append writes one lead row, creating the file with a header if needed.
func (l *Log) Append(lead models.Lead) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("failed to create lead log directory: %w", err)
	}

	fresh := false
	if _, err := os.Stat(l.path); os.IsNotExist(err) {
		fresh = true
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open lead log: %w", err)
	}
	defer f.Close()

	if fresh {
		if _, err := f.WriteString(Header + "\n"); err != nil {
			return fmt.Errorf("failed to write lead log header: %w", err)
		}
	}

	row := Row(lead)
	if _, err := f.WriteString(row + "\n"); err != nil {
		return fmt.Errorf("failed to append lead row: %w", err)
	}
	slog.Debug("leadlog.Append: lead recorded", "userID", lead.UserID, "path", l.path)
	return nil
}

// Row renders one lead as a sanitized CSV line in the Header column order.
func Row(lead models.Lead) string {
	fields := []string{
		lead.SubmittedAt.Format(TimestampLayout),
		strconv.FormatInt(lead.UserID, 10),
		string(lead.Level),
		lead.OrgNumber,
		string(lead.AlbumType),
		strconv.Itoa(lead.CountChildren),
		string(lead.ContactMethod),
		lead.Contact,
		lead.Username,
		lead.FullName,
	}
	for i, f := range fields {
		fields[i] = sanitize(f)
	}
	return strings.Join(fields, ",")
}

// sanitize keeps the delimited format flat: commas become spaces and the
// value is trimmed.
func sanitize(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, ",", " "))
}
