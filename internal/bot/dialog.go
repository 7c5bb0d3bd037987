package bot

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// DialogLog is a plain-text audit trail of the dialogue, one line per
// message: `[ts] user_id role: text`, newlines flattened.
type DialogLog struct {
	mu   sync.Mutex
	path string
}

// NewDialogLog creates an audit log writing to the given file path.
func NewDialogLog(path string) *DialogLog {
	return &DialogLog{path: path}
}

// Append writes one audit line.
func (d *DialogLog) Append(userID int64, role, text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(d.path), 0755); err != nil {
		return fmt.Errorf("failed to create dialog log directory: %w", err)
	}
	f, err := os.OpenFile(d.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open dialog log: %w", err)
	}
	defer f.Close()

	flat := strings.TrimSpace(strings.ReplaceAll(text, "\n", " "))
	ts := time.Now().Format("2006-01-02 15:04:05")
	if _, err := fmt.Fprintf(f, "[%s] %d %s: %s\n", ts, userID, role, flat); err != nil {
		return fmt.Errorf("failed to append dialog line: %w", err)
	}
	return nil
}
