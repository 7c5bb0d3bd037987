// Package testutil provides common test utilities and helpers for concierge tests.
package testutil

import (
	"context"
	"sync"
	"testing"

	"github.com/olkaphoto/concierge/internal/models"
)

// SentMessage records one outbound call captured by MessengerRecorder.
type SentMessage struct {
	ChatID   int64
	Text     string
	Choices  [][]models.Choice
	Rows     [][]string
	OneTime  bool
	ToOwner  bool
	Keyboard bool
}

// MessengerRecorder is an in-memory outbound transport for tests. It records
// every call and can be told to fail.
type MessengerRecorder struct {
	mu   sync.Mutex
	Sent []SentMessage
	Err  error
}

// NewMessengerRecorder creates a recorder with no canned failure.
func NewMessengerRecorder() *MessengerRecorder {
	return &MessengerRecorder{}
}

func (m *MessengerRecorder) record(msg SentMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Sent = append(m.Sent, msg)
	return nil
}

// SendText records a plain text delivery.
func (m *MessengerRecorder) SendText(ctx context.Context, chatID int64, text string) error {
	return m.record(SentMessage{ChatID: chatID, Text: text})
}

// SendChoices records a delivery with inline button choices.
func (m *MessengerRecorder) SendChoices(ctx context.Context, chatID int64, text string, choices [][]models.Choice) error {
	return m.record(SentMessage{ChatID: chatID, Text: text, Choices: choices})
}

// SendReplyKeyboard records a delivery with a reply keyboard.
func (m *MessengerRecorder) SendReplyKeyboard(ctx context.Context, chatID int64, text string, rows [][]string, oneTime bool) error {
	return m.record(SentMessage{ChatID: chatID, Text: text, Rows: rows, OneTime: oneTime, Keyboard: true})
}

// Notify records an owner notification.
func (m *MessengerRecorder) Notify(ctx context.Context, chatID int64, text string) error {
	return m.record(SentMessage{ChatID: chatID, Text: text, ToOwner: true})
}

// Texts returns the recorded message texts in send order.
func (m *MessengerRecorder) Texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.Sent))
	for i, s := range m.Sent {
		out[i] = s.Text
	}
	return out
}

// Last returns the most recent recorded message and fails the test if none
// was sent.
func (m *MessengerRecorder) Last(t *testing.T) SentMessage {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Sent) == 0 {
		t.Fatal("no messages were sent")
	}
	return m.Sent[len(m.Sent)-1]
}

// LeadRecorder is an in-memory lead sink for tests.
type LeadRecorder struct {
	mu    sync.Mutex
	Leads []models.Lead
	Err   error
}

// Append records the lead or returns the canned failure.
func (l *LeadRecorder) Append(lead models.Lead) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.Err != nil {
		return l.Err
	}
	l.Leads = append(l.Leads, lead)
	return nil
}

// Count returns the number of recorded leads.
func (l *LeadRecorder) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.Leads)
}
