// Package messaging provides the pluggable message transport abstraction
// and its Telegram implementation.
package messaging

import (
	"context"

	"github.com/olkaphoto/concierge/internal/models"
)

// Service defines a pluggable message delivery abstraction. It delivers
// outgoing texts with optional quick-reply choices and exposes a channel
// of inbound events.
type Service interface {
	// SendText sends a plain text message to a chat.
	SendText(ctx context.Context, chatID int64, text string) error

	// SendChoices sends text with inline button choices laid out in rows.
	SendChoices(ctx context.Context, chatID int64, text string, choices [][]models.Choice) error

	// SendReplyKeyboard sends text with a reply keyboard built from label rows.
	SendReplyKeyboard(ctx context.Context, chatID int64, text string, rows [][]string, oneTime bool) error

	// Notify sends a message to the owner chat.
	Notify(ctx context.Context, chatID int64, text string) error

	// Start begins receiving inbound events.
	Start(ctx context.Context) error

	// Stop stops receiving and cleans up resources.
	Stop() error

	// Updates returns the channel of inbound text and button events.
	Updates() <-chan models.Update
}
