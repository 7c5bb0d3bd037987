// Package flow implements the conversation orchestration core: the guided
// survey state machine and the layered response resolution pipeline.
package flow

import (
	"context"

	"github.com/openai/openai-go"

	"github.com/olkaphoto/concierge/internal/models"
)

// Messenger is the narrow outbound transport contract the core depends on.
// The core only chooses texts and fixed choice labels; rendering is the
// transport's concern.
type Messenger interface {
	// SendText delivers a plain text message.
	SendText(ctx context.Context, chatID int64, text string) error
	// SendChoices delivers text with button choices laid out in rows.
	SendChoices(ctx context.Context, chatID int64, text string, choices [][]models.Choice) error
	// SendReplyKeyboard delivers text with a reply keyboard of label rows.
	SendReplyKeyboard(ctx context.Context, chatID int64, text string, rows [][]string, oneTime bool) error
	// Notify delivers a message to the owner chat. Callers treat it as
	// best-effort.
	Notify(ctx context.Context, chatID int64, text string) error
}

// Knowledge is the FAQ lookup collaborator.
type Knowledge interface {
	Lookup(text string) models.FAQResult
}

// Completer is the model-backed chat collaborator. May fail; a failure is
// handled as "no answer".
type Completer interface {
	Complete(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (string, error)
}

// LeadSink is an append-only record sink for completed booking intakes.
type LeadSink interface {
	Append(lead models.Lead) error
}

// DialogAudit receives one line per answered dialogue message for the
// plain-text audit trail.
type DialogAudit interface {
	Append(userID int64, role, text string) error
}
