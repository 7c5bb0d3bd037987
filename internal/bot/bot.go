// Package bot wires inbound transport events to the conversation core:
// command routes, the survey-active gate and the response resolution
// pipeline.
package bot

import (
	"context"
	"log/slog"
	"strings"

	"github.com/olkaphoto/concierge/internal/flow"
	"github.com/olkaphoto/concierge/internal/kb"
	"github.com/olkaphoto/concierge/internal/messaging"
	"github.com/olkaphoto/concierge/internal/models"
	"github.com/olkaphoto/concierge/internal/store"
)

// Scripted dispatcher texts.
const (
	helloText = "👋 Привет! Я *Олькин‑консьерж*.\n" +
		"Могу ответить на вопросы или быстро оформить заявку через опрос."
	askModeText = "Отлично! Задайте вопрос любыми словами — я помогу и подскажу."
	resetText   = "Готово: профиль и история очищены."
	pongText    = "pong"
)

// Bot dispatches inbound events between the survey flow and the pipeline.
type Bot struct {
	msg      messaging.Service
	store    store.Store
	survey   *flow.Survey
	pipeline *flow.Pipeline
	dialog   *DialogLog // optional audit trail, may be nil
}

// New creates the dispatcher.
func New(msg messaging.Service, st store.Store, survey *flow.Survey, pipeline *flow.Pipeline, dialog *DialogLog) *Bot {
	return &Bot{
		msg:      msg,
		store:    st,
		survey:   survey,
		pipeline: pipeline,
		dialog:   dialog,
	}
}

// Run starts the transport and processes events until the context ends or
// the update channel closes. Each event runs to completion before the next
// is taken.
func (b *Bot) Run(ctx context.Context) error {
	if err := b.msg.Start(ctx); err != nil {
		return err
	}
	defer b.msg.Stop()

	slog.Info("Bot.Run: dispatcher started")
	for {
		select {
		case <-ctx.Done():
			slog.Info("Bot.Run: context cancelled, shutting down")
			return nil
		case u, ok := <-b.msg.Updates():
			if !ok {
				slog.Info("Bot.Run: update channel closed")
				return nil
			}
			b.handleUpdate(ctx, u)
		}
	}
}

// handleUpdate routes one inbound event. Failures never surface to the
// user as technical errors; they end up in the log only.
func (b *Bot) handleUpdate(ctx context.Context, u models.Update) {
	var err error
	switch {
	case u.Callback != "":
		err = b.handleCallback(ctx, u)
	case u.Text != "":
		b.logDialog(u.UserID, models.RoleUser, u.Text)
		err = b.handleText(ctx, u)
	}
	if err != nil {
		slog.Error("Bot.handleUpdate: handler failed", "error", err, "userID", u.UserID)
	}
}

func (b *Bot) handleCallback(ctx context.Context, u models.Update) error {
	if b.survey.Active(u.UserID) {
		return b.survey.HandleCallback(ctx, u)
	}
	slog.Debug("Bot.handleCallback: no active survey, ignoring", "data", u.Callback, "userID", u.UserID)
	return nil
}

func (b *Bot) handleText(ctx context.Context, u models.Update) error {
	text := strings.TrimSpace(u.Text)

	if strings.HasPrefix(text, "/") {
		return b.handleCommand(ctx, u, text)
	}

	switch text {
	case models.MenuButtonSurvey:
		return b.survey.Start(ctx, u)
	case models.MenuButtonAsk:
		return b.msg.SendText(ctx, u.ChatID, askModeText)
	}

	// an active survey owns every inbound text
	if b.survey.Active(u.UserID) {
		return b.survey.HandleText(ctx, u)
	}

	// free-text survey triggers outside an active survey
	t := kb.Normalize(text)
	if strings.Contains(t, "пройти опрос") || strings.Contains(t, "забронировать") {
		return b.survey.Start(ctx, u)
	}

	return b.pipeline.Handle(ctx, u)
}

func (b *Bot) handleCommand(ctx context.Context, u models.Update, text string) error {
	cmd := strings.Fields(text)[0]
	switch cmd {
	case "/start":
		if err := b.msg.SendText(ctx, u.ChatID, helloText); err != nil {
			return err
		}
		return b.pipeline.SendMenu(ctx, u.ChatID, "")
	case "/menu":
		return b.pipeline.SendMenu(ctx, u.ChatID, "")
	case "/survey", "/book":
		return b.survey.Start(ctx, u)
	case "/ping":
		return b.msg.SendText(ctx, u.ChatID, pongText)
	case "/reset":
		return b.handleReset(ctx, u)
	default:
		slog.Debug("Bot.handleCommand: unknown command ignored", "command", cmd, "userID", u.UserID)
		return nil
	}
}

// handleReset clears the durable profile and transcript for the user.
func (b *Bot) handleReset(ctx context.Context, u models.Update) error {
	if err := b.store.ClearProfile(u.UserID); err != nil {
		slog.Warn("Bot.handleReset: profile clear failed", "error", err, "userID", u.UserID)
	}
	if err := b.store.ClearHistory(u.UserID); err != nil {
		slog.Warn("Bot.handleReset: history clear failed", "error", err, "userID", u.UserID)
	}
	return b.msg.SendText(ctx, u.ChatID, resetText)
}

func (b *Bot) logDialog(userID int64, role, text string) {
	if b.dialog == nil {
		return
	}
	if err := b.dialog.Append(userID, role, text); err != nil {
		slog.Warn("Bot.logDialog: audit append failed", "error", err, "userID", userID)
	}
}
