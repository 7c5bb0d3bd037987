package flow

import (
	"context"
	"log/slog"
	"strings"

	"github.com/olkaphoto/concierge/internal/kb"
	"github.com/olkaphoto/concierge/internal/models"
	"github.com/olkaphoto/concierge/internal/store"
)

// Scripted pipeline texts.
const (
	greetingReplyText = "👋 Привет! Я здесь, чтобы помочь с альбомами."
	relatedTopicsText = "📌 Возможно, вам будет интересно:"
	disambiguateText  = "Я правильно понял вопрос? Выберите тему:"
	fallbackText      = "🤔 Могу помочь в диалоге или оформить заявку через опрос. Что предпочитаете?"
	menuPromptText    = "Чем помочь? Выберите режим:\n" +
		"📝 Пройти опрос — за 1–2 минуты соберём заявку (сад/школа, №, тип, кол-во детей, контакт).\n" +
		"ℹ️ Задать вопрос — свободный диалог с консьержем."
)

// Pipeline resolves a free-form inbound message through an ordered chain:
// greeting detection, FAQ lookup, model-backed chat, fallback. First match
// wins. It runs only when no survey is active for the user.
type Pipeline struct {
	store      store.Store
	kb         Knowledge
	ai         Completer   // nil disables the model step
	msg        Messenger
	audit      DialogAudit // nil disables the audit trail
	facts      string
	historyCap int
}

// NewPipeline creates a resolution pipeline. ai may be nil, in which case
// the model step always falls through to the fallback. audit may be nil to
// skip the dialogue audit trail.
func NewPipeline(st store.Store, knowledge Knowledge, ai Completer, msg Messenger, audit DialogAudit, facts string, historyCap int) *Pipeline {
	if historyCap <= 0 {
		historyCap = models.DefaultHistoryCap
	}
	return &Pipeline{
		store:      st,
		kb:         knowledge,
		ai:         ai,
		msg:        msg,
		audit:      audit,
		facts:      facts,
		historyCap: historyCap,
	}
}

// SendMenu emits the main-menu prompt, optionally prefaced by a reply line.
func (p *Pipeline) SendMenu(ctx context.Context, chatID int64, preface string) error {
	text := menuPromptText
	if preface != "" {
		text = preface + "\n" + menuPromptText
	}
	rows := [][]string{{models.MenuButtonSurvey, models.MenuButtonAsk}}
	return p.msg.SendReplyKeyboard(ctx, chatID, text, rows, false)
}

// Handle resolves one inbound text message. Side effects on history and
// profile are strictly additive.
func (p *Pipeline) Handle(ctx context.Context, u models.Update) error {
	text := u.Text
	if strings.HasPrefix(strings.TrimSpace(text), "/") {
		// slash commands are handled by dedicated routes upstream
		return nil
	}

	// the model context window is read before the new user text lands in
	// the transcript, so the request shape stays: window + new text last
	recent, err := p.store.GetHistory(u.UserID, historyWindow)
	if err != nil {
		slog.Warn("Pipeline.Handle: history read failed, using empty context", "error", err, "userID", u.UserID)
		recent = nil
	}
	p.appendHistory(u.UserID, models.RoleUser, text)

	// 1) greeting
	if IsGreeting(text) {
		slog.Debug("Pipeline.Handle: greeting detected", "userID", u.UserID)
		if err := p.SendMenu(ctx, u.ChatID, greetingReplyText); err != nil {
			return err
		}
		p.appendHistory(u.UserID, models.RoleAssistant, greetingReplyText)
		return nil
	}

	// 2) FAQ lookup
	res := p.kb.Lookup(kb.Normalize(text))
	if res.Answer != "" {
		if err := p.msg.SendText(ctx, u.ChatID, res.Answer); err != nil {
			return err
		}
		p.auditReply(u.UserID, res.Answer)
		p.appendHistory(u.UserID, models.RoleAssistant, res.Answer)
		if len(res.Suggestions) > 0 {
			// secondary prompt, deliberately kept out of the transcript
			rows := suggestionRows(res.Suggestions)
			if err := p.msg.SendReplyKeyboard(ctx, u.ChatID, relatedTopicsText, rows, true); err != nil {
				slog.Warn("Pipeline.Handle: related topics send failed", "error", err, "userID", u.UserID)
			}
		}
		return nil
	}
	if len(res.Suggestions) > 0 {
		rows := suggestionRows(res.Suggestions)
		if err := p.msg.SendReplyKeyboard(ctx, u.ChatID, disambiguateText, rows, true); err != nil {
			return err
		}
		p.appendHistory(u.UserID, models.RoleAssistant, disambiguateText)
		return nil
	}

	// 3) model-backed chat
	if answer, ok := p.askModel(ctx, u.UserID, recent, text); ok {
		if err := p.msg.SendText(ctx, u.ChatID, answer); err != nil {
			return err
		}
		p.auditReply(u.UserID, answer)
		return nil
	}

	// 4) fallback
	if err := p.SendMenu(ctx, u.ChatID, fallbackText); err != nil {
		return err
	}
	p.auditReply(u.UserID, fallbackText)
	p.appendHistory(u.UserID, models.RoleAssistant, fallbackText)
	return nil
}

// askModel runs the grounded completion and the price trust filter.
// Returns ok=false when the model is unavailable or failed, which routes
// the message to the fallback step.
func (p *Pipeline) askModel(ctx context.Context, userID int64, recent []models.HistoryMessage, text string) (string, bool) {
	if p.ai == nil {
		return "", false
	}

	profile, err := p.store.GetProfile(userID)
	if err != nil {
		slog.Warn("Pipeline.askModel: profile read failed, using empty profile", "error", err, "userID", userID)
		profile = models.Profile{}
	}

	messages := BuildMessages(p.facts, profile, recent, text)
	answer, err := p.ai.Complete(ctx, messages)
	if err != nil || answer == "" {
		slog.Warn("Pipeline.askModel: no answer from model", "error", err, "userID", userID)
		return "", false
	}

	// the raw answer stays in the transcript even when the filter
	// substitutes the outgoing text
	p.appendHistory(userID, models.RoleAssistant, answer)
	filtered := FilterPrice(answer)
	if filtered != answer {
		slog.Info("Pipeline.askModel: price filter replaced answer", "userID", userID)
		p.appendHistory(userID, models.RoleAssistant, filtered)
	}
	return filtered, true
}

// auditReply mirrors one delivered answer into the dialogue audit trail.
// Audit failures degrade to a log line.
func (p *Pipeline) auditReply(userID int64, text string) {
	if p.audit == nil {
		return
	}
	if err := p.audit.Append(userID, models.RoleAssistant, text); err != nil {
		slog.Warn("Pipeline.auditReply: audit append failed", "error", err, "userID", userID)
	}
}

// appendHistory writes one transcript entry. Store failures degrade to a
// log line; the dialogue keeps going.
func (p *Pipeline) appendHistory(userID int64, role, content string) {
	if err := p.store.AppendHistory(userID, role, content, p.historyCap); err != nil {
		slog.Warn("Pipeline.appendHistory: history append failed", "error", err, "userID", userID, "role", role)
	}
}

// suggestionRows lays out suggestion labels one per row.
func suggestionRows(labels []string) [][]string {
	rows := make([][]string, 0, len(labels))
	for _, l := range labels {
		rows = append(rows, []string{l})
	}
	return rows
}
