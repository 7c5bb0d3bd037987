package flow

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/olkaphoto/concierge/internal/kb"
	"github.com/olkaphoto/concierge/internal/models"
	"github.com/olkaphoto/concierge/internal/store"
)

// Callback data values reported by survey buttons.
const (
	CallbackLevelKinder     = "level_kinder"
	CallbackLevelSchool     = "level_school"
	CallbackAlbumCommon     = "album_common"
	CallbackAlbumIndividual = "album_individual"
	CallbackContactVK       = "contact_vk"
	CallbackContactWhatsApp = "contact_wa"
	CallbackConfirmSend     = "confirm_send"
	CallbackConfirmCancel   = "confirm_cancel"
)

// phonePattern is a permissive phone check for WhatsApp contacts: optional
// leading plus, then at least 8 digits/spaces/hyphens/parentheses.
var phonePattern = regexp.MustCompile(`^\+?\d[\d\s\-()]{7,}$`)

var nonDigits = regexp.MustCompile(`\D`)

// Step prompt texts.
const (
	surveyIntroText       = "Давайте быстро оформим заявку.\nСначала выберите, это *детский сад* или *школа*:"
	levelRepromptText     = "Пожалуйста, выберите кнопкой: *Детский сад* или *Школа*."
	levelRetreatText      = "Сначала выберите: это *детский сад* или *школа*."
	orgNumberPromptText   = "Укажите номер школы/сада (только цифры), например: 27"
	orgNumberRepromptText = "Введите, пожалуйста, *номер* цифрами."
	albumPromptText       = "Какой тип альбома интересует — *Общий* или *Индивидуальный*?"
	albumRepromptText     = "Выберите, пожалуйста, тип альбома кнопкой ниже:"
	countPromptText       = "Сколько *детей* будут брать альбомы? (числом)"
	countRepromptText     = "Введите, пожалуйста, *число* от 1 до 1000."
	contactPromptText     = "Как удобнее связаться — *VK* или *WhatsApp*?"
	contactVKPromptText   = "Пришлите *ссылку на VK* или @ник."
	contactWAPromptText   = "Пришлите *номер WhatsApp* в формате +7..."
	contactRepromptText   = "Похоже, номер не в формате. Пример: +7 999 123-45-67"
	cancelledText         = "Заявка отменена. Если нужно — можно начать заново: /survey"
	submittedText         = "Спасибо! Заявка отправлена. Мы свяжемся с вами в ближайшее время."
)

func levelChoices() [][]models.Choice {
	return [][]models.Choice{{
		{Label: "Детский сад", Data: CallbackLevelKinder},
		{Label: "Школа", Data: CallbackLevelSchool},
	}}
}

func albumChoices() [][]models.Choice {
	return [][]models.Choice{{
		{Label: "Общий", Data: CallbackAlbumCommon},
		{Label: "Индивидуальный", Data: CallbackAlbumIndividual},
	}}
}

func contactChoices() [][]models.Choice {
	return [][]models.Choice{{
		{Label: "VK", Data: CallbackContactVK},
		{Label: "WhatsApp", Data: CallbackContactWhatsApp},
	}}
}

// Confirm buttons stack one per row.
func confirmChoices() [][]models.Choice {
	return [][]models.Choice{
		{{Label: "✅ Отправить", Data: CallbackConfirmSend}},
		{{Label: "❌ Отмена", Data: CallbackConfirmCancel}},
	}
}

// Survey drives the guided lead-collection dialogue. One transition method
// per state; every accepted answer advances the session and merges the
// answered field into the durable profile.
type Survey struct {
	sessions *SessionManager
	store    store.Store
	leads    LeadSink
	msg      Messenger
	ownerID  int64
}

// NewSurvey creates the survey flow with its collaborators. ownerID may be
// zero to disable owner notifications.
func NewSurvey(st store.Store, leads LeadSink, msg Messenger, ownerID int64) *Survey {
	return &Survey{
		sessions: NewSessionManager(),
		store:    st,
		leads:    leads,
		msg:      msg,
		ownerID:  ownerID,
	}
}

// Active reports whether a survey is in progress for the user.
func (s *Survey) Active(userID int64) bool {
	return s.sessions.Active(userID)
}

// Start begins a fresh survey, unconditionally discarding any session in
// progress, and prompts the Level step.
func (s *Survey) Start(ctx context.Context, u models.Update) error {
	s.sessions.Begin(u.UserID, models.SurveyStateLevel)
	slog.Debug("Survey.Start: survey started", "userID", u.UserID)
	return s.msg.SendChoices(ctx, u.ChatID, surveyIntroText, levelChoices())
}

// HandleText routes a free-text answer to the transition method of the
// current state. Unknown or button-only states reprompt without advancing.
func (s *Survey) HandleText(ctx context.Context, u models.Update) error {
	sess := s.sessions.Get(u.UserID)
	if sess == nil {
		return fmt.Errorf("no active survey for user %d", u.UserID)
	}

	switch sess.State {
	case models.SurveyStateLevel:
		return s.levelFromText(ctx, u, sess)
	case models.SurveyStateOrgNumber:
		return s.orgNumberFromText(ctx, u, sess)
	case models.SurveyStateAlbumType:
		return s.albumTypeFromText(ctx, u, sess)
	case models.SurveyStateCountChildren:
		return s.countChildrenFromText(ctx, u, sess)
	case models.SurveyStateContactMethod:
		// button-only step
		return s.msg.SendChoices(ctx, u.ChatID, contactPromptText, contactChoices())
	case models.SurveyStateContactValue:
		return s.contactValueFromText(ctx, u, sess)
	case models.SurveyStateConfirm:
		// button-only step
		return s.msg.SendChoices(ctx, u.ChatID, summaryText(sess.Draft), confirmChoices())
	default:
		slog.Warn("Survey.HandleText: unexpected state", "state", sess.State, "userID", u.UserID)
		s.sessions.Clear(u.UserID)
		return fmt.Errorf("unexpected survey state %q", sess.State)
	}
}

// HandleCallback routes a button press to the transition method of the
// current state. Button data from a stale step is ignored.
func (s *Survey) HandleCallback(ctx context.Context, u models.Update) error {
	sess := s.sessions.Get(u.UserID)
	if sess == nil {
		return fmt.Errorf("no active survey for user %d", u.UserID)
	}

	switch sess.State {
	case models.SurveyStateLevel:
		switch u.Callback {
		case CallbackLevelKinder:
			return s.acceptLevel(ctx, u, sess, models.LevelKindergarten)
		case CallbackLevelSchool:
			return s.acceptLevel(ctx, u, sess, models.LevelSchool)
		}
	case models.SurveyStateAlbumType:
		switch u.Callback {
		case CallbackAlbumCommon:
			return s.acceptAlbumType(ctx, u, sess, models.AlbumCommon, countPromptText)
		case CallbackAlbumIndividual:
			return s.acceptAlbumType(ctx, u, sess, models.AlbumIndividual, countPromptText)
		}
	case models.SurveyStateContactMethod:
		switch u.Callback {
		case CallbackContactVK:
			return s.acceptContactMethod(ctx, u, sess, models.ContactVK, contactVKPromptText)
		case CallbackContactWhatsApp:
			return s.acceptContactMethod(ctx, u, sess, models.ContactWhatsApp, contactWAPromptText)
		}
	case models.SurveyStateConfirm:
		switch u.Callback {
		case CallbackConfirmCancel:
			return s.cancel(ctx, u)
		case CallbackConfirmSend:
			return s.submit(ctx, u, sess)
		}
	}

	slog.Debug("Survey.HandleCallback: ignoring stale callback", "data", u.Callback, "state", sess.State, "userID", u.UserID)
	return nil
}

// --- Level ---

func (s *Survey) levelFromText(ctx context.Context, u models.Update, sess *Session) error {
	t := kb.Normalize(u.Text)
	switch {
	case strings.Contains(t, "сад"):
		return s.acceptLevel(ctx, u, sess, models.LevelKindergarten)
	case strings.Contains(t, "школ"):
		return s.acceptLevel(ctx, u, sess, models.LevelSchool)
	default:
		return s.msg.SendText(ctx, u.ChatID, levelRepromptText)
	}
}

func (s *Survey) acceptLevel(ctx context.Context, u models.Update, sess *Session, level models.Level) error {
	sess.Draft.Level = level
	sess.State = models.SurveyStateOrgNumber
	s.mergeProfile(u.UserID, models.Profile{"level": string(level)})
	slog.Debug("Survey.acceptLevel: advanced", "userID", u.UserID, "level", level)
	return s.msg.SendText(ctx, u.ChatID, orgNumberPromptText)
}

// --- OrgNumber ---

func (s *Survey) orgNumberFromText(ctx context.Context, u models.Update, sess *Session) error {
	// ordering guard: a message may have raced the discard of an earlier
	// partial session; without a level the survey retreats rather than
	// proceed with incomplete data
	if sess.Draft.Level == "" {
		sess.State = models.SurveyStateLevel
		slog.Warn("Survey.orgNumberFromText: level missing, retreating to Level", "userID", u.UserID)
		return s.msg.SendChoices(ctx, u.ChatID, levelRetreatText, levelChoices())
	}

	digits := nonDigits.ReplaceAllString(u.Text, "")
	if digits == "" {
		return s.msg.SendText(ctx, u.ChatID, orgNumberRepromptText)
	}

	sess.Draft.OrgNumber = digits
	sess.State = models.SurveyStateAlbumType
	s.mergeProfile(u.UserID, models.Profile{"org_number": digits})
	return s.msg.SendChoices(ctx, u.ChatID, albumPromptText, albumChoices())
}

// --- AlbumType ---

func (s *Survey) albumTypeFromText(ctx context.Context, u models.Update, sess *Session) error {
	t := kb.Normalize(u.Text)

	if strings.Contains(t, "разниц") || strings.Contains(t, "что такое") || strings.Contains(t, "объяс") {
		return s.explainDifference(ctx, u, sess)
	}
	if strings.Contains(t, "общ") {
		return s.acceptAlbumType(ctx, u, sess, models.AlbumCommon,
			"Принято: *общий*. Сколько детей будут брать альбомы? (числом)")
	}
	if strings.Contains(t, "инд") {
		return s.acceptAlbumType(ctx, u, sess, models.AlbumIndividual,
			"Принято: *индивидуальный*. Сколько детей будут брать альбомы? (числом)")
	}
	return s.msg.SendChoices(ctx, u.ChatID, albumRepromptText, albumChoices())
}

// explainDifference answers "what is the difference" at the AlbumType step
// without advancing state. An unset level re-routes back to Level.
func (s *Survey) explainDifference(ctx context.Context, u models.Update, sess *Session) error {
	switch sess.Draft.Level {
	case models.LevelKindergarten:
		text := "Разница:\n" +
			"• *Общий* — вёрстка одна на всех, ребёнок не на всех фото. Формат 20×30, 20 стр. — *3500 ₽*.\n" +
			"• *Индивидуальный* — персональная вёрстка; Мини *2700 ₽*, Лайт *3700 ₽*, Макси *4600 ₽*.\n" +
			"_Условия: от 15 альбомов и съёмка до марта._"
		return s.msg.SendChoices(ctx, u.ChatID, text, albumChoices())
	case models.LevelSchool:
		text := "Разница:\n" +
			"• *Общий* — «Классный» *2200 ₽*, «Дружный» *3200 ₽*, «Большой» *4400 ₽*.\n" +
			"• *Индивидуальный* — «Планшет» *2000 ₽*, «Мини» *3300 ₽*, «Макси» *4100 ₽*.\n" +
			"_Условия: от 15 альбомов и съёмка до марта._"
		return s.msg.SendChoices(ctx, u.ChatID, text, albumChoices())
	default:
		sess.State = models.SurveyStateLevel
		text := "Для точной разницы подскажите, это для *детского сада* или *школы*? Выберите ниже."
		return s.msg.SendChoices(ctx, u.ChatID, text, levelChoices())
	}
}

func (s *Survey) acceptAlbumType(ctx context.Context, u models.Update, sess *Session, album models.AlbumType, prompt string) error {
	sess.Draft.AlbumType = album
	sess.State = models.SurveyStateCountChildren
	s.mergeProfile(u.UserID, models.Profile{"album_type": string(album)})
	return s.msg.SendText(ctx, u.ChatID, prompt)
}

// --- CountChildren ---

func (s *Survey) countChildrenFromText(ctx context.Context, u models.Update, sess *Session) error {
	txt := strings.TrimSpace(u.Text)
	count, ok := parseCount(txt)
	if !ok {
		return s.msg.SendText(ctx, u.ChatID, countRepromptText)
	}

	sess.Draft.CountChildren = count
	sess.State = models.SurveyStateContactMethod
	s.mergeProfile(u.UserID, models.Profile{"count_children": strconv.Itoa(count)})
	return s.msg.SendChoices(ctx, u.ChatID, contactPromptText, contactChoices())
}

// parseCount accepts only a pure decimal integer string in [1, 1000].
func parseCount(txt string) (int, bool) {
	if txt == "" {
		return 0, false
	}
	for _, r := range txt {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(txt)
	if err != nil || n < models.MinCountChildren || n > models.MaxCountChildren {
		return 0, false
	}
	return n, true
}

// --- ContactMethod ---

func (s *Survey) acceptContactMethod(ctx context.Context, u models.Update, sess *Session, method models.ContactMethod, prompt string) error {
	sess.Draft.ContactMethod = method
	sess.State = models.SurveyStateContactValue
	s.mergeProfile(u.UserID, models.Profile{"contact_method": string(method)})
	return s.msg.SendText(ctx, u.ChatID, prompt)
}

// --- ContactValue ---

func (s *Survey) contactValueFromText(ctx context.Context, u models.Update, sess *Session) error {
	contact := strings.TrimSpace(u.Text)
	if sess.Draft.ContactMethod == models.ContactWhatsApp && !phonePattern.MatchString(contact) {
		return s.msg.SendText(ctx, u.ChatID, contactRepromptText)
	}

	sess.Draft.Contact = contact
	sess.State = models.SurveyStateConfirm
	s.mergeProfile(u.UserID, models.Profile{"contact": contact})
	return s.msg.SendChoices(ctx, u.ChatID, summaryText(sess.Draft), confirmChoices())
}

// --- Confirm ---

func (s *Survey) cancel(ctx context.Context, u models.Update) error {
	s.sessions.Clear(u.UserID)
	slog.Info("Survey.cancel: survey cancelled", "userID", u.UserID)
	return s.msg.SendText(ctx, u.ChatID, cancelledText)
}

func (s *Survey) submit(ctx context.Context, u models.Update, sess *Session) error {
	lead := models.Lead{
		SubmittedAt:   time.Now(),
		UserID:        u.UserID,
		Level:         sess.Draft.Level,
		OrgNumber:     sess.Draft.OrgNumber,
		AlbumType:     sess.Draft.AlbumType,
		CountChildren: sess.Draft.CountChildren,
		ContactMethod: sess.Draft.ContactMethod,
		Contact:       sess.Draft.Contact,
		Username:      u.Username,
		FullName:      u.FullName(),
	}
	s.sessions.Clear(u.UserID)

	if err := s.store.AddLead(lead); err != nil {
		slog.Error("Survey.submit: store lead write failed", "error", err, "userID", u.UserID)
	}
	if s.leads != nil {
		if err := s.leads.Append(lead); err != nil {
			slog.Error("Survey.submit: lead log append failed", "error", err, "userID", u.UserID)
		}
	}

	if s.ownerID != 0 {
		ownerText := fmt.Sprintf("🆕 *Новая заявка (опрос)*\n%s\nОт: @%s (id %d)",
			summaryText(sess.Draft), orDash(u.Username), u.UserID)
		if err := s.msg.Notify(ctx, s.ownerID, ownerText); err != nil {
			// best-effort: the client still gets a confirmation
			slog.Warn("Survey.submit: owner notification failed", "error", err, "ownerID", s.ownerID)
		}
	}

	slog.Info("Survey.submit: lead submitted", "userID", u.UserID, "level", lead.Level, "albumType", lead.AlbumType)
	return s.msg.SendText(ctx, u.ChatID, submittedText)
}

// summaryText renders the collected fields for the Confirm step.
func summaryText(d models.LeadDraft) string {
	count := "–"
	if d.CountChildren != 0 {
		count = strconv.Itoa(d.CountChildren)
	}
	return "📝 *Проверьте заявку:*\n" +
		fmt.Sprintf("• Уровень: *%s*\n", orDash(string(d.Level))) +
		fmt.Sprintf("• № школы/сада: *%s*\n", orDash(d.OrgNumber)) +
		fmt.Sprintf("• Тип альбома: *%s*\n", orDash(string(d.AlbumType))) +
		fmt.Sprintf("• Кол-во детей: *%s*\n", count) +
		fmt.Sprintf("• Связь: *%s — %s*\n", orDash(string(d.ContactMethod)), orDash(d.Contact))
}

func orDash(s string) string {
	if s == "" {
		return "–"
	}
	return s
}

// mergeProfile persists an accepted answer into the durable profile. A
// store failure degrades to a log line; the survey keeps going.
func (s *Survey) mergeProfile(userID int64, fields models.Profile) {
	if err := s.store.MergeProfile(userID, fields); err != nil {
		slog.Warn("Survey.mergeProfile: profile merge failed", "error", err, "userID", userID)
	}
}
