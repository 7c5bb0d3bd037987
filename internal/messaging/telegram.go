package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/olkaphoto/concierge/internal/models"
)

// Default transport configuration.
const (
	// DefaultPollTimeout is the long-poll timeout in seconds.
	DefaultPollTimeout = 30
	// updateBufferSize bounds the inbound event channel.
	updateBufferSize = 64
)

// Opts holds configuration for the Telegram service.
type Opts struct {
	PollTimeout int
	Debug       bool
}

// Option defines a configuration option for the Telegram service.
type Option func(*Opts)

// WithPollTimeout sets the long-poll timeout in seconds.
func WithPollTimeout(seconds int) Option {
	return func(o *Opts) { o.PollTimeout = seconds }
}

// WithDebug enables verbose Telegram API logging.
func WithDebug() Option {
	return func(o *Opts) { o.Debug = true }
}

// TelegramService implements Service over the Telegram Bot API with long
// polling.
type TelegramService struct {
	bot         *tgbotapi.BotAPI
	updates     chan models.Update
	pollTimeout int
	stopOnce    sync.Once
}

// NewTelegramService creates a Telegram transport with the given bot token.
func NewTelegramService(token string, opts ...Option) (*TelegramService, error) {
	cfg := Opts{PollTimeout: DefaultPollTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}

	if token == "" {
		return nil, fmt.Errorf("bot token not set")
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	bot.Debug = cfg.Debug

	slog.Info("TelegramService: authorized", "account", bot.Self.UserName)
	return &TelegramService{
		bot:         bot,
		updates:     make(chan models.Update, updateBufferSize),
		pollTimeout: cfg.PollTimeout,
	}, nil
}

// Start begins long polling and forwards converted events to Updates.
func (s *TelegramService) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = s.pollTimeout
	ch := s.bot.GetUpdatesChan(u)

	go func() {
		defer close(s.updates)
		for {
			select {
			case <-ctx.Done():
				slog.Debug("TelegramService: context cancelled, stopping poll loop")
				return
			case upd, ok := <-ch:
				if !ok {
					return
				}
				if ev, ok := s.convert(upd); ok {
					select {
					case s.updates <- ev:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()

	slog.Info("TelegramService: polling started", "timeout_s", s.pollTimeout)
	return nil
}

// Stop ends long polling.
func (s *TelegramService) Stop() error {
	s.stopOnce.Do(func() {
		s.bot.StopReceivingUpdates()
	})
	return nil
}

// Updates returns the channel of inbound events.
func (s *TelegramService) Updates() <-chan models.Update {
	return s.updates
}

// convert maps a raw Telegram update to the transport-neutral event.
// Button presses are acknowledged immediately so the client stops the
// spinner regardless of how the core handles them.
func (s *TelegramService) convert(upd tgbotapi.Update) (models.Update, bool) {
	if cb := upd.CallbackQuery; cb != nil && cb.From != nil {
		if _, err := s.bot.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
			slog.Warn("TelegramService: callback ack failed", "error", err)
		}
		ev := models.Update{
			UserID:    cb.From.ID,
			Username:  cb.From.UserName,
			FirstName: cb.From.FirstName,
			LastName:  cb.From.LastName,
			Callback:  cb.Data,
		}
		if cb.Message != nil && cb.Message.Chat != nil {
			ev.ChatID = cb.Message.Chat.ID
		} else {
			ev.ChatID = cb.From.ID
		}
		return ev, true
	}

	if msg := upd.Message; msg != nil && msg.From != nil && msg.Text != "" {
		return models.Update{
			UserID:    msg.From.ID,
			ChatID:    msg.Chat.ID,
			Username:  msg.From.UserName,
			FirstName: msg.From.FirstName,
			LastName:  msg.From.LastName,
			Text:      msg.Text,
		}, true
	}

	return models.Update{}, false
}

func (s *TelegramService) send(chattable tgbotapi.Chattable) error {
	if _, err := s.bot.Send(chattable); err != nil {
		return fmt.Errorf("telegram send failed: %w", err)
	}
	return nil
}

// SendText sends a plain Markdown-formatted text message.
func (s *TelegramService) SendText(ctx context.Context, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	return s.send(msg)
}

// SendChoices sends text with inline buttons, one keyboard row per choice
// row.
func (s *TelegramService) SendChoices(ctx context.Context, chatID int64, text string, choices [][]models.Choice) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(inlineRows(choices)...)
	return s.send(msg)
}

func inlineRows(choices [][]models.Choice) [][]tgbotapi.InlineKeyboardButton {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, r := range choices {
		var row []tgbotapi.InlineKeyboardButton
		for _, c := range r {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(c.Label, c.Data))
		}
		if len(row) > 0 {
			rows = append(rows, row)
		}
	}
	return rows
}

// SendReplyKeyboard sends text with a reply keyboard of label rows.
func (s *TelegramService) SendReplyKeyboard(ctx context.Context, chatID int64, text string, rows [][]string, oneTime bool) error {
	var kbRows [][]tgbotapi.KeyboardButton
	for _, r := range rows {
		var btns []tgbotapi.KeyboardButton
		for _, label := range r {
			btns = append(btns, tgbotapi.NewKeyboardButton(label))
		}
		kbRows = append(kbRows, btns)
	}

	kb := tgbotapi.NewReplyKeyboard(kbRows...)
	kb.OneTimeKeyboard = oneTime

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = kb
	return s.send(msg)
}

// Notify sends a message to the owner chat.
func (s *TelegramService) Notify(ctx context.Context, chatID int64, text string) error {
	return s.SendText(ctx, chatID, text)
}
