package bot

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf16"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"keeperbot/internal/llm"
	"keeperbot/internal/models"
	"keeperbot/internal/ratelimit"
	"keeperbot/internal/store"
)

// telegramAPI is the slice of *tgbotapi.BotAPI the bot uses. Narrow so
// tests can substitute a fake.
type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
}

type Bot struct {
	api           telegramAPI
	store         store.Store
	llm           llm.Client
	limiter       *ratelimit.Limiter
	logger        *zap.Logger
	allowedChatID int64
	now           func() time.Time
}

func New(token string, allowedChatID int64, store store.Store, llm llm.Client, limiter *ratelimit.Limiter, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	return newBot(api, allowedChatID, store, llm, limiter, logger), nil
}

func newBot(api telegramAPI, allowedChatID int64, st store.Store, lc llm.Client, limiter *ratelimit.Limiter, logger *zap.Logger) *Bot {
	return &Bot{
		api:           api,
		store:         st,
		llm:           lc,
		limiter:       limiter,
		logger:        logger,
		allowedChatID: allowedChatID,
		now:           time.Now,
	}
}

func (b *Bot) Start() error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	for update := range updates {
		go b.route(update)
	}

	return nil
}

// route is the top-level entry point for one update. It never lets a
// panic escape: an unexpected failure degrades to a logged error and a
// generic notice, not a crashed poll loop.
func (b *Bot) route(update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Recovered from panic in update handler",
				zap.Any("panic", r),
				zap.Int("update_id", update.UpdateID))
		}
	}()

	ctx := context.Background()

	if update.CallbackQuery != nil {
		b.routeCallback(ctx, update.CallbackQuery)
		return
	}

	if update.InlineQuery != nil {
		b.routeInline(ctx, update.InlineQuery)
		return
	}

	if update.Message == nil {
		return
	}
	b.routeMessage(ctx, update.Message)
}

func (b *Bot) routeCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil {
		b.ackCallback(cb.ID, "")
		return
	}
	chatID := cb.Message.Chat.ID
	if !b.authorized(chatID) {
		b.ackCallback(cb.ID, "Unauthorized")
		return
	}
	if allowed, _ := b.limiter.Allow(chatID); !allowed {
		b.ackCallback(cb.ID, "Too many requests, slow down")
		return
	}
	b.handleCallback(ctx, cb)
}

func (b *Bot) routeInline(ctx context.Context, q *tgbotapi.InlineQuery) {
	// Inline queries originate outside any chat, so the querying
	// user's id is the identity checked against the allow list.
	if q.From == nil || !b.authorized(q.From.ID) {
		return
	}
	if allowed, _ := b.limiter.Allow(q.From.ID); !allowed {
		return
	}
	b.handleInline(ctx, q)
}

func (b *Bot) routeMessage(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	if !b.authorized(chatID) {
		b.sendMessage(chatID, "Unauthorized.")
		return
	}
	if allowed, _ := b.limiter.Allow(chatID); !allowed {
		b.sendMessage(chatID, "Too many requests. Please wait a moment.")
		return
	}

	switch {
	case message.Voice != nil:
		b.handleVoice(ctx, message)
	case len(message.Photo) > 0:
		b.handlePhoto(ctx, message)
	case message.Text != "":
		b.handleText(ctx, message)
	}
}

func (b *Bot) handleText(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID

	if cmd := parseCommand(message.Text); cmd != nil {
		b.dispatchCommand(ctx, chatID, cmd)
		return
	}

	if url := firstURL(message); url != "" {
		b.handleURL(ctx, chatID, message.Text, url)
		return
	}

	b.capture(ctx, chatID, message.Text)
}

func (b *Bot) handleVoice(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID

	fileURL, err := b.api.GetFileDirectURL(message.Voice.FileID)
	if err != nil {
		b.logger.Error("Failed to resolve voice file",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
		b.sendErrorMessage(chatID, "Failed to process voice message. Please try again.")
		return
	}

	text, err := b.llm.Transcribe(ctx, fileURL)
	if err != nil {
		b.logger.Error("Failed to transcribe voice message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
		b.sendErrorMessage(chatID, "Failed to transcribe voice message. Please try again.")
		return
	}

	b.capture(ctx, chatID, text)
}

func (b *Bot) handlePhoto(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID

	if len(strings.TrimSpace(message.Caption)) >= minCaptureLen {
		b.capture(ctx, chatID, message.Caption)
		return
	}

	// Largest rendition is last in the photo size list.
	photo := message.Photo[len(message.Photo)-1]
	fileURL, err := b.api.GetFileDirectURL(photo.FileID)
	if err != nil {
		b.logger.Error("Failed to resolve photo file",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
		b.sendErrorMessage(chatID, "Failed to process photo. Please try again.")
		return
	}

	description, err := b.llm.DescribeImage(ctx, fileURL)
	if err != nil {
		b.logger.Error("Failed to describe image",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
		b.sendErrorMessage(chatID, "Failed to process photo. Please try again.")
		return
	}

	b.quickCapture(ctx, chatID, description, models.CategoryIdea)
}

func (b *Bot) authorized(id int64) bool {
	return id == b.allowedChatID
}

// firstURL extracts the first URL entity from a message. Telegram
// entity offsets count UTF-16 code units.
func firstURL(message *tgbotapi.Message) string {
	for _, entity := range message.Entities {
		switch entity.Type {
		case "url":
			encoded := utf16.Encode([]rune(message.Text))
			if entity.Offset < 0 || entity.Offset+entity.Length > len(encoded) {
				continue
			}
			return string(utf16.Decode(encoded[entity.Offset : entity.Offset+entity.Length]))
		case "text_link":
			if entity.URL != "" {
				return entity.URL
			}
		}
	}
	return ""
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

// sendFormatted sends MarkdownV2-formatted text; the caller is
// responsible for escaping user-supplied fragments.
func (b *Bot) sendFormatted(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "MarkdownV2"
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send formatted message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) sendWithKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = keyboard
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send message with keyboard",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) sendErrorMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, "⚠️ "+text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send error message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

// ackCallback dismisses the loading spinner on a pressed button. This
// is a separate obligation from the store mutation and happens first.
func (b *Bot) ackCallback(callbackID, text string) {
	cb := tgbotapi.NewCallback(callbackID, text)
	if _, err := b.api.Request(cb); err != nil {
		b.logger.Error("Failed to answer callback query",
			zap.Error(err),
			zap.String("callback_id", callbackID))
	}
}
