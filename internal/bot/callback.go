package bot

import (
	"context"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"keeperbot/internal/models"
	"keeperbot/internal/token"
)

var snoozeDays = []int{1, 3, 7, 30}

// handleCallback decodes a pressed button and runs its one-shot
// transition. The spinner is dismissed up front, before any store
// work, so a slow store call never leaves the client hanging.
func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	b.ackCallback(cb.ID, "")

	chatID := cb.Message.Chat.ID
	t, err := token.Decode(cb.Data)
	if err != nil {
		b.logger.Warn("Received malformed callback token",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
		b.sendErrorMessage(chatID, "That button has expired.")
		return
	}

	switch t.Verb {
	case token.VerbDone:
		b.callbackDone(ctx, chatID, t.ID)
	case token.VerbRecat:
		b.callbackRecategorize(ctx, chatID, t.ID, t.Param)
	case token.VerbSnoozePick:
		b.callbackSnoozePick(chatID, t.ID)
	case token.VerbSnooze:
		b.callbackSnooze(ctx, chatID, t.ID, t.Param)
	case token.VerbEditPick:
		b.callbackEditPick(ctx, chatID, t.ID)
	case token.VerbEditStatus:
		b.callbackEditStatus(ctx, chatID, t.ID, t.Param)
	}
}

// callbackDone re-fetches the entry before mutating: a prior callback
// on the same entry may already have changed it.
func (b *Bot) callbackDone(ctx context.Context, chatID int64, entryID string) {
	entry, err := b.store.GetEntry(ctx, entryID)
	if err != nil {
		b.logger.Error("Failed to fetch entry",
			zap.Error(err),
			zap.String("entry_id", entryID))
		b.sendErrorMessage(chatID, "Failed to update the entry. Please try again.")
		return
	}
	if entry == nil {
		b.sendMessage(chatID, "Entry not found — it may have been archived.")
		return
	}

	terminal := models.TerminalStatus(entry.Category)
	if _, err := b.store.UpdateEntry(ctx, entryID, models.EntryUpdate{Status: &terminal}); err != nil {
		b.logger.Error("Failed to mark entry done",
			zap.Error(err),
			zap.String("entry_id", entryID))
		b.sendErrorMessage(chatID, "Failed to update the entry. Please try again.")
		return
	}

	b.sendMessage(chatID, fmt.Sprintf("✔ %s: %s", terminal, entry.Title))
}

// callbackRecategorize archives and recreates rather than mutating in
// place: category determines the shape of content, and cross-category
// field mapping is not guaranteed lossless.
func (b *Bot) callbackRecategorize(ctx context.Context, chatID int64, entryID, categoryName string) {
	category, ok := models.ParseCategory(categoryName)
	if !ok {
		b.sendErrorMessage(chatID, "That button has expired.")
		return
	}

	entry, err := b.store.GetEntry(ctx, entryID)
	if err != nil {
		b.logger.Error("Failed to fetch entry",
			zap.Error(err),
			zap.String("entry_id", entryID))
		b.sendErrorMessage(chatID, "Failed to recategorize. Please try again.")
		return
	}
	if entry == nil {
		b.sendMessage(chatID, "Entry not found — it may have been archived.")
		return
	}

	if err := b.store.ArchiveEntry(ctx, entryID); err != nil {
		b.logger.Error("Failed to archive entry",
			zap.Error(err),
			zap.String("entry_id", entryID))
		b.sendErrorMessage(chatID, "Failed to recategorize. Please try again.")
		return
	}

	recreated, err := b.store.CreateEntry(ctx, &models.Entry{
		Category: category,
		Title:    entry.Title,
		Priority: entry.Priority,
		Content:  entry.Content,
		DueDate:  entry.DueDate,
	})
	if err != nil {
		b.logger.Error("Failed to recreate entry",
			zap.Error(err),
			zap.String("entry_id", entryID),
			zap.String("category", string(category)))
		b.sendErrorMessage(chatID, "Failed to recategorize. Please try again.")
		return
	}

	b.sendMessage(chatID, fmt.Sprintf("%s Moved to %s: %s",
		categoryGlyph(category), category, recreated.Title))
}

// callbackSnoozePick offers the duration choices. The entry id rides
// along in each button's token; that is the whole multi-step state.
func (b *Bot) callbackSnoozePick(chatID int64, entryID string) {
	var buttons []tgbotapi.InlineKeyboardButton
	for _, days := range snoozeDays {
		data, err := token.Encode(token.VerbSnooze, entryID, strconv.Itoa(days))
		if err != nil {
			b.logger.Error("Failed to encode snooze token",
				zap.Error(err),
				zap.String("entry_id", entryID))
			continue
		}
		label := fmt.Sprintf("%d days", days)
		if days == 1 {
			label = "1 day"
		}
		buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(label, data))
	}
	b.sendWithKeyboard(chatID, "Snooze for how long?",
		tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(buttons...)))
}

func (b *Bot) callbackSnooze(ctx context.Context, chatID int64, entryID, param string) {
	days, err := strconv.Atoi(param)
	if err != nil || days <= 0 {
		b.sendErrorMessage(chatID, "That button has expired.")
		return
	}

	due := b.now().AddDate(0, 0, days)
	if _, err := b.store.UpdateEntry(ctx, entryID, models.EntryUpdate{DueDate: &due}); err != nil {
		b.logger.Error("Failed to snooze entry",
			zap.Error(err),
			zap.String("entry_id", entryID))
		b.sendErrorMessage(chatID, "Failed to snooze. Please try again.")
		return
	}

	b.sendMessage(chatID, fmt.Sprintf("⏰ Snoozed until %s (%s)",
		due.Format("2006-01-02"), due.Weekday()))
}

func (b *Bot) callbackEditPick(ctx context.Context, chatID int64, entryID string) {
	entry, err := b.store.GetEntry(ctx, entryID)
	if err != nil {
		b.logger.Error("Failed to fetch entry",
			zap.Error(err),
			zap.String("entry_id", entryID))
		b.sendErrorMessage(chatID, "Failed to load the entry. Please try again.")
		return
	}
	if entry == nil {
		b.sendMessage(chatID, "Entry not found — it may have been archived.")
		return
	}

	var buttons []tgbotapi.InlineKeyboardButton
	for _, s := range models.StatusOptions(entry.Category) {
		data, err := token.Encode(token.VerbEditStatus, entryID, string(s))
		if err != nil {
			b.logger.Error("Failed to encode status token",
				zap.Error(err),
				zap.String("entry_id", entryID))
			continue
		}
		buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(string(s), data))
	}

	b.sendWithKeyboard(chatID, fmt.Sprintf("Pick a new status for %q:", entry.Title),
		tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(buttons...)))
}

func (b *Bot) callbackEditStatus(ctx context.Context, chatID int64, entryID, statusName string) {
	entry, err := b.store.GetEntry(ctx, entryID)
	if err != nil {
		b.logger.Error("Failed to fetch entry",
			zap.Error(err),
			zap.String("entry_id", entryID))
		b.sendErrorMessage(chatID, "Failed to update the status. Please try again.")
		return
	}
	if entry == nil {
		b.sendMessage(chatID, "Entry not found — it may have been archived.")
		return
	}

	status, ok := models.ParseStatus(entry.Category, statusName)
	if !ok {
		b.sendErrorMessage(chatID, "That button has expired.")
		return
	}

	if _, err := b.store.UpdateEntry(ctx, entryID, models.EntryUpdate{Status: &status}); err != nil {
		b.logger.Error("Failed to update status",
			zap.Error(err),
			zap.String("entry_id", entryID),
			zap.String("status", string(status)))
		b.sendErrorMessage(chatID, "Failed to update the status. Please try again.")
		return
	}

	b.sendMessage(chatID, fmt.Sprintf("✏️ %s is now %s", entry.Title, status))
}
