package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"keeperbot/internal/models"
	"keeperbot/internal/token"
)

const (
	relationSuggestionLimit     = 3
	relationSuggestionThreshold = 0.75
)

// capture runs the full classification pipeline over free text.
func (b *Bot) capture(ctx context.Context, chatID int64, text string) {
	if len(strings.TrimSpace(text)) < minCaptureLen {
		b.sendMessage(chatID, "That's too short to capture — give me at least a few words.")
		return
	}

	b.sendMessage(chatID, "Classifying…")

	classification, err := b.llm.Classify(ctx, text)
	if err != nil {
		b.logger.Error("Failed to classify capture",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
		b.sendErrorMessage(chatID, "Failed to capture. Please try again.")
		return
	}

	entry, err := b.saveCapture(ctx, chatID, text, classification, "classified")
	if err != nil {
		return
	}

	reply := fmt.Sprintf("%s %s: %s\nConfidence: %s %d%%",
		categoryGlyph(entry.Category), entry.Category, entry.Title,
		confidenceBar(classification.Confidence),
		int(classification.Confidence*100+0.5))
	b.sendWithKeyboard(chatID, reply, recategorizeKeyboard(entry.ID))
}

// quickCapture is the /task and /idea path: no classifier call, the
// category is fixed by the command. Confidence is reported as 100%
// because nothing was classified; the audit record carries status
// "direct" so the trail distinguishes the two cases.
func (b *Bot) quickCapture(ctx context.Context, chatID int64, text string, category models.Category) {
	if len(strings.TrimSpace(text)) < minCaptureLen {
		b.sendMessage(chatID, "That's too short to capture — give me at least a few words.")
		return
	}

	classification := models.Classification{Category: category, Confidence: 1}
	entry, err := b.saveCapture(ctx, chatID, text, classification, "direct")
	if err != nil {
		return
	}

	reply := fmt.Sprintf("%s %s: %s\nConfidence: 100%%",
		categoryGlyph(entry.Category), entry.Category, entry.Title)
	b.sendWithKeyboard(chatID, reply, recategorizeKeyboard(entry.ID))
}

// handleURL ingests a bare link message as a Note without touching the
// classifier.
func (b *Bot) handleURL(ctx context.Context, chatID int64, text, url string) {
	entry, err := b.store.CreateEntry(ctx, &models.Entry{
		Category: models.CategoryNote,
		Title:    firstN(text, 100),
		Content: map[string]string{
			"url": url,
			"raw": text,
		},
	})
	if err != nil {
		b.logger.Error("Failed to save link",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
		b.sendErrorMessage(chatID, "Failed to save the link. Please try again.")
		return
	}
	b.enrich(ctx, text, models.Classification{Category: entry.Category, Confidence: 1}, entry.ID, "direct")

	b.sendMessage(chatID, fmt.Sprintf("🔖 Saved link: %s", entry.Title))
}

// saveCapture creates the entry and fires the best-effort enrichment.
// Store failures are reported to the user and returned; enrichment
// failures never are.
func (b *Bot) saveCapture(ctx context.Context, chatID int64, text string, classification models.Classification, auditStatus string) (*models.Entry, error) {
	content := make(map[string]string, len(classification.Fields)+2)
	for k, v := range classification.Fields {
		content[k] = v
	}
	content["raw"] = text
	if classification.Category == models.CategoryPeople {
		content["lastContact"] = b.now().Format("2006-01-02")
	}

	entry, err := b.store.CreateEntry(ctx, &models.Entry{
		Category: classification.Category,
		Title:    captureTitle(text, classification.Fields),
		Content:  content,
	})
	if err != nil {
		b.logger.Error("Failed to create entry",
			zap.Error(err),
			zap.Int64("chat_id", chatID),
			zap.String("category", string(classification.Category)))
		b.sendErrorMessage(chatID, "Failed to capture. Please try again.")
		return nil, err
	}

	b.enrich(ctx, text, classification, entry.ID, auditStatus)
	return entry, nil
}

// enrich writes the audit record and requests relation suggestions.
// Both are enrichment, not correctness: failures are logged and
// swallowed, never surfaced, never retried.
func (b *Bot) enrich(ctx context.Context, rawInput string, classification models.Classification, entryID, auditStatus string) {
	if err := b.store.CreateAuditRecord(ctx, &models.AuditRecord{
		RawInput:      rawInput,
		Category:      classification.Category,
		Confidence:    classification.Confidence,
		DestinationID: entryID,
		Status:        auditStatus,
	}); err != nil {
		b.logger.Warn("Failed to write audit record",
			zap.Error(err),
			zap.String("entry_id", entryID))
	}

	suggestions, err := b.store.SuggestRelations(ctx, entryID, relationSuggestionLimit, relationSuggestionThreshold)
	if err != nil {
		b.logger.Warn("Failed to suggest relations",
			zap.Error(err),
			zap.String("entry_id", entryID))
		return
	}
	for _, s := range suggestions {
		if err := b.store.AddRelation(ctx, entryID, s.ID, "related"); err != nil {
			b.logger.Warn("Failed to add relation",
				zap.Error(err),
				zap.String("entry_id", entryID),
				zap.String("related_id", s.ID))
		}
	}
}

// captureTitle prefers the richest extracted field over the raw text.
func captureTitle(text string, fields map[string]string) string {
	richest := ""
	for _, v := range fields {
		if len(v) > len(richest) {
			richest = v
		}
	}
	if richest != "" {
		return richest
	}
	return firstN(text, 100)
}

func firstN(s string, n int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// recategorizeKeyboard offers all four classifier categories, the
// assigned one included: the classifier can be wrong about its own
// choice too.
func recategorizeKeyboard(entryID string) tgbotapi.InlineKeyboardMarkup {
	var buttons []tgbotapi.InlineKeyboardButton
	for _, c := range models.ClassifierCategories {
		data, err := token.Encode(token.VerbRecat, entryID, string(c))
		if err != nil {
			continue
		}
		buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(string(c), data))
	}
	return tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(buttons...))
}
