package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// inlineCacheSeconds keeps suggestions fresh; results change with
// every stored entry.
const inlineCacheSeconds = 5

// handleInline answers search-as-you-type queries with up to 5 ranked
// suggestion cards.
func (b *Bot) handleInline(ctx context.Context, q *tgbotapi.InlineQuery) {
	query := strings.TrimSpace(q.Query)
	if len(query) < 2 {
		b.answerInline(q.ID, nil)
		return
	}

	entries, err := b.store.SearchEntries(ctx, query, maxSearchResults)
	if err != nil {
		b.logger.Error("Failed to search entries for inline query",
			zap.Error(err),
			zap.String("query", query))
		b.answerInline(q.ID, nil)
		return
	}

	results := make([]interface{}, 0, len(entries))
	for _, e := range entries {
		description := fmt.Sprintf("%s · %s", e.Category, e.Status)
		if e.DueDate != nil {
			description += " · due " + e.DueDate.Format("2006-01-02")
		}

		// The message body ships with the result so the platform can
		// insert it without another round trip.
		body := fmt.Sprintf("%s %s\n%s", categoryGlyph(e.Category), e.Title, description)

		article := tgbotapi.NewInlineQueryResultArticle(e.ID, categoryGlyph(e.Category)+" "+e.Title, body)
		article.Description = description
		results = append(results, article)
	}

	b.answerInline(q.ID, results)
}

func (b *Bot) answerInline(queryID string, results []interface{}) {
	answer := tgbotapi.InlineConfig{
		InlineQueryID: queryID,
		Results:       results,
		CacheTime:     inlineCacheSeconds,
		IsPersonal:    true,
	}
	if _, err := b.api.Request(answer); err != nil {
		b.logger.Error("Failed to answer inline query",
			zap.Error(err),
			zap.String("query_id", queryID))
	}
}
