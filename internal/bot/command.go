package bot

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"keeperbot/internal/dateparse"
	"keeperbot/internal/models"
	"keeperbot/internal/token"
)

// minCaptureLen is the shortest text worth storing.
const minCaptureLen = 3

// maxSearchResults caps how many entries a search-style command renders.
const maxSearchResults = 5

type parsedCommand struct {
	Name string
	Args string
}

var commandRe = regexp.MustCompile(`(?s)^/(\w+)(?:\s+(.*))?$`)

// parseCommand extracts a leading /word command and its trimmed
// argument string. Returns nil when the text is not a command.
func parseCommand(text string) *parsedCommand {
	m := commandRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	return &parsedCommand{Name: strings.ToLower(m[1]), Args: strings.TrimSpace(m[2])}
}

func (b *Bot) dispatchCommand(ctx context.Context, chatID int64, cmd *parsedCommand) {
	switch cmd.Name {
	case "capture":
		b.capture(ctx, chatID, cmd.Args)
	case "task":
		b.quickCapture(ctx, chatID, cmd.Args, models.CategoryAdmin)
	case "idea":
		b.quickCapture(ctx, chatID, cmd.Args, models.CategoryIdea)
	case "remind":
		b.handleRemind(ctx, chatID, cmd.Args)
	case "done":
		b.handleActionSearch(ctx, chatID, cmd.Args, token.VerbDone, "Mark done")
	case "snooze":
		b.handleActionSearch(ctx, chatID, cmd.Args, token.VerbSnoozePick, "Snooze")
	case "edit":
		b.handleActionSearch(ctx, chatID, cmd.Args, token.VerbEditPick, "Edit status")
	case "search":
		b.handleSearch(ctx, chatID, cmd.Args)
	case "digest":
		b.handleDigest(ctx, chatID, cmd.Args)
	case "stats":
		b.handleStats(ctx, chatID)
	case "ask":
		b.handleAsk(ctx, chatID, cmd.Args)
	case "clear":
		b.handleClear(ctx, chatID)
	case "start":
		b.handleStart(chatID)
	case "help":
		b.handleHelp(chatID)
	default:
		// A typo'd command should not discard what the user typed.
		b.capture(ctx, chatID, "/"+cmd.Name+" "+cmd.Args)
	}
}

func (b *Bot) handleRemind(ctx context.Context, chatID int64, args string) {
	result := dateparse.Parse(b.now(), args)
	if result.Date == nil || strings.TrimSpace(result.Remainder) == "" {
		b.sendMessage(chatID, "Usage: /remind <when> <what>\nExample: /remind tomorrow call the dentist")
		return
	}

	due := *result.Date
	title := strings.TrimSpace(result.Remainder)
	entry, err := b.store.CreateEntry(ctx, &models.Entry{
		Category: models.CategoryAdmin,
		Title:    title,
		Status:   models.StatusPending,
		DueDate:  &due,
	})
	if err != nil {
		b.logger.Error("Failed to create reminder",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
		b.sendErrorMessage(chatID, "Failed to create reminder. Please try again.")
		return
	}

	b.sendMessage(chatID, fmt.Sprintf("⏰ Reminder set for %s (%s): %s",
		due.Format("2006-01-02"), due.Weekday(), entry.Title))
}

// handleActionSearch powers /done, /snooze and /edit: similarity search,
// then one button per result carrying the next step of the flow.
func (b *Bot) handleActionSearch(ctx context.Context, chatID int64, query string, verb token.Verb, label string) {
	if strings.TrimSpace(query) == "" {
		b.sendMessage(chatID, "Give me a few words to search for, e.g. /done dentist")
		return
	}

	entries, err := b.searchActive(ctx, query)
	if err != nil {
		b.logger.Error("Failed to search entries",
			zap.Error(err),
			zap.Int64("chat_id", chatID),
			zap.String("query", query))
		b.sendErrorMessage(chatID, "Search failed. Please try again.")
		return
	}
	if len(entries) == 0 {
		b.sendMessage(chatID, "No active items found.")
		return
	}

	var lines []string
	var rows [][]tgbotapi.InlineKeyboardButton
	for i, e := range entries {
		lines = append(lines, fmt.Sprintf("%d. %s %s (%s)", i+1, categoryGlyph(e.Category), e.Title, e.Status))
		data, err := token.Encode(verb, e.ID, "")
		if err != nil {
			b.logger.Error("Failed to encode action token",
				zap.Error(err),
				zap.String("entry_id", e.ID))
			continue
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("%s %d", label, i+1), data)))
	}

	b.sendWithKeyboard(chatID, strings.Join(lines, "\n"), tgbotapi.NewInlineKeyboardMarkup(rows...))
}

func (b *Bot) handleSearch(ctx context.Context, chatID int64, query string) {
	if strings.TrimSpace(query) == "" {
		b.sendMessage(chatID, "Give me a few words to search for, e.g. /search vector databases")
		return
	}

	entries, err := b.searchActive(ctx, query)
	if err != nil {
		b.logger.Error("Failed to search entries",
			zap.Error(err),
			zap.Int64("chat_id", chatID),
			zap.String("query", query))
		b.sendErrorMessage(chatID, "Search failed. Please try again.")
		return
	}
	if len(entries) == 0 {
		b.sendMessage(chatID, "No active items found.")
		return
	}

	var lines []string
	for _, e := range entries {
		line := fmt.Sprintf("%s %s — %s/%s", categoryGlyph(e.Category), e.Title, e.Category, e.Status)
		if e.DueDate != nil {
			line += " · due " + e.DueDate.Format("2006-01-02")
		}
		lines = append(lines, line)
	}
	b.sendMessage(chatID, strings.Join(lines, "\n"))
}

// searchActive runs a similarity search and keeps only non-terminal
// entries, up to maxSearchResults.
func (b *Bot) searchActive(ctx context.Context, query string) ([]*models.Entry, error) {
	entries, err := b.store.SearchEntries(ctx, query, maxSearchResults*3)
	if err != nil {
		return nil, err
	}
	active := make([]*models.Entry, 0, maxSearchResults)
	for _, e := range entries {
		if models.IsTerminal(e.Status) {
			continue
		}
		active = append(active, e)
		if len(active) == maxSearchResults {
			break
		}
	}
	return active, nil
}

func (b *Bot) handleDigest(ctx context.Context, chatID int64, args string) {
	period := "daily"
	switch strings.ToLower(strings.TrimSpace(args)) {
	case "", "daily":
	case "weekly":
		period = "weekly"
	default:
		b.sendMessage(chatID, "Usage: /digest [daily|weekly]")
		return
	}

	digest, err := b.store.GetDigest(ctx, period)
	if err != nil {
		b.logger.Error("Failed to fetch digest",
			zap.Error(err),
			zap.Int64("chat_id", chatID),
			zap.String("period", period))
		b.sendErrorMessage(chatID, "Failed to fetch digest. Please try again.")
		return
	}

	header := fmt.Sprintf("*📊 %s digest*", strings.ToUpper(period[:1])+period[1:])
	b.sendFormatted(chatID, header+"\n\n"+escapeMarkdown(digest.Summary))
}

func (b *Bot) handleStats(ctx context.Context, chatID int64) {
	type result struct {
		label string
		count int
		err   error
	}

	// 5 category counts plus the 2 terminal-status counts are
	// independent reads, so they run concurrently.
	jobs := make([]result, len(models.Categories)+2)
	var wg sync.WaitGroup
	for i, c := range models.Categories {
		wg.Add(1)
		go func(i int, c models.Category) {
			defer wg.Done()
			n, err := b.store.CountByCategory(ctx, c)
			jobs[i] = result{label: string(c), count: n, err: err}
		}(i, c)
	}
	for i, s := range []models.Status{models.StatusDone, models.StatusComplete} {
		wg.Add(1)
		go func(i int, s models.Status) {
			defer wg.Done()
			n, err := b.store.CountByStatus(ctx, s)
			jobs[i] = result{label: string(s), count: n, err: err}
		}(len(models.Categories)+i, s)
	}
	wg.Wait()

	total := 0
	var lines []string
	for i, j := range jobs {
		if j.err != nil {
			b.logger.Error("Failed to count entries",
				zap.Error(j.err),
				zap.String("label", j.label))
			b.sendErrorMessage(chatID, "Failed to gather stats. Please try again.")
			return
		}
		if i < len(models.Categories) {
			total += j.count
			lines = append(lines, fmt.Sprintf("%s %s: %d", categoryGlyph(models.Categories[i]), j.label, j.count))
		} else {
			lines = append(lines, fmt.Sprintf("✔ %s: %d", j.label, j.count))
		}
	}

	text := fmt.Sprintf("📈 Entries: %d\n\n%s", total, strings.Join(lines, "\n"))
	b.sendMessage(chatID, text)
}

func (b *Bot) handleAsk(ctx context.Context, chatID int64, question string) {
	if strings.TrimSpace(question) == "" {
		b.sendMessage(chatID, "Usage: /ask <question>")
		return
	}

	answer, err := b.llm.Ask(ctx, question)
	if err != nil {
		b.logger.Error("Failed to query agent",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
		b.sendErrorMessage(chatID, "Failed to get an answer. Please try again.")
		return
	}
	b.sendMessage(chatID, answer)
}

func (b *Bot) handleClear(ctx context.Context, chatID int64) {
	sessionID := fmt.Sprintf("telegram-%d", chatID)
	if err := b.store.DeleteSession(ctx, sessionID); err != nil {
		b.logger.Error("Failed to delete session",
			zap.Error(err),
			zap.String("session_id", sessionID))
		b.sendErrorMessage(chatID, "Failed to clear the conversation. Please try again.")
		return
	}
	b.sendMessage(chatID, "🧹 Conversation cleared.")
}

func (b *Bot) handleStart(chatID int64) {
	welcome := `Welcome! 📝
I'm your capture inbox: send me any thought, task, voice note or photo and I'll classify and file it.

Use /help to see all available commands.`

	b.sendMessage(chatID, welcome)
}

func (b *Bot) handleHelp(chatID int64) {
	help := `I capture whatever you send me — text, voice or photos — classify it and file it away.

Commands:
/capture <text> - classify and save
/task <text> - save directly as a task
/idea <text> - save directly as an idea
/remind <when> <what> - e.g. /remind friday water plants
/done <query> - find an item and mark it done
/snooze <query> - push an item's due date out
/edit <query> - change an item's status
/search <query> - find items
/ask <question> - ask about your entries
/digest [daily|weekly] - your digest
/stats - the scoreboard
/clear - forget the current conversation
/help - this message

Anything else you send gets captured automatically.`

	b.sendMessage(chatID, help)
}
