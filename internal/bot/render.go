package bot

import (
	"math"
	"strings"

	"keeperbot/internal/models"
)

func categoryGlyph(c models.Category) string {
	switch c {
	case models.CategoryPeople:
		return "👤"
	case models.CategoryProject:
		return "📁"
	case models.CategoryIdea:
		return "💡"
	case models.CategoryAdmin:
		return "🗂"
	default:
		return "📝"
	}
}

// confidenceBar renders a 10-character bar filled proportionally to
// the confidence, rounded to the nearest decile.
func confidenceBar(confidence float64) string {
	filled := int(math.Round(confidence * 10))
	if filled < 0 {
		filled = 0
	}
	if filled > 10 {
		filled = 10
	}
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", 10-filled) + "]"
}

// escapeMarkdown escapes MarkdownV2 special characters in
// user-supplied fragments.
func escapeMarkdown(text string) string {
	specialChars := []string{"_", "*", "[", "]", "(", ")", "~", "`", ">", "#", "+", "-", "=", "|", "{", "}", ".", "!"}
	escaped := text
	for _, char := range specialChars {
		escaped = strings.ReplaceAll(escaped, char, "\\"+char)
	}
	return escaped
}
