// Package dateparse extracts a natural-language date from the front of
// free text: "tomorrow buy milk" -> (tomorrow, "buy milk"). The grammar
// is a fixed ordered list of patterns; first match wins, and a miss is
// a user-input condition, not an error.
package dateparse

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Result is the outcome of one parse. A nil Date means no pattern
// matched and Remainder holds the original text.
type Result struct {
	Date      *time.Time
	Remainder string
}

var (
	isoRe    = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})(?:\s+|$)`)
	inDaysRe = regexp.MustCompile(`^in\s+(\d+)\s+days?(?:\s+|$)`)
)

var weekdays = map[string]time.Weekday{
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
	"sunday":    time.Sunday,
}

// Parse matches date patterns at the start of text, relative to now.
// Order matters: explicit forms (ISO dates) are tried before looser
// ones, and weekday names only match at the start of the trimmed input.
func Parse(now time.Time, text string) Result {
	trimmed := strings.TrimSpace(text)
	lower := strings.ToLower(trimmed)

	if rest, ok := cutPrefix(trimmed, lower, "tomorrow"); ok {
		return dated(now.AddDate(0, 0, 1), rest)
	}
	if rest, ok := cutPrefix(trimmed, lower, "today"); ok {
		return dated(now, rest)
	}
	if rest, ok := cutPrefix(trimmed, lower, "next week"); ok {
		return dated(now.AddDate(0, 0, 7), rest)
	}

	for name, wd := range weekdays {
		if rest, ok := cutPrefix(trimmed, lower, name); ok {
			days := int(wd-now.Weekday()+7) % 7
			// The same weekday spoken today means next week, never today.
			if days == 0 {
				days = 7
			}
			return dated(now.AddDate(0, 0, days), rest)
		}
	}

	if m := isoRe.FindStringSubmatch(trimmed); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		// Noon anchor so a bare date never rolls across a timezone
		// boundary into the wrong day.
		d := time.Date(year, time.Month(month), day, 12, 0, 0, 0, now.Location())
		if d.Year() == year && int(d.Month()) == month && d.Day() == day {
			return dated(d, strings.TrimSpace(trimmed[len(m[0]):]))
		}
	}

	if m := inDaysRe.FindStringSubmatch(lower); m != nil {
		n, _ := strconv.Atoi(m[1])
		return dated(now.AddDate(0, 0, n), strings.TrimSpace(trimmed[len(m[0]):]))
	}

	return Result{Remainder: text}
}

// cutPrefix strips a literal prefix when it is followed by whitespace
// or end of input, returning the trimmed remainder.
func cutPrefix(original, lower, prefix string) (string, bool) {
	if !strings.HasPrefix(lower, prefix) {
		return "", false
	}
	rest := original[len(prefix):]
	if rest != "" && !strings.HasPrefix(rest, " ") && !strings.HasPrefix(rest, "\t") {
		return "", false
	}
	return strings.TrimSpace(rest), true
}

func dated(d time.Time, remainder string) Result {
	return Result{Date: &d, Remainder: remainder}
}
