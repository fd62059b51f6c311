package importer

import (
	"errors"
	"strings"
	"time"
)

var errInvalidDate = errors.New("invalid date")

// fallbackLayouts are tried in order when no configured format matches.
// Day-first wins for ambiguous slash dates. Single-digit layout elements
// also accept zero-padded values.
var fallbackLayouts = []string{
	"2/1/2006",
	"1/2/2006",
	"2006-1-2",
	"2-1-2006",
	"2.1.2006",
	"2006.1.2",
}

var isoLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// patternTokens translates the date pattern notation used by mapping
// configs ("dd/MM/yyyy") into Go layout elements. Longest tokens first.
var patternTokens = []struct{ token, layout string }{
	{"yyyy", "2006"},
	{"MMMM", "January"},
	{"MMM", "Jan"},
	{"EEEE", "Monday"},
	{"EEE", "Mon"},
	{"yy", "06"},
	{"MM", "1"},
	{"dd", "2"},
	{"HH", "15"},
	{"hh", "3"},
	{"mm", "04"},
	{"ss", "05"},
	{"M", "1"},
	{"d", "2"},
	{"a", "PM"},
}

// Layout converts a date pattern into a Go time layout. Patterns that
// already contain Go reference elements are returned unchanged.
func Layout(pattern string) string {
	if strings.Contains(pattern, "2006") || strings.Contains(pattern, "Jan") {
		return pattern
	}

	var sb strings.Builder

	for i := 0; i < len(pattern); {
		matched := false

		for _, t := range patternTokens {
			if strings.HasPrefix(pattern[i:], t.token) {
				sb.WriteString(t.layout)
				i += len(t.token)
				matched = true

				break
			}
		}

		if !matched {
			sb.WriteByte(pattern[i])
			i++
		}
	}

	return sb.String()
}

// ParseDate reads a calendar date. The configured pattern is tried first,
// then the fallback layouts, then ISO 8601 timestamps. A trailing time of
// day is ignored. The result is midnight UTC.
func ParseDate(value, pattern string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, errInvalidDate
	}

	candidates := []string{value}
	if fields := strings.Fields(value); len(fields) > 1 {
		candidates = append(candidates, fields[0])
	}

	var layouts []string
	if pattern != "" {
		layouts = append(layouts, Layout(pattern))
	}

	layouts = append(layouts, fallbackLayouts...)
	layouts = append(layouts, isoLayouts...)

	for _, c := range candidates {
		for _, layout := range layouts {
			if t, err := time.Parse(layout, c); err == nil {
				return calendarDate(t), nil
			}
		}
	}

	return time.Time{}, errInvalidDate
}

func calendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
