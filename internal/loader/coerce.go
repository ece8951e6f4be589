package loader

import (
	"strings"
	"time"
)

// DefaultDateLayouts are tried in order when no layouts are declared
var DefaultDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"01/02/2006",
	"1/2/2006",
	"02-Jan-2006",
	"Jan 2, 2006",
	"20060102150405",
	"20060102",
}

// parseDate tries each layout in turn
func parseDate(value string, layouts []string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if len(layouts) == 0 {
		layouts = DefaultDateLayouts
	}

	var firstErr error
	for _, layout := range layouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return t, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}
