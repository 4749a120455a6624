package track

import (
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// timestampLayouts are the accepted formats in priority order: two-digit year
// before four-digit, 24-hour before 12-hour, without seconds before with.
// The first successful parse wins.
var timestampLayouts = []string{
	"01/02/06 15:04",
	"01/02/06 15:04:05",
	"01/02/06 3:04 PM",
	"01/02/06 3:04:05 PM",
	"01/02/2006 15:04",
	"01/02/2006 15:04:05",
	"01/02/2006 3:04 PM",
	"01/02/2006 3:04:05 PM",
}

// ParseTimestamp interprets a scraped cell against the accepted layouts.
// Returns ok=false when no layout matches; the caller logs and skips the
// field. Never fails the surrounding batch.
func ParseTimestamp(text string) (time.Time, bool) {
	text = CleanCell(text)
	if text == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// CleanCell normalizes scraped cell text: NFC normalization, NBSP to plain
// space, surrounding whitespace trimmed. Server-rendered tables pad empty
// cells with &nbsp;, which must compare equal to empty.
func CleanCell(text string) string {
	text = norm.NFC.String(text)
	text = strings.ReplaceAll(text, "\u00a0", " ")
	return strings.TrimSpace(text)
}
