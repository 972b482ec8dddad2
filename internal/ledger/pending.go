package ledger

import (
	"strings"
	"unicode/utf8"
)

// PendingTag is the marker embedded in a description while a payout still
// waits for its photo attachments.
func PendingTag(submitterName string) string {
	return "[Bez załączników - " + submitterName + "]"
}

// PendingTrimSet is the whitespace stripped around a description once its
// pending tag is removed. PgStore passes the same set to btrim.
const PendingTrimSet = " \t\r\n\v\f"

// StripPendingTag removes every occurrence of tag and trims the result.
func StripPendingTag(description, tag string) string {
	return strings.Trim(strings.ReplaceAll(description, tag, ""), PendingTrimSet)
}

// Truncate cuts s to at most max runes.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max])
}
