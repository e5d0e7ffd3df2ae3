package layout

import (
	"regexp"
	"strings"
)

// Label truncation limits.
const (
	MaxLabel = 22
	KeepHead = 10
	KeepTail = 8
	Ellipsis = "..."
)

var moreSuffix = regexp.MustCompile(`\s*\(\+\d+ more\)\s*$`)

// Truncate shortens labels longer than MaxLabel runes to the first KeepHead
// runes, an ellipsis and the last KeepTail runes.
func Truncate(label string) string {
	r := []rune(label)
	if len(r) <= MaxLabel {
		return label
	}
	return string(r[:KeepHead]) + Ellipsis + string(r[len(r)-KeepTail:])
}

// TruncateSummary truncates the name part of a "name (+N more)" label and
// keeps the count whole. Labels without the suffix fall back to Truncate.
func TruncateSummary(label string) string {
	loc := moreSuffix.FindStringIndex(label)
	if loc == nil || len([]rune(label)) <= MaxLabel {
		return Truncate(label)
	}
	suffix := strings.TrimSpace(label[loc[0]:])
	return Truncate(label[:loc[0]]) + " " + suffix
}
