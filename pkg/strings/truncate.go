// Package strings holds small text helpers for terminal output.
package strings

import (
	"strings"
)

// DefaultValueMaxLen is the width of a value cell in claim tables.
const DefaultValueMaxLen = 72

// MinTruncateLen leaves room for one character plus "...".
const MinTruncateLen = 4

// TruncateValue collapses all whitespace in s to single spaces and cuts the
// result to maxLen runes, ending in "..." when it was cut. maxLen below
// MinTruncateLen is raised to MinTruncateLen.
func TruncateValue(s string, maxLen int) string {
	if maxLen < MinTruncateLen {
		maxLen = MinTruncateLen
	}

	s = strings.Join(strings.Fields(s), " ")

	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen-3]) + "..."
	}
	return s
}
