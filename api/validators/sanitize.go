package validators

import (
	"strings"
	"unicode/utf8"
)

// SanitizeString trims whitespace and truncates to maxLen runes.
func SanitizeString(input string, maxLen int) string {
	trimmed := strings.TrimSpace(input)
	if maxLen <= 0 || utf8.RuneCountInString(trimmed) <= maxLen {
		return trimmed
	}
	return string([]rune(trimmed)[:maxLen])
}

// SanitizeOptional applies SanitizeString through a pointer; nil stays nil.
func SanitizeOptional(input *string, maxLen int) *string {
	if input == nil {
		return nil
	}
	out := SanitizeString(*input, maxLen)
	return &out
}
