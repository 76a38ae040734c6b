package app

import (
	"strings"
	"unicode/utf8"
)

const maxInputLength = 500

var angleBrackets = strings.NewReplacer("<", "", ">", "")

// SanitizeInput trims s, removes '<' and '>' and truncates the result to 500
// characters. It is not an HTML sanitizer.
func SanitizeInput(s string) string {
	s = angleBrackets.Replace(strings.TrimSpace(s))
	if utf8.RuneCountInString(s) <= maxInputLength {
		return s
	}
	return string([]rune(s)[:maxInputLength])
}
