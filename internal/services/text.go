package services

import (
	"strings"
	"unicode"
)

// words splits s into lowercase letter runs.
func words(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
}
