// Package text holds small helpers for user-input interpretation.
package text

import "strings"

// stopPhrases are the utterances that end a session.
var stopPhrases = []string{
	"stop",
	"quit",
	"exit",
	"bye",
	"goodbye",
	"end podcast",
	"shut up",
}

// IsStopPhrase reports whether the input is a request to end the session.
// Whole-input phrases match exactly after lowering and trimming punctuation;
// multi-word phrases also match anywhere in the input.
func IsStopPhrase(input string) bool {
	norm := strings.ToLower(strings.TrimSpace(input))
	norm = strings.Trim(norm, ".!?,")
	if norm == "" {
		return false
	}
	for _, phrase := range stopPhrases {
		if norm == phrase {
			return true
		}
		if strings.Contains(phrase, " ") && strings.Contains(norm, phrase) {
			return true
		}
	}
	return false
}
