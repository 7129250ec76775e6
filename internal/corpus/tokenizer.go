package corpus

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	minTokenLen = 2
	maxTokenLen = 15
)

// Tokenize lowercases text and splits it into runs of letters, keeping tokens
// between 2 and 15 runes long. Digits and punctuation act as separators.
func Tokenize(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	out := words[:0]
	for _, w := range words {
		n := utf8.RuneCountInString(w)
		if n < minTokenLen || n > maxTokenLen {
			continue
		}
		out = append(out, w)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Normalize trims a summary and folds newlines into spaces.
func Normalize(summary string) string {
	return strings.ReplaceAll(strings.TrimSpace(summary), "\n", " ")
}
