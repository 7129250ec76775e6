// Package chunker splits book summaries into sentences.
package chunker

import (
	"regexp"
	"strings"
)

// A sentence runs to its end punctuation plus any closing quotes or brackets.
// Text after the last terminator is a sentence of its own.
var sentenceRe = regexp.MustCompile(`[^.!?]+[.!?]+["'”’)]*|[^.!?]+$`)

// SplitSentences returns the trimmed, non-empty sentences of text in order.
// No text is dropped: an unterminated tail becomes the last sentence.
func SplitSentences(text string) []string {
	var out []string
	for _, m := range sentenceRe.FindAllString(text, -1) {
		if m = strings.TrimSpace(m); m != "" {
			out = append(out, m)
		}
	}
	return out
}
