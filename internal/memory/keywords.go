package memory

import (
	"strings"
	"unicode"
)

// minKeywordLen drops tokens that are too short to carry topical signal.
const minKeywordLen = 3

var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "but": {}, "not": {},
	"you": {}, "all": {}, "can": {}, "had": {}, "her": {}, "was": {},
	"one": {}, "our": {}, "out": {}, "has": {}, "him": {}, "his": {},
	"how": {}, "its": {}, "may": {}, "new": {}, "now": {}, "old": {},
	"see": {}, "two": {}, "way": {}, "who": {}, "did": {}, "get": {},
	"use": {}, "this": {}, "that": {}, "with": {}, "have": {}, "from": {},
	"they": {}, "will": {}, "what": {}, "when": {}, "your": {}, "were": {},
	"been": {}, "there": {}, "their": {}, "would": {}, "could": {},
	"should": {}, "about": {}, "which": {}, "then": {}, "them": {},
	"these": {}, "some": {}, "into": {}, "just": {}, "like": {},
	"also": {}, "more": {}, "very": {}, "want": {}, "know": {},
	"dont": {}, "does": {}, "please": {}, "thanks": {}, "okay": {},
}

// ExtractKeywords lowercases the text, strips punctuation, and returns the
// deduplicated tokens that survive the stop-word and length filters,
// preserving first-seen order.
func ExtractKeywords(text string) []string {
	tokens := Tokenize(text)
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if len(tok) < minKeywordLen {
			continue
		}
		if _, stop := stopWords[tok]; stop {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}
	return out
}

// Tokenize splits text into lowercase alphanumeric tokens.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
