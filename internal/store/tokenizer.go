package store

import (
	"unicode"

	"golang.org/x/text/cases"
)

// span is a token's byte range in its source text.
type span struct {
	start int
	end   int
}

// isTokenRune reports whether r belongs inside a token. Combining marks are
// kept so that decomposed vowels stay attached to their base letter.
func isTokenRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r)
}

// tokenSpans finds the byte ranges of the tokens in text.
func tokenSpans(text string) []span {
	var spans []span
	start := -1
	for i, r := range text {
		if isTokenRune(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			spans = append(spans, span{start: start, end: i})
			start = -1
		}
	}
	if start >= 0 {
		spans = append(spans, span{start: start, end: len(text)})
	}
	return spans
}

// foldToken applies full Unicode case folding, so final sigma folds to
// sigma and "ß" folds to "ss". A Caser holds state, so callers keep one
// per goroutine.
func foldToken(c cases.Caser, token string) string {
	return c.String(token)
}

// Tokenize splits text into case-folded word tokens.
// Punctuation and whitespace separate tokens; letters, digits and
// combining marks form them. Invalid UTF-8 bytes act as separators.
//
// Examples:
//   - "Apple pie" -> ["apple", "pie"]
//   - "l'eau-de-vie" -> ["l", "eau", "de", "vie"]
//   - "ΣΟΦΟΣ" -> ["σοφοσ"]
func Tokenize(text string) []string {
	spans := tokenSpans(text)
	// Return empty slice, not nil, for consistent API behavior
	tokens := make([]string, 0, len(spans))
	folder := cases.Fold()
	for _, s := range spans {
		tokens = append(tokens, foldToken(folder, text[s.start:s.end]))
	}
	return tokens
}

// uniqueTokens tokenizes text and drops repeated tokens, preserving order.
func uniqueTokens(text string) []string {
	tokens := Tokenize(text)
	seen := make(map[string]struct{}, len(tokens))
	out := tokens[:0]
	for _, t := range tokens {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
