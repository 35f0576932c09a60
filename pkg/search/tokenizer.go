package search

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Stopwords is the minimal English stopword set applied when an Index is
// built with stopword removal enabled.
var Stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"by": {}, "for": {}, "from": {}, "has": {}, "he": {}, "in": {}, "is": {},
	"it": {}, "its": {}, "of": {}, "on": {}, "that": {}, "the": {}, "to": {},
	"was": {}, "will": {}, "with": {},
}

// Tokenize splits text into lowercase word tokens. Text is NFC-normalized
// first; tokens are maximal runs of letters and digits, so punctuation is
// stripped. The same function tokenizes both indexed chunks and queries.
func Tokenize(text string, removeStopwords bool) []string {
	text = norm.NFC.String(strings.ToLower(text))

	var tokens []string
	var b strings.Builder
	flush := func() {
		if b.Len() == 0 {
			return
		}
		token := b.String()
		b.Reset()
		if removeStopwords {
			if _, ok := Stopwords[token]; ok {
				return
			}
		}
		tokens = append(tokens, token)
	}

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			b.WriteRune(r)
			continue
		}
		flush()
	}
	flush()
	return tokens
}
