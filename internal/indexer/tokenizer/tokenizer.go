// Package tokenizer provides text tokenisation for the fulltext index.
// It lower-cases input, splits on non-alphanumeric boundaries, removes
// stop-words and drops tokens shorter than the configured minimum length.
package tokenizer

import (
	"strings"
	"unicode"

	"github.com/rivo/uniseg"
)

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {},
	"be": {}, "by": {}, "for": {}, "from": {}, "has": {}, "he": {},
	"in": {}, "is": {}, "it": {}, "its": {}, "of": {}, "on": {},
	"or": {}, "that": {}, "the": {}, "to": {}, "was": {}, "were": {},
	"will": {}, "with": {}, "this": {}, "but": {}, "they": {},
	"have": {}, "had": {}, "what": {}, "when": {}, "where": {},
	"who": {}, "which": {}, "their": {}, "if": {}, "each": {},
	"do": {}, "not": {}, "no": {}, "so": {}, "can": {},
}

// Tokenizer turns document text into index tokens.
type Tokenizer struct {
	minLength int
}

// New creates a Tokenizer that keeps tokens of at least minLength units.
func New(minLength int) *Tokenizer {
	if minLength < 1 {
		minLength = 1
	}
	return &Tokenizer{minLength: minLength}
}

// MinLength returns the minimum indexable token length.
func (t *Tokenizer) MinLength() int {
	return t.minLength
}

// Tokenize breaks text into lower-cased tokens in document order, repeats
// included, with stop-words and short tokens removed. Numeric tokens are
// always kept.
func (t *Tokenizer) Tokenize(text string) []string {
	words := Split(text)
	tokens := make([]string, 0, len(words))
	for _, word := range words {
		if IsStopWord(word) || !t.Eligible(word) {
			continue
		}
		tokens = append(tokens, word)
	}
	return tokens
}

// Eligible reports whether token is long enough to be indexed or looked up.
func (t *Tokenizer) Eligible(token string) bool {
	return Length(token) >= t.minLength || IsNumeric(token)
}

// IsStopWord reports whether word is never indexed.
func IsStopWord(word string) bool {
	_, ok := stopWords[word]
	return ok
}

// Split lower-cases text and cuts it into letter/digit runs.
func Split(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Length is the shard-bucketing length of a token: its byte length plus the
// byte length of every wide grapheme, so that CJK words spread over more
// shards instead of collapsing into a few short ones.
func Length(token string) int {
	n := len(token)
	g := uniseg.NewGraphemes(token)
	for g.Next() {
		cluster := g.Str()
		if uniseg.StringWidth(cluster) > 1 {
			n += len(cluster)
		}
	}
	return n
}

// IsNumeric reports whether token consists of decimal digits only.
func IsNumeric(token string) bool {
	if token == "" {
		return false
	}
	for _, r := range token {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
