// Package tokenizer turns free text into the items of a collection. It
// lower-cases input, splits on non-alphanumeric boundaries, drops stop-words
// and short words, and optionally applies a suffix-stripping stemmer.
package tokenizer

import (
	"strings"
	"unicode"
)

var defaultStopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {},
	"be": {}, "by": {}, "for": {}, "from": {}, "has": {}, "he": {},
	"in": {}, "is": {}, "it": {}, "its": {}, "of": {}, "on": {},
	"or": {}, "that": {}, "the": {}, "to": {}, "was": {}, "were": {},
	"will": {}, "with": {}, "this": {}, "but": {}, "they": {},
	"have": {}, "had": {}, "what": {}, "when": {}, "where": {},
	"who": {}, "which": {}, "their": {}, "if": {}, "each": {},
	"do": {}, "not": {}, "no": {}, "so": {}, "can": {},
}

type suffixRule struct {
	suffix      string
	replacement string
	minLen      int
}

var suffixRules = []suffixRule{
	{"ational", "ate", 2},
	{"tional", "tion", 2},
	{"encies", "ence", 2},
	{"ances", "ance", 2},
	{"ments", "ment", 2},
	{"izing", "ize", 2},
	{"ating", "ate", 2},
	{"iness", "y", 2},
	{"ously", "ous", 2},
	{"ively", "ive", 2},
	{"eness", "ene", 2},
	{"tion", "t", 3},
	{"sion", "s", 3},
	{"ying", "y", 2},
	{"ling", "l", 3},
	{"ies", "y", 2},
	{"ing", "", 3},
	{"ers", "er", 2},
	{"est", "", 3},
	{"ful", "", 3},
	{"ous", "", 3},
	{"ess", "", 3},
	{"ble", "", 3},
	{"ed", "", 3},
	{"er", "", 3},
	{"ly", "", 3},
	{"es", "", 3},
	{"ss", "ss", 2},
	{"s", "", 3},
}

// Tokenizer splits text into items.
type Tokenizer struct {
	MinLength int
	Stem      bool
	StopWords map[string]struct{}
}

// Default returns the tokenizer used for text corpora: words of at least two
// characters, English stop-words removed, stemming enabled.
func Default() *Tokenizer {
	return &Tokenizer{
		MinLength: 2,
		Stem:      true,
		StopWords: defaultStopWords,
	}
}

// Items returns the tokens of text in order, duplicates included, so that
// the resulting collection carries term multiplicities.
func (t *Tokenizer) Items(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	items := make([]string, 0, len(words))
	for _, word := range words {
		if len([]rune(word)) < t.MinLength {
			continue
		}
		if _, isStop := t.StopWords[word]; isStop {
			continue
		}
		if t.Stem {
			word = stem(word)
		}
		if word == "" {
			continue
		}
		items = append(items, word)
	}
	return items
}

// Items tokenizes text with the default tokenizer.
func Items(text string) []string {
	return Default().Items(text)
}

func stem(word string) string {
	for _, rule := range suffixRules {
		if strings.HasSuffix(word, rule.suffix) {
			stemmed := word[:len(word)-len(rule.suffix)] + rule.replacement
			if len(stemmed) >= rule.minLen {
				return stemmed
			}
		}
	}
	return word
}
