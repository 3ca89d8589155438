// Package analyzer turns free text into normalised terms for feature hashing.
package analyzer

import (
	"strings"
	"unicode"
)

// Tokenizer lower-cases text, splits it on non-word runes, drops English
// stopwords and single-rune words, and optionally stems what remains.
type Tokenizer struct {
	stemmer   *PorterStemmer
	stopwords map[string]struct{}
}

func NewTokenizer(useStemming bool) *Tokenizer {
	t := &Tokenizer{stopwords: englishStopwords}
	if useStemming {
		t.stemmer = NewPorterStemmer()
	}
	return t
}

// Tokenize returns the terms of text in order of appearance.
func (t *Tokenizer) Tokenize(text string) []string {
	words := splitWords(text)
	terms := words[:0]
	for _, w := range words {
		if term, ok := t.term(w); ok {
			terms = append(terms, term)
		}
	}
	return terms
}

// TermFrequencies counts each term of text.
func (t *Tokenizer) TermFrequencies(text string) map[string]int {
	freqs := make(map[string]int)
	for _, w := range splitWords(text) {
		if term, ok := t.term(w); ok {
			freqs[term]++
		}
	}
	return freqs
}

func (t *Tokenizer) term(word string) (string, bool) {
	word = strings.ToLower(word)
	if len([]rune(word)) < 2 {
		return "", false
	}
	if _, stop := t.stopwords[word]; stop {
		return "", false
	}
	if t.stemmer != nil {
		word = t.stemmer.Stem(word)
	}
	return word, true
}

// splitWords splits text on every rune that is not a letter, digit or
// underscore.
func splitWords(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
}

var englishStopwords = func() map[string]struct{} {
	words := strings.Fields(`
		a an and are as at be by for from has he in is it its of on
		that the to was were will with this have had but not you your we our
		they their she her his if or so no can do does did been being would
		could should may might must shall which who whom what when where why how all
		each every both few more most other some such than too very just also
		about into over under again then there these those them i me my`)
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}()
