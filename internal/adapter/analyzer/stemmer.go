package analyzer

import "strings"

// PorterStemmer reduces English words to their Porter stems. Rules are tried
// in table order so the same word always yields the same stem.
type PorterStemmer struct{}

func NewPorterStemmer() *PorterStemmer {
	return &PorterStemmer{}
}

// Stem returns the stem of word. Words shorter than three letters are
// returned unchanged.
func (p *PorterStemmer) Stem(word string) string {
	if len(word) < 3 {
		return word
	}
	w := stemWord(strings.ToLower(word))
	w = w.step1a().step1b().step1c()
	w = w.replaceFirst(step2Rules, 0)
	w = w.replaceFirst(step3Rules, 0)
	return string(w.step4().step5())
}

type stemWord string

// rule rewrites suffix to repl.
type rule struct {
	suffix, repl string
}

// Longest suffixes first within each group sharing a tail.
var step2Rules = []rule{
	{"ational", "ate"}, {"tional", "tion"},
	{"enci", "ence"}, {"anci", "ance"},
	{"izer", "ize"},
	{"abli", "able"}, {"alli", "al"}, {"entli", "ent"}, {"ousli", "ous"}, {"eli", "e"},
	{"ization", "ize"}, {"ation", "ate"}, {"ator", "ate"},
	{"alism", "al"},
	{"iveness", "ive"}, {"fulness", "ful"}, {"ousness", "ous"},
	{"aliti", "al"}, {"iviti", "ive"}, {"biliti", "ble"},
}

var step3Rules = []rule{
	{"icate", "ic"}, {"ative", ""}, {"alize", "al"},
	{"iciti", "ic"}, {"ical", "ic"}, {"ful", ""}, {"ness", ""},
}

var step4Suffixes = []string{
	"ement", "ment", "ance", "ence", "able", "ible", "ant", "ent",
	"ion", "ism", "ate", "iti", "ous", "ive", "ize", "al", "er", "ic", "ou",
}

func (w stemWord) consonant(i int) bool {
	switch w[i] {
	case 'a', 'e', 'i', 'o', 'u':
		return false
	case 'y':
		return i == 0 || !w.consonant(i-1)
	}
	return true
}

// measure counts vowel-consonant sequences.
func (w stemWord) measure() int {
	n, m, i := len(w), 0, 0
	for i < n && w.consonant(i) {
		i++
	}
	for i < n {
		for i < n && !w.consonant(i) {
			i++
		}
		if i >= n {
			break
		}
		m++
		for i < n && w.consonant(i) {
			i++
		}
	}
	return m
}

func (w stemWord) hasVowel() bool {
	for i := range len(w) {
		if !w.consonant(i) {
			return true
		}
	}
	return false
}

func (w stemWord) endsDouble() bool {
	n := len(w)
	return n >= 2 && w[n-1] == w[n-2] && w.consonant(n-1)
}

// endsCVC reports a consonant-vowel-consonant ending where the last letter is
// not w, x or y.
func (w stemWord) endsCVC() bool {
	n := len(w)
	if n < 3 || !w.consonant(n-3) || w.consonant(n-2) || !w.consonant(n-1) {
		return false
	}
	c := w[n-1]
	return c != 'w' && c != 'x' && c != 'y'
}

func (w stemWord) has(suffix string) bool {
	return strings.HasSuffix(string(w), suffix)
}

func (w stemWord) trim(n int) stemWord {
	return w[:len(w)-n]
}

func (w stemWord) step1a() stemWord {
	switch {
	case w.has("sses"), w.has("ies"):
		return w.trim(2)
	case w.has("ss"):
		return w
	case w.has("s"):
		return w.trim(1)
	}
	return w
}

func (w stemWord) step1b() stemWord {
	if w.has("eed") {
		if w.trim(3).measure() > 0 {
			return w.trim(1)
		}
		return w
	}

	var stem stemWord
	switch {
	case w.has("ed"):
		stem = w.trim(2)
	case w.has("ing"):
		stem = w.trim(3)
	default:
		return w
	}
	if !stem.hasVowel() {
		return w
	}

	switch {
	case stem.has("at"), stem.has("bl"), stem.has("iz"):
		return stem + "e"
	case stem.endsDouble():
		if c := stem[len(stem)-1]; c != 'l' && c != 's' && c != 'z' {
			return stem.trim(1)
		}
	case stem.measure() == 1 && stem.endsCVC():
		return stem + "e"
	}
	return stem
}

func (w stemWord) step1c() stemWord {
	if w.has("y") && w.trim(1).hasVowel() {
		return w.trim(1) + "i"
	}
	return w
}

// replaceFirst applies the first rule whose suffix matches. A matching rule
// whose stem is too short stops the step without rewriting.
func (w stemWord) replaceFirst(rules []rule, minMeasure int) stemWord {
	for _, r := range rules {
		if !w.has(r.suffix) {
			continue
		}
		stem := w.trim(len(r.suffix))
		if stem.measure() > minMeasure {
			return stem + stemWord(r.repl)
		}
		return w
	}
	return w
}

func (w stemWord) step4() stemWord {
	for _, suffix := range step4Suffixes {
		if !w.has(suffix) {
			continue
		}
		stem := w.trim(len(suffix))
		if stem.measure() <= 1 {
			return w
		}
		if suffix == "ion" && !stem.has("s") && !stem.has("t") {
			return w
		}
		return stem
	}
	return w
}

func (w stemWord) step5() stemWord {
	if w.has("e") {
		stem := w.trim(1)
		if m := stem.measure(); m > 1 || (m == 1 && !stem.endsCVC()) {
			w = stem
		}
	}
	if w.measure() > 1 && w.endsDouble() && w.has("l") {
		return w.trim(1)
	}
	return w
}
