// Package similarity scores how close a guessed prompt is to the prompt that
// actually produced a piece of generated text. The score is an ensemble of
// seven independent sub-metrics over normalised word tokens (BM25 cosine,
// stemmed Jaccard, weighted n-gram overlap, edit distance, word order, length
// ratio and part-of-speech structure) combined with configurable weights and
// bent by a concave curve into an integer in [0, 100].
package similarity

import (
	"regexp"
	"strings"
	"unicode"
)

// nonWord matches anything that is not an ASCII word character or
// whitespace. Unicode separators, vertical tab and the byte order mark count
// as whitespace so that splitWords can split on them afterwards.
var nonWord = regexp.MustCompile(`[^\w\s\p{Z}\x0B\x{FEFF}]`)

func isSpace(r rune) bool {
	return r == '\uFEFF' || unicode.IsSpace(r)
}

func splitWords(text string) []string {
	return strings.FieldsFunc(text, isSpace)
}

// Normalize lower-cases text, drops punctuation and collapses whitespace to
// single spaces.
func Normalize(text string) string {
	text = strings.ToLower(text)
	text = nonWord.ReplaceAllString(text, "")
	return strings.Join(splitWords(text), " ")
}

// Tokenize returns the ordered word tokens of text. The result is empty, not
// nil, when text has no word characters.
func Tokenize(text string) []string {
	words := splitWords(Normalize(text))
	if words == nil {
		return []string{}
	}
	return words
}

// termFrequencies counts occurrences of each token and also returns the
// tokens in order of first appearance.
func termFrequencies(tokens []string) (map[string]int, []string) {
	freq := make(map[string]int, len(tokens))
	order := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if _, seen := freq[t]; !seen {
			order = append(order, t)
		}
		freq[t]++
	}
	return freq, order
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		set[it] = struct{}{}
	}
	return set
}

func clamp01(v float64) float64 {
	switch {
	case v != v:
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
