package similarity

import "strings"

// stemRules are applied in order, each one to the output of the previous
// rule, so a word can lose more than one suffix.
var stemRules = []struct {
	suffix      string
	replacement string
}{
	{"ies", "y"},
	{"es", ""},
	{"s", ""},
	{"ing", ""},
	{"ed", ""},
	{"ly", ""},
	{"ment", ""},
	{"ness", ""},
	{"tion", "t"},
	{"ize", "ize"},
	{"ise", "ize"},
	{"ful", ""},
	{"able", ""},
	{"ible", ""},
	{"al", ""},
	{"ial", ""},
	{"ive", ""},
	{"ic", ""},
	{"ical", "ic"},
}

// Stem strips common English suffixes from word. It is a crude heuristic and
// may return the empty string for very short words such as "es".
func Stem(word string) string {
	for _, rule := range stemRules {
		if strings.HasSuffix(word, rule.suffix) {
			word = word[:len(word)-len(rule.suffix)] + rule.replacement
		}
	}
	return word
}

// StemmedJaccard is the Jaccard coefficient of the two sets of stemmed tokens.
func StemmedJaccard(tokens1, tokens2 []string) float64 {
	stems1 := make([]string, len(tokens1))
	for i, t := range tokens1 {
		stems1[i] = Stem(t)
	}
	stems2 := make([]string, len(tokens2))
	for i, t := range tokens2 {
		stems2[i] = Stem(t)
	}
	return jaccard(toSet(stems1), toSet(stems2))
}

func jaccard(set1, set2 map[string]struct{}) float64 {
	intersection := 0
	for item := range set1 {
		if _, ok := set2[item]; ok {
			intersection++
		}
	}
	union := len(set1) + len(set2) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
