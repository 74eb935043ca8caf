package similarity

import "regexp"

// Tag is a coarse grammatical category.
type Tag string

const (
	TagDeterminer  Tag = "DET"
	TagPreposition Tag = "PREP"
	TagConjunction Tag = "CONJ"
	TagAuxiliary   Tag = "AUX"
	TagPronoun     Tag = "PRON"
	TagProperNoun  Tag = "PROP"
	TagNumber      Tag = "NUM"
	TagAdverb      Tag = "ADV"
	TagAdjective   Tag = "ADJ"
	TagVerb        Tag = "VERB"
	TagNoun        Tag = "NOUN"
)

// Tagger assigns one Tag per token, preserving order and length.
type Tagger interface {
	Tag(tokens []string) []Tag
}

type tagRule struct {
	tag     Tag
	pattern *regexp.Regexp
}

// RuleTagger is a pattern matcher, not a grammatical parser: the first rule
// whose pattern matches the token wins and anything unmatched is a noun.
type RuleTagger struct {
	rules []tagRule
}

// NewRuleTagger returns the default rule set. Tokens are already lower-cased
// by Tokenize, so the proper-noun rule only fires for callers that pass
// their own tokens.
func NewRuleTagger() *RuleTagger {
	return &RuleTagger{rules: []tagRule{
		{TagDeterminer, regexp.MustCompile(`(?i)^(the|a|an|this|that|these|those)$`)},
		{TagPreposition, regexp.MustCompile(`(?i)^(in|on|at|by|with|from|to|for)$`)},
		{TagConjunction, regexp.MustCompile(`(?i)^(and|or|but|so|yet|however|therefore)$`)},
		{TagAuxiliary, regexp.MustCompile(`(?i)^(is|am|are|was|were|be|being|been|have|has|had)$`)},
		{TagPronoun, regexp.MustCompile(`(?i)^(i|you|he|she|it|we|they|me|him|her|us|them)$`)},
		{TagProperNoun, regexp.MustCompile(`^[A-Z][a-z]*$`)},
		{TagNumber, regexp.MustCompile(`[0-9]`)},
		{TagAdverb, regexp.MustCompile(`ly$`)},
		{TagAdjective, regexp.MustCompile(`[aeiou]ble$|ful$|ous$|ive$|ic$|al$`)},
		{TagVerb, regexp.MustCompile(`[aeiou][td]e?$|[^aeiou]e$`)},
	}}
}

func (rt *RuleTagger) Tag(tokens []string) []Tag {
	tags := make([]Tag, len(tokens))
	for i, token := range tokens {
		tags[i] = rt.tagOne(token)
	}
	return tags
}

func (rt *RuleTagger) tagOne(token string) Tag {
	for _, rule := range rt.rules {
		if rule.pattern.MatchString(token) {
			return rule.tag
		}
	}
	return TagNoun
}

// StructureSimilarity tags both sequences and returns the length of their
// longest common tag subsequence over the longer sequence length.
func StructureSimilarity(tagger Tagger, tokens1, tokens2 []string) float64 {
	longer := max(len(tokens1), len(tokens2))
	if longer == 0 {
		return 0
	}
	return float64(lcsLength(tagger.Tag(tokens1), tagger.Tag(tokens2))) / float64(longer)
}

func lcsLength(seq1, seq2 []Tag) int {
	prev := make([]int, len(seq2)+1)
	curr := make([]int, len(seq2)+1)
	for i := 1; i <= len(seq1); i++ {
		for j := 1; j <= len(seq2); j++ {
			if seq1[i-1] == seq2[j-1] {
				curr[j] = prev[j-1] + 1
			} else {
				curr[j] = max(prev[j], curr[j-1])
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(seq2)]
}
