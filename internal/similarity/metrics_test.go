package similarity

import (
	"math"
	"reflect"
	"testing"
)

const tolerance = 1e-9

func approx(a, b float64) bool {
	return math.Abs(a-b) < tolerance
}

func toks(s string) []string { return Tokenize(s) }

func TestBM25Cosine(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical", "the cat sat on the mat", "the cat sat on the mat", 1},
		{"one word differs", "the cat sat on the mat", "the cat sat on the rug", 0.2528214327632314},
		{"shared prefix", "hello world", "hello", 0.2543816058632648},
		{"disjoint", "quantum physics", "banana bread", 0},
		{"same bag different order", "dog bites man", "man bites dog", 1},
		{"one side empty", "hello", "", 0},
		{"both empty", "", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BM25Cosine(toks(tt.a), toks(tt.b))
			if !approx(got, tt.want) {
				t.Errorf("BM25Cosine = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestComputeIDF(t *testing.T) {
	if got, want := computeIDF(1), math.Ln2; !approx(got, want) {
		t.Errorf("idf(1) = %v, want %v", got, want)
	}
	if got, want := computeIDF(2), math.Log(1.2); !approx(got, want) {
		t.Errorf("idf(2) = %v, want %v", got, want)
	}
	if computeIDF(2) >= computeIDF(1) {
		t.Error("a term present in both documents must weigh less than a unique term")
	}
}

func TestComputeTFNormZeroAverage(t *testing.T) {
	if got := computeTFNorm(1, 0, 0); got != 0 {
		t.Errorf("computeTFNorm with zero average = %v, want 0", got)
	}
}

func TestStem(t *testing.T) {
	tests := map[string]string{
		"studies":     "study",
		"running":     "runn",
		"happiness":   "happines",
		"nation":      "nat",
		"organise":    "organize",
		"realize":     "realize",
		"wonderful":   "wonder",
		"comfortable": "comfort",
		"musical":     "mus",
		"historical":  "histor",
		"creative":    "creat",
		"boxes":       "box",
		"quickly":     "quick",
		"payment":     "pay",
		"cat":         "cat",
		"es":          "",
		"s":           "",
	}
	for in, want := range tests {
		if got := Stem(in); got != want {
			t.Errorf("Stem(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestStemmedJaccard(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"morphological variants", "Running quickly, the runners finished!", "runner finish quick", 0.6},
		{"one word differs", "the cat sat on the mat", "the cat sat on the rug", 4.0 / 6.0},
		{"duplicates collapse", "the the cat", "cat the the the", 1},
		{"disjoint", "quantum physics", "banana bread", 0},
		{"both empty", "", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StemmedJaccard(toks(tt.a), toks(tt.b)); !approx(got, tt.want) {
				t.Errorf("StemmedJaccard = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNgramSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"one word differs", "the cat sat on the mat", "the cat sat on the rug", 7.6 / 12},
		{"reordered phrase", "Write a poem about the ocean", "Write a short poem about the sea", 0.2916666666666667},
		{"single token gives no n", "hello", "hello", 0},
		{"one side too short", "hello world", "hello", 0},
		{"short same bag", "dog bites man", "man bites dog", 1},
		{"both empty", "", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NgramSimilarity(toks(tt.a), toks(tt.b)); !approx(got, tt.want) {
				t.Errorf("NgramSimilarity = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNgramsJoinWithSingleSpace(t *testing.T) {
	got := ngrams([]string{"a", "b", "c"}, 2)
	want := map[string]struct{}{"a b": {}, "b c": {}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ngrams = %v, want %v", got, want)
	}
	if len(ngrams([]string{"a"}, 2)) != 0 {
		t.Error("window larger than the sequence must yield no n-grams")
	}
}

func TestPositionalSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"same order", "the cat sat on the mat", "the cat sat on the rug", 1},
		{"swapped ends", "dog bites man", "man bites dog", 5.0 / 9.0},
		{"repeated words", "the the cat", "cat the the the", 0.5625},
		{"repeated words reversed", "cat the the the", "the the cat", 0.5},
		{"alternating", "a b a b", "b a b a", 0.75},
		{"no common words", "quantum physics", "banana bread", 0},
		{"both empty", "", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PositionalSimilarity(toks(tt.a), toks(tt.b)); !approx(got, tt.want) {
				t.Errorf("PositionalSimilarity = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLengthRatio(t *testing.T) {
	if got := LengthRatio(toks("a b c d"), toks("a b c")); !approx(got, 0.75) {
		t.Errorf("LengthRatio = %v, want 0.75", got)
	}
	if got := LengthRatio(nil, nil); got != 0 {
		t.Errorf("LengthRatio of empty inputs = %v, want 0", got)
	}
	if got := LengthRatio(toks("a"), nil); got != 0 {
		t.Errorf("LengthRatio with one empty side = %v, want 0", got)
	}
}

func TestRuleTagger(t *testing.T) {
	tests := map[string]Tag{
		"the":       TagDeterminer,
		"with":      TagPreposition,
		"however":   TagConjunction,
		"been":      TagAuxiliary,
		"them":      TagPronoun,
		"It":        TagPronoun,
		"Paris":     TagProperNoun,
		"10yearold": TagNumber,
		"quickly":   TagAdverb,
		"famous":    TagAdjective,
		"capable":   TagAdjective,
		"table":     TagAdjective,
		"magic":     TagAdjective,
		"write":     TagVerb,
		"created":   TagVerb,
		"cat":       TagVerb,
		"ocean":     TagNoun,
	}
	tagger := NewRuleTagger()
	for word, want := range tests {
		if got := tagger.Tag([]string{word})[0]; got != want {
			t.Errorf("Tag(%q) = %s, want %s", word, got, want)
		}
	}
}

func TestRuleTaggerPreservesLength(t *testing.T) {
	tokens := toks("Explain quantum computing as if you are teaching a curious 10-year-old!")
	got := NewRuleTagger().Tag(tokens)
	want := []Tag{
		TagNoun, TagNoun, TagNoun, TagNoun, TagNoun, TagPronoun,
		TagAuxiliary, TagNoun, TagDeterminer, TagAdjective, TagNumber,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("tags = %v, want %v", got, want)
	}
}

type constTagger struct{ tag Tag }

func (c constTagger) Tag(tokens []string) []Tag {
	out := make([]Tag, len(tokens))
	for i := range out {
		out[i] = c.tag
	}
	return out
}

func TestStructureSimilarity(t *testing.T) {
	tagger := NewRuleTagger()
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"one tag differs", "the cat sat on the mat", "the cat sat on the rug", 5.0 / 6.0},
		{"different lengths", "the the cat", "cat the the the", 0.5},
		{"disjoint words similar shape", "quantum physics lecture notes", "banana bread recipe instructions", 0.75},
		{"both empty", "", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StructureSimilarity(tagger, toks(tt.a), toks(tt.b)); !approx(got, tt.want) {
				t.Errorf("StructureSimilarity = %v, want %v", got, tt.want)
			}
		})
	}

	if got := StructureSimilarity(constTagger{TagNoun}, toks("a b c"), toks("x y")); !approx(got, 2.0/3.0) {
		t.Errorf("StructureSimilarity with a custom tagger = %v, want 2/3", got)
	}
}

func TestLCSLength(t *testing.T) {
	a := []Tag{TagDeterminer, TagVerb, TagVerb, TagPreposition, TagDeterminer, TagVerb}
	b := []Tag{TagDeterminer, TagVerb, TagVerb, TagPreposition, TagDeterminer, TagNoun}
	if got := lcsLength(a, b); got != 5 {
		t.Errorf("lcsLength = %d, want 5", got)
	}
	if got := lcsLength(nil, b); got != 0 {
		t.Errorf("lcsLength with empty side = %d, want 0", got)
	}
}
