package similarity

import (
	"strings"

	"github.com/hbollon/go-edlib"
)

// EditDistanceSimilarity compares the rejoined token strings character by
// character with the Damerau-Levenshtein (optimal string alignment) distance
// and normalises it by the larger token count, not the character count.
//
// Scores depend on the mixed units, so do not normalise by characters. Any
// distance at least as large as the word count clamps the similarity to 0.
// Two empty inputs are identical (1).
func EditDistanceSimilarity(tokens1, tokens2 []string) float64 {
	maxTokens := max(len(tokens1), len(tokens2))
	if maxTokens == 0 {
		return 1
	}
	distance := edlib.OSADamerauLevenshteinDistance(strings.Join(tokens1, " "), strings.Join(tokens2, " "))
	return clamp01(1 - float64(distance)/float64(maxTokens))
}
