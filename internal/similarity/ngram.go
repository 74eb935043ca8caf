package similarity

import "strings"

const maxNgramSize = 5

// NgramSimilarity averages the Jaccard coefficients of the word n-gram sets
// for n = 1 up to min(5, shorter length / 2), weighting each n by 2n so that
// shared phrases count for more than shared words.
func NgramSimilarity(tokens1, tokens2 []string) float64 {
	upper := min(maxNgramSize, min(len(tokens1), len(tokens2))/2)

	var weighted, totalWeight float64
	for n := 1; n <= upper; n++ {
		sim := jaccard(ngrams(tokens1, n), ngrams(tokens2, n))
		weight := float64(n * 2)
		weighted += sim * weight
		totalWeight += weight
	}
	if totalWeight == 0 {
		return 0
	}
	return weighted / totalWeight
}

func ngrams(tokens []string, size int) map[string]struct{} {
	set := make(map[string]struct{})
	for i := 0; i+size <= len(tokens); i++ {
		set[strings.Join(tokens[i:i+size], " ")] = struct{}{}
	}
	return set
}
