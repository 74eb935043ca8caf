package similarity

import "math"

// PositionalSimilarity measures how well shared words keep their relative
// place in the sentence. For each distinct word of tokens1 that also occurs
// in tokens2, the occurrence positions are normalised by sequence length and
// paired under every cyclic rotation of the tokens2 occurrences; the smallest
// mean absolute gap is that word's divergence. The result is one minus the
// average divergence, or 0 when no word is shared.
//
// The rotation search makes the metric slightly asymmetric.
func PositionalSimilarity(tokens1, tokens2 []string) float64 {
	positions2 := positionsByToken(tokens2)

	var divergenceSum float64
	common := 0
	seen := make(map[string]struct{}, len(tokens1))
	positions1 := positionsByToken(tokens1)
	for _, token := range tokens1 {
		if _, done := seen[token]; done {
			continue
		}
		seen[token] = struct{}{}
		p2, shared := positions2[token]
		if !shared {
			continue
		}
		divergenceSum += minRotationDivergence(
			normalizePositions(positions1[token], len(tokens1)),
			normalizePositions(p2, len(tokens2)),
		)
		common++
	}
	if common == 0 {
		return 0
	}
	return clamp01(1 - divergenceSum/float64(common))
}

// LengthRatio is the shorter token count over the longer one.
func LengthRatio(tokens1, tokens2 []string) float64 {
	longer := max(len(tokens1), len(tokens2))
	if longer == 0 {
		return 0
	}
	return float64(min(len(tokens1), len(tokens2))) / float64(longer)
}

func positionsByToken(tokens []string) map[string][]int {
	positions := make(map[string][]int, len(tokens))
	for i, t := range tokens {
		positions[t] = append(positions[t], i)
	}
	return positions
}

func normalizePositions(positions []int, length int) []float64 {
	out := make([]float64, len(positions))
	for i, p := range positions {
		out[i] = float64(p) / float64(length)
	}
	return out
}

func minRotationDivergence(pos1, pos2 []float64) float64 {
	best := math.MaxFloat64
	for offset := range pos2 {
		var diffSum float64
		for i, p := range pos1 {
			diffSum += math.Abs(p - pos2[(i+offset)%len(pos2)])
		}
		best = min(best, diffSum/float64(len(pos1)))
	}
	return best
}
