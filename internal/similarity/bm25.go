package similarity

import "math"

const (
	k1 = 1.2
	b  = 0.75

	// the reference and the candidate form the whole corpus
	corpusSize = 2
)

// BM25Cosine weights every term of both token sequences with BM25 (the two
// sequences acting as a two-document corpus) and returns the cosine of the
// resulting weight vectors.
func BM25Cosine(tokens1, tokens2 []string) float64 {
	freq1, order1 := termFrequencies(tokens1)
	freq2, order2 := termFrequencies(tokens2)

	len1 := float64(len(tokens1))
	len2 := float64(len(tokens2))
	avgDocLength := (len1 + len2) / 2

	var dotProduct, magnitude1, magnitude2 float64
	accumulate := func(term string) {
		tf1 := freq1[term]
		tf2 := freq2[term]
		docCount := 0
		if tf1 > 0 {
			docCount++
		}
		if tf2 > 0 {
			docCount++
		}
		idf := computeIDF(docCount)
		weight1 := idf * computeTFNorm(float64(tf1), len1, avgDocLength)
		weight2 := idf * computeTFNorm(float64(tf2), len2, avgDocLength)

		dotProduct += weight1 * weight2
		magnitude1 += weight1 * weight1
		magnitude2 += weight2 * weight2
	}

	for _, term := range order1 {
		accumulate(term)
	}
	for _, term := range order2 {
		if _, shared := freq1[term]; shared {
			continue
		}
		accumulate(term)
	}

	if magnitude1 == 0 || magnitude2 == 0 {
		return 0
	}
	return clamp01(dotProduct / (math.Sqrt(magnitude1) * math.Sqrt(magnitude2)))
}

func computeIDF(docFreq int) float64 {
	numerator := float64(corpusSize-docFreq) + 0.5
	denominator := float64(docFreq) + 0.5
	return math.Log(1 + numerator/denominator)
}

func computeTFNorm(termFreq float64, docLength float64, avgDocLength float64) float64 {
	if avgDocLength == 0 {
		return 0
	}
	lengthRatio := docLength / avgDocLength
	denominator := termFreq + k1*(1-b+b*lengthRatio)
	return (termFreq * (k1 + 1)) / denominator
}
