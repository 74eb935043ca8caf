package similarity

import (
	"errors"
	"fmt"
)

// DefaultCurveExponent bends the linear combination upwards in the middle of
// the range; values below 1 are concave.
const DefaultCurveExponent = 0.9

// Weights holds the contribution of each sub-metric to the combined score.
// They are not required to sum to 1, but the defaults do.
type Weights struct {
	BM25         float64 `json:"bm25"`
	Jaccard      float64 `json:"jaccard"`
	NGram        float64 `json:"ngram"`
	EditDistance float64 `json:"edit_distance"`
	Positional   float64 `json:"positional"`
	LengthRatio  float64 `json:"length_ratio"`
	Structure    float64 `json:"structure"`
}

// DefaultWeights returns the calibrated weights used by the game.
func DefaultWeights() Weights {
	return Weights{
		BM25:         0.25,
		Jaccard:      0.15,
		NGram:        0.20,
		EditDistance: 0.15,
		Positional:   0.10,
		LengthRatio:  0.05,
		Structure:    0.10,
	}
}

// ErrInvalidWeights is returned by Validate for unusable weights.
var ErrInvalidWeights = errors.New("invalid similarity weights")

// Validate rejects negative weights and an all-zero weight set.
func (w Weights) Validate() error {
	named := []struct {
		name  string
		value float64
	}{
		{"bm25", w.BM25},
		{"jaccard", w.Jaccard},
		{"ngram", w.NGram},
		{"editDistance", w.EditDistance},
		{"positional", w.Positional},
		{"lengthRatio", w.LengthRatio},
		{"structure", w.Structure},
	}
	var total float64
	for _, n := range named {
		if n.value < 0 {
			return fmt.Errorf("%w: %s must not be negative (got %v)", ErrInvalidWeights, n.name, n.value)
		}
		total += n.value
	}
	if total == 0 {
		return fmt.Errorf("%w: at least one weight must be positive", ErrInvalidWeights)
	}
	return nil
}

// Total is the sum of all weights.
func (w Weights) Total() float64 {
	return w.BM25 + w.Jaccard + w.NGram + w.EditDistance + w.Positional + w.LengthRatio + w.Structure
}
