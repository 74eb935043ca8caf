package similarity

import (
	"math"

	"github.com/Adithya-Monish-Kumar-K/prompted/pkg/config"
)

// Breakdown exposes every stage of a comparison. Sub-scores are in [0, 1],
// Combined and Curved in [0, 100].
type Breakdown struct {
	BM25         float64 `json:"bm25"`
	Jaccard      float64 `json:"jaccard"`
	NGram        float64 `json:"ngram"`
	EditDistance float64 `json:"edit_distance"`
	Positional   float64 `json:"positional"`
	LengthRatio  float64 `json:"length_ratio"`
	Structure    float64 `json:"structure"`
	Combined     float64 `json:"combined"`
	Curved       float64 `json:"curved"`
	Score        int     `json:"score"`
}

// Scorer combines the sub-metrics. A Scorer holds no mutable state and is
// safe for concurrent use.
type Scorer struct {
	weights  Weights
	exponent float64
	tagger   Tagger
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithWeights overrides the sub-metric weights.
func WithWeights(w Weights) Option {
	return func(s *Scorer) { s.weights = w }
}

// WithScoringConfig applies configured weights and curve exponent. Later
// options still override it.
func WithScoringConfig(cfg config.ScoringConfig) Option {
	w := cfg.Weights
	return func(s *Scorer) {
		WithWeights(Weights{
			BM25:         w.BM25,
			Jaccard:      w.Jaccard,
			NGram:        w.NGram,
			EditDistance: w.EditDistance,
			Positional:   w.Positional,
			LengthRatio:  w.LengthRatio,
			Structure:    w.Structure,
		})(s)
		WithCurveExponent(cfg.CurveExponent)(s)
	}
}

// WithCurveExponent overrides the exponent of the final curve. Non-positive
// values are ignored.
func WithCurveExponent(exp float64) Option {
	return func(s *Scorer) {
		if exp > 0 {
			s.exponent = exp
		}
	}
}

// WithTagger swaps the part-of-speech tagger used by the structure metric.
func WithTagger(t Tagger) Option {
	return func(s *Scorer) {
		if t != nil {
			s.tagger = t
		}
	}
}

// New builds a Scorer with the default weights, curve and rule tagger unless
// overridden by opts.
func New(opts ...Option) *Scorer {
	s := &Scorer{
		weights:  DefaultWeights(),
		exponent: DefaultCurveExponent,
		tagger:   NewRuleTagger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var defaultScorer = New()

// Score compares candidate against reference with the default Scorer and
// returns an integer in [0, 100].
func Score(reference, candidate string) int {
	return defaultScorer.Score(reference, candidate)
}

// Score returns the final integer score in [0, 100].
func (s *Scorer) Score(reference, candidate string) int {
	return s.Breakdown(reference, candidate).Score
}

// Weights returns the weights in use.
func (s *Scorer) Weights() Weights {
	return s.weights
}

// Breakdown runs the full pipeline and returns every intermediate value.
func (s *Scorer) Breakdown(reference, candidate string) Breakdown {
	tokens1 := Tokenize(reference)
	tokens2 := Tokenize(candidate)

	bd := Breakdown{
		BM25:         clamp01(BM25Cosine(tokens1, tokens2)),
		Jaccard:      clamp01(StemmedJaccard(tokens1, tokens2)),
		NGram:        clamp01(NgramSimilarity(tokens1, tokens2)),
		EditDistance: clamp01(EditDistanceSimilarity(tokens1, tokens2)),
		Positional:   clamp01(PositionalSimilarity(tokens1, tokens2)),
		LengthRatio:  clamp01(LengthRatio(tokens1, tokens2)),
		Structure:    clamp01(StructureSimilarity(s.tagger, tokens1, tokens2)),
	}
	bd.Combined = s.combine(bd)
	bd.Curved = s.curve(bd.Combined)
	bd.Score = int(math.Round(math.Max(0, math.Min(100, bd.Curved))))
	return bd
}

func (s *Scorer) combine(bd Breakdown) float64 {
	w := s.weights
	return (bd.BM25*w.BM25 +
		bd.Jaccard*w.Jaccard +
		bd.NGram*w.NGram +
		bd.EditDistance*w.EditDistance +
		bd.Positional*w.Positional +
		bd.LengthRatio*w.LengthRatio +
		bd.Structure*w.Structure) * 100
}

func (s *Scorer) curve(combined float64) float64 {
	if combined <= 0 {
		return 0
	}
	curved := math.Pow(combined/100, s.exponent) * 100
	if math.IsNaN(curved) {
		return 0
	}
	return curved
}
