package game

import (
	"context"
	"time"

	"github.com/Adithya-Monish-Kumar-K/prompted/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/prompted/internal/similarity"
	"github.com/Adithya-Monish-Kumar-K/prompted/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/prompted/pkg/metrics"
)

// Evaluation is the outcome of scoring one guess.
type Evaluation struct {
	Score     int                   `json:"score"`
	Feedback  Feedback              `json:"feedback"`
	Breakdown *similarity.Breakdown `json:"breakdown,omitempty"`

	reference, candidate string
	started              time.Time
	elapsed              time.Duration
}

// Judge scores guesses and reports each one to metrics and analytics.
type Judge struct {
	scorer  *similarity.Scorer
	tracker analytics.Tracker
	metrics *metrics.Metrics
}

// NewJudge wires a scorer to its observers. Nil tracker and metrics are allowed.
func NewJudge(scorer *similarity.Scorer, tracker analytics.Tracker, m *metrics.Metrics) *Judge {
	if scorer == nil {
		scorer = similarity.New()
	}
	if tracker == nil {
		tracker = analytics.NopTracker{}
	}
	return &Judge{scorer: scorer, tracker: tracker, metrics: m}
}

// Evaluate scores candidate against reference and records the guess. With
// detailed set the full sub-score breakdown is attached.
func (j *Judge) Evaluate(ctx context.Context, mode analytics.Mode, difficulty, reference, candidate string, detailed bool) Evaluation {
	eval := j.Score(reference, candidate, detailed)
	j.Record(ctx, mode, difficulty, eval)
	return eval
}

// Score computes an Evaluation without reporting it. Callers that may still
// reject the guess call Record once it is accepted.
func (j *Judge) Score(reference, candidate string, detailed bool) Evaluation {
	eval := Evaluation{reference: reference, candidate: candidate, started: time.Now()}
	if detailed {
		bd := j.scorer.Breakdown(reference, candidate)
		eval.Score = bd.Score
		eval.Breakdown = &bd
	} else {
		eval.Score = j.scorer.Score(reference, candidate)
	}
	eval.elapsed = time.Since(eval.started)
	eval.Feedback = FeedbackFor(eval.Score)
	return eval
}

// Record reports eval to metrics and the analytics tracker.
func (j *Judge) Record(ctx context.Context, mode analytics.Mode, difficulty string, eval Evaluation) {
	if j.metrics != nil {
		j.metrics.ScoringDuration.Observe(eval.elapsed.Seconds())
		j.metrics.GuessesTotal.WithLabelValues(string(mode), string(eval.Feedback.Tier)).Inc()
		j.metrics.ScoreDistribution.WithLabelValues(string(mode)).Observe(float64(eval.Score))
	}
	j.tracker.Track(analytics.GuessEvent{
		Type:            analytics.EventGuess,
		Mode:            mode,
		Difficulty:      difficulty,
		Score:           eval.Score,
		ReferenceTokens: len(similarity.Tokenize(eval.reference)),
		CandidateTokens: len(similarity.Tokenize(eval.candidate)),
		LatencyMs:       eval.elapsed.Milliseconds(),
		Timestamp:       eval.started.UTC(),
		RequestID:       logger.RequestID(ctx),
	})
}
