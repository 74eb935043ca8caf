package game

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/prompted/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/prompted/internal/cache"
	"github.com/Adithya-Monish-Kumar-K/prompted/internal/generator"
	"github.com/Adithya-Monish-Kumar-K/prompted/internal/similarity"
	apperrors "github.com/Adithya-Monish-Kumar-K/prompted/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/prompted/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/prompted/pkg/metrics"
)

const hiddenPrompt = "Write about a cat who secretly works as a jazz musician at night"

type fakeGenerator struct {
	mu         sync.Mutex
	directives []string
	err        error
}

func (f *fakeGenerator) Complete(_ context.Context, directive string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.directives = append(f.directives, directive)
	if f.err != nil {
		return "", f.err
	}
	if strings.Contains(directive, "Using this style:") {
		return `"` + hiddenPrompt + `"`, nil
	}
	return "  By day Whiskers naps on the piano. By night he swings.  ", nil
}

type recordingTracker struct {
	mu     sync.Mutex
	events []analytics.GuessEvent
}

func (r *recordingTracker) Track(e analytics.GuessEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func newTestService(gen generator.Generator) (*Service, *recordingTracker, *metrics.Metrics) {
	tracker := &recordingTracker{}
	m := metrics.NewWithRegistry(prometheus.NewRegistry())
	judge := NewJudge(similarity.New(), tracker, m)
	return NewService(gen, NewKVRoundStore(cache.NewMemory(), time.Hour), judge), tracker, m
}

func TestNewRoundHidesPrompt(t *testing.T) {
	gen := &fakeGenerator{}
	svc, _, _ := newTestService(gen)

	view, err := svc.NewRound(context.Background(), generator.Hard)
	require.NoError(t, err)
	assert.NotEmpty(t, view.ID)
	assert.Equal(t, "By day Whiskers naps on the piano. By night he swings.", view.Content)
	assert.Equal(t, generator.Hard, view.Difficulty)
	assert.Equal(t, generator.Hard.Description(), view.Description)

	require.Len(t, gen.directives, 2)
	assert.Equal(t, hiddenPrompt, gen.directives[1], "content is generated from the cleaned prompt")

	stored, err := svc.rounds.Get(context.Background(), view.ID)
	require.NoError(t, err)
	assert.Equal(t, hiddenPrompt, stored.Prompt)
}

func TestNewRoundGeneratorFailure(t *testing.T) {
	svc, _, _ := newTestService(&fakeGenerator{err: apperrors.ErrGeneratorUnavailable})
	_, err := svc.NewRound(context.Background(), generator.Easy)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrGeneratorUnavailable))
}

func TestGuessRevealsPromptOnce(t *testing.T) {
	svc, tracker, m := newTestService(&fakeGenerator{})
	ctx := logger.WithRequestID(context.Background(), "req-1")

	view, err := svc.NewRound(ctx, generator.Medium)
	require.NoError(t, err)

	res, err := svc.Guess(ctx, view.ID, hiddenPrompt)
	require.NoError(t, err)
	assert.Equal(t, 100, res.Score)
	assert.Equal(t, hiddenPrompt, res.Prompt)
	assert.Equal(t, TierOutstanding, res.Feedback.Tier)

	_, err = svc.Guess(ctx, view.ID, "another try")
	assert.True(t, errors.Is(err, apperrors.ErrRoundRevealed))
	assert.Equal(t, 409, apperrors.HTTPStatusCode(err))

	require.Len(t, tracker.events, 1)
	e := tracker.events[0]
	assert.Equal(t, analytics.ModePractice, e.Mode)
	assert.Equal(t, "medium", e.Difficulty)
	assert.Equal(t, 100, e.Score)
	assert.Equal(t, 13, e.ReferenceTokens)
	assert.Equal(t, "req-1", e.RequestID)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GuessesTotal.WithLabelValues("practice", "outstanding")))
}

func TestGuessUnknownRound(t *testing.T) {
	svc, _, _ := newTestService(&fakeGenerator{})
	_, err := svc.Guess(context.Background(), "missing", "a guess")
	assert.True(t, errors.Is(err, apperrors.ErrRoundNotFound))
	assert.Equal(t, 404, apperrors.HTTPStatusCode(err))
}

func TestGuessEmpty(t *testing.T) {
	svc, tracker, _ := newTestService(&fakeGenerator{})
	view, err := svc.NewRound(context.Background(), generator.Easy)
	require.NoError(t, err)

	_, err = svc.Guess(context.Background(), view.ID, " \t\n")
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
	assert.Empty(t, tracker.events)

	_, err = svc.Guess(context.Background(), view.ID, "cat jazz")
	assert.NoError(t, err, "an invalid guess does not consume the round")
}

func TestFeedbackTiers(t *testing.T) {
	cases := []struct {
		score int
		tier  Tier
	}{
		{100, TierOutstanding}, {71, TierOutstanding}, {70, TierGood}, {41, TierGood},
		{40, TierOnTrack}, {21, TierOnTrack}, {20, TierFarOff}, {0, TierFarOff},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.tier, FeedbackFor(tc.score).Tier, "score %d", tc.score)
	}
	assert.Equal(t, "Good guess! You got some of it right.", FeedbackFor(50).Message)
}

func TestJudgeBreakdown(t *testing.T) {
	j := NewJudge(nil, nil, nil)
	eval := j.Evaluate(context.Background(), analytics.ModeScore, "", "the cat sat on the mat", "the cat sat on the rug", true)
	assert.Equal(t, 63, eval.Score)
	require.NotNil(t, eval.Breakdown)
	assert.Equal(t, 63, eval.Breakdown.Score)
	assert.Equal(t, TierGood, eval.Feedback.Tier)

	eval = j.Evaluate(context.Background(), analytics.ModeScore, "", "a", "b", false)
	assert.Nil(t, eval.Breakdown)
}

func TestJudgeScoreDefersRecording(t *testing.T) {
	tracker := &recordingTracker{}
	j := NewJudge(nil, tracker, nil)

	eval := j.Score("write a poem about rain", "a poem about rain", false)
	assert.Empty(t, tracker.events, "Score alone must not track")

	j.Record(context.Background(), analytics.ModeDaily, "", eval)
	require.Len(t, tracker.events, 1)
	got := tracker.events[0]
	assert.Equal(t, analytics.ModeDaily, got.Mode)
	assert.Equal(t, eval.Score, got.Score)
	assert.Equal(t, 5, got.ReferenceTokens)
	assert.Equal(t, 4, got.CandidateTokens)
}
