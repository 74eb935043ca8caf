package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/prompted/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/prompted/internal/cache"
	"github.com/Adithya-Monish-Kumar-K/prompted/internal/daily"
	"github.com/Adithya-Monish-Kumar-K/prompted/internal/game"
	"github.com/Adithya-Monish-Kumar-K/prompted/internal/news"
	"github.com/Adithya-Monish-Kumar-K/prompted/internal/similarity"
	"github.com/Adithya-Monish-Kumar-K/prompted/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/prompted/pkg/ratelimit"
)

const roundPrompt = "Explain how cloud computing works by comparing it to a library system"

type scriptedGenerator struct{}

func (scriptedGenerator) Complete(_ context.Context, directive string) (string, error) {
	if strings.Contains(directive, "Using this style:") {
		return roundPrompt, nil
	}
	return "Think of the cloud as a vast library.", nil
}

type testEnv struct {
	router  http.Handler
	agg     *analytics.Aggregator
	limiter *ratelimit.Limiter
}

func newTestEnv(t *testing.T, limit int) *testEnv {
	t.Helper()
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"articles":{"results":[{"title":"Gemini update","url":"https://x/1","image":"https://x/1.png"}]}}`))
	}))
	t.Cleanup(upstream.Close)

	kv := cache.NewMemory()
	agg := analytics.NewAggregator()
	collector := analytics.NewCollector(analytics.LocalPublisher{Aggregator: agg}, 100, 10, nil)
	collector.Start(context.Background())
	t.Cleanup(collector.Close)

	judge := game.NewJudge(similarity.New(), collector, nil)
	rounds := game.NewService(scriptedGenerator{}, game.NewKVRoundStore(kv, time.Hour), judge)
	dailySvc := daily.NewService(daily.Config{UTCOffsetHours: -4}, scriptedGenerator{},
		cache.New[daily.Challenge]("daily", "daily:content:", kv, time.Hour, nil),
		daily.NewMemoryResultStore(), judge)
	fetcher := news.NewFetcher(news.Config{BaseURL: upstream.URL}, cache.New[news.Page]("news", "news:", kv, time.Minute, nil))

	limiter := ratelimit.New(limit, time.Minute)
	t.Cleanup(limiter.Stop)

	checker := health.NewChecker()
	checker.Register("cache", health.PingCheck(func(context.Context) error { return nil }, true))

	h := NewHandler(judge, rounds, dailySvc, fetcher, agg)
	return &testEnv{
		router: NewRouter(h, RouterConfig{
			Limiter:        limiter,
			RequestTimeout: 5 * time.Second,
			Health:         checker,
		}),
		agg:     agg,
		limiter: limiter,
	}
}

func (e *testEnv) do(t *testing.T, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), rec.Body.String())
	return v
}

func TestScoreEndpoint(t *testing.T) {
	env := newTestEnv(t, 100)

	rec := env.do(t, http.MethodPost, "/api/v1/score", `{"reference":"the cat sat on the mat","candidate":"the cat sat on the rug"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	eval := decodeBody[game.Evaluation](t, rec)
	assert.Equal(t, 63, eval.Score)
	assert.Nil(t, eval.Breakdown)
	assert.Equal(t, game.TierGood, eval.Feedback.Tier)

	rec = env.do(t, http.MethodPost, "/api/v1/score", `{"reference":"dog bites man","candidate":"man bites dog","breakdown":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	eval = decodeBody[game.Evaluation](t, rec)
	assert.Equal(t, 82, eval.Score)
	require.NotNil(t, eval.Breakdown)
	assert.InDelta(t, 1.0, eval.Breakdown.BM25, 1e-9)

	rec = env.do(t, http.MethodPost, "/api/v1/score", `{"reference":"","candidate":""}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 18, decodeBody[game.Evaluation](t, rec).Score)
}

func TestScoreValidation(t *testing.T) {
	env := newTestEnv(t, 100)

	long := strings.Repeat("a", MaxTextLength+1)
	rec := env.do(t, http.MethodPost, "/api/v1/score", `{"reference":"`+long+`","candidate":"ok"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "validation failed", body["error"])
	assert.Contains(t, body["fields"], "reference")

	rec = env.do(t, http.MethodPost, "/api/v1/score", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"invalid JSON body"}`, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/v1/score", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/score", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRoundFlow(t *testing.T) {
	env := newTestEnv(t, 100)

	rec := env.do(t, http.MethodPost, "/api/v1/rounds", `{"difficulty":"easy"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NotContains(t, rec.Body.String(), roundPrompt)
	view := decodeBody[game.RoundView](t, rec)
	assert.Equal(t, "easy", string(view.Difficulty))

	rec = env.do(t, http.MethodPost, "/api/v1/rounds/"+view.ID+"/guess", `{"guess":"   "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/rounds/"+view.ID+"/guess", `{"guess":"explain cloud computing like a library"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	res := decodeBody[game.GuessResult](t, rec)
	assert.Equal(t, roundPrompt, res.Prompt)
	assert.Greater(t, res.Score, 20)

	rec = env.do(t, http.MethodPost, "/api/v1/rounds/"+view.ID+"/guess", `{"guess":"again"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/rounds/nope/guess", `{"guess":"x"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"round nope not found or expired"}`, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/v1/rounds", `{"difficulty":"extreme"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/rounds", "")
	require.Equal(t, http.StatusCreated, rec.Code, "difficulty defaults to medium")
	assert.Equal(t, "medium", string(decodeBody[game.RoundView](t, rec).Difficulty))
}

func TestDailyFlow(t *testing.T) {
	env := newTestEnv(t, 100)
	player := []string{PlayerIDHeader, "player-42"}

	rec := env.do(t, http.MethodGet, "/api/v1/daily", "", player...)
	require.Equal(t, http.StatusOK, rec.Code)
	today := decodeBody[daily.Today](t, rec)
	assert.False(t, today.Completed)
	assert.Empty(t, today.Prompt)
	assert.Equal(t, "Think of the cloud as a vast library.", today.Content)
	assert.True(t, today.NextChallengeAt.After(time.Now()), "countdown target is in the future")

	rec = env.do(t, http.MethodPost, "/api/v1/daily/guess", `{"guess":"a story"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "player id required")

	rec = env.do(t, http.MethodPost, "/api/v1/daily/guess", `{"guess":"a story"}`, player...)
	require.Equal(t, http.StatusOK, rec.Code)
	sub := decodeBody[daily.Submission](t, rec)
	assert.Contains(t, sub.ShareText, "Prompted Daily Challenge ("+today.Date+")")
	assert.Contains(t, daily.DefaultPrompts, sub.Prompt)

	rec = env.do(t, http.MethodPost, "/api/v1/daily/guess", `{"guess":"again"}`, player...)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/daily/result?date="+today.Date, "", player...)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, sub.Score, decodeBody[daily.Result](t, rec).Score)

	rec = env.do(t, http.MethodGet, "/api/v1/daily/result?date=1999-01-01", "", player...)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/daily", "", player...)
	today = decodeBody[daily.Today](t, rec)
	assert.True(t, today.Completed)
	assert.Equal(t, sub.Prompt, today.Prompt)
}

func TestNewsEndpoint(t *testing.T) {
	env := newTestEnv(t, 100)

	rec := env.do(t, http.MethodGet, "/api/v1/news?category=google&page=1&pageSize=1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	page := decodeBody[news.Page](t, rec)
	require.Len(t, page.Articles, 1)
	assert.Equal(t, "Google", page.Articles[0].Category)
	assert.True(t, page.HasMore)

	rec = env.do(t, http.MethodGet, "/api/v1/news?category=sports", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/news?page=abc", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalyticsEndpoint(t *testing.T) {
	env := newTestEnv(t, 100)
	env.do(t, http.MethodPost, "/api/v1/score", `{"reference":"a b","candidate":"a b"}`)

	require.Eventually(t, func() bool { return env.agg.Stats().TotalGuesses == 1 }, time.Second, 5*time.Millisecond)

	rec := env.do(t, http.MethodGet, "/api/v1/analytics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decodeBody[analytics.AggregatedStats](t, rec)
	assert.Equal(t, int64(1), stats.ByMode[analytics.ModeScore])
}

func TestRateLimitOnGuessEndpoints(t *testing.T) {
	env := newTestEnv(t, 2)
	for i := 0; i < 2; i++ {
		rec := env.do(t, http.MethodPost, "/api/v1/rounds", `{}`)
		require.Equal(t, http.StatusCreated, rec.Code)
	}
	rec := env.do(t, http.MethodPost, "/api/v1/rounds", `{}`)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/score", `{"reference":"a","candidate":"a"}`)
	assert.Equal(t, http.StatusOK, rec.Code, "direct scoring is not limited")
}

func TestHealthRoutes(t *testing.T) {
	env := newTestEnv(t, 100)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/health/live", "").Code)
	rec := env.do(t, http.MethodGet, "/health/ready", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"cache"`)
}

func TestValidateGuessRequest(t *testing.T) {
	assert.NoError(t, ValidateGuessRequest(&GuessRequest{Guess: "ok"}))
	assert.NoError(t, ValidateGuessRequest(&GuessRequest{Guess: strings.Repeat("é", MaxTextLength)}), "length counts characters")
	err := ValidateGuessRequest(&GuessRequest{Guess: strings.Repeat("x", MaxTextLength+1)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "guess:")
}
