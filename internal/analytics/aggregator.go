package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/prompted/pkg/kafka"
)

// maxSamples bounds the score and latency windows used for percentiles.
const maxSamples = 10000

type AggregatedStats struct {
	TotalGuesses     int64                      `json:"total_guesses"`
	ByMode           map[Mode]int64             `json:"by_mode"`
	AvgScore         float64                    `json:"avg_score"`
	P50Score         int                        `json:"p50_score"`
	P95Score         int                        `json:"p95_score"`
	P99Score         int                        `json:"p99_score"`
	Buckets          []Bucket                   `json:"buckets"`
	ByDifficulty     map[string]DifficultyStats `json:"by_difficulty"`
	AvgLatencyMs     float64                    `json:"avg_latency_ms"`
	GuessesPerMinute float64                    `json:"guesses_per_minute"`
	CapturedAt       time.Time                  `json:"captured_at"`
}

// Bucket counts scores in [Min, Max].
type Bucket struct {
	Label string `json:"label"`
	Min   int    `json:"min"`
	Max   int    `json:"max"`
	Count int64  `json:"count"`
}

type DifficultyStats struct {
	Count    int64   `json:"count"`
	AvgScore float64 `json:"avg_score"`
}

var bucketBounds = []Bucket{
	{Label: "0-20", Min: 0, Max: 20},
	{Label: "21-40", Min: 21, Max: 40},
	{Label: "41-70", Min: 41, Max: 70},
	{Label: "71-100", Min: 71, Max: 100},
}

type difficultyTotals struct {
	count int64
	sum   int64
}

// Aggregator keeps running guess statistics in memory.
type Aggregator struct {
	mu           sync.RWMutex
	total        int64
	scoreSum     int64
	latencySum   int64
	byMode       map[Mode]int64
	buckets      []int64
	byDifficulty map[string]*difficultyTotals
	scores       []int
	next         int
	startTime    time.Time

	logger *slog.Logger
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		byMode:       make(map[Mode]int64),
		buckets:      make([]int64, len(bucketBounds)),
		byDifficulty: make(map[string]*difficultyTotals),
		scores:       make([]int, 0, 1024),
		startTime:    time.Now(),
		logger:       slog.Default().With("component", "analytics-aggregator"),
	}
}

// HandleEvent decodes guess events from Kafka into agg. Undecodable messages
// are logged and skipped so they are still committed.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[GuessEvent](value)
		if err != nil {
			agg.logger.Error("failed to decode analytics event", "error", err)
			return nil
		}
		if event.Type != EventGuess {
			agg.logger.Debug("ignoring analytics event", "type", event.Type)
			return nil
		}
		agg.Record(event)
		return nil
	}
}

// Record adds one guess to the running totals.
func (a *Aggregator) Record(event GuessEvent) {
	score := min(max(event.Score, 0), 100)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.total++
	a.scoreSum += int64(score)
	a.latencySum += event.LatencyMs
	a.byMode[event.Mode]++
	for i, b := range bucketBounds {
		if score >= b.Min && score <= b.Max {
			a.buckets[i]++
			break
		}
	}
	if event.Difficulty != "" {
		d := a.byDifficulty[event.Difficulty]
		if d == nil {
			d = &difficultyTotals{}
			a.byDifficulty[event.Difficulty] = d
		}
		d.count++
		d.sum += int64(score)
	}
	if len(a.scores) < maxSamples {
		a.scores = append(a.scores, score)
	} else {
		a.scores[a.next] = score
		a.next = (a.next + 1) % maxSamples
	}
}

// Stats returns a consistent snapshot of the running totals.
func (a *Aggregator) Stats() AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := AggregatedStats{
		TotalGuesses: a.total,
		ByMode:       make(map[Mode]int64, len(a.byMode)),
		Buckets:      make([]Bucket, len(bucketBounds)),
		ByDifficulty: make(map[string]DifficultyStats, len(a.byDifficulty)),
		CapturedAt:   time.Now().UTC(),
	}
	for mode, n := range a.byMode {
		stats.ByMode[mode] = n
	}
	for i, b := range bucketBounds {
		b.Count = a.buckets[i]
		stats.Buckets[i] = b
	}
	for name, d := range a.byDifficulty {
		stats.ByDifficulty[name] = DifficultyStats{Count: d.count, AvgScore: float64(d.sum) / float64(d.count)}
	}
	if a.total > 0 {
		stats.AvgScore = float64(a.scoreSum) / float64(a.total)
		stats.AvgLatencyMs = float64(a.latencySum) / float64(a.total)
	}
	if len(a.scores) > 0 {
		sorted := slices.Clone(a.scores)
		slices.Sort(sorted)
		stats.P50Score = percentile(sorted, 50)
		stats.P95Score = percentile(sorted, 95)
		stats.P99Score = percentile(sorted, 99)
	}
	if elapsed := time.Since(a.startTime).Minutes(); elapsed > 0 {
		stats.GuessesPerMinute = float64(a.total) / elapsed
	}
	return stats
}

func percentile(sorted []int, pct int) int {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// LocalPublisher feeds events straight into an Aggregator, for running
// without a Kafka cluster.
type LocalPublisher struct {
	Aggregator *Aggregator
}

func (p LocalPublisher) PublishBatch(_ context.Context, events []kafka.Event) error {
	for _, e := range events {
		event, ok := e.Value.(GuessEvent)
		if !ok {
			return fmt.Errorf("unexpected analytics event type %T", e.Value)
		}
		p.Aggregator.Record(event)
	}
	return nil
}
