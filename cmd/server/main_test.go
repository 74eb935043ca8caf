package main

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Adithya-Monish-Kumar-K/prompted/internal/analytics"
)

func TestFlushAnalyticsDrainsBeforeFinalSnapshot(t *testing.T) {
	agg := analytics.NewAggregator()
	collector := analytics.NewCollector(analytics.LocalPublisher{Aggregator: agg}, 100, 10, nil)
	collector.Start(context.Background())

	snapCtx, stopSnapshots := context.WithCancel(context.Background())
	done := make(chan struct{})
	var finalTotal int64
	go func() {
		defer close(done)
		<-snapCtx.Done()
		finalTotal = agg.Stats().TotalGuesses
	}()

	for i := 0; i < 50; i++ {
		collector.Track(analytics.GuessEvent{Type: analytics.EventGuess, Mode: analytics.ModeScore, Score: i})
	}

	assert.True(t, flushAnalytics(collector.Close, stopSnapshots, done, time.Second))
	assert.Equal(t, int64(50), finalTotal)
}

func TestFlushAnalyticsWithoutSnapshots(t *testing.T) {
	stopped := false
	ok := flushAnalytics(nil, func() { stopped = true }, nil, time.Millisecond)
	assert.True(t, ok)
	assert.True(t, stopped)
}

func TestFlushAnalyticsTimesOut(t *testing.T) {
	never := make(chan struct{})
	assert.False(t, flushAnalytics(nil, func() {}, never, 10*time.Millisecond))
}
