// Package ratelimit implements an in-memory token-bucket limiter keyed by an
// arbitrary string (client IP, player ID).
package ratelimit

import (
	"math"
	"sync"
	"time"
)

const sweepEvery = 5 * time.Minute

type bucket struct {
	tokens float64
	seen   time.Time
}

// Limiter gives each key limit tokens per window, refilled continuously.
type Limiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// New starts a limiter with a background sweeper for idle keys. Stop
// releases the sweeper.
func New(limit int, window time.Duration) *Limiter {
	l := &Limiter{
		limit:   limit,
		window:  window,
		now:     time.Now,
		buckets: make(map[string]*bucket),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go l.sweepLoop()
	return l
}

func (l *Limiter) Allow(key string) bool {
	ok, _ := l.Take(key)
	return ok
}

// Take consumes one token for key. When the bucket is empty it returns false
// and the time until the next token. A non-positive limit allows everything.
func (l *Limiter) Take(key string) (bool, time.Duration) {
	if l.limit <= 0 {
		return true, 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	capacity := float64(l.limit)
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: capacity, seen: now}
		l.buckets[key] = b
	}
	refill := now.Sub(b.seen).Seconds() * capacity / l.window.Seconds()
	b.tokens = math.Min(capacity, b.tokens+refill)
	b.seen = now

	if b.tokens >= 1 {
		b.tokens--
		return true, 0
	}
	missing := (1 - b.tokens) * l.window.Seconds() / capacity
	return false, time.Duration(missing * float64(time.Second))
}

func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, key)
}

// Len is the number of keys currently tracked.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// Stop is safe to call more than once.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
	<-l.done
}

func (l *Limiter) sweepLoop() {
	defer close(l.done)
	ticker := time.NewTicker(sweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.sweep()
		case <-l.stop:
			return
		}
	}
}

// sweep drops keys idle for two windows. Their buckets would be full again.
func (l *Limiter) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := l.now().Add(-2 * l.window)
	for key, b := range l.buckets {
		if b.seen.Before(cutoff) {
			delete(l.buckets, key)
		}
	}
}
