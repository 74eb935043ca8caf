package analytics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/prompted/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/prompted/pkg/metrics"
)

// Publisher writes a batch of events. *kafka.Producer implements it.
type Publisher interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

// Collector buffers guess events on a channel and publishes them in batches
// from a single goroutine. Track never blocks; events are dropped when the
// buffer is full.
type Collector struct {
	publisher Publisher
	eventCh   chan GuessEvent
	batchSize int
	metrics   *metrics.Metrics
	logger    *slog.Logger
	done      chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewCollector creates a collector with room for bufferSize pending events.
func NewCollector(publisher Publisher, bufferSize, batchSize int, m *metrics.Metrics) *Collector {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Collector{
		publisher: publisher,
		eventCh:   make(chan GuessEvent, bufferSize),
		batchSize: batchSize,
		metrics:   m,
		logger:    slog.Default().With("component", "analytics-collector"),
		done:      make(chan struct{}),
	}
}

// Start launches the publish loop. It runs until Close, or until ctx is
// cancelled, after which buffered events are flushed.
func (c *Collector) Start(ctx context.Context) {
	go func() {
		defer close(c.done)
		for {
			select {
			case event, ok := <-c.eventCh:
				if !ok {
					return
				}
				c.publish(ctx, c.collectBatch(event))
			case <-ctx.Done():
				c.drainRemaining()
				return
			}
		}
	}()
	c.logger.Info("analytics collector started", "buffer_size", cap(c.eventCh), "batch_size", c.batchSize)
}

// Track enqueues event, dropping it when the buffer is full or the
// collector is closed.
func (c *Collector) Track(event GuessEvent) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return
	}
	select {
	case c.eventCh <- event:
	default:
		if c.metrics != nil {
			c.metrics.AnalyticsDropped.Inc()
		}
		c.logger.Warn("analytics event dropped (buffer full)")
	}
}

// Close stops accepting events, publishes what is buffered and waits for the
// loop to exit.
func (c *Collector) Close() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.eventCh)
	}
	c.mu.Unlock()
	<-c.done
}

// Pending returns the number of buffered events.
func (c *Collector) Pending() int {
	return len(c.eventCh)
}

// collectBatch appends whatever is immediately available after first, up to
// batchSize events.
func (c *Collector) collectBatch(first GuessEvent) []kafka.Event {
	batch := []kafka.Event{toKafkaEvent(first)}
	for len(batch) < c.batchSize {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				return batch
			}
			batch = append(batch, toKafkaEvent(event))
		default:
			return batch
		}
	}
	return batch
}

func (c *Collector) drainRemaining() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				return
			}
			c.publish(ctx, c.collectBatch(event))
		default:
			return
		}
	}
}

func (c *Collector) publish(ctx context.Context, batch []kafka.Event) {
	if err := c.publisher.PublishBatch(ctx, batch); err != nil {
		c.logger.Error("failed to publish analytics events", "count", len(batch), "error", err)
		return
	}
	c.logger.Debug("analytics events published", "count", len(batch))
}

func toKafkaEvent(e GuessEvent) kafka.Event {
	return kafka.Event{Key: string(e.Mode), Value: e}
}
