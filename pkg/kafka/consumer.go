// Package kafka publishes and consumes JSON events with segmentio/kafka-go.
// The server publishes guess events in batches; the analytics service
// consumes them through a MessageHandler.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Adithya-Monish-Kumar-K/prompted/pkg/config"
)

const (
	minFetchBackoff = 500 * time.Millisecond
	maxFetchBackoff = 30 * time.Second
)

// MessageHandler processes one message. A non-nil error leaves the message
// uncommitted.
type MessageHandler func(ctx context.Context, key []byte, value []byte) error

// ConsumerStats counts handled messages since start.
type ConsumerStats struct {
	Processed   int64
	Failed      int64
	LastMessage time.Time
}

// Consumer reads a topic as part of a consumer group and commits each
// message after its handler succeeds.
type Consumer struct {
	reader  *kafka.Reader
	handler MessageHandler
	logger  *slog.Logger

	processed atomic.Int64
	failed    atomic.Int64
	last      atomic.Int64
	closeOnce sync.Once
	closeErr  error
}

// NewConsumer creates a Consumer for topic in cfg.ConsumerGroup, starting
// from the earliest offset when the group has none.
func NewConsumer(cfg config.KafkaConfig, topic string, handler MessageHandler) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:     cfg.Brokers,
			Topic:       topic,
			GroupID:     cfg.ConsumerGroup,
			MinBytes:    1,
			MaxBytes:    10e6,
			MaxWait:     time.Second,
			StartOffset: kafka.FirstOffset,
		}),
		handler: handler,
		logger:  slog.Default().With("component", "kafka-consumer", "topic", topic),
	}
}

// Start consumes until ctx is cancelled, then closes the reader. Fetch
// errors back off exponentially up to 30s.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("consumer started")
	defer c.Close()

	backoff := minFetchBackoff
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("consumer stopping", "reason", ctx.Err())
				return nil
			}
			c.logger.Error("fetch failed", "error", err, "retry_in", backoff)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil
			}
			backoff = min(backoff*2, maxFetchBackoff)
			continue
		}
		backoff = minFetchBackoff
		c.last.Store(time.Now().UnixNano())

		if err := c.handler(ctx, msg.Key, msg.Value); err != nil {
			c.failed.Add(1)
			c.logger.Error("handler failed",
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
			continue
		}
		c.processed.Add(1)
		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.logger.Error("commit failed", "partition", msg.Partition, "offset", msg.Offset, "error", err)
		}
	}
}

// Stats returns the handled message counters.
func (c *Consumer) Stats() ConsumerStats {
	s := ConsumerStats{Processed: c.processed.Load(), Failed: c.failed.Load()}
	if ns := c.last.Load(); ns > 0 {
		s.LastMessage = time.Unix(0, ns)
	}
	return s
}

// Close closes the reader. It is safe to call more than once.
func (c *Consumer) Close() error {
	c.closeOnce.Do(func() { c.closeErr = c.reader.Close() })
	return c.closeErr
}

// DecodeJSON unmarshals a message value into T.
func DecodeJSON[T any](value []byte) (T, error) {
	var v T
	if err := json.Unmarshal(value, &v); err != nil {
		return v, fmt.Errorf("decoding kafka message: %w", err)
	}
	return v, nil
}
