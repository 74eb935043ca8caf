// Command server runs the Prompted HTTP API: practice rounds, the daily
// challenge, prompt scoring, AI news and guess analytics.
//
// Redis, PostgreSQL and Kafka are optional. Without them the server keeps
// rounds and cached content in memory, daily results in memory, and
// aggregates guess events in-process.
//
// Usage:
//
//	go run ./cmd/server [-config configs/development.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"github.com/Adithya-Monish-Kumar-K/prompted/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/prompted/internal/analytics/aggregator"
	"github.com/Adithya-Monish-Kumar-K/prompted/internal/api"
	"github.com/Adithya-Monish-Kumar-K/prompted/internal/cache"
	"github.com/Adithya-Monish-Kumar-K/prompted/internal/daily"
	"github.com/Adithya-Monish-Kumar-K/prompted/internal/game"
	"github.com/Adithya-Monish-Kumar-K/prompted/internal/generator"
	"github.com/Adithya-Monish-Kumar-K/prompted/internal/news"
	"github.com/Adithya-Monish-Kumar-K/prompted/internal/similarity"
	"github.com/Adithya-Monish-Kumar-K/prompted/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/prompted/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/prompted/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/prompted/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/prompted/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/prompted/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/prompted/pkg/ratelimit"
	pkgredis "github.com/Adithya-Monish-Kumar-K/prompted/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/prompted/pkg/resilience"
)

const (
	analyticsBatchSize = 100
	pingTimeout        = 2 * time.Second
	finalSnapshotWait  = 5 * time.Second
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting prompted server", "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port, nil)
		defer shutdownMetrics(context.Background())
	}

	checker := health.NewChecker()

	var kv cache.Store
	redisClient, err := pkgredis.NewClient(cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, using in-memory store", "error", err)
		kv = cache.NewMemory()
		checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "not configured"}
		})
	} else {
		defer redisClient.Close()
		kv = redisClient
		checker.Register("redis", health.PingCheck(boundedPing("redis", redisClient.Ping), false))
		slog.Info("redis connected", "addr", cfg.Redis.Addr)
	}

	var results daily.ResultStore = daily.NewMemoryResultStore()
	var snapshots *aggregator.Store
	db, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Warn("postgres unavailable, daily results kept in memory", "error", err)
	} else {
		defer db.Close()
		pgResults := daily.NewPostgresResultStore(db)
		store := aggregator.NewStore(db, cfg.Analytics.SnapshotRetention)
		if err := pgResults.Migrate(ctx); err != nil {
			slog.Error("daily results migration failed", "error", err)
			os.Exit(1)
		}
		if err := store.Migrate(ctx); err != nil {
			slog.Error("analytics snapshot migration failed", "error", err)
			os.Exit(1)
		}
		results = pgResults
		snapshots = store
		checker.Register("postgres", health.PingCheck(boundedPing("postgres", db.Ping), false))
		slog.Info("postgres connected", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
	}

	gen := generator.NewOpenAI(generator.Config{
		APIKey:  cfg.Generator.APIKey,
		BaseURL: cfg.Generator.BaseURL,
		Model:   cfg.Generator.Model,
		Timeout: cfg.Generator.Timeout,
		Retry: resilience.RetryConfig{
			MaxAttempts:  cfg.Generator.MaxAttempts,
			InitialDelay: cfg.Generator.InitialBackoff,
		},
		Breaker: resilience.CircuitBreakerConfig{
			FailureThreshold: cfg.Generator.BreakerFailures,
			ResetTimeout:     cfg.Generator.BreakerReset,
			OnStateChange: func(name string, from, to resilience.State) {
				if m != nil {
					m.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
				}
			},
		},
		Metrics: m,
	})
	checker.Register("generator", func(ctx context.Context) health.ComponentHealth {
		b := gen.Breaker()
		if b.State == resilience.StateOpen {
			return health.ComponentHealth{
				Status:  health.StatusDegraded,
				Message: fmt.Sprintf("circuit open, retry in %v", b.RetryIn.Round(time.Second)),
			}
		}
		return health.ComponentHealth{Status: health.StatusUp, Message: "circuit " + b.State.String()}
	})

	// The snapshot loop outlives the signal context so its final write comes
	// after the collector has drained.
	snapCtx, stopSnapshots := context.WithCancel(context.Background())
	defer stopSnapshots()
	var snapshotsDone <-chan struct{}
	var collector *analytics.Collector
	var tracker analytics.Tracker = analytics.NopTracker{}
	var stats analytics.StatsSource
	agg := analytics.NewAggregator()
	stats = agg
	if cfg.Analytics.Enabled {
		var publisher analytics.Publisher = analytics.LocalPublisher{Aggregator: agg}
		if len(cfg.Kafka.Brokers) > 0 && snapshots != nil {
			producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.GuessEvents)
			defer producer.Close()
			publisher = producer
			stats = snapshots
			slog.Info("guess events published to kafka", "topic", producer.Topic())
		} else if snapshots != nil {
			snapshots.StartPeriodicSave(snapCtx, agg, cfg.Analytics.SnapshotInterval)
			snapshotsDone = snapshots.Done()
			slog.Info("guess events aggregated in-process with snapshots",
				"interval", cfg.Analytics.SnapshotInterval)
		} else {
			slog.Info("guess events aggregated in-process")
		}
		collector = analytics.NewCollector(publisher, cfg.Analytics.BufferSize, analyticsBatchSize, m)
		collector.Start(context.Background())
		tracker = collector
	}

	scorer := similarity.New(similarity.WithScoringConfig(cfg.Scoring))
	judge := game.NewJudge(scorer, tracker, m)

	rounds := game.NewService(gen, game.NewKVRoundStore(kv, cfg.Game.RoundTTL), judge)
	dailySvc := daily.NewService(daily.Config{
		Prompts:        cfg.Daily.Prompts,
		Selection:      cfg.Daily.Selection,
		UTCOffsetHours: cfg.Daily.UTCOffsetHours,
	}, gen, cache.New[daily.Challenge]("daily", "daily:content:", kv, cfg.Daily.ContentTTL, m), results, judge)
	newsSvc := news.NewFetcher(news.Config{
		APIKey:          cfg.News.APIKey,
		BaseURL:         cfg.News.BaseURL,
		Timeout:         cfg.News.Timeout,
		DefaultPageSize: cfg.News.DefaultPageSize,
	}, cache.New[news.Page]("news", "news:", kv, cfg.News.CacheTTL, m))

	var limiter *ratelimit.Limiter
	if cfg.RateLimit.Requests > 0 {
		limiter = ratelimit.New(cfg.RateLimit.Requests, cfg.RateLimit.Window)
		defer limiter.Stop()
	}

	h := api.NewHandler(judge, rounds, dailySvc, newsSvc, stats)
	router := api.NewRouter(h, api.RouterConfig{
		Metrics:        m,
		Limiter:        limiter,
		RequestTimeout: cfg.Server.RequestTimeout,
		AllowOrigins:   cfg.Server.AllowOrigins,
		Health:         checker,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverStopped := make(chan struct{})
	go func() {
		defer close(serverStopped)
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("prompted server listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	<-serverStopped
	var flush func()
	if collector != nil {
		flush = collector.Close
	}
	if !flushAnalytics(flush, stopSnapshots, snapshotsDone, finalSnapshotWait) {
		slog.Warn("final analytics snapshot timed out")
	}
	slog.Info("prompted server stopped")
}

// flushAnalytics drains buffered guess events into the aggregator before
// stopping the snapshot loop, so the final snapshot includes them. It reports
// false if the snapshot loop did not finish within wait.
func flushAnalytics(flush func(), stopSnapshots context.CancelFunc, snapshotsDone <-chan struct{}, wait time.Duration) bool {
	if flush != nil {
		flush()
	}
	stopSnapshots()
	if snapshotsDone == nil {
		return true
	}
	select {
	case <-snapshotsDone:
		return true
	case <-time.After(wait):
		return false
	}
}

func boundedPing(name string, ping func(context.Context) error) func(context.Context) error {
	return func(ctx context.Context) error {
		_, err := resilience.WithTimeout(ctx, pingTimeout, name+"-ping", func(ctx context.Context) (struct{}, error) {
			return struct{}{}, ping(ctx)
		})
		return err
	}
}
