// Command analytics runs the standalone guess analytics service.
//
// It consumes guess events from Kafka, aggregates them in memory (score
// percentiles and buckets, per-mode and per-difficulty counts, throughput),
// snapshots the aggregate to PostgreSQL, and serves GET /api/v1/analytics.
//
// Usage:
//
//	go run ./cmd/analytics [-config configs/development.yaml] [-port 8081] [-metrics-port 9091]
package main

import (
	"context"
	"errors"
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
	"github.com/Adithya-Monish-Kumar-K/prompted/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/prompted/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/prompted/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/prompted/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/prompted/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/prompted/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/prompted/pkg/postgres"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	port := flag.Int("port", 8081, "HTTP port for the analytics API")
	metricsPort := flag.Int("metrics-port", 9091, "Prometheus port, separate from the game server's")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting analytics service", "port", *port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checker := health.NewChecker()
	agg := analytics.NewAggregator()

	var store *aggregator.Store
	db, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Warn("postgres unavailable, snapshots disabled", "error", err)
	} else {
		defer db.Close()
		store = aggregator.NewStore(db, cfg.Analytics.SnapshotRetention)
		if err := store.Migrate(ctx); err != nil {
			slog.Error("analytics snapshot migration failed", "error", err)
			os.Exit(1)
		}
		store.StartPeriodicSave(ctx, agg, cfg.Analytics.SnapshotInterval)
		checker.Register("postgres", health.PingCheck(db.Ping, false))
		slog.Info("snapshotting analytics", "interval", cfg.Analytics.SnapshotInterval)
	}

	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.GuessEvents, analytics.HandleEvent(agg))
	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		if err := consumer.Start(ctx); err != nil {
			slog.Error("consumer error", "error", err)
		}
	}()
	slog.Info("analytics consumer started", "topic", cfg.Kafka.Topics.GuessEvents)

	checker.Register("kafka", consumerCheck(consumer.Stats, consumerDone, time.Now))

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
		shutdownMetrics := metrics.StartServer(*metricsPort, nil)
		defer shutdownMetrics(context.Background())
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      newRouter(agg, checker, m),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("analytics service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	<-consumerDone
	if store != nil {
		select {
		case <-store.Done():
		case <-time.After(5 * time.Second):
			slog.Warn("final snapshot timed out")
		}
	}
	slog.Info("analytics service stopped")
}

// consumerCheck reports the consumer down once it has exited, and otherwise
// summarises its progress.
func consumerCheck(stats func() kafka.ConsumerStats, done <-chan struct{}, now func() time.Time) health.Check {
	return func(context.Context) health.ComponentHealth {
		select {
		case <-done:
			return health.ComponentHealth{Status: health.StatusDown, Message: "consumer stopped"}
		default:
		}
		st := stats()
		msg := fmt.Sprintf("processed %d, failed %d", st.Processed, st.Failed)
		if !st.LastMessage.IsZero() {
			msg += fmt.Sprintf(", last message %s ago", now().Sub(st.LastMessage).Round(time.Second))
		}
		return health.ComponentHealth{Status: health.StatusUp, Message: msg}
	}
}

// newRouter wires the read-only analytics API. A nil m skips request metrics.
func newRouter(source analytics.StatsSource, checker *health.Checker, m *metrics.Metrics) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/analytics", analytics.NewHandler(source).Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var h http.Handler = mux
	if m != nil {
		h = middleware.Metrics(m)(h)
	}
	return middleware.RequestID(h)
}
