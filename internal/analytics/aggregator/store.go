// Package aggregator keeps a rolling history of analytics snapshots in
// PostgreSQL so stats survive restarts and can be served by a process that
// does not aggregate itself.
package aggregator

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/prompted/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/prompted/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/prompted/pkg/postgres"
)

var Schema = []string{
	`CREATE TABLE IF NOT EXISTS analytics_snapshots (
	    id          BIGSERIAL PRIMARY KEY,
	    data        JSONB NOT NULL,
	    captured_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS analytics_snapshots_captured_at_idx
	    ON analytics_snapshots (captured_at DESC)`,
}

const finalSaveTimeout = 5 * time.Second

// StatsProvider is satisfied by analytics.Aggregator.
type StatsProvider interface {
	Stats() analytics.AggregatedStats
}

type Store struct {
	db        *postgres.Client
	retention time.Duration
	logger    *slog.Logger
	done      chan struct{}
}

// NewStore returns a store that drops snapshots older than retention
// whenever it writes a new one. A zero retention keeps every snapshot.
func NewStore(db *postgres.Client, retention time.Duration) *Store {
	return &Store{
		db:        db,
		retention: retention,
		logger:    logger.WithComponent("analytics-store"),
		done:      make(chan struct{}),
	}
}

func (s *Store) Migrate(ctx context.Context) error {
	return s.db.Migrate(ctx, Schema...)
}

// SaveSnapshot writes stats and prunes expired rows in one transaction. It
// returns how many old snapshots were pruned.
func (s *Store) SaveSnapshot(ctx context.Context, stats analytics.AggregatedStats) (int64, error) {
	data, err := json.Marshal(stats)
	if err != nil {
		return 0, fmt.Errorf("encoding snapshot: %w", err)
	}
	at := stats.CapturedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}

	var pruned int64
	err = s.db.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO analytics_snapshots (data, captured_at) VALUES ($1, $2)`, data, at,
		); err != nil {
			return fmt.Errorf("inserting snapshot: %w", err)
		}
		if s.retention <= 0 {
			return nil
		}
		res, err := tx.ExecContext(ctx,
			`DELETE FROM analytics_snapshots WHERE captured_at < $1`, at.Add(-s.retention),
		)
		if err != nil {
			return fmt.Errorf("pruning snapshots: %w", err)
		}
		pruned, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, err
	}

	s.logger.Debug("snapshot saved",
		"total_guesses", stats.TotalGuesses,
		"avg_score", stats.AvgScore,
		"pruned", pruned,
	)
	return pruned, nil
}

// LatestSnapshot returns nil without error when nothing has been saved.
func (s *Store) LatestSnapshot(ctx context.Context) (*analytics.AggregatedStats, error) {
	var raw []byte
	err := s.db.DB.QueryRowContext(ctx,
		`SELECT data FROM analytics_snapshots ORDER BY captured_at DESC LIMIT 1`,
	).Scan(&raw)
	switch {
	case postgres.IsNoRows(err):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("loading latest snapshot: %w", err)
	}
	stats, err := decodeSnapshot(raw)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// CurrentStats implements analytics.StatsSource for processes that only read
// snapshots.
func (s *Store) CurrentStats(ctx context.Context) (analytics.AggregatedStats, error) {
	latest, err := s.LatestSnapshot(ctx)
	switch {
	case err != nil:
		return analytics.AggregatedStats{}, err
	case latest == nil:
		return analytics.AggregatedStats{
			ByMode:       map[analytics.Mode]int64{},
			ByDifficulty: map[string]analytics.DifficultyStats{},
		}, nil
	}
	return *latest, nil
}

// ListSnapshots returns up to limit snapshots, newest first. Rows that no
// longer decode are skipped.
func (s *Store) ListSnapshots(ctx context.Context, limit int) ([]analytics.AggregatedStats, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT data FROM analytics_snapshots ORDER BY captured_at DESC LIMIT $1`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing snapshots: %w", err)
	}
	defer rows.Close()

	out := make([]analytics.AggregatedStats, 0, limit)
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("reading snapshot row: %w", err)
		}
		stats, err := decodeSnapshot(raw)
		if err != nil {
			s.logger.Warn("skipping undecodable snapshot", "error", err)
			continue
		}
		out = append(out, stats)
	}
	return out, rows.Err()
}

func decodeSnapshot(raw []byte) (analytics.AggregatedStats, error) {
	var stats analytics.AggregatedStats
	if err := json.Unmarshal(raw, &stats); err != nil {
		return stats, fmt.Errorf("decoding snapshot: %w", err)
	}
	return stats, nil
}

// StartPeriodicSave snapshots agg every interval until ctx ends, then writes
// one last snapshot on a fresh context. Done closes after that final write.
func (s *Store) StartPeriodicSave(ctx context.Context, agg StatsProvider, interval time.Duration) {
	s.logger.Info("periodic snapshots started", "interval", interval, "retention", s.retention)
	go s.run(ctx, agg, interval)
}

func (s *Store) run(ctx context.Context, agg StatsProvider, interval time.Duration) {
	defer close(s.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := s.SaveSnapshot(ctx, agg.Stats()); err != nil {
				s.logger.Error("periodic snapshot failed", "error", err)
			}
		case <-ctx.Done():
			final, cancel := context.WithTimeout(context.Background(), finalSaveTimeout)
			defer cancel()
			if _, err := s.SaveSnapshot(final, agg.Stats()); err != nil {
				s.logger.Error("final snapshot failed", "error", err)
			}
			return
		}
	}
}

func (s *Store) Done() <-chan struct{} {
	return s.done
}
