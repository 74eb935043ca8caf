package daily

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/prompted/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/prompted/pkg/postgres"
)

// Result is one player's submission for one date.
type Result struct {
	Date      string    `json:"date"`
	PlayerID  string    `json:"player_id"`
	Score     int       `json:"score"`
	Guess     string    `json:"guess"`
	CreatedAt time.Time `json:"created_at"`
}

// ResultStore holds at most one result per player per date.
type ResultStore interface {
	// Save returns ErrAlreadyCompleted when the player already has a result.
	Save(ctx context.Context, r Result) error
	// Get returns ErrResultNotFound when there is no result.
	Get(ctx context.Context, date, playerID string) (Result, error)
}

// Schema creates the results table.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS daily_results (
	    challenge_date DATE        NOT NULL,
	    player_id      TEXT        NOT NULL,
	    score          INTEGER     NOT NULL CHECK (score BETWEEN 0 AND 100),
	    guess          TEXT        NOT NULL,
	    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	    PRIMARY KEY (challenge_date, player_id)
	)`,
}

func alreadyCompleted(date string) error {
	return apperrors.Newf(apperrors.ErrAlreadyCompleted, http.StatusConflict, "daily challenge for %s already completed", date)
}

func resultNotFound(date string) error {
	return apperrors.Newf(apperrors.ErrResultNotFound, http.StatusNotFound, "no result for %s", date)
}

// PostgresResultStore keeps results in the daily_results table.
type PostgresResultStore struct {
	db *postgres.Client
}

func NewPostgresResultStore(db *postgres.Client) *PostgresResultStore {
	return &PostgresResultStore{db: db}
}

// Migrate creates the results table if needed.
func (s *PostgresResultStore) Migrate(ctx context.Context) error {
	return s.db.Migrate(ctx, Schema...)
}

func (s *PostgresResultStore) Save(ctx context.Context, r Result) error {
	_, err := s.db.DB.ExecContext(ctx,
		`INSERT INTO daily_results (challenge_date, player_id, score, guess, created_at) VALUES ($1, $2, $3, $4, $5)`,
		r.Date, r.PlayerID, r.Score, r.Guess, r.CreatedAt,
	)
	if postgres.IsUniqueViolation(err) {
		return alreadyCompleted(r.Date)
	}
	if err != nil {
		return fmt.Errorf("saving daily result: %w", err)
	}
	return nil
}

func (s *PostgresResultStore) Get(ctx context.Context, date, playerID string) (Result, error) {
	var (
		r   Result
		day time.Time
	)
	err := s.db.DB.QueryRowContext(ctx,
		`SELECT challenge_date, player_id, score, guess, created_at FROM daily_results WHERE challenge_date = $1 AND player_id = $2`,
		date, playerID,
	).Scan(&day, &r.PlayerID, &r.Score, &r.Guess, &r.CreatedAt)
	if postgres.IsNoRows(err) {
		return Result{}, resultNotFound(date)
	}
	if err != nil {
		return Result{}, fmt.Errorf("loading daily result: %w", err)
	}
	r.Date = day.Format(dateLayout)
	return r, nil
}

// MemoryResultStore is an in-process ResultStore for running without
// PostgreSQL.
type MemoryResultStore struct {
	mu      sync.Mutex
	results map[string]Result
}

func NewMemoryResultStore() *MemoryResultStore {
	return &MemoryResultStore{results: make(map[string]Result)}
}

func (s *MemoryResultStore) Save(_ context.Context, r Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := r.Date + "/" + r.PlayerID
	if _, ok := s.results[key]; ok {
		return alreadyCompleted(r.Date)
	}
	s.results[key] = r
	return nil
}

func (s *MemoryResultStore) Get(_ context.Context, date, playerID string) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.results[date+"/"+playerID]
	if !ok {
		return Result{}, resultNotFound(date)
	}
	return r, nil
}
