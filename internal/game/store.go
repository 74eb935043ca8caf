package game

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Adithya-Monish-Kumar-K/prompted/internal/cache"
	apperrors "github.com/Adithya-Monish-Kumar-K/prompted/pkg/errors"
	pkgredis "github.com/Adithya-Monish-Kumar-K/prompted/pkg/redis"
)

// RoundStore persists practice rounds between creation and the guess.
type RoundStore interface {
	Save(ctx context.Context, r Round) error
	Get(ctx context.Context, id string) (Round, error)
	// MarkRevealed reports true the first time it is called for id.
	MarkRevealed(ctx context.Context, id string) (bool, error)
}

const roundKeyPrefix = "round:"

// KVRoundStore keeps rounds as JSON under round:<id> with a TTL, and the
// revealed flag under round:<id>:revealed.
type KVRoundStore struct {
	kv  cache.Store
	ttl time.Duration
}

func NewKVRoundStore(kv cache.Store, ttl time.Duration) *KVRoundStore {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	return &KVRoundStore{kv: kv, ttl: ttl}
}

func (s *KVRoundStore) Save(ctx context.Context, r Round) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encoding round %s: %w", r.ID, err)
	}
	if err := s.kv.Set(ctx, roundKeyPrefix+r.ID, data, s.ttl); err != nil {
		return fmt.Errorf("saving round %s: %w", r.ID, err)
	}
	return nil
}

func (s *KVRoundStore) Get(ctx context.Context, id string) (Round, error) {
	data, err := s.kv.Get(ctx, roundKeyPrefix+id)
	if err != nil {
		if pkgredis.IsNilError(err) {
			return Round{}, apperrors.Newf(apperrors.ErrRoundNotFound, 404, "round %s not found or expired", id)
		}
		return Round{}, fmt.Errorf("loading round %s: %w", id, err)
	}
	var r Round
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return Round{}, fmt.Errorf("decoding round %s: %w", id, err)
	}
	return r, nil
}

func (s *KVRoundStore) MarkRevealed(ctx context.Context, id string) (bool, error) {
	first, err := s.kv.SetNX(ctx, roundKeyPrefix+id+":revealed", "1", s.ttl)
	if err != nil {
		return false, fmt.Errorf("marking round %s revealed: %w", id, err)
	}
	return first, nil
}
