package cache

import (
	"context"
	"encoding/json"
	"time"
)

// Results stores the full serialized response of a settled spin keyed
// by idempotency key, so a client retry replays the exact first
// answer without re-running settlement.
type Results struct {
	cache Cache
	ttl   time.Duration
}

func NewResults(c Cache, ttl time.Duration) *Results {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Results{cache: c, ttl: ttl}
}

// Load unmarshals a prior response into out. Returns false on miss.
func (r *Results) Load(ctx context.Context, idemKey string, out any) (bool, error) {
	b, err := r.cache.Get(ctx, SpinResultKey(idemKey))
	if err == ErrMiss {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(b, out); err != nil {
		return false, err
	}
	return true, nil
}

func (r *Results) Save(ctx context.Context, idemKey string, result any) error {
	b, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return r.cache.Set(ctx, SpinResultKey(idemKey), b, r.ttl)
}
