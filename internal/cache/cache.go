// Package cache is the best-effort key/value substrate the settlement
// pipeline builds locks, idempotency replay, rate limits, and session
// snapshots on. Two implementations exist: an in-process map for
// single-node deployments and a Redis client for shared deployments.
package cache

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrMiss is returned by Get when the key is absent or expired.
	ErrMiss = errors.New("cache miss")
	// ErrUnavailable is returned when the backing store cannot be
	// reached. Callers degrade rather than fail hard.
	ErrUnavailable = errors.New("cache unavailable")
)

type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// SetNX stores value only when key is absent. Returns true when the
	// write happened.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	// Incr atomically increments an integer counter, creating it at 1.
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// CompareAndDelete removes key only while it still holds value.
	// Returns true when the key was removed.
	CompareAndDelete(ctx context.Context, key string, value []byte) (bool, error)
}
