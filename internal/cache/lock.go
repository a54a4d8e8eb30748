package cache

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrLockHeld is returned when the resource is locked by another
// holder and the acquisition window ran out.
var ErrLockHeld = errors.New("lock held")

// Locker provides TTL-bounded advisory locks on resource names. A
// crashed holder self-heals when the TTL expires.
type Locker struct {
	cache Cache
	ttl   time.Duration
	wait  time.Duration
	retry time.Duration
}

func NewLocker(c Cache, ttl, wait time.Duration) *Locker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Locker{cache: c, ttl: ttl, wait: wait, retry: 50 * time.Millisecond}
}

type Lock struct {
	cache Cache
	key   string
	value []byte
}

// Acquire takes the lock on resource, polling until the wait bound
// runs out. Each lock carries a unique fencing value so Release cannot
// drop a lock that expired and was re-acquired elsewhere.
func (l *Locker) Acquire(ctx context.Context, resource string) (*Lock, error) {
	key := LockKey(resource)
	value := []byte(uuid.NewString())
	deadline := time.Now().Add(l.wait)
	for {
		ok, err := l.cache.SetNX(ctx, key, value, l.ttl)
		if err != nil {
			return nil, err
		}
		if ok {
			return &Lock{cache: l.cache, key: key, value: value}, nil
		}
		if l.wait <= 0 || time.Now().After(deadline) {
			return nil, ErrLockHeld
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.retry):
		}
	}
}

// Release drops the lock when still owned. A lost lock (expired TTL)
// is not an error; the next acquirer already owns the resource.
func (lk *Lock) Release(ctx context.Context) error {
	_, err := lk.cache.CompareAndDelete(ctx, lk.key, lk.value)
	return err
}
