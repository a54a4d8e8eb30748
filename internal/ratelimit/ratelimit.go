// Package ratelimit implements a fixed-window request limiter on the
// cache substrate. When the substrate is down the limiter allows
// everything: availability beats strict limiting here.
package ratelimit

import (
	"context"
	"time"

	"spinhub/internal/cache"

	"github.com/rs/zerolog/log"
)

type Limiter struct {
	cache  cache.Cache
	max    int64
	window time.Duration
	now    func() time.Time
}

func New(c cache.Cache, max int, window time.Duration) *Limiter {
	if max <= 0 {
		max = 120
	}
	if window <= 0 {
		window = time.Minute
	} else if window < time.Second {
		// Window keys have second granularity.
		window = time.Second
	}
	return &Limiter{cache: c, max: int64(max), window: window, now: time.Now}
}

// Allow reports whether caller may proceed in the current window. The
// first request of a window creates the counter and sets its expiry.
func (l *Limiter) Allow(ctx context.Context, caller string) bool {
	windowStart := l.now().Unix() / int64(l.window.Seconds()) * int64(l.window.Seconds())
	key := cache.RateKey(caller, windowStart)

	n, err := l.cache.Incr(ctx, key)
	if err != nil {
		log.Warn().Err(err).Str("caller", caller).Msg("rate limit substrate error, allowing")
		return true
	}
	if n == 1 {
		if err := l.cache.Expire(ctx, key, l.window+time.Second); err != nil {
			log.Warn().Err(err).Msg("rate limit expire failed")
		}
	}
	return n <= l.max
}
