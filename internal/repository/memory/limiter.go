package memory

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/dtroode/accounts-server/internal/model"
)

var _ model.Limiter = (*Limiter)(nil)

// Limiter is a token bucket per key: burst tokens, refilled evenly over period.
type Limiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	every    rate.Limit
	burst    int
	period   time.Duration
	swept    time.Time
	now      func() time.Time
}

func NewLimiter(limit int, period time.Duration) *Limiter {
	if limit <= 0 {
		limit = 1
	}
	if period <= 0 {
		period = time.Second
	}
	return &Limiter{
		limiters: make(map[string]*rate.Limiter),
		every:    rate.Every(period / time.Duration(limit)),
		burst:    limit,
		period:   period,
		now:      time.Now,
	}
}

// WithClock replaces the clock used to refill buckets.
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.now = now
	return l
}

func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.evictFull(now)

	return l.get(key).AllowN(now, 1), nil
}

func (l *Limiter) Remaining(ctx context.Context, key string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.limiters[key]
	if !ok {
		return l.burst, nil
	}
	return max(int(lim.TokensAt(l.now())), 0), nil
}

func (l *Limiter) get(key string) *rate.Limiter {
	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(l.every, l.burst)
		l.limiters[key] = lim
	}
	return lim
}

// evictFull drops buckets that have refilled completely, at most once per
// period. A full bucket behaves exactly like a missing one. Callers hold mu.
func (l *Limiter) evictFull(now time.Time) {
	if now.Sub(l.swept) < l.period {
		return
	}
	l.swept = now

	for key, lim := range l.limiters {
		if lim.TokensAt(now) >= float64(l.burst) {
			delete(l.limiters, key)
		}
	}
}
