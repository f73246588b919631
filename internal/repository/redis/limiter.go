package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/dtroode/accounts-server/internal/model"
)

var _ model.Limiter = (*Limiter)(nil)

// Limiter is a fixed-window counter shared by every instance behind the same
// redis. A window starts with the first hit for a key.
type Limiter struct {
	client  red.UniversalClient
	prefix  string
	limit   int
	period  time.Duration
	timeout time.Duration
}

func NewLimiter(client red.UniversalClient, prefix, name string, limit int, period, timeout time.Duration) *Limiter {
	return &Limiter{
		client:  client,
		prefix:  prefix + ":rate:" + name + ":",
		limit:   limit,
		period:  period,
		timeout: timeout,
	}
}

func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	ctx, cancel := l.withTimeout(ctx)
	defer cancel()

	k := l.prefix + key
	count, err := l.client.Incr(ctx, k).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate counter: %w", err)
	}

	if count == 1 {
		if err := l.client.PExpire(ctx, k, l.period).Err(); err != nil {
			return false, fmt.Errorf("failed to set rate window: %w", err)
		}
	} else {
		// a counter left without a window would block the key forever
		ttl, err := l.client.PTTL(ctx, k).Result()
		if err == nil && ttl < 0 {
			_ = l.client.PExpire(ctx, k, l.period).Err()
		}
	}

	return count <= int64(l.limit), nil
}

func (l *Limiter) Remaining(ctx context.Context, key string) (int, error) {
	ctx, cancel := l.withTimeout(ctx)
	defer cancel()

	raw, err := l.client.Get(ctx, l.prefix+key).Result()
	if errors.Is(err, red.Nil) {
		return l.limit, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read rate counter: %w", err)
	}

	count, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("malformed rate counter: %w", err)
	}

	return max(l.limit-count, 0), nil
}

func (l *Limiter) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if l.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, l.timeout)
}
