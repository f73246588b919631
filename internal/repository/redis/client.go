package redis

import (
	"context"
	"fmt"
	"time"

	red "github.com/redis/go-redis/v9"
	"github.com/sethvargo/go-retry"
)

// Options configures the redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
	Timeout  time.Duration
	Retries  uint64
}

// NewClient connects to redis and waits until the server answers PING.
func NewClient(ctx context.Context, opts Options) (*red.Client, error) {
	client := red.NewClient(&red.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  opts.Timeout,
		ReadTimeout:  opts.Timeout,
		WriteTimeout: opts.Timeout,
		PoolTimeout:  opts.Timeout,
	})

	backoff := retry.WithMaxRetries(opts.Retries, retry.NewExponential(250*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := client.Ping(ctx).Err(); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to reach redis: %w", err)
	}

	return client, nil
}
