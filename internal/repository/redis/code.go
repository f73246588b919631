package redis

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strconv"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/dtroode/accounts-server/internal/model"
	"github.com/dtroode/accounts-server/internal/security"
)

const (
	fieldCode      = "code"
	fieldIssuedAt  = "issued_at"
	fieldExpiresAt = "expires_at"
)

var _ model.CodeStore = (*CodeRepository)(nil)

// CodeRepository stores one hash per phone under <prefix>:sms_code:<phone>.
// The key carries a TTL matching expires_at, so stale codes are also evicted
// by redis itself.
type CodeRepository struct {
	client   red.UniversalClient
	prefix   string
	timeout  time.Duration
	now      func() time.Time
	generate func(length int) (string, error)
}

func NewCodeRepository(client red.UniversalClient, prefix string, timeout time.Duration) *CodeRepository {
	return &CodeRepository{
		client:   client,
		prefix:   prefix,
		timeout:  timeout,
		now:      time.Now,
		generate: security.GenerateNumericCode,
	}
}

// WithClock replaces the clock used for issue and expiry checks.
func (r *CodeRepository) WithClock(now func() time.Time) *CodeRepository {
	r.now = now
	return r
}

func (r *CodeRepository) Issue(ctx context.Context, phone string, length int, ttl time.Duration) (model.OneTimeCode, error) {
	if ttl <= 0 {
		return model.OneTimeCode{}, fmt.Errorf("code ttl must be positive, got %s", ttl)
	}

	code, err := r.generate(length)
	if err != nil {
		return model.OneTimeCode{}, fmt.Errorf("failed to generate code: %w", err)
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	issued := r.now()
	otc := model.OneTimeCode{
		Phone:     phone,
		Code:      code,
		IssuedAt:  issued,
		ExpiresAt: issued.Add(ttl),
	}

	key := r.key(phone)
	_, err = r.client.TxPipelined(ctx, func(pipe red.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key,
			fieldCode, otc.Code,
			fieldIssuedAt, otc.IssuedAt.UnixMilli(),
			fieldExpiresAt, otc.ExpiresAt.UnixMilli(),
		)
		pipe.PExpire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return model.OneTimeCode{}, fmt.Errorf("failed to store code: %w", err)
	}

	return otc, nil
}

func (r *CodeRepository) VerifyAndConsume(ctx context.Context, phone, presented string) (bool, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	key := r.key(phone)
	consumed := false

	err := r.client.Watch(ctx, func(tx *red.Tx) error {
		fields, err := tx.HGetAll(ctx, key).Result()
		if err != nil {
			return err
		}

		stored, ok := fields[fieldCode]
		if !ok || stored == "" {
			return nil
		}
		expiresAt, err := strconv.ParseInt(fields[fieldExpiresAt], 10, 64)
		if err != nil {
			return fmt.Errorf("malformed code record: %w", err)
		}
		if r.now().After(time.UnixMilli(expiresAt)) {
			return nil
		}
		if subtle.ConstantTimeCompare([]byte(stored), []byte(presented)) != 1 {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe red.Pipeliner) error {
			pipe.Del(ctx, key)
			return nil
		})
		if err != nil {
			return err
		}
		consumed = true
		return nil
	}, key)

	switch {
	case errors.Is(err, red.TxFailedErr):
		// another request consumed or superseded the code first
		return false, nil
	case err != nil:
		return false, fmt.Errorf("failed to verify code: %w", err)
	}

	return consumed, nil
}

func (r *CodeRepository) Ping(ctx context.Context) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	return r.client.Ping(ctx).Err()
}

func (r *CodeRepository) key(phone string) string {
	return r.prefix + ":sms_code:" + phone
}

func (r *CodeRepository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}
