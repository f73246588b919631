// Package memory holds single-process stand-ins for the redis-backed code
// store and limiter. They suit development and tests, not multi-instance
// deployments.
package memory

import (
	"context"
	"crypto/subtle"
	"fmt"
	"sync"
	"time"

	"github.com/dtroode/accounts-server/internal/model"
	"github.com/dtroode/accounts-server/internal/security"
)

var _ model.CodeStore = (*CodeStore)(nil)

type CodeStore struct {
	mu       sync.Mutex
	codes    map[string]model.OneTimeCode
	now      func() time.Time
	generate func(length int) (string, error)
}

func NewCodeStore() *CodeStore {
	return &CodeStore{
		codes:    make(map[string]model.OneTimeCode),
		now:      time.Now,
		generate: security.GenerateNumericCode,
	}
}

// WithClock replaces the clock used for issue and expiry checks.
func (s *CodeStore) WithClock(now func() time.Time) *CodeStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	return s
}

func (s *CodeStore) Issue(ctx context.Context, phone string, length int, ttl time.Duration) (model.OneTimeCode, error) {
	if err := ctx.Err(); err != nil {
		return model.OneTimeCode{}, err
	}
	if ttl <= 0 {
		return model.OneTimeCode{}, fmt.Errorf("code ttl must be positive, got %s", ttl)
	}

	code, err := s.generate(length)
	if err != nil {
		return model.OneTimeCode{}, fmt.Errorf("failed to generate code: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	issued := s.now()
	otc := model.OneTimeCode{Phone: phone, Code: code, IssuedAt: issued, ExpiresAt: issued.Add(ttl)}
	s.codes[phone] = otc
	s.evictExpired(issued)

	return otc, nil
}

func (s *CodeStore) VerifyAndConsume(ctx context.Context, phone, presented string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	otc, ok := s.codes[phone]
	if !ok {
		return false, nil
	}
	if otc.Expired(s.now()) {
		delete(s.codes, phone)
		return false, nil
	}
	if subtle.ConstantTimeCompare([]byte(otc.Code), []byte(presented)) != 1 {
		return false, nil
	}

	delete(s.codes, phone)
	return true, nil
}

func (s *CodeStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

// evictExpired keeps the map from growing with abandoned codes. Callers hold mu.
func (s *CodeStore) evictExpired(now time.Time) {
	for phone, otc := range s.codes {
		if otc.Expired(now) {
			delete(s.codes, phone)
		}
	}
}
