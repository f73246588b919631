package model

import (
	"context"
	"time"
)

// CodeStore keeps at most one live one-time code per phone.
type CodeStore interface {
	// Issue generates a numeric code, replacing any live code for phone.
	Issue(ctx context.Context, phone string, length int, ttl time.Duration) (OneTimeCode, error)
	// VerifyAndConsume deletes the live code and returns true if presented matches.
	// A mismatch leaves the record in place.
	VerifyAndConsume(ctx context.Context, phone, presented string) (bool, error)
	Ping(ctx context.Context) error
}

// OneTimeCode is a short-lived numeric credential tied to a phone.
type OneTimeCode struct {
	Phone     string
	Code      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Expired reports whether the code is no longer valid at now.
func (c OneTimeCode) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// SMSGateway dispatches a one-time code to a phone. It makes a single attempt.
type SMSGateway interface {
	Send(ctx context.Context, phone, code string) error
}

// Limiter is a non-blocking counter keyed by phone or IP.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Remaining(ctx context.Context, key string) (int, error)
}

// SMSDispatch describes a sent one-time code.
type SMSDispatch struct {
	ExpiresAt time.Time
	// Remaining is the number of sends left in the current window, or -1
	// when sends are not limited.
	Remaining int
}
