package sms

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"

	"github.com/dtroode/accounts-server/internal/model"
)

// ErrGatewayOpen is returned without contacting the provider while the
// breaker is open.
var ErrGatewayOpen = errors.New("sms gateway temporarily disabled")

var _ model.SMSGateway = (*BreakerGateway)(nil)

// BreakerSettings configures when the breaker trips and recovers.
type BreakerSettings struct {
	MaxFailures uint32
	Interval    time.Duration
	OpenTimeout time.Duration
}

// BreakerGateway stops calling a failing provider for OpenTimeout after
// MaxFailures consecutive errors.
type BreakerGateway struct {
	next model.SMSGateway
	cb   *gobreaker.CircuitBreaker
}

func NewBreakerGateway(next model.SMSGateway, s BreakerSettings, onStateChange func(from, to string)) *BreakerGateway {
	if s.MaxFailures == 0 {
		s.MaxFailures = 5
	}
	return &BreakerGateway{
		next: next,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "sms",
			MaxRequests: 1,
			Interval:    s.Interval,
			Timeout:     s.OpenTimeout,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= s.MaxFailures
			},
			IsSuccessful: func(err error) bool {
				// caller cancellation says nothing about provider health
				return err == nil || errors.Is(err, context.Canceled)
			},
			OnStateChange: func(_ string, from, to gobreaker.State) {
				if onStateChange != nil {
					onStateChange(from.String(), to.String())
				}
			},
		}),
	}
}

func (g *BreakerGateway) Send(ctx context.Context, phone, code string) error {
	_, err := g.cb.Execute(func() (interface{}, error) {
		return nil, g.next.Send(ctx, phone, code)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrGatewayOpen
	}
	return err
}
