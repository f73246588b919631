package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/dtroode/accounts-server/internal/model"
)

// CodeStore is a mock type for the model.CodeStore type.
type CodeStore struct {
	mock.Mock
}

func (_m *CodeStore) Issue(ctx context.Context, phone string, length int, ttl time.Duration) (model.OneTimeCode, error) {
	ret := _m.Called(ctx, phone, length, ttl)
	return ret.Get(0).(model.OneTimeCode), ret.Error(1)
}

func (_m *CodeStore) VerifyAndConsume(ctx context.Context, phone, presented string) (bool, error) {
	ret := _m.Called(ctx, phone, presented)
	return ret.Bool(0), ret.Error(1)
}

func (_m *CodeStore) Ping(ctx context.Context) error {
	ret := _m.Called(ctx)
	return ret.Error(0)
}

func NewCodeStore(t interface {
	mock.TestingT
	Cleanup(func())
}) *CodeStore {
	m := &CodeStore{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

// SMSGateway is a mock type for the model.SMSGateway type.
type SMSGateway struct {
	mock.Mock
}

func (_m *SMSGateway) Send(ctx context.Context, phone, code string) error {
	ret := _m.Called(ctx, phone, code)
	return ret.Error(0)
}

func NewSMSGateway(t interface {
	mock.TestingT
	Cleanup(func())
}) *SMSGateway {
	m := &SMSGateway{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

// Limiter is a mock type for the model.Limiter type.
type Limiter struct {
	mock.Mock
}

func (_m *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	ret := _m.Called(ctx, key)
	return ret.Bool(0), ret.Error(1)
}

func (_m *Limiter) Remaining(ctx context.Context, key string) (int, error) {
	ret := _m.Called(ctx, key)
	return ret.Int(0), ret.Error(1)
}

func NewLimiter(t interface {
	mock.TestingT
	Cleanup(func())
}) *Limiter {
	m := &Limiter{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
