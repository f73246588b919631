package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/dtroode/accounts-server/internal/model"
)

// AccountStore is a mock type for the model.AccountStore type.
type AccountStore struct {
	mock.Mock
}

func (_m *AccountStore) Create(ctx context.Context, account model.Account) (model.Account, error) {
	ret := _m.Called(ctx, account)
	if rf, ok := ret.Get(0).(func(context.Context, model.Account) (model.Account, error)); ok {
		return rf(ctx, account)
	}
	return ret.Get(0).(model.Account), ret.Error(1)
}

func (_m *AccountStore) GetByPhone(ctx context.Context, phone string, includeDeleted bool) (model.Account, error) {
	ret := _m.Called(ctx, phone, includeDeleted)
	return ret.Get(0).(model.Account), ret.Error(1)
}

func (_m *AccountStore) GetByID(ctx context.Context, id uuid.UUID, includeDeleted bool) (model.Account, error) {
	ret := _m.Called(ctx, id, includeDeleted)
	return ret.Get(0).(model.Account), ret.Error(1)
}

func (_m *AccountStore) Update(ctx context.Context, id uuid.UUID, patch model.AccountPatch) (model.Account, error) {
	ret := _m.Called(ctx, id, patch)
	if rf, ok := ret.Get(0).(func(context.Context, uuid.UUID, model.AccountPatch) (model.Account, error)); ok {
		return rf(ctx, id, patch)
	}
	return ret.Get(0).(model.Account), ret.Error(1)
}

func (_m *AccountStore) SoftDelete(ctx context.Context, id uuid.UUID) error {
	ret := _m.Called(ctx, id)
	return ret.Error(0)
}

func (_m *AccountStore) Restore(ctx context.Context, id uuid.UUID) (model.Account, error) {
	ret := _m.Called(ctx, id)
	return ret.Get(0).(model.Account), ret.Error(1)
}

func (_m *AccountStore) HardDelete(ctx context.Context, id uuid.UUID) error {
	ret := _m.Called(ctx, id)
	return ret.Error(0)
}

func (_m *AccountStore) ListActive(ctx context.Context, page model.Page) (model.AccountList, error) {
	ret := _m.Called(ctx, page)
	return ret.Get(0).(model.AccountList), ret.Error(1)
}

func (_m *AccountStore) ListDeleted(ctx context.Context, page model.Page) (model.AccountList, error) {
	ret := _m.Called(ctx, page)
	return ret.Get(0).(model.AccountList), ret.Error(1)
}

func (_m *AccountStore) Ping(ctx context.Context) error {
	ret := _m.Called(ctx)
	return ret.Error(0)
}

// NewAccountStore creates a new instance of AccountStore. It also registers a
// cleanup function to assert the mocks expectations.
func NewAccountStore(t interface {
	mock.TestingT
	Cleanup(func())
}) *AccountStore {
	m := &AccountStore{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
