package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/dtroode/accounts-server/internal/model"
)

// AccountService is a mock type for the handler.AccountService type.
type AccountService struct {
	mock.Mock
}

func (_m *AccountService) Register(ctx context.Context, params model.RegisterParams) (model.Account, error) {
	ret := _m.Called(ctx, params)
	return ret.Get(0).(model.Account), ret.Error(1)
}

func (_m *AccountService) PasswordLogin(ctx context.Context, phone, password string) (model.Account, model.Session, error) {
	ret := _m.Called(ctx, phone, password)
	return ret.Get(0).(model.Account), ret.Get(1).(model.Session), ret.Error(2)
}

func (_m *AccountService) SendSMSCode(ctx context.Context, phone string) (model.SMSDispatch, error) {
	ret := _m.Called(ctx, phone)
	return ret.Get(0).(model.SMSDispatch), ret.Error(1)
}

func (_m *AccountService) SMSLogin(ctx context.Context, phone, code string) (model.Account, model.Session, bool, error) {
	ret := _m.Called(ctx, phone, code)
	return ret.Get(0).(model.Account), ret.Get(1).(model.Session), ret.Bool(2), ret.Error(3)
}

func (_m *AccountService) Refresh(ctx context.Context, refreshToken string) (string, time.Time, error) {
	ret := _m.Called(ctx, refreshToken)
	return ret.String(0), ret.Get(1).(time.Time), ret.Error(2)
}

func (_m *AccountService) ChangePassword(ctx context.Context, id uuid.UUID, params model.ChangePasswordParams) error {
	ret := _m.Called(ctx, id, params)
	return ret.Error(0)
}

func (_m *AccountService) UpdateProfile(ctx context.Context, id uuid.UUID, patch model.ProfilePatch) (model.Account, error) {
	ret := _m.Called(ctx, id, patch)
	return ret.Get(0).(model.Account), ret.Error(1)
}

func (_m *AccountService) Get(ctx context.Context, id uuid.UUID, includeDeleted bool) (model.Account, error) {
	ret := _m.Called(ctx, id, includeDeleted)
	return ret.Get(0).(model.Account), ret.Error(1)
}

func (_m *AccountService) SoftDelete(ctx context.Context, id uuid.UUID) error {
	ret := _m.Called(ctx, id)
	return ret.Error(0)
}

func (_m *AccountService) Restore(ctx context.Context, id uuid.UUID) (model.Account, error) {
	ret := _m.Called(ctx, id)
	return ret.Get(0).(model.Account), ret.Error(1)
}

func (_m *AccountService) HardDelete(ctx context.Context, id uuid.UUID) error {
	ret := _m.Called(ctx, id)
	return ret.Error(0)
}

func (_m *AccountService) ListActive(ctx context.Context, page model.Page) (model.AccountList, error) {
	ret := _m.Called(ctx, page)
	return ret.Get(0).(model.AccountList), ret.Error(1)
}

func (_m *AccountService) ListDeleted(ctx context.Context, page model.Page) (model.AccountList, error) {
	ret := _m.Called(ctx, page)
	return ret.Get(0).(model.AccountList), ret.Error(1)
}

func (_m *AccountService) UploadAvatar(ctx context.Context, id uuid.UUID, avatar model.Avatar) (model.Account, error) {
	ret := _m.Called(ctx, id, avatar)
	return ret.Get(0).(model.Account), ret.Error(1)
}

func (_m *AccountService) OpenAvatar(ctx context.Context, id uuid.UUID) (model.Object, error) {
	ret := _m.Called(ctx, id)
	return ret.Get(0).(model.Object), ret.Error(1)
}

func (_m *AccountService) Health(ctx context.Context) error {
	ret := _m.Called(ctx)
	return ret.Error(0)
}

// NewAccountService creates a new instance of AccountService. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
func NewAccountService(t interface {
	mock.TestingT
	Cleanup(func())
}) *AccountService {
	m := &AccountService{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
