package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/dtroode/accounts-server/internal/mocks"
	"github.com/dtroode/accounts-server/internal/model"
	"github.com/dtroode/accounts-server/internal/testutil"
	"github.com/dtroode/accounts-server/internal/token"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const testPhone = "13900000001"

type accountDeps struct {
	accounts *mocks.AccountStore
	codes    *mocks.CodeStore
	sms      *mocks.SMSGateway
	hasher   *mocks.PasswordHasher
	policy   *mocks.PasswordPolicy
	avatars  *mocks.Storage
	jwt      *token.JWT
}

func newAccountService(t *testing.T, limits Limits) (*Account, accountDeps) {
	t.Helper()

	deps := accountDeps{
		accounts: mocks.NewAccountStore(t),
		codes:    mocks.NewCodeStore(t),
		sms:      mocks.NewSMSGateway(t),
		hasher:   mocks.NewPasswordHasher(t),
		policy:   mocks.NewPasswordPolicy(t),
		avatars:  mocks.NewStorage(t),
		jwt:      token.NewJWT("test-secret", time.Minute, time.Hour),
	}
	log := testutil.MakeNoopLogger()

	svc := NewAccount(
		deps.accounts, deps.codes, deps.sms, deps.hasher, deps.policy,
		NewSessions(deps.jwt, log), deps.avatars, limits,
		AccountOptions{CodeLength: 6, CodeTTL: time.Minute, AvatarMaxBytes: 1024},
		log,
	)
	return svc, deps
}

func echoCreate(_ context.Context, account model.Account) (model.Account, error) {
	account.ID = uuid.New()
	account.CreatedAt = time.Now()
	account.UpdatedAt = account.CreatedAt
	return account, nil
}

func strPtr(s string) *string { return &s }

func registerParams() model.RegisterParams {
	return model.RegisterParams{
		Phone:           "+86 13900000001",
		Username:        "alice",
		Password:        "violet-Harbor-91",
		PasswordConfirm: "violet-Harbor-91",
		Email:           strPtr(" alice@example.com "),
		Bio:             "hi",
	}
}

func TestAccount_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		svc, deps := newAccountService(t, Limits{})
		params := registerParams()
		params.Phone = "+8613900000001"

		deps.policy.On("Validate", "violet-Harbor-91", []string{testPhone, "alice", "alice@example.com"}).Return(nil)
		deps.hasher.On("Hash", "violet-Harbor-91").Return("hashed", nil)
		deps.accounts.On("Create", mock.Anything, mock.MatchedBy(func(a model.Account) bool {
			return a.Phone == testPhone && a.Username == "alice" &&
				a.Email != nil && *a.Email == "alice@example.com" &&
				a.PasswordHash != nil && *a.PasswordHash == "hashed" &&
				a.IsActive && !a.IsStaff && !a.IsDeleted
		})).Return(echoCreate, nil)

		account, err := svc.Register(ctx, params)
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, account.ID)
		assert.Equal(t, "hi", account.Bio)
	})

	t.Run("spaced country prefix", func(t *testing.T) {
		svc, deps := newAccountService(t, Limits{})
		params := registerParams()
		params.Phone = "+86 139-0000-0001"

		deps.policy.On("Validate", mock.Anything, mock.Anything).Return(nil)
		deps.hasher.On("Hash", mock.Anything).Return("hashed", nil)
		deps.accounts.On("Create", mock.Anything, mock.MatchedBy(func(a model.Account) bool {
			return a.Phone == testPhone
		})).Return(echoCreate, nil)

		account, err := svc.Register(ctx, params)
		require.NoError(t, err)
		assert.Equal(t, testPhone, account.Phone)
	})

	t.Run("confirmation mismatch", func(t *testing.T) {
		svc, _ := newAccountService(t, Limits{})
		params := registerParams()
		params.PasswordConfirm = "different"

		_, err := svc.Register(ctx, params)
		assert.Equal(t, model.KindInvalidInput, model.KindOf(err))
	})

	t.Run("weak password", func(t *testing.T) {
		svc, deps := newAccountService(t, Limits{})
		deps.policy.On("Validate", mock.Anything, mock.Anything).Return(model.NewInvalidInput("password", "password is too weak"))

		_, err := svc.Register(ctx, registerParams())
		assert.Equal(t, model.KindInvalidInput, model.KindOf(err))
	})

	t.Run("invalid phone", func(t *testing.T) {
		svc, _ := newAccountService(t, Limits{})
		params := registerParams()
		params.Phone = "12345"

		_, err := svc.Register(ctx, params)
		var domainErr *model.Error
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "phone", domainErr.Field)
	})

	t.Run("invalid email", func(t *testing.T) {
		svc, _ := newAccountService(t, Limits{})
		params := registerParams()
		params.Email = strPtr("not-an-email")

		_, err := svc.Register(ctx, params)
		assert.Equal(t, model.KindInvalidInput, model.KindOf(err))
	})

	t.Run("conflict", func(t *testing.T) {
		svc, deps := newAccountService(t, Limits{})
		deps.policy.On("Validate", mock.Anything, mock.Anything).Return(nil)
		deps.hasher.On("Hash", mock.Anything).Return("hashed", nil)
		deps.accounts.On("Create", mock.Anything, mock.Anything).Return(model.Account{}, model.NewConflict("phone", nil))

		_, err := svc.Register(ctx, registerParams())
		assert.Equal(t, model.KindConflict, model.KindOf(err))
	})

	t.Run("store timeout", func(t *testing.T) {
		svc, deps := newAccountService(t, Limits{})
		deps.policy.On("Validate", mock.Anything, mock.Anything).Return(nil)
		deps.hasher.On("Hash", mock.Anything).Return("hashed", nil)
		deps.accounts.On("Create", mock.Anything, mock.Anything).Return(model.Account{}, context.DeadlineExceeded)

		_, err := svc.Register(ctx, registerParams())
		assert.Equal(t, model.KindDependencyUnavailable, model.KindOf(err))
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestAccount_CreateAdmin(t *testing.T) {
	svc, deps := newAccountService(t, Limits{})
	deps.policy.On("Validate", mock.Anything, mock.Anything).Return(nil)
	deps.hasher.On("Hash", mock.Anything).Return("hashed", nil)
	deps.accounts.On("Create", mock.Anything, mock.MatchedBy(func(a model.Account) bool {
		return a.IsStaff && a.IsSuperuser && a.IsActive
	})).Return(echoCreate, nil)

	account, err := svc.CreateAdmin(context.Background(), registerParams())
	require.NoError(t, err)
	assert.True(t, account.IsSuperuser)
}

func TestAccount_PasswordLogin(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()
	stored := model.Account{ID: id, Phone: testPhone, Username: "alice", PasswordHash: strPtr("hashed"), IsActive: true}

	t.Run("success", func(t *testing.T) {
		svc, deps := newAccountService(t, Limits{})
		deps.accounts.On("GetByPhone", mock.Anything, testPhone, false).Return(stored, nil)
		deps.hasher.On("Verify", "secret", "hashed").Return(true)

		account, session, err := svc.PasswordLogin(ctx, testPhone, "secret")
		require.NoError(t, err)
		assert.Equal(t, id, account.ID)

		got, err := deps.jwt.ParseAccessToken(session.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, id, got)
		assert.True(t, session.RefreshExpiresAt.After(session.AccessExpiresAt))
	})

	t.Run("unknown phone", func(t *testing.T) {
		svc, deps := newAccountService(t, Limits{})
		deps.accounts.On("GetByPhone", mock.Anything, testPhone, false).Return(model.Account{}, model.ErrNotFound)

		_, _, err := svc.PasswordLogin(ctx, testPhone, "secret")
		assert.Equal(t, model.KindNotFound, model.KindOf(err))
	})

	t.Run("wrong password", func(t *testing.T) {
		svc, deps := newAccountService(t, Limits{})
		deps.accounts.On("GetByPhone", mock.Anything, testPhone, false).Return(stored, nil)
		deps.hasher.On("Verify", "wrong", "hashed").Return(false)

		_, _, err := svc.PasswordLogin(ctx, testPhone, "wrong")
		assert.Equal(t, model.KindUnauthorized, model.KindOf(err))
	})

	t.Run("no password set", func(t *testing.T) {
		svc, deps := newAccountService(t, Limits{})
		noPassword := stored
		noPassword.PasswordHash = nil
		deps.accounts.On("GetByPhone", mock.Anything, testPhone, false).Return(noPassword, nil)

		_, _, err := svc.PasswordLogin(ctx, testPhone, "anything")
		assert.Equal(t, model.KindUnauthorized, model.KindOf(err))
	})

	t.Run("inactive", func(t *testing.T) {
		svc, deps := newAccountService(t, Limits{})
		inactive := stored
		inactive.IsActive = false
		deps.accounts.On("GetByPhone", mock.Anything, testPhone, false).Return(inactive, nil)
		deps.hasher.On("Verify", "secret", "hashed").Return(true)

		_, _, err := svc.PasswordLogin(ctx, testPhone, "secret")
		assert.Equal(t, model.KindForbidden, model.KindOf(err))
	})

	t.Run("rate limited", func(t *testing.T) {
		login := mocks.NewLimiter(t)
		login.On("Allow", mock.Anything, testPhone).Return(false, nil)
		svc, _ := newAccountService(t, Limits{Login: login})

		_, _, err := svc.PasswordLogin(ctx, testPhone, "secret")
		assert.Equal(t, model.KindRateLimited, model.KindOf(err))
	})

	t.Run("limiter down lets the request through", func(t *testing.T) {
		login := mocks.NewLimiter(t)
		login.On("Allow", mock.Anything, testPhone).Return(false, errors.New("redis down"))
		svc, deps := newAccountService(t, Limits{Login: login})
		deps.accounts.On("GetByPhone", mock.Anything, testPhone, false).Return(stored, nil)
		deps.hasher.On("Verify", "secret", "hashed").Return(true)

		_, _, err := svc.PasswordLogin(ctx, testPhone, "secret")
		assert.NoError(t, err)
	})
}

func TestAccount_SendSMSCode(t *testing.T) {
	ctx := context.Background()
	code := model.OneTimeCode{Phone: testPhone, Code: "123456", ExpiresAt: time.Now().Add(time.Minute)}

	t.Run("success", func(t *testing.T) {
		send := mocks.NewLimiter(t)
		send.On("Allow", mock.Anything, testPhone).Return(true, nil)
		send.On("Remaining", mock.Anything, testPhone).Return(0, nil)
		svc, deps := newAccountService(t, Limits{SMSSend: send})
		deps.codes.On("Issue", mock.Anything, testPhone, 6, time.Minute).Return(code, nil)
		deps.sms.On("Send", mock.Anything, testPhone, "123456").Return(nil)

		dispatch, err := svc.SendSMSCode(ctx, testPhone)
		require.NoError(t, err)
		assert.Equal(t, code.ExpiresAt, dispatch.ExpiresAt)
		assert.Equal(t, 0, dispatch.Remaining)
	})

	t.Run("gateway failure", func(t *testing.T) {
		svc, deps := newAccountService(t, Limits{})
		deps.codes.On("Issue", mock.Anything, testPhone, 6, time.Minute).Return(code, nil)
		deps.sms.On("Send", mock.Anything, testPhone, "123456").Return(errors.New("provider down")).Once()

		_, err := svc.SendSMSCode(ctx, testPhone)
		assert.Equal(t, model.KindDependencyUnavailable, model.KindOf(err))
		deps.sms.AssertNumberOfCalls(t, "Send", 1)
	})

	t.Run("invalid phone", func(t *testing.T) {
		svc, _ := newAccountService(t, Limits{})

		_, err := svc.SendSMSCode(ctx, "0123")
		assert.Equal(t, model.KindInvalidInput, model.KindOf(err))
	})

	t.Run("rate limited", func(t *testing.T) {
		send := mocks.NewLimiter(t)
		send.On("Allow", mock.Anything, testPhone).Return(false, nil)
		svc, _ := newAccountService(t, Limits{SMSSend: send})

		_, err := svc.SendSMSCode(ctx, testPhone)
		assert.Equal(t, model.KindRateLimited, model.KindOf(err))
	})

	t.Run("code store down", func(t *testing.T) {
		svc, deps := newAccountService(t, Limits{})
		deps.codes.On("Issue", mock.Anything, testPhone, 6, time.Minute).Return(model.OneTimeCode{}, errors.New("dial tcp: refused"))

		_, err := svc.SendSMSCode(ctx, testPhone)
		assert.Equal(t, model.KindDependencyUnavailable, model.KindOf(err))
	})
}

func TestAccount_SMSLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("existing account", func(t *testing.T) {
		svc, deps := newAccountService(t, Limits{})
		existing := model.Account{ID: uuid.New(), Phone: testPhone, IsActive: true}
		deps.codes.On("VerifyAndConsume", mock.Anything, testPhone, "123456").Return(true, nil)
		deps.accounts.On("GetByPhone", mock.Anything, testPhone, false).Return(existing, nil)

		account, session, created, err := svc.SMSLogin(ctx, testPhone, "123456")
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, existing.ID, account.ID)
		assert.NotEmpty(t, session.RefreshToken)
	})

	t.Run("first login registers the phone", func(t *testing.T) {
		svc, deps := newAccountService(t, Limits{})
		deps.codes.On("VerifyAndConsume", mock.Anything, testPhone, "123456").Return(true, nil)
		deps.accounts.On("GetByPhone", mock.Anything, testPhone, false).Return(model.Account{}, model.ErrNotFound).Once()
		deps.accounts.On("Create", mock.Anything, mock.MatchedBy(func(a model.Account) bool {
			return a.Phone == testPhone && strings.HasPrefix(a.Username, "user_") && a.PasswordHash == nil && a.IsActive
		})).Return(echoCreate, nil)

		account, session, created, err := svc.SMSLogin(ctx, testPhone, "123456")
		require.NoError(t, err)
		assert.True(t, created)
		assert.False(t, account.HasPassword())

		got, err := svc.Authenticate(ctx, session.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, account.ID, got)

		// password login stays unavailable until a password is set
		deps.accounts.On("GetByPhone", mock.Anything, testPhone, false).Return(account, nil)
		_, _, err = svc.PasswordLogin(ctx, testPhone, "anything")
		assert.Equal(t, model.KindUnauthorized, model.KindOf(err))
	})

	t.Run("concurrent first login converges", func(t *testing.T) {
		svc, deps := newAccountService(t, Limits{})
		winner := model.Account{ID: uuid.New(), Phone: testPhone, IsActive: true}
		deps.codes.On("VerifyAndConsume", mock.Anything, testPhone, "123456").Return(true, nil)
		deps.accounts.On("GetByPhone", mock.Anything, testPhone, false).Return(model.Account{}, model.ErrNotFound).Once()
		deps.accounts.On("Create", mock.Anything, mock.Anything).Return(model.Account{}, model.NewConflict("phone", nil)).Once()
		deps.accounts.On("GetByPhone", mock.Anything, testPhone, false).Return(winner, nil).Once()

		account, _, created, err := svc.SMSLogin(ctx, testPhone, "123456")
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, winner.ID, account.ID)
	})

	t.Run("placeholder collision retries", func(t *testing.T) {
		svc, deps := newAccountService(t, Limits{})
		deps.codes.On("VerifyAndConsume", mock.Anything, testPhone, "123456").Return(true, nil)
		deps.accounts.On("GetByPhone", mock.Anything, testPhone, false).Return(model.Account{}, model.ErrNotFound).Once()
		deps.accounts.On("Create", mock.Anything, mock.Anything).Return(model.Account{}, model.NewConflict("username", nil)).Once()
		deps.accounts.On("Create", mock.Anything, mock.Anything).Return(echoCreate, nil).Once()

		_, _, created, err := svc.SMSLogin(ctx, testPhone, "123456")
		require.NoError(t, err)
		assert.True(t, created)
	})

	t.Run("bad code", func(t *testing.T) {
		svc, deps := newAccountService(t, Limits{})
		deps.codes.On("VerifyAndConsume", mock.Anything, testPhone, "000000").Return(false, nil)

		_, _, _, err := svc.SMSLogin(ctx, testPhone, "000000")
		assert.Equal(t, model.KindUnauthorized, model.KindOf(err))
	})

	t.Run("malformed code", func(t *testing.T) {
		svc, _ := newAccountService(t, Limits{})

		_, _, _, err := svc.SMSLogin(ctx, testPhone, "12ab")
		assert.Equal(t, model.KindInvalidInput, model.KindOf(err))
	})

	t.Run("verify attempts limited", func(t *testing.T) {
		verify := mocks.NewLimiter(t)
		verify.On("Allow", mock.Anything, testPhone).Return(false, nil)
		svc, _ := newAccountService(t, Limits{SMSVerify: verify})

		_, _, _, err := svc.SMSLogin(ctx, testPhone, "123456")
		assert.Equal(t, model.KindRateLimited, model.KindOf(err))
	})

	t.Run("inactive account", func(t *testing.T) {
		svc, deps := newAccountService(t, Limits{})
		deps.codes.On("VerifyAndConsume", mock.Anything, testPhone, "123456").Return(true, nil)
		deps.accounts.On("GetByPhone", mock.Anything, testPhone, false).Return(model.Account{ID: uuid.New(), IsActive: false}, nil)

		_, _, _, err := svc.SMSLogin(ctx, testPhone, "123456")
		assert.Equal(t, model.KindForbidden, model.KindOf(err))
	})
}

func TestAccount_ChangePassword(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()
	stored := model.Account{ID: id, Phone: testPhone, Username: "alice", PasswordHash: strPtr("old-hash"), IsActive: true}
	params := model.ChangePasswordParams{OldPassword: "old", NewPassword: "violet-Harbor-91", NewPasswordConfirm: "violet-Harbor-91"}

	t.Run("success", func(t *testing.T) {
		svc, deps := newAccountService(t, Limits{})
		deps.accounts.On("GetByID", mock.Anything, id, false).Return(stored, nil)
		deps.hasher.On("Verify", "old", "old-hash").Return(true)
		deps.policy.On("Validate", "violet-Harbor-91", []string{testPhone, "alice"}).Return(nil)
		deps.hasher.On("Hash", "violet-Harbor-91").Return("new-hash", nil)
		deps.accounts.On("Update", mock.Anything, id, model.AccountPatch{PasswordHash: strPtr("new-hash")}).Return(stored, nil)

		require.NoError(t, svc.ChangePassword(ctx, id, params))
	})

	t.Run("wrong old password leaves hash unchanged", func(t *testing.T) {
		svc, deps := newAccountService(t, Limits{})
		deps.accounts.On("GetByID", mock.Anything, id, false).Return(stored, nil)
		deps.hasher.On("Verify", "old", "old-hash").Return(false)

		err := svc.ChangePassword(ctx, id, params)
		assert.Equal(t, model.KindUnauthorized, model.KindOf(err))
		deps.accounts.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("first password ignores old", func(t *testing.T) {
		svc, deps := newAccountService(t, Limits{})
		noPassword := stored
		noPassword.PasswordHash = nil
		deps.accounts.On("GetByID", mock.Anything, id, false).Return(noPassword, nil)
		deps.policy.On("Validate", mock.Anything, mock.Anything).Return(nil)
		deps.hasher.On("Hash", "violet-Harbor-91").Return("new-hash", nil)
		deps.accounts.On("Update", mock.Anything, id, mock.Anything).Return(stored, nil)

		require.NoError(t, svc.ChangePassword(ctx, id, model.ChangePasswordParams{
			NewPassword:        "violet-Harbor-91",
			NewPasswordConfirm: "violet-Harbor-91",
		}))
	})

	t.Run("confirmation mismatch", func(t *testing.T) {
		svc, deps := newAccountService(t, Limits{})
		deps.accounts.On("GetByID", mock.Anything, id, false).Return(stored, nil)

		err := svc.ChangePassword(ctx, id, model.ChangePasswordParams{OldPassword: "old", NewPassword: "a", NewPasswordConfirm: "b"})
		assert.Equal(t, model.KindInvalidInput, model.KindOf(err))
	})

	t.Run("deleted account", func(t *testing.T) {
		svc, deps := newAccountService(t, Limits{})
		deps.accounts.On("GetByID", mock.Anything, id, false).Return(model.Account{}, model.ErrNotFound)

		err := svc.ChangePassword(ctx, id, params)
		assert.ErrorIs(t, err, model.ErrNotFound)
	})
}

func TestAccount_UpdateProfile(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()

	t.Run("normalizes phone", func(t *testing.T) {
		svc, deps := newAccountService(t, Limits{})
		deps.accounts.On("Update", mock.Anything, id, model.AccountPatch{
			Phone: strPtr("13900000002"),
			Bio:   strPtr("new bio"),
		}).Return(model.Account{ID: id, Phone: "13900000002", Bio: "new bio"}, nil)

		account, err := svc.UpdateProfile(ctx, id, model.ProfilePatch{Phone: strPtr("+8613900000002"), Bio: strPtr("new bio")})
		require.NoError(t, err)
		assert.Equal(t, "13900000002", account.Phone)
	})

	t.Run("invalid username", func(t *testing.T) {
		svc, _ := newAccountService(t, Limits{})

		_, err := svc.UpdateProfile(ctx, id, model.ProfilePatch{Username: strPtr("has space")})
		assert.Equal(t, model.KindInvalidInput, model.KindOf(err))
	})

	t.Run("conflict", func(t *testing.T) {
		svc, deps := newAccountService(t, Limits{})
		deps.accounts.On("Update", mock.Anything, id, mock.Anything).Return(model.Account{}, model.NewConflict("username", nil))

		_, err := svc.UpdateProfile(ctx, id, model.ProfilePatch{Username: strPtr("taken")})
		assert.Equal(t, model.KindConflict, model.KindOf(err))
	})
}

func TestAccount_DeleteAndRestore(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()

	t.Run("soft delete", func(t *testing.T) {
		svc, deps := newAccountService(t, Limits{})
		deps.accounts.On("SoftDelete", mock.Anything, id).Return(nil)

		assert.NoError(t, svc.SoftDelete(ctx, id))
	})

	t.Run("restore not deleted", func(t *testing.T) {
		svc, deps := newAccountService(t, Limits{})
		deps.accounts.On("Restore", mock.Anything, id).Return(model.Account{}, model.ErrNotFound)

		_, err := svc.Restore(ctx, id)
		assert.Equal(t, model.KindNotFound, model.KindOf(err))
	})

	t.Run("restore conflict", func(t *testing.T) {
		svc, deps := newAccountService(t, Limits{})
		deps.accounts.On("Restore", mock.Anything, id).Return(model.Account{}, model.NewConflict("phone", nil))

		_, err := svc.Restore(ctx, id)
		assert.Equal(t, model.KindConflict, model.KindOf(err))
	})

	t.Run("hard delete removes avatar", func(t *testing.T) {
		svc, deps := newAccountService(t, Limits{})
		deps.accounts.On("GetByID", mock.Anything, id, true).Return(model.Account{ID: id, AvatarRef: "accounts/x.png"}, nil)
		deps.accounts.On("HardDelete", mock.Anything, id).Return(nil)
		deps.avatars.On("Delete", mock.Anything, "accounts/x.png").Return(errors.New("ignored"))

		assert.NoError(t, svc.HardDelete(ctx, id))
	})

	t.Run("hard delete missing", func(t *testing.T) {
		svc, deps := newAccountService(t, Limits{})
		deps.accounts.On("GetByID", mock.Anything, id, true).Return(model.Account{}, model.ErrNotFound)

		assert.ErrorIs(t, svc.HardDelete(ctx, id), model.ErrNotFound)
	})
}

func TestAccount_Lists(t *testing.T) {
	ctx := context.Background()
	svc, deps := newAccountService(t, Limits{})

	deps.accounts.On("ListDeleted", mock.Anything, model.Page{Number: 1, Size: model.MaxPageSize}).
		Return(model.AccountList{Total: 1, Items: []model.Account{{ID: uuid.New()}}}, nil)
	deps.accounts.On("ListActive", mock.Anything, model.Page{Number: 2, Size: model.DefaultPageSize}).
		Return(model.AccountList{}, errors.New("timeout"))

	list, err := svc.ListDeleted(ctx, model.Page{Number: 0, Size: 1000})
	require.NoError(t, err)
	assert.Equal(t, 1, list.Total)

	_, err = svc.ListActive(ctx, model.Page{Number: 2})
	assert.Equal(t, model.KindDependencyUnavailable, model.KindOf(err))
}

func TestAccount_UploadAvatar(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()

	t.Run("replaces previous avatar", func(t *testing.T) {
		svc, deps := newAccountService(t, Limits{})
		body := bytes.NewReader([]byte("png"))
		deps.accounts.On("GetByID", mock.Anything, id, false).Return(model.Account{ID: id, AvatarRef: "old.png"}, nil)
		deps.avatars.On("Upload", mock.Anything, mock.MatchedBy(func(key string) bool {
			return strings.HasPrefix(key, "accounts/"+id.String()+"/") && strings.HasSuffix(key, ".png")
		}), body, int64(3), "image/png").Return(nil)
		deps.accounts.On("Update", mock.Anything, id, mock.MatchedBy(func(p model.AccountPatch) bool {
			return p.AvatarRef != nil && strings.HasSuffix(*p.AvatarRef, ".png")
		})).Return(func(_ context.Context, _ uuid.UUID, p model.AccountPatch) (model.Account, error) {
			return model.Account{ID: id, AvatarRef: *p.AvatarRef}, nil
		}, nil)
		deps.avatars.On("Delete", mock.Anything, "old.png").Return(nil)

		account, err := svc.UploadAvatar(ctx, id, model.Avatar{Reader: body, Size: 3, ContentType: "image/png"})
		require.NoError(t, err)
		assert.NotEqual(t, "old.png", account.AvatarRef)
	})

	t.Run("rejects content type", func(t *testing.T) {
		svc, _ := newAccountService(t, Limits{})

		_, err := svc.UploadAvatar(ctx, id, model.Avatar{Reader: bytes.NewReader(nil), ContentType: "text/plain"})
		assert.Equal(t, model.KindInvalidInput, model.KindOf(err))
	})

	t.Run("rejects large file", func(t *testing.T) {
		svc, _ := newAccountService(t, Limits{})

		_, err := svc.UploadAvatar(ctx, id, model.Avatar{Reader: bytes.NewReader(nil), Size: 4096, ContentType: "image/png"})
		assert.Equal(t, model.KindInvalidInput, model.KindOf(err))
	})
}

func TestAccount_OpenAvatar(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()

	t.Run("streams object", func(t *testing.T) {
		svc, deps := newAccountService(t, Limits{})
		deps.accounts.On("GetByID", mock.Anything, id, false).Return(model.Account{ID: id, AvatarRef: "a.png"}, nil)
		deps.avatars.On("Download", mock.Anything, "a.png").Return(model.Object{
			Body:        io.NopCloser(strings.NewReader("png")),
			Size:        3,
			ContentType: "image/png",
		}, nil)

		obj, err := svc.OpenAvatar(ctx, id)
		require.NoError(t, err)
		defer obj.Body.Close()
		assert.Equal(t, "image/png", obj.ContentType)
	})

	t.Run("no avatar", func(t *testing.T) {
		svc, deps := newAccountService(t, Limits{})
		deps.accounts.On("GetByID", mock.Anything, id, false).Return(model.Account{ID: id}, nil)

		_, err := svc.OpenAvatar(ctx, id)
		assert.Equal(t, model.KindNotFound, model.KindOf(err))
	})
}

func TestAccount_Health(t *testing.T) {
	ctx := context.Background()

	svc, deps := newAccountService(t, Limits{})
	deps.accounts.On("Ping", mock.Anything).Return(nil)
	deps.codes.On("Ping", mock.Anything).Return(nil).Once()
	require.NoError(t, svc.Health(ctx))

	deps.codes.On("Ping", mock.Anything).Return(errors.New("down")).Once()
	assert.Equal(t, model.KindDependencyUnavailable, model.KindOf(svc.Health(ctx)))
}
