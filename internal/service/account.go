package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/accounts-server/internal/logger"
	"github.com/dtroode/accounts-server/internal/metrics"
	"github.com/dtroode/accounts-server/internal/model"
	"github.com/dtroode/accounts-server/internal/security"
)

const (
	DefaultCodeLength     = 6
	DefaultCodeTTL        = 5 * time.Minute
	DefaultAvatarMaxBytes = 2 << 20

	placeholderAttempts = 3
)

var avatarContentTypes = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/gif":  "gif",
	"image/webp": "webp",
}

// Limits are the advisory per-phone limiters for authentication flows.
// A nil limiter disables that limit.
type Limits struct {
	SMSSend   model.Limiter
	SMSVerify model.Limiter
	Login     model.Limiter
}

// AccountOptions tunes one-time codes and avatars.
type AccountOptions struct {
	CodeLength     int
	CodeTTL        time.Duration
	AvatarMaxBytes int64
}

// Account orchestrates the account lifecycle and both login paths.
type Account struct {
	accounts model.AccountStore
	codes    model.CodeStore
	sms      model.SMSGateway
	hasher   model.PasswordHasher
	policy   model.PasswordPolicy
	sessions *Sessions
	avatars  model.Storage
	limits   Limits
	opts     AccountOptions
	logger   *logger.Logger
}

func NewAccount(
	accounts model.AccountStore,
	codes model.CodeStore,
	sms model.SMSGateway,
	hasher model.PasswordHasher,
	policy model.PasswordPolicy,
	sessions *Sessions,
	avatars model.Storage,
	limits Limits,
	opts AccountOptions,
	logger *logger.Logger,
) *Account {
	if opts.CodeLength <= 0 {
		opts.CodeLength = DefaultCodeLength
	}
	if opts.CodeTTL <= 0 {
		opts.CodeTTL = DefaultCodeTTL
	}
	if opts.AvatarMaxBytes <= 0 {
		opts.AvatarMaxBytes = DefaultAvatarMaxBytes
	}
	return &Account{
		accounts: accounts,
		codes:    codes,
		sms:      sms,
		hasher:   hasher,
		policy:   policy,
		sessions: sessions,
		avatars:  avatars,
		limits:   limits,
		opts:     opts,
		logger:   logger,
	}
}

// Register creates an active account with a password.
func (a *Account) Register(ctx context.Context, params model.RegisterParams) (model.Account, error) {
	account, err := a.register(ctx, params, false)
	metrics.AuthRegistrationsTotal.WithLabelValues(metrics.Result(err)).Inc()
	return account, err
}

// CreateAdmin creates an active staff superuser with a password.
func (a *Account) CreateAdmin(ctx context.Context, params model.RegisterParams) (model.Account, error) {
	return a.register(ctx, params, true)
}

func (a *Account) register(ctx context.Context, params model.RegisterParams, admin bool) (model.Account, error) {
	phone := model.NormalizePhone(params.Phone)

	a.logger.DebugContext(ctx, "Account service: registering account", "phone", phone)

	if err := model.ValidatePhone(phone); err != nil {
		return model.Account{}, err
	}
	if err := model.ValidateUsername(params.Username); err != nil {
		return model.Account{}, err
	}
	email, err := normalizeEmail(params.Email)
	if err != nil {
		return model.Account{}, err
	}
	if err := model.ValidateBio(params.Bio); err != nil {
		return model.Account{}, err
	}
	if params.Password != params.PasswordConfirm {
		return model.Account{}, model.NewInvalidInput("password_confirm", "passwords do not match")
	}

	inputs := []string{phone, params.Username}
	if email != nil {
		inputs = append(inputs, *email)
	}
	if err := a.policy.Validate(params.Password, inputs...); err != nil {
		return model.Account{}, err
	}

	hash, err := a.hasher.Hash(params.Password)
	if err != nil {
		a.logger.ErrorContext(ctx, "Account service: failed to hash password", "error", err.Error())
		return model.Account{}, fmt.Errorf("failed to hash password: %w", err)
	}

	account, err := a.accounts.Create(ctx, model.Account{
		Phone:        phone,
		Username:     params.Username,
		Email:        email,
		PasswordHash: &hash,
		IsActive:     true,
		IsStaff:      admin,
		IsSuperuser:  admin,
		Bio:          params.Bio,
	})
	if err != nil {
		if model.IsKind(err, model.KindConflict) {
			a.logger.InfoContext(ctx, "Account service: registration conflict",
				"phone", phone,
				"error", err.Error())
			return model.Account{}, err
		}
		a.logger.ErrorContext(ctx, "Account service: failed to create account",
			"phone", phone,
			"error", err.Error())
		return model.Account{}, classify("failed to create account", err)
	}

	a.logger.InfoContext(ctx, "Account service: account registered",
		"account_id", account.ID,
		"admin", admin)

	return account, nil
}

// PasswordLogin authenticates by phone and password.
func (a *Account) PasswordLogin(ctx context.Context, phone, password string) (model.Account, model.Session, error) {
	account, session, err := a.passwordLogin(ctx, model.NormalizePhone(phone), password)
	metrics.AuthLoginsTotal.WithLabelValues("password", metrics.Result(err)).Inc()
	return account, session, err
}

func (a *Account) passwordLogin(ctx context.Context, phone, password string) (model.Account, model.Session, error) {
	if err := model.ValidatePhone(phone); err != nil {
		return model.Account{}, model.Session{}, err
	}
	if err := a.allow(ctx, a.limits.Login, phone, "too many login attempts, try again later"); err != nil {
		return model.Account{}, model.Session{}, err
	}

	account, err := a.accounts.GetByPhone(ctx, phone, false)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.Account{}, model.Session{}, model.ErrNotFound
		}
		a.logger.ErrorContext(ctx, "Account service: failed to get account by phone",
			"phone", phone,
			"error", err.Error())
		return model.Account{}, model.Session{}, classify("failed to get account", err)
	}

	if !account.HasPassword() || !a.hasher.Verify(password, *account.PasswordHash) {
		a.logger.InfoContext(ctx, "Account service: password mismatch", "account_id", account.ID)
		return model.Account{}, model.Session{}, model.NewUnauthorized("invalid phone or password")
	}
	if !account.IsActive {
		return model.Account{}, model.Session{}, model.NewForbidden("account is disabled")
	}

	session, err := a.sessions.Issue(ctx, account.ID)
	if err != nil {
		return model.Account{}, model.Session{}, err
	}

	a.logger.InfoContext(ctx, "Account service: password login", "account_id", account.ID)

	return account, session, nil
}

// SendSMSCode issues a fresh code for phone and dispatches it once. A failed
// dispatch leaves the code stored; the next call supersedes it.
func (a *Account) SendSMSCode(ctx context.Context, phone string) (model.SMSDispatch, error) {
	dispatch, err := a.sendSMSCode(ctx, model.NormalizePhone(phone))
	metrics.SMSSentTotal.WithLabelValues(metrics.Result(err)).Inc()
	return dispatch, err
}

func (a *Account) sendSMSCode(ctx context.Context, phone string) (model.SMSDispatch, error) {
	if err := model.ValidatePhone(phone); err != nil {
		return model.SMSDispatch{}, err
	}
	if err := a.allow(ctx, a.limits.SMSSend, phone, "code requested too often, try again later"); err != nil {
		return model.SMSDispatch{}, err
	}

	code, err := a.codes.Issue(ctx, phone, a.opts.CodeLength, a.opts.CodeTTL)
	if err != nil {
		a.logger.ErrorContext(ctx, "Account service: failed to issue code",
			"phone", phone,
			"error", err.Error())
		return model.SMSDispatch{}, classify("failed to issue code", err)
	}

	if err := a.sms.Send(ctx, phone, code.Code); err != nil {
		a.logger.ErrorContext(ctx, "Account service: failed to dispatch code",
			"phone", phone,
			"error", err.Error())
		return model.SMSDispatch{}, model.NewDependencyUnavailable("failed to send SMS", err)
	}

	a.logger.InfoContext(ctx, "Account service: code dispatched", "phone", phone)

	return model.SMSDispatch{ExpiresAt: code.ExpiresAt, Remaining: a.remaining(ctx, a.limits.SMSSend, phone)}, nil
}

// SMSLogin authenticates by phone and one-time code. The first login for an
// unknown phone creates an account without a password; created reports that.
func (a *Account) SMSLogin(ctx context.Context, phone, code string) (model.Account, model.Session, bool, error) {
	account, session, created, err := a.smsLogin(ctx, model.NormalizePhone(phone), strings.TrimSpace(code))
	metrics.AuthLoginsTotal.WithLabelValues("sms", metrics.Result(err)).Inc()
	if created {
		metrics.AuthRegistrationsTotal.WithLabelValues(metrics.ResultSuccess).Inc()
	}
	return account, session, created, err
}

func (a *Account) smsLogin(ctx context.Context, phone, code string) (model.Account, model.Session, bool, error) {
	if err := model.ValidatePhone(phone); err != nil {
		return model.Account{}, model.Session{}, false, err
	}
	if err := model.ValidateCode(code, a.opts.CodeLength); err != nil {
		return model.Account{}, model.Session{}, false, err
	}
	if err := a.allow(ctx, a.limits.SMSVerify, phone, "too many code attempts, try again later"); err != nil {
		return model.Account{}, model.Session{}, false, err
	}

	ok, err := a.codes.VerifyAndConsume(ctx, phone, code)
	if err != nil {
		a.logger.ErrorContext(ctx, "Account service: failed to verify code",
			"phone", phone,
			"error", err.Error())
		return model.Account{}, model.Session{}, false, classify("failed to verify code", err)
	}
	if !ok {
		a.logger.InfoContext(ctx, "Account service: code rejected", "phone", phone)
		return model.Account{}, model.Session{}, false, model.NewUnauthorized("invalid or expired code")
	}

	account, created, err := a.findOrCreateByPhone(ctx, phone)
	if err != nil {
		return model.Account{}, model.Session{}, false, err
	}
	if !account.IsActive {
		return model.Account{}, model.Session{}, created, model.NewForbidden("account is disabled")
	}

	session, err := a.sessions.Issue(ctx, account.ID)
	if err != nil {
		return model.Account{}, model.Session{}, created, err
	}

	a.logger.InfoContext(ctx, "Account service: sms login",
		"account_id", account.ID,
		"created", created)

	return account, session, created, nil
}

// findOrCreateByPhone converges concurrent first logins on one account: a
// phone conflict on create means another request won, so re-read.
func (a *Account) findOrCreateByPhone(ctx context.Context, phone string) (model.Account, bool, error) {
	account, err := a.accounts.GetByPhone(ctx, phone, false)
	if err == nil {
		return account, false, nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		a.logger.ErrorContext(ctx, "Account service: failed to get account by phone",
			"phone", phone,
			"error", err.Error())
		return model.Account{}, false, classify("failed to get account", err)
	}

	for attempt := 0; attempt < placeholderAttempts; attempt++ {
		username, err := security.PlaceholderUsername()
		if err != nil {
			return model.Account{}, false, fmt.Errorf("failed to generate username: %w", err)
		}

		account, err = a.accounts.Create(ctx, model.Account{
			Phone:    phone,
			Username: username,
			IsActive: true,
		})
		if err == nil {
			a.logger.InfoContext(ctx, "Account service: account created on first sms login",
				"account_id", account.ID)
			return account, true, nil
		}

		var domainErr *model.Error
		if !errors.As(err, &domainErr) || domainErr.Kind != model.KindConflict {
			a.logger.ErrorContext(ctx, "Account service: failed to create account",
				"phone", phone,
				"error", err.Error())
			return model.Account{}, false, classify("failed to create account", err)
		}
		if domainErr.Field == "phone" {
			account, err = a.accounts.GetByPhone(ctx, phone, false)
			if err != nil {
				return model.Account{}, false, classify("failed to get account", err)
			}
			return account, false, nil
		}
		// placeholder username collision, draw another
	}

	return model.Account{}, false, fmt.Errorf("failed to allocate a username after %d attempts", placeholderAttempts)
}

// Refresh exchanges a refresh token for a new access token.
func (a *Account) Refresh(ctx context.Context, refreshToken string) (string, time.Time, error) {
	return a.sessions.Refresh(ctx, refreshToken)
}

// Authenticate resolves an access token to an account id.
func (a *Account) Authenticate(ctx context.Context, accessToken string) (uuid.UUID, error) {
	return a.sessions.Validate(ctx, accessToken)
}

// ChangePassword sets a new password. Accounts without a password, such as
// those created by SMS login, set their first one without oldPassword.
func (a *Account) ChangePassword(ctx context.Context, id uuid.UUID, params model.ChangePasswordParams) error {
	account, err := a.Get(ctx, id, false)
	if err != nil {
		return err
	}

	if params.NewPassword != params.NewPasswordConfirm {
		return model.NewInvalidInput("new_password_confirm", "passwords do not match")
	}
	if account.HasPassword() && !a.hasher.Verify(params.OldPassword, *account.PasswordHash) {
		a.logger.InfoContext(ctx, "Account service: old password mismatch", "account_id", id)
		return model.NewUnauthorized("old password is incorrect")
	}

	inputs := []string{account.Phone, account.Username}
	if account.Email != nil {
		inputs = append(inputs, *account.Email)
	}
	if err := a.policy.Validate(params.NewPassword, inputs...); err != nil {
		return err
	}

	hash, err := a.hasher.Hash(params.NewPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if _, err := a.accounts.Update(ctx, id, model.AccountPatch{PasswordHash: &hash}); err != nil {
		a.logger.ErrorContext(ctx, "Account service: failed to store password",
			"account_id", id,
			"error", err.Error())
		return classify("failed to store password", err)
	}

	a.logger.InfoContext(ctx, "Account service: password changed", "account_id", id)

	return nil
}

// UpdateProfile changes username, phone or bio. Credentials and flags are
// not reachable from here.
func (a *Account) UpdateProfile(ctx context.Context, id uuid.UUID, patch model.ProfilePatch) (model.Account, error) {
	var p model.AccountPatch

	if patch.Username != nil {
		if err := model.ValidateUsername(*patch.Username); err != nil {
			return model.Account{}, err
		}
		p.Username = patch.Username
	}
	if patch.Phone != nil {
		phone := model.NormalizePhone(*patch.Phone)
		if err := model.ValidatePhone(phone); err != nil {
			return model.Account{}, err
		}
		p.Phone = &phone
	}
	if patch.Bio != nil {
		if err := model.ValidateBio(*patch.Bio); err != nil {
			return model.Account{}, err
		}
		p.Bio = patch.Bio
	}

	account, err := a.accounts.Update(ctx, id, p)
	if err != nil {
		if model.KindOf(err) == model.KindInternal {
			a.logger.ErrorContext(ctx, "Account service: failed to update profile",
				"account_id", id,
				"error", err.Error())
		}
		return model.Account{}, classify("failed to update profile", err)
	}

	a.logger.InfoContext(ctx, "Account service: profile updated", "account_id", id)

	return account, nil
}

// Get returns an account, hiding soft-deleted ones unless includeDeleted.
func (a *Account) Get(ctx context.Context, id uuid.UUID, includeDeleted bool) (model.Account, error) {
	account, err := a.accounts.GetByID(ctx, id, includeDeleted)
	if err != nil {
		return model.Account{}, classify("failed to get account", err)
	}
	return account, nil
}

// SoftDelete hides an account and frees its identifiers. Repeated calls succeed.
func (a *Account) SoftDelete(ctx context.Context, id uuid.UUID) error {
	if err := a.accounts.SoftDelete(ctx, id); err != nil {
		return classify("failed to delete account", err)
	}
	a.logger.InfoContext(ctx, "Account service: account soft-deleted", "account_id", id)
	return nil
}

// Restore brings back a soft-deleted account. It conflicts when one of the
// account's identifiers was reclaimed meanwhile.
func (a *Account) Restore(ctx context.Context, id uuid.UUID) (model.Account, error) {
	account, err := a.accounts.Restore(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.Account{}, model.NewNotFound("no deleted account with this id")
		}
		return model.Account{}, classify("failed to restore account", err)
	}
	a.logger.InfoContext(ctx, "Account service: account restored", "account_id", id)
	return account, nil
}

// HardDelete removes the account permanently, then its avatar best-effort.
func (a *Account) HardDelete(ctx context.Context, id uuid.UUID) error {
	account, err := a.accounts.GetByID(ctx, id, true)
	if err != nil {
		return classify("failed to get account", err)
	}

	if err := a.accounts.HardDelete(ctx, id); err != nil {
		return classify("failed to delete account", err)
	}

	if account.AvatarRef != "" && a.avatars != nil {
		if err := a.avatars.Delete(ctx, account.AvatarRef); err != nil {
			a.logger.WarnContext(ctx, "Account service: failed to delete avatar",
				"account_id", id,
				"error", err.Error())
		}
	}

	a.logger.InfoContext(ctx, "Account service: account hard-deleted", "account_id", id)
	return nil
}

func (a *Account) ListActive(ctx context.Context, page model.Page) (model.AccountList, error) {
	list, err := a.accounts.ListActive(ctx, page.Normalize())
	if err != nil {
		return model.AccountList{}, classify("failed to list accounts", err)
	}
	return list, nil
}

func (a *Account) ListDeleted(ctx context.Context, page model.Page) (model.AccountList, error) {
	list, err := a.accounts.ListDeleted(ctx, page.Normalize())
	if err != nil {
		return model.AccountList{}, classify("failed to list deleted accounts", err)
	}
	return list, nil
}

// UploadAvatar stores a new avatar and points the account at it. The previous
// object is removed best-effort.
func (a *Account) UploadAvatar(ctx context.Context, id uuid.UUID, avatar model.Avatar) (model.Account, error) {
	if a.avatars == nil {
		return model.Account{}, model.NewDependencyUnavailable("avatar storage is not configured", nil)
	}

	ext, ok := avatarContentTypes[avatar.ContentType]
	if !ok {
		return model.Account{}, model.NewInvalidInput("avatar", "avatar must be a JPEG, PNG, GIF or WebP image")
	}
	if avatar.Size > a.opts.AvatarMaxBytes {
		return model.Account{}, model.NewInvalidInput("avatar", fmt.Sprintf("avatar must be at most %d bytes", a.opts.AvatarMaxBytes))
	}

	current, err := a.Get(ctx, id, false)
	if err != nil {
		return model.Account{}, err
	}

	key := fmt.Sprintf("accounts/%s/%s.%s", id, uuid.NewString(), ext)
	if err := a.avatars.Upload(ctx, key, avatar.Reader, avatar.Size, avatar.ContentType); err != nil {
		a.logger.ErrorContext(ctx, "Account service: failed to upload avatar",
			"account_id", id,
			"error", err.Error())
		return model.Account{}, model.NewDependencyUnavailable("failed to store avatar", err)
	}

	account, err := a.accounts.Update(ctx, id, model.AccountPatch{AvatarRef: &key})
	if err != nil {
		_ = a.avatars.Delete(ctx, key)
		return model.Account{}, classify("failed to update avatar", err)
	}

	if current.AvatarRef != "" {
		if err := a.avatars.Delete(ctx, current.AvatarRef); err != nil {
			a.logger.WarnContext(ctx, "Account service: failed to delete previous avatar",
				"account_id", id,
				"error", err.Error())
		}
	}

	return account, nil
}

// OpenAvatar streams the avatar of a live account. Callers close Body.
func (a *Account) OpenAvatar(ctx context.Context, id uuid.UUID) (model.Object, error) {
	if a.avatars == nil {
		return model.Object{}, model.NewNotFound("avatar not found")
	}

	account, err := a.Get(ctx, id, false)
	if err != nil {
		return model.Object{}, err
	}
	if account.AvatarRef == "" {
		return model.Object{}, model.NewNotFound("avatar not found")
	}

	obj, err := a.avatars.Download(ctx, account.AvatarRef)
	if err != nil {
		return model.Object{}, classify("failed to read avatar", err)
	}
	return obj, nil
}

// Health pings the account and code stores.
func (a *Account) Health(ctx context.Context) error {
	if err := a.accounts.Ping(ctx); err != nil {
		return model.NewDependencyUnavailable("account store unavailable", err)
	}
	if err := a.codes.Ping(ctx); err != nil {
		return model.NewDependencyUnavailable("code store unavailable", err)
	}
	return nil
}

// allow consults an advisory limiter. A failing limiter lets the request through.
func (a *Account) allow(ctx context.Context, limiter model.Limiter, key, message string) error {
	if limiter == nil {
		return nil
	}
	ok, err := limiter.Allow(ctx, key)
	if err != nil {
		a.logger.WarnContext(ctx, "Account service: rate limiter unavailable", "error", err.Error())
		return nil
	}
	if !ok {
		return model.NewRateLimited(message)
	}
	return nil
}

func (a *Account) remaining(ctx context.Context, limiter model.Limiter, key string) int {
	if limiter == nil {
		return -1
	}
	n, err := limiter.Remaining(ctx, key)
	if err != nil {
		return -1
	}
	return n
}

// classify passes domain errors through and turns anything unclassified from
// a store or gateway, timeouts included, into dependency_unavailable.
func classify(message string, err error) error {
	if err == nil {
		return nil
	}
	if model.KindOf(err) != model.KindInternal {
		return err
	}
	return model.NewDependencyUnavailable(message, err)
}

func normalizeEmail(email *string) (*string, error) {
	if email == nil {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*email)
	if trimmed == "" {
		return nil, nil
	}
	if err := model.ValidateEmail(trimmed); err != nil {
		return nil, err
	}
	return &trimmed, nil
}
