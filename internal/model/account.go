package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AccountStore defines persistence operations for accounts.
//
// Uniqueness of phone, username and email among live accounts is enforced by
// the store itself; callers never check-then-write.
type AccountStore interface {
	Create(ctx context.Context, account Account) (Account, error)
	GetByPhone(ctx context.Context, phone string, includeDeleted bool) (Account, error)
	GetByID(ctx context.Context, id uuid.UUID, includeDeleted bool) (Account, error)
	Update(ctx context.Context, id uuid.UUID, patch AccountPatch) (Account, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error
	Restore(ctx context.Context, id uuid.UUID) (Account, error)
	HardDelete(ctx context.Context, id uuid.UUID) error
	ListActive(ctx context.Context, page Page) (AccountList, error)
	ListDeleted(ctx context.Context, page Page) (AccountList, error)
	Ping(ctx context.Context) error
}

// Account is a user identity record.
type Account struct {
	ID           uuid.UUID
	Phone        string
	Username     string
	Email        *string
	PasswordHash *string
	IsActive     bool
	IsStaff      bool
	IsSuperuser  bool
	IsDeleted    bool
	DeletedAt    *time.Time
	Bio          string
	AvatarRef    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasPassword reports whether password login is available for the account.
func (a Account) HasPassword() bool {
	return a.PasswordHash != nil && *a.PasswordHash != ""
}

// AccountPatch lists the columns to change. Nil fields are left untouched.
type AccountPatch struct {
	Phone        *string
	Username     *string
	Email        *string
	PasswordHash *string
	Bio          *string
	AvatarRef    *string
}

// Empty reports whether the patch changes nothing.
func (p AccountPatch) Empty() bool {
	return p.Phone == nil && p.Username == nil && p.Email == nil &&
		p.PasswordHash == nil && p.Bio == nil && p.AvatarRef == nil
}

// ProfilePatch holds the profile fields an account holder may change.
type ProfilePatch struct {
	Username *string
	Phone    *string
	Bio      *string
}

// RegisterParams contains parameters to register an account with a password.
type RegisterParams struct {
	Phone           string
	Username        string
	Password        string
	PasswordConfirm string
	Email           *string
	Bio             string
}

// ChangePasswordParams contains parameters to change an account password.
type ChangePasswordParams struct {
	OldPassword        string
	NewPassword        string
	NewPasswordConfirm string
}

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Page selects a window of a newest-first listing. Number starts at 1.
type Page struct {
	Number int
	Size   int
}

// Normalize clamps the page into valid bounds.
func (p Page) Normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size < 1 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}

// Offset returns the number of rows preceding the page.
func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

// AccountList is one page of accounts together with the total row count.
type AccountList struct {
	Items []Account
	Total int
	Page  Page
}
