package model

import (
	"time"

	"github.com/google/uuid"
)

// TokenManager generates and validates access/refresh tokens.
type TokenManager interface {
	GenerateAccessToken(accountID uuid.UUID) (token string, expiresAt time.Time, err error)
	GenerateRefreshToken(accountID uuid.UUID) (token string, expiresAt time.Time, err error)
	ParseAccessToken(token string) (uuid.UUID, error)
	ParseRefreshToken(token string) (uuid.UUID, error)
}

// Session is a bearer token pair bound to an account.
type Session struct {
	AccountID        uuid.UUID
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	// Verify never fails on a malformed hash; it returns false.
	Verify(plaintext, hash string) bool
}

// PasswordPolicy rejects weak passwords. userInputs are values the password
// must not resemble, such as the phone and username.
type PasswordPolicy interface {
	Validate(password string, userInputs ...string) error
}
