package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dtroode/accounts-server/internal/logger"
	"github.com/dtroode/accounts-server/internal/metrics"
	"github.com/dtroode/accounts-server/internal/model"
)

// Sessions issues and checks bearer tokens. It keeps no server-side state:
// refresh returns a new access token and leaves the refresh token as is.
type Sessions struct {
	manager model.TokenManager
	logger  *logger.Logger
}

func NewSessions(manager model.TokenManager, logger *logger.Logger) *Sessions {
	return &Sessions{manager: manager, logger: logger}
}

// Issue mints an access/refresh pair for accountID.
func (s *Sessions) Issue(ctx context.Context, accountID uuid.UUID) (model.Session, error) {
	access, accessExp, err := s.manager.GenerateAccessToken(accountID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Sessions: failed to issue access token",
			"account_id", accountID,
			"error", err.Error())
		return model.Session{}, fmt.Errorf("issue access: %w", err)
	}

	refresh, refreshExp, err := s.manager.GenerateRefreshToken(accountID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Sessions: failed to issue refresh token",
			"account_id", accountID,
			"error", err.Error())
		return model.Session{}, fmt.Errorf("issue refresh: %w", err)
	}

	metrics.TokensIssuedTotal.WithLabelValues("issue").Inc()

	return model.Session{
		AccountID:        accountID,
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// Refresh exchanges a valid refresh token for a new access token.
func (s *Sessions) Refresh(ctx context.Context, refreshToken string) (string, time.Time, error) {
	accountID, err := s.manager.ParseRefreshToken(refreshToken)
	if err != nil {
		s.logger.DebugContext(ctx, "Sessions: refresh token rejected", "error", err.Error())
		return "", time.Time{}, model.ErrInvalidToken
	}

	access, exp, err := s.manager.GenerateAccessToken(accountID)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("issue access: %w", err)
	}

	metrics.TokensIssuedTotal.WithLabelValues("refresh").Inc()

	return access, exp, nil
}

// Validate returns the account an access token was issued to.
func (s *Sessions) Validate(_ context.Context, accessToken string) (uuid.UUID, error) {
	accountID, err := s.manager.ParseAccessToken(accessToken)
	if err != nil {
		return uuid.Nil, model.ErrInvalidToken
	}
	return accountID, nil
}
