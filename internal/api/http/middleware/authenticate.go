package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/dtroode/accounts-server/internal/api/http/response"
	"github.com/dtroode/accounts-server/internal/logger"
	"github.com/dtroode/accounts-server/internal/model"
)

// TokenService resolves account ID from bearer tokens.
type TokenService interface {
	Authenticate(ctx context.Context, accessToken string) (uuid.UUID, error)
}

// Authenticate validates bearer tokens and injects account ID into context.
type Authenticate struct {
	tokenService   TokenService
	contextManager model.ContextManager
	logger         *logger.Logger
}

// NewAuthenticate creates a new Authenticate middleware instance.
func NewAuthenticate(tokenService TokenService, contextManager model.ContextManager, logger *logger.Logger) *Authenticate {
	return &Authenticate{tokenService: tokenService, contextManager: contextManager, logger: logger}
}

// Handle rejects requests without a valid access token.
func (m *Authenticate) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString, ok := bearerToken(r)
		if !ok {
			response.Error(w, model.NewUnauthorized("missing authorization token"))
			return
		}

		accountID, err := m.tokenService.Authenticate(r.Context(), tokenString)
		if err != nil || accountID == uuid.Nil {
			m.logger.DebugContext(r.Context(), "Authenticate middleware: token rejected")
			response.Error(w, model.ErrInvalidToken)
			return
		}

		next.ServeHTTP(w, r.WithContext(m.contextManager.SetAccountIDToContext(r.Context(), accountID)))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
