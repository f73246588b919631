package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	httpcontext "github.com/dtroode/accounts-server/internal/api/http/context"
	"github.com/dtroode/accounts-server/internal/mocks"
	"github.com/dtroode/accounts-server/internal/model"
	tu "github.com/dtroode/accounts-server/internal/testutil"
)

type staticTokens map[string]uuid.UUID

func (s staticTokens) Authenticate(_ context.Context, token string) (uuid.UUID, error) {
	if id, ok := s[token]; ok {
		return id, nil
	}
	return uuid.Nil, model.ErrInvalidToken
}

func newTestHandler(t *testing.T, svc *mocks.AccountService, tokens staticTokens, opts Options) http.Handler {
	t.Helper()
	return New(svc, tokens, httpcontext.NewManager(), opts, tu.MakeNoopLogger()).Register()
}

func serve(h http.Handler, method, target, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRouter_PublicRoutes(t *testing.T) {
	svc := mocks.NewAccountService(t)
	svc.On("Health", mock.Anything).Return(nil).Once()

	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "router_test_total"}))

	h := newTestHandler(t, svc, nil, Options{MetricsPath: "/metrics", Gatherer: reg})

	rec := serve(h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	rec = serve(h, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "router_test_total")
}

func TestRouter_AuthenticatedRoutes(t *testing.T) {
	id := uuid.New()
	svc := mocks.NewAccountService(t)
	svc.On("Get", mock.Anything, id, false).Return(model.Account{ID: id, Username: "alice"}, nil).Once()

	h := newTestHandler(t, svc, staticTokens{"good": id}, Options{})

	rec := serve(h, http.MethodGet, "/accounts/me", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(h, http.MethodGet, "/accounts/me", "bad")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(h, http.MethodGet, "/accounts/me", "good")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"username":"alice"`)
}

func TestRouter_AvatarIsPublic(t *testing.T) {
	id := uuid.New()
	svc := mocks.NewAccountService(t)
	svc.On("OpenAvatar", mock.Anything, id).Return(model.Object{}, model.NewNotFound("account has no avatar")).Once()

	h := newTestHandler(t, svc, nil, Options{})

	rec := serve(h, http.MethodGet, "/accounts/"+id.String()+"/avatar", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_NotFoundEnvelope(t *testing.T) {
	h := newTestHandler(t, mocks.NewAccountService(t), nil, Options{})

	rec := serve(h, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"code":404,"message":"route not found","kind":"not_found"}`, rec.Body.String())
}

func TestRouter_IPRateLimit(t *testing.T) {
	svc := mocks.NewAccountService(t)
	svc.On("Health", mock.Anything).Return(nil).Twice()

	h := newTestHandler(t, svc, nil, Options{IPRateLimit: 2, IPRatePeriod: time.Minute})

	for range 2 {
		assert.Equal(t, http.StatusOK, serve(h, http.MethodGet, "/healthz", "").Code)
	}

	rec := serve(h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), `"kind":"rate_limited"`)
}
