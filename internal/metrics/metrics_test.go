package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMustRegister_Exposes(t *testing.T) {
	reg := prometheus.NewRegistry()
	MustRegister(reg)

	AuthLoginsTotal.WithLabelValues("sms", ResultSuccess).Inc()

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `auth_logins_total{method="sms",result="success"}`))

	assert.Panics(t, func() { MustRegister(reg) })
}

func TestResult(t *testing.T) {
	assert.Equal(t, ResultSuccess, Result(nil))
	assert.Equal(t, ResultFailure, Result(errors.New("x")))
}

func TestBreakerStateChanged(t *testing.T) {
	BreakerStateChanged("closed", "open")
	assert.Equal(t, float64(1), testutil.ToFloat64(SMSBreakerState))

	BreakerStateChanged("open", "half-open")
	assert.Equal(t, float64(0), testutil.ToFloat64(SMSBreakerState))
}
