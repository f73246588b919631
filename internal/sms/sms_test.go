package sms

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/accounts-server/internal/testutil"
)

func TestTwilioGateway_Send(t *testing.T) {
	var gotPath, gotTo, gotBody, gotUser, gotPass string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, r.ParseForm())
		gotTo = r.PostForm.Get("To")
		gotBody = r.PostForm.Get("Body")
		gotUser, gotPass, _ = r.BasicAuth()
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"sid":"SM1"}`))
	}))
	defer srv.Close()

	gw := NewTwilioGateway(TwilioConfig{
		AccountSID: "AC123",
		AuthToken:  "token",
		From:       "+15550000",
		BaseURL:    srv.URL,
		CodeTTL:    5 * time.Minute,
	}, srv.Client())

	require.NoError(t, gw.Send(context.Background(), "13900000001", "123456"))

	assert.Equal(t, "/2010-04-01/Accounts/AC123/Messages.json", gotPath)
	assert.Equal(t, "+8613900000001", gotTo)
	assert.True(t, strings.Contains(gotBody, "123456"))
	assert.True(t, strings.Contains(gotBody, "5 minutes"))
	assert.Equal(t, "AC123", gotUser)
	assert.Equal(t, "token", gotPass)
}

func TestTwilioGateway_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"code":21211,"message":"invalid To number"}`))
	}))
	defer srv.Close()

	gw := NewTwilioGateway(TwilioConfig{AccountSID: "AC123", BaseURL: srv.URL}, srv.Client())
	err := gw.Send(context.Background(), "13900000001", "123456")

	var dispatchErr *DispatchError
	require.ErrorAs(t, err, &dispatchErr)
	assert.Equal(t, http.StatusBadRequest, dispatchErr.StatusCode)
	assert.Equal(t, 21211, dispatchErr.Code)
	assert.Equal(t, "invalid To number", dispatchErr.Message)
}

func TestTwilioGateway_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	gw := NewTwilioGateway(TwilioConfig{AccountSID: "AC123", BaseURL: srv.URL, Timeout: 50 * time.Millisecond}, srv.Client())
	err := gw.Send(context.Background(), "13900000001", "123456")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

type failingGateway struct {
	calls atomic.Int32
	err   error
}

func (g *failingGateway) Send(context.Context, string, string) error {
	g.calls.Add(1)
	return g.err
}

func TestBreakerGateway_OpensAfterFailures(t *testing.T) {
	next := &failingGateway{err: errors.New("boom")}
	var transitions []string
	gw := NewBreakerGateway(next, BreakerSettings{MaxFailures: 2, OpenTimeout: time.Minute}, func(from, to string) {
		transitions = append(transitions, from+"->"+to)
	})

	ctx := context.Background()
	assert.EqualError(t, gw.Send(ctx, "13900000001", "1"), "boom")
	assert.EqualError(t, gw.Send(ctx, "13900000001", "1"), "boom")

	err := gw.Send(ctx, "13900000001", "1")
	assert.ErrorIs(t, err, ErrGatewayOpen)
	assert.Equal(t, int32(2), next.calls.Load(), "open breaker does not call the provider")
	assert.Equal(t, []string{"closed->open"}, transitions)
}

func TestBreakerGateway_PassesSuccess(t *testing.T) {
	next := &failingGateway{}
	gw := NewBreakerGateway(next, BreakerSettings{}, nil)

	require.NoError(t, gw.Send(context.Background(), "13900000001", "1"))
	assert.Equal(t, int32(1), next.calls.Load())
}

func TestLogGateway_Send(t *testing.T) {
	gw := NewLogGateway(testutil.MakeNoopLogger())
	require.NoError(t, gw.Send(context.Background(), "13900000001", "123456"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, gw.Send(ctx, "13900000001", "123456"), context.Canceled)
}
