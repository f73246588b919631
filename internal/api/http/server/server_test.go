package server

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type listenerFunc func(network, addr string) (net.Listener, error)

func (f listenerFunc) Listen(network, addr string) (net.Listener, error) {
	return f(network, addr)
}

func TestHTTPServer_Address(t *testing.T) {
	s := NewHTTPServer(http.NotFoundHandler(), ":0")
	assert.Equal(t, ":0", s.Address())
}

func TestHTTPServer_StartServesAndStops(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := NewHTTPServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "pong")
	}), ":0")

	done := make(chan error, 1)
	go func() {
		done <- s.Start(listenerFunc(func(network, addr string) (net.Listener, error) {
			assert.Equal(t, "tcp", network)
			assert.Equal(t, ":0", addr)
			return ln, nil
		}))
	}()

	var resp *http.Response
	require.Eventually(t, func() bool {
		resp, err = http.Get("http://" + ln.Addr().String())
		return err == nil
	}, time.Second, 10*time.Millisecond)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, "pong", string(body))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.NoError(t, <-done)
}

func TestHTTPServer_StartListenError(t *testing.T) {
	s := NewHTTPServer(http.NotFoundHandler(), ":0")

	err := s.Start(listenerFunc(func(string, string) (net.Listener, error) {
		return nil, errors.New("address in use")
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to listen")
}
