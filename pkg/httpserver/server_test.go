package httpserver_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/checkoutkit/pkg/httpserver"
)

func waitAddr(t *testing.T, srv *httpserver.Server) net.Addr {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	addr, err := srv.Addr(ctx)
	require.NoError(t, err, "server did not start")
	return addr
}

func TestRunAndShutdown(t *testing.T) {
	t.Parallel()

	srv := httpserver.New(httpserver.Config{Addr: "127.0.0.1:0", ShutdownTimeout: 100 * time.Millisecond},
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) }))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	addr := waitAddr(t, srv)
	resp, err := http.Get("http://" + addr.String())
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusTeapot, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		require.Fail(t, "run did not finish")
	}
}

func TestRequestContextDerivesFromRun(t *testing.T) {
	t.Parallel()

	type key struct{}
	seen := make(chan any, 1)
	srv := httpserver.New(httpserver.Config{Addr: "127.0.0.1:0"},
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { seen <- r.Context().Value(key{}) }))

	ctx, cancel := context.WithCancel(context.WithValue(context.Background(), key{}, "run"))
	defer cancel()
	go func() { _ = srv.Run(ctx) }()

	resp, err := http.Get("http://" + waitAddr(t, srv).String())
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, "run", <-seen)
}

func TestStartError(t *testing.T) {
	t.Parallel()

	srv := httpserver.New(httpserver.Config{Addr: ":invalid"}, nil)
	err := srv.Run(context.Background())
	assert.ErrorIs(t, err, httpserver.ErrStart)
}

func TestAlreadyRunning(t *testing.T) {
	t.Parallel()

	srv := httpserver.New(httpserver.Config{Addr: "127.0.0.1:0", ShutdownTimeout: 50 * time.Millisecond}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = srv.Run(ctx) }()
	waitAddr(t, srv)

	err := srv.Run(context.Background())
	assert.ErrorIs(t, err, httpserver.ErrStart)
	assert.ErrorIs(t, err, httpserver.ErrAlreadyRunning)
}

func TestLiveness(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	httpserver.Liveness()(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.Equal(t, "ALIVE", string(body))
}

func TestReadiness(t *testing.T) {
	t.Parallel()

	ok := httpserver.Check{Name: "redis", Fn: func(context.Context) error { return nil }}
	bad := httpserver.Check{Name: "billing_api", Fn: func(context.Context) error { return errors.New("down") }}

	tests := []struct {
		name   string
		checks []httpserver.Check
		status int
		want   map[string]string
	}{
		{"no checks", nil, http.StatusOK, nil},
		{"all pass", []httpserver.Check{ok}, http.StatusOK, map[string]string{"redis": "ok"}},
		{"one fails", []httpserver.Check{ok, bad}, http.StatusServiceUnavailable, map[string]string{"redis": "ok", "billing_api": "failed"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := httptest.NewRecorder()
			httpserver.Readiness(nil, time.Second, tt.checks...)(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
			assert.Equal(t, tt.status, rec.Code)

			var body struct {
				Status string            `json:"status"`
				Checks map[string]string `json:"checks"`
			}
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			if len(tt.want) == 0 {
				assert.Empty(t, body.Checks)
			} else {
				assert.Equal(t, tt.want, body.Checks)
			}
		})
	}
}
