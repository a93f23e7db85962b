package httpx_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alejandrodnm/forecastedge/internal/adapters/httpx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient() *httpx.Client {
	return httpx.New("test", 1000, 10, time.Second, httpx.WithRetryWait(time.Millisecond))
}

func TestGetJSON_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Write([]byte(`{"value": 42}`))
	}))
	defer srv.Close()

	var out struct{ Value int }
	require.NoError(t, newClient().GetJSON(context.Background(), srv.URL, &out))
	assert.Equal(t, 42, out.Value)
}

func TestGetJSON_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	var out map[string]any
	require.NoError(t, newClient().GetJSON(context.Background(), srv.URL, &out))
	assert.Equal(t, int32(3), calls.Load())
}

func TestGetJSON_RetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	var out map[string]any
	require.NoError(t, newClient().GetJSON(context.Background(), srv.URL, &out))
	assert.Equal(t, int32(2), calls.Load())
}

func TestGetJSON_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`not found`))
	}))
	defer srv.Close()

	var out map[string]any
	err := newClient().GetJSON(context.Background(), srv.URL, &out)
	require.Error(t, err)

	var se *httpx.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.Code)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGetJSON_GivesUp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	var out map[string]any
	err := newClient().GetJSON(context.Background(), srv.URL, &out)
	assert.ErrorContains(t, err, "server error 500")
}

func TestGetJSON_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var out map[string]any
	assert.Error(t, newClient().GetJSON(ctx, srv.URL, &out))
}
