package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientGetJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "dealwatch/1.0", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"hollow knight"}`))
	}))
	defer srv.Close()

	c := NewClient(ClientOptions{})
	var out struct {
		Name string `json:"name"`
	}
	require.NoError(t, c.GetJSON(context.Background(), srv.URL, &out))
	assert.Equal(t, "hollow knight", out.Name)
}

func TestClientRetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(ClientOptions{Timeout: 5 * time.Second})
	var out map[string]any
	require.NoError(t, c.GetJSON(context.Background(), srv.URL, &out))
	assert.Equal(t, int32(2), calls.Load())
}

func TestClientDoesNotRetryClientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(ClientOptions{})
	_, err := c.Get(context.Background(), srv.URL)
	assert.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}
