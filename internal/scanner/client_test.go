package scanner

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tagattend/internal/registration"
)

func TestArmPostsToken(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	exp := time.Date(2024, 6, 1, 8, 5, 0, 0, time.UTC)
	err := New(srv.URL, false).Arm(context.Background(), registration.Pending{Token: "tok-1", ExpiresAt: exp})
	require.NoError(t, err)
	assert.Equal(t, "tok-1", got["token"])
	assert.Equal(t, "2024-06-01T08:05:00Z", got["expires_at"])
}

func TestArmReportsDeviceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "busy", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := New(srv.URL, false).Arm(context.Background(), registration.Pending{Token: "tok-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "busy")
}

func TestSkipDoesNoIO(t *testing.T) {
	c := New("http://127.0.0.1:1", true)
	assert.NoError(t, c.Arm(context.Background(), registration.Pending{}))
	assert.NoError(t, c.Health(context.Background()))
}

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	assert.NoError(t, New(srv.URL, false).Health(context.Background()))

	srv.Close()
	assert.Error(t, New(srv.URL, false).Health(context.Background()))
}
