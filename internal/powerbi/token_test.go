package powerbi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTokenManager(t *testing.T, handler http.HandlerFunc) (*TokenManager, *clockwork.FakeClock) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	clock := clockwork.NewFakeClock()
	tm := NewTokenManager("tenant-1", "client-1", "secret")
	tm.authorityURL = server.URL
	tm.clock = clock
	return tm, clock
}

func TestTokenManager_AcquiresAndCaches(t *testing.T) {
	var calls atomic.Int32
	tm, _ := newTestTokenManager(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.Form.Get("grant_type"))
		assert.Equal(t, "client-1", r.Form.Get("client_id"))
		assert.Equal(t, tokenScope, r.Form.Get("scope"))
		assert.Contains(t, r.URL.Path, "/tenant-1/oauth2/v2.0/token")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token": "aad-token", "expires_in": 3600}`))
	})

	ctx := context.Background()

	token, err := tm.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "aad-token", token)

	// Second call is served from cache
	_, err = tm.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestTokenManager_RefreshesNearExpiry(t *testing.T) {
	var calls atomic.Int32
	tm, clock := newTestTokenManager(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"access_token": "aad-token", "expires_in": 3600}`))
	})

	ctx := context.Background()

	_, err := tm.Token(ctx)
	require.NoError(t, err)

	// Still comfortably valid
	clock.Advance(30 * time.Minute)
	_, err = tm.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())

	// Inside the expiry slack window
	clock.Advance(30 * time.Minute)
	_, err = tm.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestTokenManager_Invalidate(t *testing.T) {
	var calls atomic.Int32
	tm, _ := newTestTokenManager(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"access_token": "aad-token", "expires_in": 3600}`))
	})

	ctx := context.Background()
	_, err := tm.Token(ctx)
	require.NoError(t, err)

	tm.Invalidate()

	_, err = tm.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestTokenManager_ErrorResponse(t *testing.T) {
	tm, _ := newTestTokenManager(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": "invalid_client"}`))
	})

	_, err := tm.Token(context.Background())
	require.Error(t, err)

	var tokenErr *TokenError
	require.ErrorAs(t, err, &tokenErr)
	assert.Equal(t, http.StatusUnauthorized, tokenErr.StatusCode)
}

func TestTokenManager_EmptyToken(t *testing.T) {
	tm, _ := newTestTokenManager(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"expires_in": 3600}`))
	})

	_, err := tm.Token(context.Background())
	assert.ErrorContains(t, err, "no access token")
}
