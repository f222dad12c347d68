package strava

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tokenServer struct {
	*httptest.Server
	lastForm map[string]string
}

// newTokenServer answers refresh-token grants. rotate decides the refresh
// token returned for a given incoming one.
func newTokenServer(t *testing.T, status int, rotate func(string) string) *tokenServer {
	t.Helper()
	ts := &tokenServer{}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		ts.lastForm = map[string]string{
			"client_id":     r.PostForm.Get("client_id"),
			"client_secret": r.PostForm.Get("client_secret"),
			"grant_type":    r.PostForm.Get("grant_type"),
			"refresh_token": r.PostForm.Get("refresh_token"),
		}
		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			w.Write([]byte(`{"message":"Bad Request","errors":[{"field":"refresh_token","code":"invalid"}]}`))
			return
		}
		next := rotate(r.PostForm.Get("refresh_token"))
		w.Write([]byte(`{"token_type":"Bearer","access_token":"access-` + next + `","refresh_token":"` + next + `","expires_in":21600}`))
	}))
	t.Cleanup(ts.Close)
	return ts
}

func lookupFrom(m map[string]string) func(string) string {
	return func(account string) string { return m[account] }
}

func TestAccessTokenPostsRefreshGrant(t *testing.T) {
	srv := newTokenServer(t, http.StatusOK, func(rt string) string { return rt })
	src := &TokenSource{
		OAuth:  NewOAuthConfig("cid", "secret", srv.URL),
		Lookup: lookupFrom(map[string]string{"TROY": "rt-troy"}),
	}

	tok, err := src.AccessToken(context.Background(), "TROY")
	require.NoError(t, err)

	assert.Equal(t, "access-rt-troy", tok)
	assert.Equal(t, map[string]string{
		"client_id":     "cid",
		"client_secret": "secret",
		"grant_type":    "refresh_token",
		"refresh_token": "rt-troy",
	}, srv.lastForm)
}

func TestAccessTokenMissingRefreshToken(t *testing.T) {
	src := &TokenSource{
		OAuth:  NewOAuthConfig("cid", "secret", "http://127.0.0.1:0/never-called"),
		Lookup: lookupFrom(nil),
	}

	_, err := src.AccessToken(context.Background(), "SAM")
	assert.True(t, errors.Is(err, ErrNoRefreshToken))
}

func TestAccessTokenRejected(t *testing.T) {
	srv := newTokenServer(t, http.StatusBadRequest, nil)
	src := &TokenSource{
		OAuth:  NewOAuthConfig("cid", "secret", srv.URL),
		Lookup: lookupFrom(map[string]string{"TROY": "revoked"}),
	}

	_, err := src.AccessToken(context.Background(), "TROY")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr), "got %v", err)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "refresh_token")
}

func TestRotatedRefreshTokenIsStoredAndPreferred(t *testing.T) {
	srv := newTokenServer(t, http.StatusOK, func(rt string) string { return rt + "-next" })
	dir := t.TempDir()
	src := &TokenSource{
		OAuth:   NewOAuthConfig("cid", "secret", srv.URL),
		DataDir: dir,
		Lookup:  lookupFrom(map[string]string{"TROY": "rt-env"}),
	}

	_, err := src.AccessToken(context.Background(), "TROY")
	require.NoError(t, err)

	stored, err := os.ReadFile(src.RefreshTokenPath("TROY"))
	require.NoError(t, err)
	assert.Equal(t, "rt-env-next", string(stored))

	// The second exchange uses the stored token, not the environment one.
	_, err = src.AccessToken(context.Background(), "TROY")
	require.NoError(t, err)
	assert.Equal(t, "rt-env-next", srv.lastForm["refresh_token"])
}

// newRevokingServer rejects the revoked refresh tokens and echoes any other.
func newRevokingServer(t *testing.T, revoked ...string) *tokenServer {
	t.Helper()
	ts := &tokenServer{}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		rt := r.PostForm.Get("refresh_token")
		w.Header().Set("Content-Type", "application/json")
		for _, bad := range revoked {
			if rt == bad {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(`{"message":"Bad Request","errors":[{"field":"refresh_token","code":"invalid"}]}`))
				return
			}
		}
		ts.lastForm = map[string]string{"refresh_token": rt}
		w.Write([]byte(`{"token_type":"Bearer","access_token":"access-` + rt + `","refresh_token":"` + rt + `","expires_in":21600}`))
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestRevokedStoredTokenFallsBackToConfigured(t *testing.T) {
	srv := newRevokingServer(t, "rt-stale")
	dir := t.TempDir()
	src := &TokenSource{
		OAuth:   NewOAuthConfig("cid", "secret", srv.URL),
		DataDir: dir,
		Lookup:  lookupFrom(map[string]string{"TROY": "rt-fresh"}),
	}
	require.NoError(t, os.WriteFile(src.RefreshTokenPath("TROY"), []byte("rt-stale\n"), 0o600))

	tok, err := src.AccessToken(context.Background(), "TROY")
	require.NoError(t, err)
	assert.Equal(t, "access-rt-fresh", tok)

	// The stale file is replaced so the next run goes straight to the new token.
	stored, err := os.ReadFile(src.RefreshTokenPath("TROY"))
	require.NoError(t, err)
	assert.Equal(t, "rt-fresh", string(stored))
}

func TestRevokedStoredTokenWithoutAlternative(t *testing.T) {
	srv := newRevokingServer(t, "rt-stale")
	dir := t.TempDir()
	src := &TokenSource{
		OAuth:   NewOAuthConfig("cid", "secret", srv.URL),
		DataDir: dir,
		Lookup:  lookupFrom(map[string]string{"TROY": "rt-stale"}),
	}
	require.NoError(t, os.WriteFile(src.RefreshTokenPath("TROY"), []byte("rt-stale"), 0o600))

	_, err := src.AccessToken(context.Background(), "TROY")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr), "got %v", err)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
}

func TestStoredTokenNotRewrittenWhenUnchanged(t *testing.T) {
	srv := newRevokingServer(t)
	dir := t.TempDir()
	src := &TokenSource{
		OAuth:   NewOAuthConfig("cid", "secret", srv.URL),
		DataDir: dir,
		Lookup:  lookupFrom(map[string]string{"TROY": "rt-env"}),
	}

	_, err := src.AccessToken(context.Background(), "TROY")
	require.NoError(t, err)
	assert.Equal(t, "rt-env", srv.lastForm["refresh_token"])

	_, statErr := os.Stat(src.RefreshTokenPath("TROY"))
	assert.True(t, os.IsNotExist(statErr), "an unrotated configured token is not copied to disk")
}
