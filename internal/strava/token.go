package strava

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/BartekS5/stravaetl/pkg/logger"
	"github.com/google/renameio/v2"
	"golang.org/x/oauth2"
)

var (
	ErrNoRefreshToken = errors.New("no refresh token configured")
	// ErrTokenStorage marks failures reading or writing the local refresh
	// token file, as opposed to failures talking to the token endpoint.
	ErrTokenStorage = errors.New("refresh token storage")
)

// TokenSource exchanges an account's refresh token for a short-lived access
// token. Strava may rotate the refresh token on every exchange; the newest one
// is written to DataDir and preferred over the configured value next time.
type TokenSource struct {
	OAuth   *oauth2.Config
	HTTP    *http.Client
	DataDir string
	// Lookup returns the refresh token configured for an account, "" if none.
	Lookup func(account string) string
	Log    *logger.Logger
}

// NewOAuthConfig builds the refresh-token client for Strava's token endpoint.
// Strava expects the client credentials in the form body.
func NewOAuthConfig(clientID, clientSecret, tokenURL string) *oauth2.Config {
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  tokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// RefreshTokenPath is where a rotated refresh token for account is kept.
func (ts *TokenSource) RefreshTokenPath(account string) string {
	return filepath.Join(ts.DataDir, fmt.Sprintf("refresh_token_%s.txt", account))
}

// AccessToken returns a fresh access token for account. A stored token the
// endpoint rejects falls back to the configured one, so a newly provisioned
// <ACCOUNT>_REFRESH_TOKEN takes effect without deleting the file.
func (ts *TokenSource) AccessToken(ctx context.Context, account string) (string, error) {
	stored, err := ts.storedToken(account)
	if err != nil {
		return "", err
	}
	configured := ts.configuredToken(account)

	if stored != "" {
		tok, err := ts.exchange(ctx, account, stored, stored, sourceFile)
		var apiErr *APIError
		if err == nil || configured == "" || configured == stored ||
			!errors.As(err, &apiErr) || !apiErr.rejected() {
			return tok, err
		}
		ts.log().Warn().Str("account", account).Int("status", apiErr.StatusCode).
			Msg("Stored refresh token rejected; retrying with the configured one")
	}
	if configured == "" {
		return "", fmt.Errorf("%s: %w", account, ErrNoRefreshToken)
	}
	return ts.exchange(ctx, account, configured, stored, sourceEnv)
}

// Where a refresh token came from, for the logs.
const (
	sourceFile = "file"
	sourceEnv  = "env"
)

// exchange runs one refresh grant. stored is the token currently on disk; the
// token Strava hands back replaces it whenever the two differ.
func (ts *TokenSource) exchange(ctx context.Context, account, refresh, stored, source string) (string, error) {
	if ts.HTTP != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, ts.HTTP)
	}

	tok, err := ts.OAuth.TokenSource(ctx, &oauth2.Token{RefreshToken: refresh}).Token()
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil {
			return "", &APIError{
				Endpoint:   "POST " + ts.OAuth.Endpoint.TokenURL,
				StatusCode: re.Response.StatusCode,
				Body:       strings.TrimSpace(string(re.Body)),
			}
		}
		return "", fmt.Errorf("failed to refresh token for %s: %w", account, err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("token endpoint returned no access token for %s", account)
	}

	next := tok.RefreshToken
	if next == "" {
		next = refresh
	}
	if next != refresh || (stored != "" && next != stored) {
		if err := ts.saveRefreshToken(account, next); err != nil {
			return "", err
		}
		ts.log().Warn().Str("account", account).Str("path", ts.RefreshTokenPath(account)).
			Msg("New refresh token issued; stored locally")
	}

	ts.log().Info().Str("account", account).Str("source", source).Msg("Access token refreshed")
	return tok.AccessToken, nil
}

func (ts *TokenSource) storedToken(account string) (string, error) {
	if ts.DataDir == "" {
		return "", nil
	}
	data, err := os.ReadFile(ts.RefreshTokenPath(account))
	switch {
	case err == nil:
		return strings.TrimSpace(string(data)), nil
	case errors.Is(err, fs.ErrNotExist):
		return "", nil
	default:
		return "", fmt.Errorf("%w: read %s: %w", ErrTokenStorage, account, err)
	}
}

func (ts *TokenSource) configuredToken(account string) string {
	if ts.Lookup == nil {
		return ""
	}
	return strings.TrimSpace(ts.Lookup(account))
}

func (ts *TokenSource) saveRefreshToken(account, token string) error {
	if ts.DataDir == "" {
		return nil
	}
	if err := os.MkdirAll(ts.DataDir, 0o700); err != nil {
		return fmt.Errorf("%w: %w", ErrTokenStorage, err)
	}
	if err := renameio.WriteFile(ts.RefreshTokenPath(account), []byte(token), 0o600); err != nil {
		return fmt.Errorf("%w: write %s: %w", ErrTokenStorage, account, err)
	}
	return nil
}

func (ts *TokenSource) log() *logger.Logger {
	if ts.Log == nil {
		return logger.Nop()
	}
	return ts.Log
}
