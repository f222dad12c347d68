// Package strava talks to the Strava v3 REST API: token refresh, the athlete
// profile and the activity list.
package strava

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/BartekS5/stravaetl/pkg/models"
)

const (
	DefaultBaseURL  = "https://www.strava.com/api/v3"
	DefaultTokenURL = "https://www.strava.com/oauth/token"

	// MaxPageSize is the largest per_page value the API accepts.
	MaxPageSize = 100
)

// maxErrorBody caps how much of an error response is kept for logging.
const maxErrorBody = 4096

// APIError is a non-success HTTP response from the API or token endpoint.
type APIError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

// rejected reports a token endpoint refusal of the credentials themselves.
func (e *APIError) rejected() bool {
	return e.StatusCode == http.StatusBadRequest || e.StatusCode == http.StatusUnauthorized
}

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// NewClient returns a client with an explicit request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// GetAthlete fetches the authenticated athlete's profile.
func (c *Client) GetAthlete(ctx context.Context, accessToken string) (models.Document, error) {
	resp, err := c.get(ctx, accessToken, "/athlete", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	doc, err := models.ReadDocument(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("GET /athlete: %w", err)
	}
	return doc, nil
}

// ListActivities fetches one page of activities that started strictly after
// the given epoch second. Pages are 1-based.
func (c *Client) ListActivities(ctx context.Context, accessToken string, after int64, page, perPage int) ([]models.Document, error) {
	if perPage <= 0 || perPage > MaxPageSize {
		perPage = MaxPageSize
	}
	if page < 1 {
		page = 1
	}

	q := url.Values{}
	q.Set("after", strconv.FormatInt(after, 10))
	q.Set("per_page", strconv.Itoa(perPage))
	q.Set("page", strconv.Itoa(page))

	resp, err := c.get(ctx, accessToken, "/athlete/activities", q)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	docs, err := models.ReadDocuments(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("GET /athlete/activities: %w", err)
	}
	return docs, nil
}

// get issues an authenticated GET and returns the response only on 2xx. The
// caller closes the body.
func (c *Client) get(ctx context.Context, accessToken, path string, query url.Values) (*http.Response, error) {
	u := c.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", path, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &APIError{
			Endpoint:   "GET " + path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}
	return resp, nil
}
