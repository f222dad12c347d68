package strava

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListActivitiesSendsFilterAndAuth(t *testing.T) {
	var gotQuery map[string]string
	var gotAuth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/athlete/activities", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		gotQuery = map[string]string{
			"after":    r.URL.Query().Get("after"),
			"per_page": r.URL.Query().Get("per_page"),
			"page":     r.URL.Query().Get("page"),
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id": 12345678901, "start_date": "2024-06-01T10:00:00Z"}]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	docs, err := c.ListActivities(context.Background(), "tok", 1717200000, 2, 100)
	require.NoError(t, err)

	assert.Equal(t, "Bearer tok", gotAuth)
	assert.Equal(t, map[string]string{"after": "1717200000", "per_page": "100", "page": "2"}, gotQuery)
	require.Len(t, docs, 1)
	assert.Equal(t, json.Number("12345678901"), docs[0]["id"])
}

func TestListActivitiesClampsPageSize(t *testing.T) {
	var perPage string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		perPage = r.URL.Query().Get("per_page")
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)
	_, err := c.ListActivities(context.Background(), "tok", 0, 1, 500)
	require.NoError(t, err)
	assert.Equal(t, "100", perPage)
}

func TestNonSuccessBecomesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"Authorization Error"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5*time.Second)

	_, err := c.GetAthlete(context.Background(), "bad")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "GET /athlete", apiErr.Endpoint)
	assert.Contains(t, apiErr.Body, "Authorization Error")

	_, err = c.ListActivities(context.Background(), "bad", 0, 1, 100)
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}

func TestClientTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	c := NewClient(srv.URL, 50*time.Millisecond)
	_, err := c.GetAthlete(context.Background(), "tok")
	assert.Error(t, err)
}
