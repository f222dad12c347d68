package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveStage(t *testing.T) {
	m := New()

	m.ObserveStage("extract", time.Now().Add(-2*time.Second), nil)
	assert.GreaterOrEqual(t, testutil.ToFloat64(m.StageDuration.WithLabelValues("extract")), 2.0)
	assert.Greater(t, testutil.ToFloat64(m.LastSuccess.WithLabelValues("extract")), 0.0)

	m.ObserveStage("transform_load", time.Now(), errors.New("boom"))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.LastSuccess.WithLabelValues("transform_load")))
}

func TestPush(t *testing.T) {
	var body string
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := New()
	m.AccountsProcessed.WithLabelValues(StatusOK).Inc()
	m.RowsLoaded.WithLabelValues("activities").Add(3)

	require.NoError(t, m.Push(context.Background(), srv.URL, "stravaetl"))
	assert.Equal(t, "/metrics/job/stravaetl", path)
	assert.Contains(t, body, "stravaetl_rows_loaded_total")
}
