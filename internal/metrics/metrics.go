// Package metrics collects per-run counters. A batch job does not live long
// enough to be scraped, so the registry is pushed to a Prometheus Pushgateway
// when one is configured.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Account outcomes used as the "status" label.
const (
	StatusOK               = "ok"
	StatusCredentialFailed = "credential_failed"
	StatusFetchFailed      = "fetch_failed"
)

type Metrics struct {
	AccountsProcessed *prometheus.CounterVec
	ActivitiesFetched *prometheus.CounterVec
	Checkpoint        *prometheus.GaugeVec
	RowsLoaded        *prometheus.CounterVec
	StageDuration     *prometheus.GaugeVec
	LastSuccess       *prometheus.GaugeVec

	registry *prometheus.Registry
}

func New() *Metrics {
	m := &Metrics{
		AccountsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stravaetl",
			Name:      "accounts_processed_total",
			Help:      "Accounts handled by the extract stage, by outcome.",
		}, []string{"status"}),
		ActivitiesFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stravaetl",
			Name:      "activities_fetched_total",
			Help:      "Activities returned by the API.",
		}, []string{"account"}),
		Checkpoint: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "stravaetl",
			Name:      "checkpoint_timestamp_seconds",
			Help:      "Stored checkpoint per account after the run.",
		}, []string{"account"}),
		RowsLoaded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stravaetl",
			Name:      "rows_loaded_total",
			Help:      "Rows written to destination tables.",
		}, []string{"table"}),
		StageDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "stravaetl",
			Name:      "stage_duration_seconds",
			Help:      "Wall time of the last run of each stage.",
		}, []string{"stage"}),
		LastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "stravaetl",
			Name:      "stage_last_success_timestamp_seconds",
			Help:      "Unix time the stage last completed without error.",
		}, []string{"stage"}),
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(
		m.AccountsProcessed,
		m.ActivitiesFetched,
		m.Checkpoint,
		m.RowsLoaded,
		m.StageDuration,
		m.LastSuccess,
	)
	return m
}

// ObserveStage records a finished stage. Only successful runs move the
// last-success gauge.
func (m *Metrics) ObserveStage(stage string, started time.Time, err error) {
	m.StageDuration.WithLabelValues(stage).Set(time.Since(started).Seconds())
	if err == nil {
		m.LastSuccess.WithLabelValues(stage).SetToCurrentTime()
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Push sends the registry to a Pushgateway, replacing the job's previous
// metrics.
func (m *Metrics) Push(ctx context.Context, url, job string) error {
	if err := push.New(url, job).Gatherer(m.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", url, err)
	}
	return nil
}
