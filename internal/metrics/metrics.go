package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/shopspring/decimal"
)

// Fetch outcomes used as the "result" label.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Recorder holds the metrics of a single command run on a private registry.
type Recorder struct {
	registry *prometheus.Registry

	RateFetchTotal     *prometheus.CounterVec
	Rate               *prometheus.GaugeVec
	RowsUpdated        *prometheus.GaugeVec
	SyncFailuresTotal  *prometheus.CounterVec
	ExportRows         *prometheus.GaugeVec
	LastSuccessSeconds prometheus.Gauge
}

// NewRecorder registers every collector on a fresh registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		registry: reg,
		RateFetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pricesync_rate_fetch_total",
			Help: "Rate fetch attempts by currency and result.",
		}, []string{"currency", "result"}),
		Rate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pricesync_rate",
			Help: "Last fetched mid rate against PLN.",
		}, []string{"currency"}),
		RowsUpdated: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pricesync_rows_updated",
			Help: "Rows touched by the last price update.",
		}, []string{"table", "column"}),
		SyncFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pricesync_sync_failures_total",
			Help: "Failed sync targets by currency and error kind.",
		}, []string{"currency", "kind"}),
		ExportRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pricesync_export_rows",
			Help: "Rows written by the last export.",
		}, []string{"table"}),
		LastSuccessSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pricesync_last_success_timestamp_seconds",
			Help: "Unix time of the last fully successful command.",
		}),
	}

	reg.MustRegister(
		r.RateFetchTotal,
		r.Rate,
		r.RowsUpdated,
		r.SyncFailuresTotal,
		r.ExportRows,
		r.LastSuccessSeconds,
	)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveFetch counts a fetch attempt and records the rate when it succeeded.
func (r *Recorder) ObserveFetch(currency string, mid decimal.Decimal, err error) {
	if r == nil {
		return
	}
	if err != nil {
		r.RateFetchTotal.WithLabelValues(currency, ResultError).Inc()
		return
	}
	r.RateFetchTotal.WithLabelValues(currency, ResultOK).Inc()
	r.Rate.WithLabelValues(currency).Set(mid.InexactFloat64())
}

// ObserveSync records rows touched for a target column.
func (r *Recorder) ObserveSync(table, column string, rows int64) {
	if r == nil {
		return
	}
	r.RowsUpdated.WithLabelValues(table, column).Set(float64(rows))
}

// ObserveFailure counts a failed target.
func (r *Recorder) ObserveFailure(currency, kind string) {
	if r == nil {
		return
	}
	if kind == "" {
		kind = "unknown"
	}
	r.SyncFailuresTotal.WithLabelValues(currency, kind).Inc()
}

// ObserveExport records the exported row count.
func (r *Recorder) ObserveExport(table string, rows int) {
	if r == nil {
		return
	}
	r.ExportRows.WithLabelValues(table).Set(float64(rows))
}

// MarkSuccess stamps the last-success gauge.
func (r *Recorder) MarkSuccess(at time.Time) {
	if r == nil {
		return
	}
	r.LastSuccessSeconds.Set(float64(at.Unix()))
}

// Push sends the registry to a Pushgateway. An empty url is a no-op.
func (r *Recorder) Push(ctx context.Context, url, job string) error {
	if r == nil || url == "" {
		return nil
	}
	if err := push.New(url, job).Gatherer(r.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
