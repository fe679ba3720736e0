// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Scans = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tagattend",
		Name:      "scans_total",
		Help:      "Tag scans by outcome and resulting direction.",
	}, []string{"outcome", "direction"})

	TableQueries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tagattend",
		Name:      "table_queries_total",
		Help:      "List-screen table queries by table and status.",
	}, []string{"table", "status"})

	TableQuerySeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "tagattend",
		Name:      "table_query_seconds",
		Help:      "Latency of list-screen table queries.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"table"})

	AuditFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tagattend",
		Name:      "audit_write_failures_total",
		Help:      "Unknown-tag audit lines that could not be written.",
	})

	RateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tagattend",
		Name:      "rate_limited_total",
		Help:      "Requests rejected by the rate limiter, by route.",
	}, []string{"route"})
)

// ObserveTableQuery records one table query.
func ObserveTableQuery(table string, started time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
		if errors.Is(err, context.Canceled) {
			status = "canceled"
		}
	}
	TableQueries.WithLabelValues(table, status).Inc()
	TableQuerySeconds.WithLabelValues(table).Observe(time.Since(started).Seconds())
}
