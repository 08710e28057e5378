// Package metrics holds the Prometheus collectors for the HTTP surface and
// the expense engine.
package metrics

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/josh-kwaku/splitledger/internal/domain"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "splitledger_http_requests_total",
		Help: "Total HTTP requests by method, route and status",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "splitledger_http_request_duration_seconds",
		Help:    "HTTP request latency by method and route",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	expenseWritesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "splitledger_expense_writes_total",
		Help: "Committed expense writes by operation and split type",
	}, []string{"operation", "split_type"})

	splitRejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "splitledger_split_rejections_total",
		Help: "Expense writes rejected by split validation, by reason",
	}, []string{"reason"})

	eventPublishFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "splitledger_event_publish_failures_total",
		Help: "Expense events that could not be published",
	})

	panicsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "splitledger_http_panics_total",
		Help: "Handler panics caught by the recovery middleware",
	})
)

func Handler() http.Handler {
	return promhttp.Handler()
}

func ObserveRequest(method, route string, status int, seconds float64) {
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(seconds)
}

func RecordExpenseWrite(operation string, splitType domain.SplitType) {
	expenseWritesTotal.WithLabelValues(operation, string(splitType)).Inc()
}

// RecordSplitRejection counts err if it is a split validation failure.
func RecordSplitRejection(err error) {
	var se *domain.SplitError
	if errors.As(err, &se) {
		splitRejectionsTotal.WithLabelValues(se.Reason()).Inc()
	}
}

func RecordPublishFailure() {
	eventPublishFailuresTotal.Inc()
}

func RecordPanic() {
	panicsTotal.Inc()
}
