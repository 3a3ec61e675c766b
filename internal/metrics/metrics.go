// Package metrics exposes Prometheus instrumentation for the service.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "watchtrack_http_requests_total",
		Help: "HTTP requests by method, route and status code",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "watchtrack_http_request_duration_seconds",
		Help:    "HTTP request latency by method and route",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	recordOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "watchtrack_record_operations_total",
		Help: "Record operations by name and outcome",
	}, []string{"operation", "outcome"}) // outcome=ok|not_found|invalid|conflict|error

	statsCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "watchtrack_stats_cache_total",
		Help: "Statistics cache lookups by result",
	}, []string{"result"}) // result=hit|miss

	maintenanceRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "watchtrack_store_maintenance_runs_total",
		Help: "Store maintenance runs by outcome",
	}, []string{"outcome"})
)

func ObserveHTTPRequest(method, route string, status int, d time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func IncRecordOperation(operation, outcome string) {
	recordOperationsTotal.WithLabelValues(operation, outcome).Inc()
}

func IncStatsCache(hit bool) {
	if hit {
		statsCacheTotal.WithLabelValues("hit").Inc()
		return
	}
	statsCacheTotal.WithLabelValues("miss").Inc()
}

func IncMaintenanceRun(outcome string) {
	maintenanceRunsTotal.WithLabelValues(outcome).Inc()
}
