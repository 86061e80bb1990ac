package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	storeOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "userevents_store_operation_seconds",
		Help:    "Latency of key-value store operations",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
	}, []string{"backend", "operation", "table"})

	storeErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "userevents_store_errors_total",
		Help: "Key-value store operations that returned an error",
	}, []string{"backend", "operation", "table"})

	emailsDelivered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "userevents_emails_total",
		Help: "Email delivery attempts by outcome",
	}, []string{"status"})

	aggregationScanned = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "userevents_role_aggregation_relations",
		Help:    "Relation records tallied per role aggregation",
		Buckets: prometheus.ExponentialBuckets(1, 4, 10),
	}, []string{"role"})
)

func ObserveStoreOperation(backend, operation, table string, started time.Time, err error) {
	storeOperationDuration.WithLabelValues(backend, operation, table).Observe(time.Since(started).Seconds())
	if err != nil {
		storeErrors.WithLabelValues(backend, operation, table).Inc()
	}
}

func EmailDelivered(ok bool) {
	if ok {
		emailsDelivered.WithLabelValues("sent").Inc()
		return
	}
	emailsDelivered.WithLabelValues("failed").Inc()
}

func AggregationScanned(role string, relations int) {
	aggregationScanned.WithLabelValues(role).Observe(float64(relations))
}
