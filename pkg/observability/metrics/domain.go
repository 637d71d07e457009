package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Login outcomes.
const (
	LoginSucceeded = "success"
	LoginRejected  = "rejected"
)

var (
	loginAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_attempts_total",
			Help:      "Login attempts by outcome",
		},
		[]string{"result"},
	)

	fileUploadsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "file_uploads_total",
			Help:      "Files stored through the upload endpoint",
		},
	)

	fileUploadBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "file_upload_bytes",
			Help:      "Size of uploaded files in bytes",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 10),
		},
	)

	cascadeRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cascade_affected_total",
			Help:      "Entities removed or unassigned as a side effect of a delete",
		},
		[]string{"operation"},
	)

	dependencyUp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dependency_up",
			Help:      "1 when the last readiness check of the dependency passed",
		},
		[]string{"check"},
	)
)

// RecordLogin counts a login attempt with the given result.
func RecordLogin(result string) {
	loginAttemptsTotal.WithLabelValues(result).Inc()
}

// RecordFileUpload counts an upload and observes its size.
func RecordFileUpload(size int64) {
	fileUploadsTotal.Inc()
	fileUploadBytes.Observe(float64(size))
}

// RecordCascade adds n affected entities for a cascading operation such as "board_tasks" or "user_tasks".
func RecordCascade(operation string, n int64) {
	if n <= 0 {
		return
	}
	cascadeRowsTotal.WithLabelValues(operation).Add(float64(n))
}

// RecordDependencyHealth sets the readiness gauge of one dependency check.
func RecordDependencyHealth(check string, healthy bool) {
	value := 0.0
	if healthy {
		value = 1
	}
	dependencyUp.WithLabelValues(check).Set(value)
}
