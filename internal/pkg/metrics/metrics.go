package metrics

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Drift detection metrics
	driftDetectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "driftwatch",
			Subsystem: "drift",
			Name:      "detections_total",
			Help:      "Total number of drift events detected",
		},
		[]string{"severity", "detector"},
	)

	detectionRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "driftwatch",
			Subsystem: "drift",
			Name:      "run_duration_seconds",
			Help:      "Duration of full drift detection runs",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
	)

	detectorFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "driftwatch",
			Subsystem: "drift",
			Name:      "detector_failures_total",
			Help:      "Total number of isolated detector failures",
		},
		[]string{"detector"},
	)

	// Alerting metrics
	alertDeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "driftwatch",
			Subsystem: "alerts",
			Name:      "deliveries_total",
			Help:      "Total number of alert delivery attempts",
		},
		[]string{"channel", "status"},
	)
)

// RecordDriftEvent counts one detected drift event.
func RecordDriftEvent(severity, detector string) {
	driftDetectionsTotal.WithLabelValues(severity, detector).Inc()
}

// RecordRunDuration observes the duration of a full detection run.
func RecordRunDuration(d time.Duration) {
	detectionRunDuration.Observe(d.Seconds())
}

// RecordDetectorFailure counts one isolated detector failure.
func RecordDetectorFailure(detector string) {
	detectorFailuresTotal.WithLabelValues(detector).Inc()
}

// RecordAlertDelivery counts one alert delivery attempt.
func RecordAlertDelivery(channel string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	alertDeliveriesTotal.WithLabelValues(channel, status).Inc()
}

// Handler returns the HTTP handler exposing /metrics and /healthz, used
// by the watch daemon.
func Handler() http.Handler {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}
