// Package metrics provides Prometheus metrics for the admin client.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	apiRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fsadmin_api_requests_total",
			Help: "Total number of calls to the file server API",
		},
		[]string{"op", "outcome"},
	)

	apiRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fsadmin_api_request_duration_seconds",
			Help:    "File server API call duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	uploadBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fsadmin_upload_bytes_total",
			Help: "Total file payload bytes sent to the upload endpoint",
		},
	)

	downloadBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fsadmin_download_bytes_total",
			Help: "Total bytes received from the download endpoint",
		},
	)

	loggedIn = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fsadmin_session_logged_in",
			Help: "1 while the panel holds a session, 0 otherwise",
		},
	)

	listedFiles = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fsadmin_listed_files",
			Help: "Number of files in the last successful listing",
		},
	)
)

// Outcome labels.
const (
	OutcomeOK          = "ok"
	OutcomeServerError = "server_error"
	OutcomeConnection  = "connection_error"
)

// RecordAPICall records one API call and its duration.
func RecordAPICall(op, outcome string, started time.Time) {
	apiRequestsTotal.WithLabelValues(op, outcome).Inc()
	apiRequestDuration.WithLabelValues(op).Observe(time.Since(started).Seconds())
}

// RecordUploadBytes adds to the uploaded byte counter.
func RecordUploadBytes(n int64) {
	if n > 0 {
		uploadBytesTotal.Add(float64(n))
	}
}

// RecordDownloadBytes adds to the downloaded byte counter.
func RecordDownloadBytes(n int64) {
	if n > 0 {
		downloadBytesTotal.Add(float64(n))
	}
}

// SetLoggedIn flips the session gauge.
func SetLoggedIn(v bool) {
	if v {
		loggedIn.Set(1)
		return
	}
	loggedIn.Set(0)
}

// SetListedFiles records the size of the last listing.
func SetListedFiles(n int) {
	listedFiles.Set(float64(n))
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
