// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics provides Prometheus metrics for docconv submissions and
// the local gateway.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pdiddy/docconv/internal/upload"
)

var (
	// Submission metrics
	submissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docconv_submissions_total",
			Help: "Total submissions to the conversion service",
		},
		[]string{"workflow", "status"},
	)

	submissionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docconv_submission_duration_seconds",
			Help:    "Submission round-trip duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"workflow"},
	)

	bytesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "docconv_bytes_sent_total",
			Help: "Total file bytes submitted",
		},
	)

	bytesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "docconv_bytes_received_total",
			Help: "Total result bytes received",
		},
	)

	// Upload metrics
	rejectedFilesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docconv_rejected_files_total",
			Help: "Files rejected before submission",
		},
		[]string{"reason"},
	)

	// Gateway metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docconv_gateway_requests_total",
			Help: "Total gateway HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "docconv_gateway_request_duration_seconds",
			Help:    "Gateway HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordSubmission records one attempted submission.
func RecordSubmission(workflow string, success bool, sent, received int64, duration time.Duration) {
	status := "success"
	if !success {
		status = "error"
	}
	submissionsTotal.WithLabelValues(workflow, status).Inc()
	submissionDuration.WithLabelValues(workflow).Observe(duration.Seconds())
	bytesSent.Add(float64(sent))
	bytesReceived.Add(float64(received))
}

// RecordRejections counts files turned away by upload validation.
func RecordRejections(rejected []upload.Rejection) {
	for _, r := range rejected {
		reason := "other"
		switch {
		case errors.Is(r.Err, upload.ErrTooLarge):
			reason = "too_large"
		case errors.Is(r.Err, upload.ErrUnsupportedType):
			reason = "unsupported_type"
		}
		rejectedFilesTotal.WithLabelValues(reason).Inc()
	}
}

// RecordHTTPRequest records a gateway HTTP request.
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
