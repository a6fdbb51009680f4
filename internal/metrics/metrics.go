// Package metrics exposes the Prometheus instrumentation for the file
// drop service. Metrics are registered against the default registry and
// served by Handler.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "filedrop"

var (
	// UploadsTotal counts upload attempts by outcome: accepted,
	// rejected (validation) or error (storage failure).
	UploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "uploads_total",
		Help:      "Total number of upload attempts by outcome",
	}, []string{"status"})

	// UploadBytesTotal counts bytes accepted into storage.
	UploadBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "upload_bytes_total",
		Help:      "Total bytes written to the storage root",
	})

	// BroadcastsTotal counts fan-out rounds triggered by new files.
	BroadcastsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "broadcasts_total",
		Help:      "Total number of new-file broadcast rounds",
	})

	// BroadcastFailuresTotal counts per-connection delivery failures.
	BroadcastFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "broadcast_failures_total",
		Help:      "Total number of failed per-listener deliveries",
	})

	// ConnectedListeners tracks the number of open listener channels.
	ConnectedListeners = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "connected_listeners",
		Help:      "Number of currently connected notification listeners",
	})
)

// Handler returns the HTTP handler serving the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
