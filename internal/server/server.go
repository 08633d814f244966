// Package server implements the multiplexer serving the exported metrics.
package server

import (
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	mw "github.com/a-tho/sunexporter/internal/middleware"
)

const MetricsPath = "/metrics"

// NewServer creates a multiplexer exposing everything gathered by g in the
// Prometheus text format.
func NewServer(g prometheus.Gatherer) *chi.Mux {
	mux := chi.NewRouter()

	metrics := promhttp.HandlerFor(g, promhttp.HandlerOpts{
		// compression is left to the middleware
		DisableCompression: true,
	})
	mux.Method("GET", MetricsPath, mw.WithLogging(mw.WithCompressing(metrics)))

	return mux
}
