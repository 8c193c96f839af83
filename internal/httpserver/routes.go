package httpserver

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Routes serves the Prometheus registry on /metrics and the client health on
// /healthz.
func Routes(reg prometheus.Gatherer, health HealthHandler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", health.Handle)
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	return mux
}
