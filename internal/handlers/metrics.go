package handlers

import (
	"fmt"
	"net/http"

	"image-proxy/internal/logging"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// promLogger routes exposition errors into the application log
type promLogger struct{}

func (promLogger) Println(v ...interface{}) {
	logging.Warn("metrics: %s", fmt.Sprint(v...))
}

// MetricsHandler returns the Prometheus metrics handler. A failing collector
// is logged and the remaining metrics are still served.
func (h *Handlers) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
		ErrorLog:      promLogger{},
		ErrorHandling: promhttp.ContinueOnError,
	})
}
