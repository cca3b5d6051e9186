package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_proxy_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "image_proxy_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "image_proxy_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Origin metrics
var (
	OriginFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "image_proxy_origin_fetch_duration_seconds",
			Help:    "Time until origin response headers were received",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"outcome"},
	)

	OriginResponsesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_proxy_origin_responses_total",
			Help: "Origin responses by status class",
		},
		[]string{"class"}, // "2xx", "3xx", "4xx", "5xx", "error"
	)
)

// Decision and savings metrics
var (
	VerdictsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_proxy_verdicts_total",
			Help: "Compression verdicts by reason",
		},
		[]string{"reason"},
	)

	OriginalBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_proxy_original_bytes_total",
			Help: "Origin bytes received, by path",
		},
		[]string{"path"}, // "compress", "bypass"
	)

	ServedBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_proxy_served_bytes_total",
			Help: "Bytes streamed to clients, by path",
		},
		[]string{"path"},
	)

	BytesSavedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "image_proxy_bytes_saved_total",
			Help: "Bytes saved by transcoding (original minus encoded, floored at zero)",
		},
	)
)

// Transcoder metrics
var (
	TranscodeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "image_proxy_transcode_duration_seconds",
			Help:    "Time from attaching the origin stream to the encoded size being known",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"format"},
	)

	TranscodeStateTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_proxy_transcode_state_transitions_total",
			Help: "Transcoding pipeline state transitions",
		},
		[]string{"from", "to"},
	)

	TranscodesInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "image_proxy_transcodes_in_progress",
			Help: "Number of transcoding pipelines currently running",
		},
	)

	FormatSubstitutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_proxy_format_substitutions_total",
			Help: "Encodes where the engine produced a different format than requested",
		},
		[]string{"requested", "produced"},
	)
)

// Failure metrics
var (
	FailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_proxy_failures_total",
			Help: "Request failures by reason",
		},
		[]string{"reason"},
	)

	FailureOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_proxy_failure_outcomes_total",
			Help: "How failures were answered",
		},
		[]string{"outcome"}, // "redirect", "bad_request", "abort"
	)
)

// Memory metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "image_proxy_memory_usage_ratio",
			Help: "Sampled memory usage as a ratio of the configured limit",
		},
	)

	MemoryPaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "image_proxy_memory_paused",
			Help: "Whether transcoding is bypassed due to memory pressure (1 = paused)",
		},
	)
)

// Engine metrics
var (
	EngineMemoryBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "image_proxy_engine_memory_bytes",
			Help: "Memory tracked by the transform engine",
		},
		[]string{"kind"}, // "current", "high"
	)

	EngineAllocations = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "image_proxy_engine_allocations",
			Help: "Live allocations tracked by the transform engine",
		},
	)

	EngineOpenFiles = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "image_proxy_engine_open_files",
			Help: "Files held open by the transform engine",
		},
	)
)

// Application info metric
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "image_proxy_app_info",
			Help: "Application information",
		},
		[]string{"version", "commit", "go_version", "engine"},
	)
)

// SetAppInfo sets the application info metric
func SetAppInfo(version, commit, goVersion, engine string) {
	AppInfo.WithLabelValues(version, commit, goVersion, engine).Set(1)
}

// StatusClass buckets an HTTP status code into "2xx".."5xx".
func StatusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	case code >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
