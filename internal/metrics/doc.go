// Package metrics provides Prometheus instrumentation for the image proxy.
//
// All metrics are prefixed with "image_proxy_" and registered with the
// default registry through promauto. Mount promhttp.Handler() to expose them;
// main serves them on METRICS_PORT.
//
// # Metric Categories
//
// HTTP: HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight.
//
// Origin: OriginFetchDuration (time to response headers) and
// OriginResponsesTotal by status class.
//
// Decisions and savings: VerdictsTotal by policy reason, OriginalBytesTotal
// and ServedBytesTotal by path (compress or bypass), BytesSavedTotal.
//
// Transcoder: TranscodeDuration by produced format,
// TranscodeStateTransitions by (from, to), TranscodesInProgress and
// FormatSubstitutions.
//
// Failures: FailuresTotal by reason and FailureOutcomesTotal by how the
// failure was answered (redirect, bad_request, abort).
//
// Memory and engine: MemoryUsageRatio, MemoryPaused, and the engine gauges
// fed by Collector from a StatsProvider.
//
// # Example Queries
//
//	# share of requests that were transcoded
//	sum(rate(image_proxy_verdicts_total{reason="compress"}[5m]))
//	  / sum(rate(image_proxy_verdicts_total[5m]))
//
//	# bandwidth saved per second
//	rate(image_proxy_bytes_saved_total[5m])
//
//	# redirect fallbacks by reason
//	sum by (reason) (rate(image_proxy_failures_total[5m]))
package metrics
