package metrics

// Label values pre-populated by InitializeMetrics. The handler and
// pipeline packages use the same strings.
var (
	FailureReasons = []string{
		"invalid_url", "fetch_failed", "origin_status", "origin_redirect",
		"metadata", "transform", "stream", "client_gone",
	}
	FailureOutcomes = []string{"redirect", "bad_request", "abort"}
	PipelineStates  = []string{"fetching_metadata", "transforming", "streaming", "done", "failed"}
	OutputFormats   = []string{"webp", "jpeg"}
	ResponsePaths   = []string{"compress", "bypass"}
	StatusClasses   = []string{"2xx", "3xx", "4xx", "5xx", "error"}
)

// InitializeMetrics pre-populates expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// verdictReasons comes from the policy package.
func InitializeMetrics(verdictReasons []string) {
	for _, reason := range verdictReasons {
		VerdictsTotal.WithLabelValues(reason)
	}

	for _, reason := range FailureReasons {
		FailuresTotal.WithLabelValues(reason)
	}
	for _, outcome := range FailureOutcomes {
		FailureOutcomesTotal.WithLabelValues(outcome)
	}

	for _, format := range OutputFormats {
		TranscodeDuration.WithLabelValues(format)
	}

	// Only the legal transitions of the pipeline
	transitions := [][2]string{
		{"fetching_metadata", "transforming"},
		{"fetching_metadata", "failed"},
		{"transforming", "streaming"},
		{"transforming", "failed"},
		{"streaming", "done"},
		{"streaming", "failed"},
	}
	for _, tr := range transitions {
		TranscodeStateTransitions.WithLabelValues(tr[0], tr[1])
	}

	for _, path := range ResponsePaths {
		OriginalBytesTotal.WithLabelValues(path)
		ServedBytesTotal.WithLabelValues(path)
	}

	for _, class := range StatusClasses {
		OriginResponsesTotal.WithLabelValues(class)
	}
	OriginFetchDuration.WithLabelValues("ok")
	OriginFetchDuration.WithLabelValues("error")

	EngineMemoryBytes.WithLabelValues("current")
	EngineMemoryBytes.WithLabelValues("high")
}
