package handlers

import (
	"time"

	"image-proxy/internal/memory"
	"image-proxy/internal/origin"
	"image-proxy/internal/policy"
	"image-proxy/internal/request"
	"image-proxy/internal/streaming"
	"image-proxy/internal/transcoder"
)

// Config holds the per-process settings every proxied request reads.
// It is fixed at startup.
type Config struct {
	Thresholds     policy.Thresholds
	DefaultQuality int
	Stream         streaming.Config
}

// Handlers serves the proxy and its operational endpoints
type Handlers struct {
	fetcher   *origin.Fetcher
	pipeline  *transcoder.Pipeline
	monitor   *memory.Monitor
	config    Config
	startTime time.Time
}

// New creates the handler set. monitor may be nil, in which case the
// memory-pressure bypass never triggers.
func New(fetcher *origin.Fetcher, pipeline *transcoder.Pipeline, monitor *memory.Monitor, config Config) *Handlers {
	if config.DefaultQuality <= 0 {
		config.DefaultQuality = request.DefaultQuality
	}
	if config.Thresholds == (policy.Thresholds{}) {
		config.Thresholds = policy.DefaultThresholds()
	}
	if config.Stream.ChunkSize <= 0 {
		config.Stream = streaming.DefaultConfig()
	}

	return &Handlers{
		fetcher:   fetcher,
		pipeline:  pipeline,
		monitor:   monitor,
		config:    config,
		startTime: time.Now(),
	}
}
