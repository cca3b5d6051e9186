package metrics

import (
	"sync"
	"sync/atomic"
	"time"

	"image-proxy/internal/logging"
)

// StatsProvider is implemented by transform engines that can report their
// own resource usage.
type StatsProvider interface {
	GetStats() Stats
}

// Stats holds engine resource statistics
type Stats struct {
	MemoryBytes     int64
	MemoryHighBytes int64
	Allocations     int64
	OpenFiles       int64
}

// Collector samples a StatsProvider on a fixed interval and publishes the
// engine gauges. Only libvips reports stats; the pure-Go engine has none.
type Collector struct {
	provider StatsProvider
	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
	started  atomic.Bool
	stopOnce sync.Once
	peak     int64
}

// NewCollector creates a new metrics collector
func NewCollector(provider StatsProvider, interval time.Duration) *Collector {
	return &Collector{
		provider: provider,
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start samples once immediately and then every interval
func (c *Collector) Start() {
	if !c.started.CompareAndSwap(false, true) {
		return
	}
	go c.run()
}

// Stop ends sampling and waits for the loop to exit. It is safe to call
// more than once, and before Start.
func (c *Collector) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
	if c.started.Load() {
		<-c.done
	}
}

func (c *Collector) run() {
	defer close(c.done)

	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stop:
			return
		}
	}
}

func (c *Collector) collect() {
	if c.provider == nil {
		return
	}

	stats := c.provider.GetStats()

	EngineMemoryBytes.WithLabelValues("current").Set(float64(stats.MemoryBytes))
	EngineMemoryBytes.WithLabelValues("high").Set(float64(stats.MemoryHighBytes))
	EngineAllocations.Set(float64(stats.Allocations))
	EngineOpenFiles.Set(float64(stats.OpenFiles))

	// libvips only reports its high-water mark; log when it moves
	if stats.MemoryHighBytes > c.peak {
		c.peak = stats.MemoryHighBytes
		logging.Debug("Engine memory peak now %d bytes (current=%d allocs=%d files=%d)",
			stats.MemoryHighBytes, stats.MemoryBytes, stats.Allocations, stats.OpenFiles)
	}
}
