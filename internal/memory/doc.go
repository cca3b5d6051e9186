// Package memory controls the proxy's memory footprint in containerized
// environments.
//
// # Overview
//
// Decoding a large image needs the whole bitmap in memory, and libvips keeps
// its pixel buffers outside the Go heap. A burst of large origins can
// therefore push the process over its container limit even though every
// individual response streams in bounded chunks.
//
// This package provides:
//   - ConfigureFromEnv, which derives GOMEMLIMIT from the container limit
//   - Monitor, which samples heap plus external (libvips) usage and flips a
//     pause flag when usage crosses the critical water mark
//
// While the monitor is paused, the proxy handler bypasses transcoding and
// streams origin bytes unmodified. Requests never block on the monitor.
//
// # Environment Variables
//
//   - GOMEMLIMIT: Standard Go environment variable. If set, takes precedence.
//   - MEMORY_LIMIT: Container memory limit in bytes, typically from the
//     Kubernetes Downward API.
//   - MEMORY_RATIO: Share of MEMORY_LIMIT given to the Go heap, between 0.0
//     and 1.0. Default 0.75.
//
// # Kubernetes Example
//
//	env:
//	- name: MEMORY_LIMIT
//	  valueFrom:
//	    resourceFieldRef:
//	      resource: limits.memory
//
// # Monitoring
//
//	monitor := memory.NewMonitor(memory.Config{
//	    HighWaterMark:     0.7,
//	    CriticalWaterMark: 0.85,
//	    CheckInterval:     5 * time.Second,
//	    External:          vips.MemoryInUse,
//	})
//	monitor.Start()
//	defer monitor.Stop()
//
//	if monitor.IsPaused() {
//	    // stream the origin instead of transcoding
//	}
package memory
