/*
Package workers sizes the concurrency of the proxy's CPU- and I/O-bound
collaborators in containerized environments.

# Overview

In a container with a CPU limit, runtime.NumCPU still reports the host CPU
count while GOMAXPROCS follows the cgroup limit. Sizing libvips threads from
NumCPU on a 64-core node with a 2-core limit leads to throttling and memory
spikes during image decode. This package derives worker counts from
GOMAXPROCS instead.

# Usage

	// libvips operation threads (CPU-bound)
	vipsThreads := workers.ForCPU(8)

	// idle origin connections kept per host (I/O-bound)
	idle := workers.ForIO(64)

	// custom multiplier, no maximum
	n := workers.Count(3.0, 0)

# Environment Variable Override

TRANSCODE_WORKERS replaces the CPU-bound calculation when it holds a positive
integer. The limit passed by the caller still applies, and I/O sizing
ignores it:

	env:
	- name: TRANSCODE_WORKERS
	  value: "2"
*/
package workers
