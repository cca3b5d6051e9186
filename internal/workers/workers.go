package workers

import (
	"os"
	"runtime"
	"strconv"
	"strings"
)

// OverrideEnv names the environment variable that pins the transcode thread
// count. It does not affect I/O sizing.
const OverrideEnv = "TRANSCODE_WORKERS"

// Count scales GOMAXPROCS, which follows container CPU limits, by multiplier
// and clamps the result to [1, limit]. A limit of 0 means no upper bound.
func Count(multiplier float64, limit int) int {
	return clamp(int(float64(runtime.GOMAXPROCS(0))*multiplier), limit)
}

// ForCPU returns the thread count for CPU-bound work such as libvips
// decode and encode: one per CPU, or TRANSCODE_WORKERS when set to a
// positive integer.
func ForCPU(limit int) int {
	if n, ok := override(); ok {
		return clamp(n, limit)
	}
	return Count(1.0, limit)
}

// ForIO returns the size of I/O-bound pools such as idle origin
// connections: two per CPU.
func ForIO(limit int) int {
	return Count(2.0, limit)
}

func override() (int, bool) {
	value := strings.TrimSpace(os.Getenv(OverrideEnv))
	if value == "" {
		return 0, false
	}
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

func clamp(n, limit int) int {
	if n < 1 {
		n = 1
	}
	if limit > 0 && n > limit {
		n = limit
	}
	return n
}
