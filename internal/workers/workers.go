package workers

import (
	"os"
	"runtime"
	"strconv"
)

// EnvOverride names the environment variable that pins the worker count.
const EnvOverride = "TRANSCODE_WORKERS"

// Count returns the number of workers for a task type, derived from
// GOMAXPROCS so container CPU limits are respected.
//
// The multiplier adjusts for task characteristics:
//   - 1.0 for CPU-bound tasks
//   - 2.0 for I/O-bound tasks
//   - 1.5 for mixed tasks
//
// limit caps the result; 0 means no cap. A positive TRANSCODE_WORKERS value
// replaces the computed count but is still capped by limit.
func Count(multiplier float64, limit int) int {
	if override := os.Getenv(EnvOverride); override != "" {
		if count, err := strconv.Atoi(override); err == nil && count > 0 {
			return capAt(count, limit)
		}
	}

	workers := int(float64(runtime.GOMAXPROCS(0)) * multiplier)
	if workers < 1 {
		workers = 1
	}
	return capAt(workers, limit)
}

// ForCPU returns worker count for CPU-bound tasks (1 per CPU).
func ForCPU(limit int) int {
	return Count(1.0, limit)
}

// ForIO returns worker count for I/O-bound tasks (2 per CPU).
func ForIO(limit int) int {
	return Count(2.0, limit)
}

// ForMixed returns worker count for mixed tasks (1.5 per CPU).
func ForMixed(limit int) int {
	return Count(1.5, limit)
}

// ForJobs returns how many of n queued ffmpeg jobs may run at once. Stream
// copies mostly wait on disk, so the mixed ratio is used, and there is never
// more concurrency than jobs.
func ForJobs(n, limit int) int {
	if n < 1 {
		return 1
	}
	if limit <= 0 || n < limit {
		limit = n
	}
	return ForMixed(limit)
}

func capAt(count, limit int) int {
	if limit > 0 && count > limit {
		return limit
	}
	return count
}
