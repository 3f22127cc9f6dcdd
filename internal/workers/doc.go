/*
Package workers sizes concurrent work to the CPUs actually available.

Go 1.19+ sets GOMAXPROCS from the container CPU limit, while runtime.NumCPU
still reports the host. Worker counts are therefore derived from
GOMAXPROCS(0) and a per-workload multiplier:

	workers.ForCPU(8)   // 1 per CPU, at most 8
	workers.ForIO(16)   // 2 per CPU, at most 16
	workers.ForMixed(8) // 1.5 per CPU, at most 8

ForJobs caps the mixed ratio at the number of queued jobs; the merge
pipeline uses it to bound how many inputs are normalized in parallel.

Operators can pin the count with TRANSCODE_WORKERS:

	env:
	- name: TRANSCODE_WORKERS
	  value: "4"

The override is still capped by the caller's limit. Values that are not
positive integers are ignored.
*/
package workers
