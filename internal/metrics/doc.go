// Package metrics provides Prometheus instrumentation for clipshare.
//
// All metrics are prefixed with "clipshare_" and registered on the default
// registry through promauto, so importing the package is enough to expose
// them on the metrics port.
//
// # Metric Categories
//
// ## HTTP Metrics
//   - HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight
//
// ## Database Metrics
//   - DBQueryTotal, DBQueryDuration, DBConnectionsOpen
//
// ## Transcoder Metrics
//
// One observation per ffmpeg/ffprobe invocation, labeled by operation
// ("probe", "trim", "normalize", "concat", "frame"):
//   - TranscoderOperationsTotal: by operation and status ("success", "error", "timeout", "canceled")
//   - TranscoderOperationDuration
//   - TranscoderProcessesActive
//
// ## Pipeline Metrics
//   - UploadsTotal: by result ("accepted", "too_large", "invalid_duration", "probe_failed")
//   - TrimsTotal: by status
//   - MergeJobsTotal: by terminal state ("completed", "failed", "rejected")
//   - MergeJobDuration, MergeIntermediatesActive
//
// ## Share Metrics
//   - ShareTokensIssued, ShareValidationsTotal, RangeResponsesTotal
//
// ## Library Metrics
//
// Refreshed periodically by the Collector:
//   - AssetsTotal: by origin ("upload", "trim", "merge")
//   - ActiveShares
package metrics
