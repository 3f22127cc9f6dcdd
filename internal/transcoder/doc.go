// Package transcoder drives ffmpeg and ffprobe for clip processing.
//
// It supports:
//   - Probing a file for duration, dimensions and codec
//   - Trimming a sub-range with stream copy
//   - Normalizing inputs to MPEG-TS intermediates, optionally letterboxed
//   - Concatenating intermediates into a single MP4
//   - Extracting a single preview frame
//
// Every operation runs asynchronously and returns a Job. Callers wait on
// the job with a context and may cancel it, which kills the underlying
// process. Each job is bounded by the configured timeout; a job that
// exceeds it fails with ErrTimeout.
//
// FFmpeg and FFprobe must be installed and available in the system PATH
// unless explicit binary paths are configured.
package transcoder
