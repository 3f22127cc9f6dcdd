// Package streaming serves stored clips over HTTP with byte-range support and
// timeout protection.
//
// # Ranges
//
// ServeRange answers a request for a file of known size. Without a Range
// header the whole file is sent with status 200. A single range of the form
// "bytes=start-" or "bytes=start-end" is answered with 206 and only that window
// is read from disk. An end past the last byte is clamped to it.
//
// Suffix ranges ("bytes=-500"), multiple ranges, other units, start after end
// and a start at or beyond the file size are all rejected with ErrInvalidRange.
// The caller answers those with 416 and a "Content-Range: bytes */size" header
// (see UnsatisfiableContentRange).
//
// # Timeouts
//
// Bodies are copied through a TimeoutWriter. Each write is bounded by
// WriteTimeout and the stream is cancelled when no write succeeds within
// IdleTimeout, so a stalled client cannot hold a file handle indefinitely.
//
//	cfg := streaming.DefaultConfig()
//	status, err := streaming.ServeRange(r.Context(), w, r, file, info.Size(), "video/mp4", cfg)
//	if errors.Is(err, streaming.ErrClientGone) {
//		return
//	}
//
// # Errors
//
//	ErrInvalidRange   the Range header cannot be satisfied
//	ErrWriteTimeout   a single write took longer than WriteTimeout
//	ErrClientGone     the request context was cancelled
//	ErrStreamCanceled the writer was closed or timed out while idle
package streaming
