// Package handlers provides the HTTP API for clipshare.
//
// It includes handlers for:
//   - Uploading, trimming and merging clips
//   - Issuing, revoking and redeeming share links, including byte-range streaming
//   - Asset metadata and poster frames
//   - Health, readiness and version probes
//
// Every failure is answered as JSON {"error": kind, "message": reason}.
package handlers
