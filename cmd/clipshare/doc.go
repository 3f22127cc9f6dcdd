// Package main provides the entry point for the clipshare server.
//
// clipshare accepts short video uploads, trims and merges them with ffmpeg,
// and hands out expiring share links that stream the result with HTTP range
// support.
//
// # Application Lifecycle
//
//  1. Configuration Loading: Reads .env and environment variables, prepares directories
//  2. Database Initialization: Opens the SQLite asset store
//  3. Component Initialization:
//     - Storage: Upload directory and per-merge scratch namespaces
//     - Transcoder: ffmpeg/ffprobe jobs bounded by TRANSCODE_TIMEOUT
//     - Video service, share manager and poster generator
//     - Metrics Collector: Refreshes asset and share gauges every minute
//  4. HTTP Server Setup: Routes, metrics, credential gate and access log
//  5. Graceful Shutdown: On SIGINT/SIGTERM kills running ffmpeg processes,
//     then drains the HTTP servers
//
// # Middleware Order
//
// Requests pass through the access logger, then the credential gate, then
// the router, whose per-route metrics middleware labels requests by route
// template.
package main
