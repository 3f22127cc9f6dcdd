// Package startup handles configuration loading and the startup/shutdown
// log banner.
//
// # Configuration
//
// [LoadConfig] reads an optional .env file from the working directory and
// then the process environment (which wins over the file):
//
//   - PORT: HTTP server port (default: 3000)
//   - METRICS_PORT: Prometheus metrics server port (default: 9090)
//   - METRICS_ENABLED: Enable or disable the metrics server (default: true)
//   - BASE_URL: Public origin used in returned links (default: http://localhost:PORT)
//   - UPLOAD_DIR: Stored videos, also served under /uploads/ (default: ./uploads)
//   - CACHE_DIR: Posters and merge scratch space (default: ./cache)
//   - DATABASE_DIR: SQLite database location (default: ./data)
//   - STATIC_API_TOKEN / STATIC_API_TOKEN_HASH: Credential for write endpoints
//   - MAX_UPLOAD_BYTES: Upload size limit (default: 26214400)
//   - MIN_DURATION_SECONDS / MAX_DURATION_SECONDS: Accepted clip length (default: 5 / 25)
//   - TRANSCODE_TIMEOUT: Per ffmpeg job limit as Go duration (default: 2m)
//   - TRANSCODE_WORKERS: Parallel normalize jobs per merge (default: CPU based)
//   - MERGE_LETTERBOX: Scale merge inputs onto a 1920x1080 canvas (default: false)
//   - SHARE_MAX_EXPIRY_MINUTES: Longest share link lifetime (default: 10080)
//   - LOG_LEVEL, LOG_STATIC_FILES, LOG_HEALTH_CHECKS: Logging controls
//
// Upload, cache and database directories are created if missing and must be
// writable.
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo].
package startup
