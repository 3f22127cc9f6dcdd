// Package middleware provides HTTP middleware for the clipshare server.
//
// It includes:
//   - Request logging in W3C Extended Log Format, with share tokens redacted
//   - Prometheus request metrics keyed by route template
//   - The static API credential gate
package middleware
