// Package logging provides the leveled logger used across clipshare.
//
// Levels, from most to least verbose:
//   - DEBUG: transcoder command lines, merge state transitions
//   - INFO: startup, accepted uploads, completed jobs
//   - WARN: cleanup failures, rejected credentials
//   - ERROR: transcoder and database failures
//   - FATAL: unrecoverable startup errors
//
// The level comes from LOG_LEVEL, or DEBUG=true as a shortcut.
package logging
