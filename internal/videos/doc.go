// Package videos implements the clip pipelines: upload intake, trimming and
// merging. Each pipeline probes or transforms files through a Transcoder,
// stores results under the uploads directory and records them as assets.
//
// Trim and merge outputs are assets in their own right, with Origin and
// SourceIDs describing how they were derived, so they can be trimmed,
// merged and shared like any upload.
package videos
