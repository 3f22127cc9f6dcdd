package videos

import (
	"context"
	"math"
	"path/filepath"
	"strings"

	"clipshare/internal/apperr"
	"clipshare/internal/database"
	"clipshare/internal/logging"
	"clipshare/internal/metrics"
)

// TrimResult is returned by a successful trim.
type TrimResult struct {
	Message         string          `json:"message"`
	TrimmedVideoURL string          `json:"trimmedVideoUrl"`
	Asset           *database.Asset `json:"video"`
}

// Trim cuts [start, end] seconds out of an asset into a new asset. The
// source asset and its file are never modified.
func (s *Service) Trim(ctx context.Context, id string, start, end float64) (result *TrimResult, err error) {
	defer func() { metrics.TrimsTotal.WithLabelValues(statusOf(err)).Inc() }()

	source, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if !validTrimRange(start, end, source.DurationSeconds) {
		return nil, apperr.Validation("Invalid start and end times").WithDetail("InvalidRange")
	}

	name := trimmedName(source.Filename)
	output, err := s.storage.UploadPath(name)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "Failed to allocate output", err)
	}

	logging.Debug("Trimming %s [%.3f, %.3f] into %s", id, start, end, name)

	if err := s.transcoder.Trim(ctx, source.StoragePath, output, start, end-start).Wait(ctx); err != nil {
		_ = s.storage.Remove(output)
		logging.Error("Trim of %s failed: %v", id, err)
		return nil, processingError("Error trimming video", err)
	}

	asset, err := s.recordDerived(ctx, output, database.OriginTrim, []string{id})
	if err != nil {
		_ = s.storage.Remove(output)
		return nil, err
	}

	return &TrimResult{
		Message:         "Video trimmed successfully",
		TrimmedVideoURL: s.PublicURL(name),
		Asset:           asset,
	}, nil
}

// recordDerived probes a freshly written output and stores it as an asset.
func (s *Service) recordDerived(ctx context.Context, path string, origin database.Origin, sources []string) (*database.Asset, error) {
	info, err := s.transcoder.Probe(ctx, path).Result(ctx)
	if err != nil {
		return nil, processingError("Error reading output metadata", err)
	}

	stat, err := s.storage.Stat(path)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindProcessingFailed, "Output file missing", err)
	}

	asset := &database.Asset{
		Filename:        filepath.Base(path),
		StoragePath:     path,
		SizeBytes:       stat.Size(),
		DurationSeconds: info.Duration,
		Origin:          origin,
		SourceIDs:       sources,
	}
	if err := s.store.CreateAsset(ctx, asset); err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "Failed to save video", err)
	}
	return asset, nil
}

func validTrimRange(start, end, duration float64) bool {
	for _, v := range []float64{start, end} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return start >= 0 && start < end && end <= duration
}

// trimmedName derives "trimmed-<stem>-<random>.mp4" from a source filename.
func trimmedName(filename string) string {
	stem := strings.TrimSuffix(filename, filepath.Ext(filename))
	if stem == "" {
		stem = "clip"
	}
	return "trimmed-" + stem + "-" + shortID() + ".mp4"
}
