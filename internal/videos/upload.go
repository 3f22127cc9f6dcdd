package videos

import (
	"context"
	"math"
	"path/filepath"

	"clipshare/internal/apperr"
	"clipshare/internal/database"
	"clipshare/internal/logging"
	"clipshare/internal/metrics"
)

// UploadedFile describes bytes already written to the uploads directory.
type UploadedFile struct {
	Path     string
	Filename string
	Size     int64
}

// Upload validates a stored file and records it as an asset.
//
// A file over the size limit is rejected before probing and left where it
// is. A file whose duration falls outside the configured bounds is deleted
// before the error is returned.
func (s *Service) Upload(ctx context.Context, f UploadedFile) (*database.Asset, error) {
	if f.Size > s.config.MaxUploadBytes {
		metrics.UploadsTotal.WithLabelValues("too_large").Inc()
		return nil, apperr.Validation("File size exceeds limit").WithDetail("FileTooLarge")
	}

	info, err := s.transcoder.Probe(ctx, f.Path).Result(ctx)
	if err != nil {
		metrics.UploadsTotal.WithLabelValues("probe_failed").Inc()
		logging.Warn("Probe failed for upload %s: %v", f.Filename, err)
		return nil, processingError("Error reading video metadata", err)
	}

	if !s.durationAccepted(info.Duration) {
		if rmErr := s.storage.Remove(f.Path); rmErr != nil {
			logging.Warn("Failed to remove rejected upload %s: %v", f.Path, rmErr)
		}
		metrics.UploadsTotal.WithLabelValues("invalid_duration").Inc()
		return nil, apperr.Validation("Invalid video duration").WithDetail("InvalidDuration")
	}

	asset := &database.Asset{
		Filename:        filepath.Base(f.Path),
		StoragePath:     f.Path,
		SizeBytes:       f.Size,
		DurationSeconds: info.Duration,
		Origin:          database.OriginUpload,
	}
	if err := s.store.CreateAsset(ctx, asset); err != nil {
		metrics.UploadsTotal.WithLabelValues("error").Inc()
		_ = s.storage.Remove(f.Path)
		return nil, apperr.Wrap(apperr.KindInternal, "Failed to save video", err)
	}

	metrics.UploadsTotal.WithLabelValues("accepted").Inc()
	logging.Info("Accepted upload %s as %s (%.2fs, %d bytes)", f.Filename, asset.ID, info.Duration, f.Size)
	return asset, nil
}

func (s *Service) durationAccepted(d float64) bool {
	if math.IsNaN(d) || math.IsInf(d, 0) {
		return false
	}
	return d >= s.config.MinDuration && d <= s.config.MaxDuration
}
