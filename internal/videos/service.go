package videos

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"clipshare/internal/apperr"
	"clipshare/internal/database"
	"clipshare/internal/filesystem"
	"clipshare/internal/transcoder"
)

// Store persists assets.
type Store interface {
	CreateAsset(ctx context.Context, a *database.Asset) error
	GetAsset(ctx context.Context, id string) (*database.Asset, error)
	GetAssetsByIDs(ctx context.Context, ids []string) ([]*database.Asset, error)
}

// Transcoder runs media operations as asynchronous jobs.
type Transcoder interface {
	Probe(ctx context.Context, path string) *transcoder.ProbeJob
	Trim(ctx context.Context, input, output string, start, duration float64) *transcoder.Job
	Normalize(ctx context.Context, input, output string, opts transcoder.NormalizeOptions) *transcoder.Job
	Concat(ctx context.Context, parts []string, output string) *transcoder.Job
}

// Config holds pipeline limits.
type Config struct {
	// BaseURL prefixes public links, e.g. "http://localhost:3000".
	BaseURL        string
	MaxUploadBytes int64
	MinDuration    float64
	MaxDuration    float64
	// Letterbox normalizes every merge input to 1920x1080.
	Letterbox bool
	// MaxParallel caps concurrent normalizations per merge (0 = CPU based).
	MaxParallel int
}

// DefaultConfig returns the standard upload bounds: 25 MiB and 5 to 25 seconds.
func DefaultConfig() Config {
	return Config{
		BaseURL:        "http://localhost:3000",
		MaxUploadBytes: 25 * 1024 * 1024,
		MinDuration:    5,
		MaxDuration:    25,
		MaxParallel:    8,
	}
}

// Service runs the upload, trim and merge pipelines.
type Service struct {
	store      Store
	transcoder Transcoder
	storage    *filesystem.Storage
	config     Config
	now        func() time.Time
}

// NewService creates a Service.
func NewService(store Store, tc Transcoder, storage *filesystem.Storage, config Config) *Service {
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	return &Service{
		store:      store,
		transcoder: tc,
		storage:    storage,
		config:     config,
		now:        time.Now,
	}
}

// Config returns the active configuration.
func (s *Service) Config() Config {
	return s.config
}

// Get returns an asset or a NotFound error.
func (s *Service) Get(ctx context.Context, id string) (*database.Asset, error) {
	asset, err := s.store.GetAsset(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, apperr.NotFound("Video not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "Failed to load video", err)
	}
	return asset, nil
}

// PublicURL returns the static URL for a file in the uploads directory.
func (s *Service) PublicURL(filename string) string {
	return s.config.BaseURL + "/uploads/" + url.PathEscape(filename)
}

// processingError classifies a transcoder failure.
func processingError(reason string, err error) error {
	if errors.Is(err, transcoder.ErrTimeout) {
		return apperr.Wrap(apperr.KindTimeout, "Video processing timed out", err)
	}
	return apperr.Wrap(apperr.KindProcessingFailed, reason, err)
}

// statusOf returns the metric status label for err.
func statusOf(err error) string {
	switch {
	case err == nil:
		return "success"
	case apperr.Is(err, apperr.KindTimeout):
		return "timeout"
	case apperr.Is(err, apperr.KindValidation), apperr.Is(err, apperr.KindNotFound):
		return "rejected"
	default:
		return "error"
	}
}

// shortID returns eight random hex characters for output names.
func shortID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
