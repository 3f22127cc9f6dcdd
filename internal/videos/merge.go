package videos

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"clipshare/internal/apperr"
	"clipshare/internal/database"
	"clipshare/internal/filesystem"
	"clipshare/internal/logging"
	"clipshare/internal/metrics"
	"clipshare/internal/transcoder"
	"clipshare/internal/workers"
)

// MergeState is a stage of a merge job.
type MergeState string

// Merge job stages. Completed and Failed are terminal.
const (
	MergeResolving     MergeState = "resolving"
	MergeNormalizing   MergeState = "normalizing"
	MergeConcatenating MergeState = "concatenating"
	MergeCompleted     MergeState = "completed"
	MergeFailed        MergeState = "failed"
)

// MergeOptions controls input normalization.
type MergeOptions struct {
	Letterbox bool
}

// MergeResult is returned by a successful merge.
type MergeResult struct {
	Message        string          `json:"message"`
	MergedVideoURL string          `json:"mergedVideoUrl"`
	Asset          *database.Asset `json:"video"`
}

// mergeJob tracks one merge through its stages.
type mergeJob struct {
	id      string
	state   MergeState
	started time.Time
	// intermediates counts part files created so far.
	intermediates atomic.Int64
}

func (j *mergeJob) transition(state MergeState) {
	logging.Debug("Merge %s: %s -> %s", j.id, j.state, state)
	j.state = state
	metrics.MergeJobsTotal.WithLabelValues(string(state)).Inc()
	if state == MergeCompleted || state == MergeFailed {
		metrics.MergeJobDuration.Observe(time.Since(j.started).Seconds())
	}
}

// Merge concatenates the given assets, in order, into a new asset using
// the configured normalization policy.
func (s *Service) Merge(ctx context.Context, ids []string) (*MergeResult, error) {
	return s.MergeWithOptions(ctx, ids, MergeOptions{Letterbox: s.config.Letterbox})
}

// MergeWithOptions concatenates the given assets into a new asset.
//
// Every input is first normalized to an MPEG-TS intermediate; these run
// concurrently and the first failure cancels the rest. Intermediates live in
// a directory owned by this job alone and are removed on every exit path.
// Either a merged asset is produced or nothing is left behind.
func (s *Service) MergeWithOptions(ctx context.Context, ids []string, opts MergeOptions) (result *MergeResult, err error) {
	job := &mergeJob{id: uuid.NewString(), started: time.Now()}
	job.transition(MergeResolving)
	defer func() {
		if err != nil {
			logging.Warn("Merge %s failed: %v", job.id, err)
			job.transition(MergeFailed)
		}
	}()

	assets, err := s.resolveInputs(ctx, ids)
	if err != nil {
		return nil, err
	}

	ns, err := s.storage.NewNamespace("merge", job.id)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "Failed to prepare merge workspace", err)
	}
	defer func() {
		if rmErr := ns.Remove(); rmErr != nil {
			logging.Warn("Merge %s cleanup failed: %v", job.id, rmErr)
		}
		metrics.MergeIntermediatesActive.Sub(float64(job.intermediates.Load()))
	}()

	job.transition(MergeNormalizing)
	parts, err := s.normalizeAll(ctx, job, ns, assets, opts)
	if err != nil {
		return nil, processingError("Error processing video", err)
	}

	job.transition(MergeConcatenating)
	name := "merged-" + strconv.FormatInt(s.now().UnixMilli(), 10) + "-" + shortID() + ".mp4"
	output, err := s.storage.UploadPath(name)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "Failed to allocate output", err)
	}

	if err := s.transcoder.Concat(ctx, parts, output).Wait(ctx); err != nil {
		_ = s.storage.Remove(output)
		return nil, processingError("Error merging videos", err)
	}

	asset, err := s.recordDerived(ctx, output, database.OriginMerge, ids)
	if err != nil {
		_ = s.storage.Remove(output)
		return nil, err
	}

	job.transition(MergeCompleted)
	logging.Info("Merge %s produced %s from %d inputs", job.id, asset.ID, len(ids))

	return &MergeResult{
		Message:        "Video merged successfully",
		MergedVideoURL: s.PublicURL(name),
		Asset:          asset,
	}, nil
}

// resolveInputs loads every requested asset in request order. The lookup
// must return exactly one asset per requested ID.
func (s *Service) resolveInputs(ctx context.Context, ids []string) ([]*database.Asset, error) {
	if len(ids) == 0 {
		return nil, apperr.Validation("No video IDs provided")
	}

	found, err := s.store.GetAssetsByIDs(ctx, ids)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "Failed to load videos", err)
	}
	if len(found) != len(ids) {
		return nil, apperr.Validation("Invalid video IDs").WithDetail("InvalidIds")
	}

	byID := make(map[string]*database.Asset, len(found))
	for _, a := range found {
		byID[a.ID] = a
	}

	ordered := make([]*database.Asset, len(ids))
	for i, id := range ids {
		a, ok := byID[id]
		if !ok {
			return nil, apperr.Validation("Invalid video IDs").WithDetail("InvalidIds")
		}
		ordered[i] = a
	}
	return ordered, nil
}

// normalizeAll converts every input to part-<i>.ts inside ns. It returns
// only after every started job has finished.
func (s *Service) normalizeAll(ctx context.Context, job *mergeJob, ns *filesystem.Namespace, assets []*database.Asset, opts MergeOptions) ([]string, error) {
	parts := make([]string, len(assets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers.ForJobs(len(assets), s.config.MaxParallel))

	normalize := transcoder.NormalizeOptions{Letterbox: opts.Letterbox}
	for i, asset := range assets {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			part := ns.Path(fmt.Sprintf("part-%d.ts", i))
			job.intermediates.Add(1)
			metrics.MergeIntermediatesActive.Inc()

			tj := s.transcoder.Normalize(gctx, asset.StoragePath, part, normalize)
			if err := tj.Wait(gctx); err != nil {
				tj.Cancel()
				<-tj.Done()
				if jobErr := tj.Err(); jobErr != nil && !errors.Is(jobErr, context.Canceled) {
					err = jobErr
				}
				return fmt.Errorf("normalize input %d (%s): %w", i, asset.ID, err)
			}

			parts[i] = part
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return parts, nil
}
