// Package poster renders a JPEG preview frame for each asset and caches it
// on disk.
package poster

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
	"golang.org/x/sync/singleflight"

	"clipshare/internal/database"
	"clipshare/internal/logging"
	"clipshare/internal/metrics"
	"clipshare/internal/transcoder"
)

// Poster canvas size. Frames are scaled to fit and centered on black.
const (
	Width  = 640
	Height = 360
)

// frameOffset is where the preview frame is taken, in seconds.
const frameOffset = 1.0

// FrameExtractor grabs a single encoded frame from a video.
type FrameExtractor interface {
	ExtractFrame(ctx context.Context, input string, at float64) *transcoder.FrameJob
}

// Generator produces and caches posters.
type Generator struct {
	frames   FrameExtractor
	cacheDir string
	group    singleflight.Group
}

// NewGenerator creates a Generator caching under <cacheDir>/posters.
func NewGenerator(frames FrameExtractor, cacheDir string) (*Generator, error) {
	dir := filepath.Join(cacheDir, "posters")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create poster cache: %w", err)
	}
	logging.Debug("Poster cache dir: %s", dir)
	return &Generator{frames: frames, cacheDir: dir}, nil
}

// Poster returns the JPEG poster for asset, generating it on first use.
// Concurrent requests for the same asset share one generation.
func (g *Generator) Poster(ctx context.Context, asset *database.Asset) ([]byte, error) {
	if asset.ID == "" || strings.ContainsAny(asset.ID, `/\.`) {
		return nil, fmt.Errorf("invalid asset id %q", asset.ID)
	}
	cachePath := filepath.Join(g.cacheDir, asset.ID+".jpg")

	if data, err := os.ReadFile(cachePath); err == nil {
		metrics.PosterCacheHits.Inc()
		return data, nil
	}

	// Waiters share one generation, so it must outlive whichever request
	// started it. The transcoder timeout still bounds it.
	shared := context.WithoutCancel(ctx)
	ch := g.group.DoChan(asset.ID, func() (interface{}, error) {
		if data, err := os.ReadFile(cachePath); err == nil {
			return data, nil
		}
		return g.generate(shared, asset, cachePath)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			metrics.PosterGenerationsTotal.WithLabelValues("error").Inc()
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (g *Generator) generate(ctx context.Context, asset *database.Asset, cachePath string) ([]byte, error) {
	logging.Debug("Generating poster for %s", asset.ID)

	frame, err := g.extract(ctx, asset)
	if err != nil {
		return nil, err
	}

	img, err := imaging.Decode(bytes.NewReader(frame))
	if err != nil {
		return nil, fmt.Errorf("failed to decode frame: %w", err)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, Letterbox(img, Width, Height), imaging.JPEG, imaging.JPEGQuality(80)); err != nil {
		return nil, fmt.Errorf("failed to encode poster: %w", err)
	}

	if err := writeAtomic(cachePath, buf.Bytes()); err != nil {
		logging.Warn("Failed to cache poster %s: %v", cachePath, err)
	}

	metrics.PosterGenerationsTotal.WithLabelValues("success").Inc()
	return buf.Bytes(), nil
}

// extract takes a frame one second in, falling back to the first frame
// for clips too short to have one there.
func (g *Generator) extract(ctx context.Context, asset *database.Asset) ([]byte, error) {
	at := frameOffset
	if asset.DurationSeconds > 0 && asset.DurationSeconds <= frameOffset {
		at = 0
	}

	frame, err := g.frames.ExtractFrame(ctx, asset.StoragePath, at).Result(ctx)
	if err == nil || at == 0 || errors.Is(err, transcoder.ErrTimeout) || ctx.Err() != nil {
		return frame, err
	}

	logging.Debug("Frame at %.1fs failed for %s: %v, retrying at start", at, asset.ID, err)
	return g.frames.ExtractFrame(ctx, asset.StoragePath, 0).Result(ctx)
}

// Letterbox scales src to fit a width x height canvas, keeping its aspect
// ratio, and centers it on black.
func Letterbox(src image.Image, width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.Black}, image.Point{}, draw.Src)

	sb := src.Bounds()
	if sb.Dx() == 0 || sb.Dy() == 0 {
		return dst
	}

	w, h := width, sb.Dy()*width/sb.Dx()
	if h > height {
		w, h = sb.Dx()*height/sb.Dy(), height
	}
	x := (width - w) / 2
	y := (height - h) / 2

	draw.CatmullRom.Scale(dst, image.Rect(x, y, x+w, y+h), src, sb, draw.Over, nil)
	return dst
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".poster-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
