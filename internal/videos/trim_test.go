package videos

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"clipshare/internal/apperr"
	"clipshare/internal/database"
	"clipshare/internal/transcoder"
)

func TestTrimSuccess(t *testing.T) {
	env := newTestEnv(t)
	source := env.addAsset(t, "holiday.mp4", 10)

	result, err := env.svc.Trim(context.Background(), source.ID, 2, 5)
	if err != nil {
		t.Fatalf("Trim() error = %v", err)
	}

	if result.Message != "Video trimmed successfully" {
		t.Errorf("Message = %q", result.Message)
	}
	if !strings.HasPrefix(result.TrimmedVideoURL, "http://clips.test/uploads/trimmed-holiday-") {
		t.Errorf("TrimmedVideoURL = %q", result.TrimmedVideoURL)
	}
	if !strings.HasSuffix(result.TrimmedVideoURL, ".mp4") {
		t.Errorf("TrimmedVideoURL = %q, want .mp4", result.TrimmedVideoURL)
	}

	derived := result.Asset
	if derived.Origin != database.OriginTrim {
		t.Errorf("Origin = %s, want trim", derived.Origin)
	}
	if len(derived.SourceIDs) != 1 || derived.SourceIDs[0] != source.ID {
		t.Errorf("SourceIDs = %v", derived.SourceIDs)
	}
	if _, err := os.Stat(derived.StoragePath); err != nil {
		t.Errorf("Trimmed file missing: %v", err)
	}
	if filepath.Base(derived.StoragePath) != derived.Filename {
		t.Errorf("Filename %s does not match path %s", derived.Filename, derived.StoragePath)
	}

	unchanged, err := env.store.GetAsset(context.Background(), source.ID)
	if err != nil {
		t.Fatalf("GetAsset() error = %v", err)
	}
	if unchanged.StoragePath != source.StoragePath || unchanged.DurationSeconds != source.DurationSeconds {
		t.Error("Source asset must not change")
	}
}

func TestTrimBoundaries(t *testing.T) {
	tests := []struct {
		name  string
		start float64
		end   float64
		ok    bool
	}{
		{"whole clip", 0, 10, true},
		{"inner window", 2, 5, true},
		{"start equals end", 5, 5, false},
		{"start after end", 6, 5, false},
		{"negative start", -1, 5, false},
		{"end past duration", 2, 10.5, false},
		{"NaN start", math.NaN(), 5, false},
		{"infinite end", 0, math.Inf(1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			source := env.addAsset(t, "clip.mp4", 10)

			_, err := env.svc.Trim(context.Background(), source.ID, tt.start, tt.end)
			if tt.ok {
				if err != nil {
					t.Errorf("Trim() error = %v", err)
				}
				return
			}
			if !apperr.Is(err, apperr.KindValidation) || apperr.ReasonOf(err) != "Invalid start and end times" {
				t.Errorf("Expected invalid range error, got %v", err)
			}
			if env.store.count(database.OriginTrim) != 0 {
				t.Error("Rejected trim created an asset")
			}
		})
	}
}

func TestTrimUnknownAsset(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Trim(context.Background(), "missing", 0, 1)
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("Expected NotFound, got %v", err)
	}
}

func TestTrimFailureRemovesPartialOutput(t *testing.T) {
	tests := []struct {
		name     string
		trimErr  error
		wantKind apperr.Kind
	}{
		{"ffmpeg error", errors.New("exit status 1"), apperr.KindProcessingFailed},
		{"ffmpeg timeout", fmt.Errorf("%w: trim killed", transcoder.ErrTimeout), apperr.KindTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			source := env.addAsset(t, "clip.mp4", 10)
			env.tc.trimErr = tt.trimErr

			_, err := env.svc.Trim(context.Background(), source.ID, 1, 4)
			if kind := apperr.KindOf(err); kind != tt.wantKind {
				t.Fatalf("KindOf() = %s, want %s (%v)", kind, tt.wantKind, err)
			}

			entries := env.uploadEntries(t)
			if len(entries) != 1 || entries[0] != "clip.mp4" {
				t.Errorf("Uploads after failed trim = %v, want only the source", entries)
			}
			if env.store.count(database.OriginTrim) != 0 {
				t.Error("Failed trim created an asset")
			}
		})
	}
}

func TestConcurrentTrimsDoNotCollide(t *testing.T) {
	env := newTestEnv(t)
	source := env.addAsset(t, "clip.mp4", 10)

	const n = 8
	urls := make(chan string, n)
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			result, err := env.svc.Trim(context.Background(), source.ID, 0, 5)
			if err != nil {
				errs <- err
				return
			}
			urls <- result.TrimmedVideoURL
		}()
	}

	seen := make(map[string]bool)
	for i := 0; i < n; i++ {
		select {
		case err := <-errs:
			t.Fatalf("Trim() error = %v", err)
		case u := <-urls:
			if seen[u] {
				t.Errorf("duplicate output %s", u)
			}
			seen[u] = true
		}
	}
}

func TestTrimmedName(t *testing.T) {
	name := trimmedName("holiday.mp4")
	if !strings.HasPrefix(name, "trimmed-holiday-") || !strings.HasSuffix(name, ".mp4") {
		t.Errorf("trimmedName() = %q", name)
	}
	if len(name) != len("trimmed-holiday-")+8+len(".mp4") {
		t.Errorf("trimmedName() = %q, want 8 character suffix", name)
	}
	if got := trimmedName(".mp4"); !strings.HasPrefix(got, "trimmed-clip-") {
		t.Errorf("trimmedName(.mp4) = %q", got)
	}
}
