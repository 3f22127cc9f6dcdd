package videos

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"clipshare/internal/database"
	"clipshare/internal/filesystem"
	"clipshare/internal/transcoder"
)

// memoryStore is an in-memory Store.
type memoryStore struct {
	mu        sync.Mutex
	assets    map[string]*database.Asset
	seq       int
	createErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{assets: make(map[string]*database.Asset)}
}

func (m *memoryStore) CreateAsset(_ context.Context, a *database.Asset) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.createErr != nil {
		return m.createErr
	}
	if a.ID == "" {
		m.seq++
		a.ID = fmt.Sprintf("asset-%03d", m.seq)
	}
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	clone := *a
	m.assets[a.ID] = &clone
	return nil
}

func (m *memoryStore) GetAsset(_ context.Context, id string) (*database.Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.assets[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	clone := *a
	return &clone, nil
}

func (m *memoryStore) GetAssetsByIDs(_ context.Context, ids []string) ([]*database.Asset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make(map[string]bool)
	var out []*database.Asset
	for _, id := range ids {
		if a, ok := m.assets[id]; ok && !seen[id] {
			seen[id] = true
			clone := *a
			out = append(out, &clone)
		}
	}
	// Lookups do not promise request order.
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memoryStore) count(origin database.Origin) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, a := range m.assets {
		if a.Origin == origin {
			n++
		}
	}
	return n
}

// fakeTranscoder writes small placeholder files instead of running ffmpeg.
type fakeTranscoder struct {
	mu sync.Mutex

	durations    map[string]float64
	probeErr     error
	trimErr      error
	normalizeErr map[string]error
	// blockNormalize makes successful normalizations wait for cancellation.
	blockNormalize bool
	// failAfterBlocked delays a failing normalization until this many
	// other normalizations are blocked.
	failAfterBlocked int
	blocked          chan struct{}
	concatErr        error

	normalizeOutputs []string
	letterbox        []bool
	concatParts      [][]string
	cancelled        int
	probes           int
}

func newFakeTranscoder() *fakeTranscoder {
	return &fakeTranscoder{
		durations:    make(map[string]float64),
		normalizeErr: make(map[string]error),
		blocked:      make(chan struct{}, 64),
	}
}

func (f *fakeTranscoder) Probe(ctx context.Context, path string) *transcoder.ProbeJob {
	return transcoder.GoProbe(ctx, time.Minute, func(ctx context.Context) (*transcoder.VideoInfo, error) {
		f.mu.Lock()
		defer f.mu.Unlock()

		f.probes++
		if f.probeErr != nil {
			return nil, f.probeErr
		}
		d, ok := f.durations[path]
		if !ok {
			d = 10
		}
		return &transcoder.VideoInfo{Duration: d, Width: 1280, Height: 720, Codec: "h264"}, nil
	})
}

func (f *fakeTranscoder) Trim(ctx context.Context, input, output string, start, duration float64) *transcoder.Job {
	return transcoder.Go(ctx, time.Minute, func(ctx context.Context) error {
		if f.trimErr != nil {
			// Leave a partial file behind like a crashed ffmpeg would.
			_ = os.WriteFile(output, []byte("partial"), 0o644)
			return f.trimErr
		}
		return os.WriteFile(output, []byte("trimmed"), 0o644)
	})
}

func (f *fakeTranscoder) Normalize(ctx context.Context, input, output string, opts transcoder.NormalizeOptions) *transcoder.Job {
	return transcoder.Go(ctx, time.Minute, func(ctx context.Context) error {
		f.mu.Lock()
		f.normalizeOutputs = append(f.normalizeOutputs, output)
		f.letterbox = append(f.letterbox, opts.Letterbox)
		err := f.normalizeErr[input]
		block := f.blockNormalize
		waitFor := f.failAfterBlocked
		f.mu.Unlock()

		if err != nil {
			for i := 0; i < waitFor; i++ {
				select {
				case <-f.blocked:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			return err
		}
		if err := os.WriteFile(output, []byte("ts"), 0o644); err != nil {
			return err
		}
		if block {
			f.blocked <- struct{}{}
			<-ctx.Done()
			f.mu.Lock()
			f.cancelled++
			f.mu.Unlock()
			return ctx.Err()
		}
		return nil
	})
}

func (f *fakeTranscoder) Concat(ctx context.Context, parts []string, output string) *transcoder.Job {
	return transcoder.Go(ctx, time.Minute, func(ctx context.Context) error {
		f.mu.Lock()
		f.concatParts = append(f.concatParts, append([]string(nil), parts...))
		err := f.concatErr
		f.mu.Unlock()

		for _, p := range parts {
			if _, statErr := os.Stat(p); statErr != nil {
				return statErr
			}
		}
		if err != nil {
			return err
		}
		return os.WriteFile(output, []byte("merged"), 0o644)
	})
}

type testEnv struct {
	svc     *Service
	store   *memoryStore
	tc      *fakeTranscoder
	storage *filesystem.Storage
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	root := t.TempDir()
	storage, err := filesystem.NewStorage(filepath.Join(root, "uploads"), filepath.Join(root, "tmp"))
	if err != nil {
		t.Fatalf("NewStorage() error = %v", err)
	}

	store := newMemoryStore()
	tc := newFakeTranscoder()
	cfg := DefaultConfig()
	cfg.BaseURL = "http://clips.test/"

	return &testEnv{
		svc:     NewService(store, tc, storage, cfg),
		store:   store,
		tc:      tc,
		storage: storage,
	}
}

// writeUpload places a file in the uploads directory.
func (e *testEnv) writeUpload(t *testing.T, name string, duration float64) string {
	t.Helper()

	path, err := e.storage.UploadPath(name)
	if err != nil {
		t.Fatalf("UploadPath() error = %v", err)
	}
	if err := os.WriteFile(path, []byte("video"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	e.tc.mu.Lock()
	e.tc.durations[path] = duration
	e.tc.mu.Unlock()
	return path
}

// addAsset stores an uploaded asset directly.
func (e *testEnv) addAsset(t *testing.T, name string, duration float64) *database.Asset {
	t.Helper()

	path := e.writeUpload(t, name, duration)
	a := &database.Asset{
		Filename:        name,
		StoragePath:     path,
		SizeBytes:       5,
		DurationSeconds: duration,
		Origin:          database.OriginUpload,
	}
	if err := e.store.CreateAsset(context.Background(), a); err != nil {
		t.Fatalf("CreateAsset() error = %v", err)
	}
	return a
}

func (e *testEnv) tempEntries(t *testing.T) []string {
	t.Helper()

	entries, err := e.storage.TempEntries()
	if err != nil {
		t.Fatalf("TempEntries() error = %v", err)
	}
	return entries
}

func (e *testEnv) uploadEntries(t *testing.T) []string {
	t.Helper()

	entries, err := os.ReadDir(e.storage.UploadDir())
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	return names
}
