package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"clipshare/internal/database"
	"clipshare/internal/filesystem"
	"clipshare/internal/poster"
	"clipshare/internal/share"
	"clipshare/internal/streaming"
	"clipshare/internal/transcoder"
	"clipshare/internal/videos"
)

// Test videos are text files whose first line is "duration:<seconds>".
// The fake transcoder reads and writes that header instead of running
// ffmpeg.
func videoBytes(duration float64, payload string) []byte {
	return []byte(fmt.Sprintf("duration:%g\n%s", duration, payload))
}

func readDuration(path string) (float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	line, _, _ := strings.Cut(string(data), "\n")
	v, ok := strings.CutPrefix(line, "duration:")
	if !ok {
		return 0, errors.New("invalid data found when processing input")
	}
	return strconv.ParseFloat(v, 64)
}

type fakeTranscoder struct {
	frame []byte
}

func (f *fakeTranscoder) Probe(ctx context.Context, path string) *transcoder.ProbeJob {
	return transcoder.GoProbe(ctx, time.Second, func(context.Context) (*transcoder.VideoInfo, error) {
		d, err := readDuration(path)
		if err != nil {
			return nil, err
		}
		return &transcoder.VideoInfo{Duration: d, Width: 1280, Height: 720, Codec: "h264"}, nil
	})
}

func (f *fakeTranscoder) Trim(ctx context.Context, _, output string, _, duration float64) *transcoder.Job {
	return transcoder.Go(ctx, time.Second, func(context.Context) error {
		return os.WriteFile(output, videoBytes(duration, "trimmed"), 0o644)
	})
}

func (f *fakeTranscoder) Normalize(ctx context.Context, input, output string, _ transcoder.NormalizeOptions) *transcoder.Job {
	return transcoder.Go(ctx, time.Second, func(context.Context) error {
		data, err := os.ReadFile(input)
		if err != nil {
			return err
		}
		return os.WriteFile(output, data, 0o644)
	})
}

func (f *fakeTranscoder) Concat(ctx context.Context, parts []string, output string) *transcoder.Job {
	return transcoder.Go(ctx, time.Second, func(context.Context) error {
		var total float64
		for _, p := range parts {
			d, err := readDuration(p)
			if err != nil {
				return err
			}
			total += d
		}
		return os.WriteFile(output, videoBytes(total, "merged"), 0o644)
	})
}

func (f *fakeTranscoder) ExtractFrame(ctx context.Context, _ string, _ float64) *transcoder.FrameJob {
	return transcoder.GoFrame(ctx, time.Second, func(context.Context) ([]byte, error) {
		return f.frame, nil
	})
}

func pngFrame(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 40, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type testServer struct {
	router  http.Handler
	db      *database.Database
	storage *filesystem.Storage
	clock   *testClock
}

func newTestServer(t *testing.T, configure ...func(*videos.Config)) *testServer {
	t.Helper()
	dir := t.TempDir()

	db, err := database.New(context.Background(), filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("database.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	storage, err := filesystem.NewStorage(filepath.Join(dir, "uploads"), filepath.Join(dir, "tmp"))
	if err != nil {
		t.Fatalf("NewStorage: %v", err)
	}

	tc := &fakeTranscoder{frame: pngFrame(t)}
	config := videos.Config{
		BaseURL:        "http://clips.test",
		MaxUploadBytes: 1 << 20,
		MinDuration:    5,
		MaxDuration:    25,
		MaxParallel:    2,
	}
	for _, fn := range configure {
		fn(&config)
	}

	clock := &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	shares := share.NewManager(db, config.BaseURL, share.WithClock(clock.Now))

	posters, err := poster.NewGenerator(tc, filepath.Join(dir, "cache"))
	if err != nil {
		t.Fatalf("poster.NewGenerator: %v", err)
	}

	h := New(db, videos.NewService(db, tc, storage, config), shares, posters, storage)
	h.stream = streaming.Config{WriteTimeout: 5 * time.Second, IdleTimeout: 5 * time.Second, ChunkSize: 4}

	return &testServer{
		router:  NewRouter(h, storage.UploadDir()),
		db:      db,
		storage: storage,
		clock:   clock,
	}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) doJSON(method, target string, body interface{}) *httptest.ResponseRecorder {
	var r io.Reader = http.NoBody
	if body != nil {
		data, _ := json.Marshal(body)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, r)
	req.Header.Set("Content-Type", "application/json")
	return s.do(req)
}

func (s *testServer) upload(filename string, content []byte) *httptest.ResponseRecorder {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, _ := mw.CreateFormFile("file", filename)
	fw.Write(content)
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/video/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return s.do(req)
}

// mustUpload uploads a clip and returns the stored asset.
func (s *testServer) mustUpload(t *testing.T, duration float64) *database.Asset {
	t.Helper()
	rec := s.upload("clip.mp4", videoBytes(duration, "0123456789abcdef"))
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp UploadResponse
	decodeBody(t, rec, &resp)
	return resp.Video
}

func (s *testServer) uploadEntries(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(s.storage.UploadDir())
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func expectError(t *testing.T, rec *httptest.ResponseRecorder, status int, kind, message string) {
	t.Helper()
	if rec.Code != status {
		t.Fatalf("status = %d, want %d: %s", rec.Code, status, rec.Body.String())
	}
	var body errorResponse
	decodeBody(t, rec, &body)
	if body.Error != kind || body.Message != message {
		t.Errorf("error body = %+v, want {%s %s}", body, kind, message)
	}
}
