package transcoder

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"reflect"
	"runtime"
	"strconv"
	"strings"
	"testing"
	"time"
)

// writeScript creates an executable shell script standing in for ffmpeg or
// ffprobe.
func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("shell script fakes require a POSIX shell")
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("Failed to write script: %v", err)
	}
	return path
}

const sampleProbe = `{
  "streams": [
    {"codec_type": "audio", "codec_name": "aac", "duration": "9.98"},
    {"codec_type": "video", "codec_name": "h264", "width": 1280, "height": 720, "duration": "10.0"}
  ],
  "format": {"duration": "10.021"}
}`

func TestNewDefaults(t *testing.T) {
	trans := New(Options{})

	if trans.ffmpegPath != "ffmpeg" || trans.ffprobePath != "ffprobe" {
		t.Errorf("Unexpected binaries: %s, %s", trans.ffmpegPath, trans.ffprobePath)
	}
	if trans.Timeout() != DefaultTimeout {
		t.Errorf("Timeout() = %v, want %v", trans.Timeout(), DefaultTimeout)
	}
	if trans.processes == nil {
		t.Error("Expected processes map to be initialized")
	}
}

func TestParseProbeOutput(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    *VideoInfo
		wantErr bool
	}{
		{
			name:  "container duration preferred",
			input: sampleProbe,
			want:  &VideoInfo{Duration: 10.021, Width: 1280, Height: 720, Codec: "h264"},
		},
		{
			name:  "stream duration fallback",
			input: `{"streams":[{"codec_type":"video","codec_name":"vp9","width":640,"height":480,"duration":"6.5"}],"format":{}}`,
			want:  &VideoInfo{Duration: 6.5, Width: 640, Height: 480, Codec: "vp9"},
		},
		{
			name:    "no video stream",
			input:   `{"streams":[{"codec_type":"audio","codec_name":"aac"}],"format":{"duration":"3"}}`,
			wantErr: true,
		},
		{
			name:    "no duration",
			input:   `{"streams":[{"codec_type":"video","codec_name":"h264"}],"format":{}}`,
			wantErr: true,
		},
		{
			name:    "not json",
			input:   "moov atom not found",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseProbeOutput([]byte(tt.input))
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseProbeOutput() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("parseProbeOutput() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestLetterboxFilter(t *testing.T) {
	tests := []struct {
		name   string
		width  int
		height int
		want   string
	}{
		{"portrait", 1080, 1920, "scale=-1:1080,pad=1920:1080:(ow-iw)/2:(oh-ih)/2:black"},
		{"narrow landscape", 1280, 720, "scale=-1:1080,pad=1920:1080:(ow-iw)/2:(oh-ih)/2:black"},
		{"full hd", 1920, 1080, "scale=1920:1080"},
		{"wider than target", 3840, 2160, "scale=1920:1080"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LetterboxFilter(tt.width, tt.height); got != tt.want {
				t.Errorf("LetterboxFilter(%d, %d) = %q, want %q", tt.width, tt.height, got, tt.want)
			}
		})
	}
}

func TestArgumentBuilders(t *testing.T) {
	t.Run("trim", func(t *testing.T) {
		got := trimArgs("in.mp4", "out.mp4", 2, 3.5)
		want := []string{"-y", "-ss", "2.000", "-i", "in.mp4", "-t", "3.500", "-c", "copy",
			"-avoid_negative_ts", "make_zero", "out.mp4"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("trimArgs() = %v, want %v", got, want)
		}
	})

	t.Run("normalize copy", func(t *testing.T) {
		got := strings.Join(normalizeArgs("in.mp4", "part-0.ts", ""), " ")
		want := "-y -i in.mp4 -c copy -bsf:v h264_mp4toannexb -f mpegts part-0.ts"
		if got != want {
			t.Errorf("normalizeArgs() = %q, want %q", got, want)
		}
	})

	t.Run("normalize letterbox", func(t *testing.T) {
		got := strings.Join(normalizeArgs("in.mp4", "part-0.ts", "scale=1920:1080"), " ")
		if !strings.Contains(got, "-vf scale=1920:1080") || !strings.Contains(got, "-c:v libx264") {
			t.Errorf("normalizeArgs() = %q, expected filter and re-encode", got)
		}
		if strings.Contains(got, "-c copy") {
			t.Errorf("normalizeArgs() = %q, must not stream copy with a filter", got)
		}
	})

	t.Run("concat", func(t *testing.T) {
		got := concatArgs([]string{"a.ts", "b.ts", "c.ts"}, "merged.mp4")
		if got[2] != "concat:a.ts|b.ts|c.ts" {
			t.Errorf("concat input = %q", got[2])
		}
		if got[len(got)-1] != "merged.mp4" {
			t.Errorf("concat output = %q", got[len(got)-1])
		}
	})

	t.Run("frame", func(t *testing.T) {
		got := strings.Join(frameArgs("in.mp4", 1), " ")
		want := "-ss 1.000 -i in.mp4 -frames:v 1 -f image2pipe -vcodec png -"
		if got != want {
			t.Errorf("frameArgs() = %q, want %q", got, want)
		}
	})
}

func TestProbeWithFakeBinary(t *testing.T) {
	dir := t.TempDir()
	probe := writeScript(t, dir, "ffprobe", "cat <<'JSON'\n"+sampleProbe+"\nJSON")

	trans := New(Options{FFprobePath: probe, Timeout: 5 * time.Second})

	info, err := trans.Probe(context.Background(), "clip.mp4").Result(context.Background())
	if err != nil {
		t.Fatalf("Probe() error = %v", err)
	}
	if info.Duration != 10.021 || info.Codec != "h264" {
		t.Errorf("Unexpected info: %+v", info)
	}
}

func TestProbeFailure(t *testing.T) {
	dir := t.TempDir()
	probe := writeScript(t, dir, "ffprobe", "echo 'Invalid data found' >&2\nexit 1")

	trans := New(Options{FFprobePath: probe, Timeout: 5 * time.Second})

	_, err := trans.Probe(context.Background(), "clip.mp4").Result(context.Background())
	if err == nil {
		t.Fatal("Expected probe error")
	}
	if errors.Is(err, ErrTimeout) {
		t.Errorf("Failure must not be reported as timeout: %v", err)
	}
}

func TestMissingBinary(t *testing.T) {
	trans := New(Options{FFmpegPath: filepath.Join(t.TempDir(), "no-such-ffmpeg")})

	err := trans.Trim(context.Background(), "in.mp4", "out.mp4", 0, 1).Wait(context.Background())
	if err == nil {
		t.Fatal("Expected error for missing binary")
	}
}

func TestTrimTimeoutKillsProcess(t *testing.T) {
	dir := t.TempDir()
	ffmpeg := writeScript(t, dir, "ffmpeg", "exec sleep 30")

	trans := New(Options{FFmpegPath: ffmpeg, Timeout: 100 * time.Millisecond})

	start := time.Now()
	err := trans.Trim(context.Background(), "in.mp4", "out.mp4", 0, 1).Wait(context.Background())
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Expected ErrTimeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Errorf("Timeout took too long: %v", elapsed)
	}
	if n := trans.ActiveProcesses(); n != 0 {
		t.Errorf("Expected no tracked processes after timeout, got %d", n)
	}
}

func TestCancelKillsProcess(t *testing.T) {
	dir := t.TempDir()
	ffmpeg := writeScript(t, dir, "ffmpeg", "exec sleep 30")

	trans := New(Options{FFmpegPath: ffmpeg, Timeout: time.Minute})

	job := trans.Concat(context.Background(), []string{"a.ts"}, "out.mp4")
	waitForProcesses(t, trans, 1)
	job.Cancel()

	err := job.Wait(context.Background())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestCleanupKillsTrackedProcesses(t *testing.T) {
	dir := t.TempDir()
	ffmpeg := writeScript(t, dir, "ffmpeg", "exec sleep 30")

	trans := New(Options{FFmpegPath: ffmpeg, Timeout: time.Minute})

	jobs := []*Job{
		trans.Trim(context.Background(), "a.mp4", "a-out.mp4", 0, 1),
		trans.Normalize(context.Background(), "b.mp4", "b.ts", NormalizeOptions{}),
	}
	waitForProcesses(t, trans, len(jobs))

	trans.Cleanup()

	for i, job := range jobs {
		select {
		case <-job.Done():
			if job.Err() == nil {
				t.Errorf("job %d: expected error after kill", i)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("job %d did not finish after Cleanup", i)
		}
	}
}

func TestConcatRequiresParts(t *testing.T) {
	trans := New(Options{})

	if err := trans.Concat(context.Background(), nil, "out.mp4").Wait(context.Background()); err == nil {
		t.Error("Expected error for empty concat")
	}
}

func TestExtractFrameEmptyOutput(t *testing.T) {
	dir := t.TempDir()
	ffmpeg := writeScript(t, dir, "ffmpeg", "exit 0")

	trans := New(Options{FFmpegPath: ffmpeg})

	if _, err := trans.ExtractFrame(context.Background(), "in.mp4", 1).Result(context.Background()); err == nil {
		t.Error("Expected error when no frame is produced")
	}
}

func waitForProcesses(t *testing.T, trans *Transcoder, n int) {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for trans.ActiveProcesses() < n {
		if time.Now().After(deadline) {
			t.Fatalf("Timed out waiting for %d processes, have %d", n, trans.ActiveProcesses())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// TestPipelineWithFFmpeg runs the real binaries end to end.
func TestPipelineWithFFmpeg(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping ffmpeg test in short mode")
	}
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not available")
	}
	if _, err := exec.LookPath("ffprobe"); err != nil {
		t.Skip("ffprobe not available")
	}

	dir := t.TempDir()
	source := createTestVideo(t, dir, "source.mp4", 6)
	trans := New(Options{Timeout: time.Minute})
	ctx := context.Background()

	info, err := trans.Probe(ctx, source).Result(ctx)
	if err != nil {
		t.Fatalf("Probe() error = %v", err)
	}
	if info.Duration < 5.5 || info.Duration > 6.5 {
		t.Errorf("Expected ~6s duration, got %f", info.Duration)
	}

	trimmed := filepath.Join(dir, "trimmed.mp4")
	if err := trans.Trim(ctx, source, trimmed, 1, 3).Wait(ctx); err != nil {
		t.Fatalf("Trim() error = %v", err)
	}

	parts := []string{filepath.Join(dir, "part-0.ts"), filepath.Join(dir, "part-1.ts")}
	for i, in := range []string{source, trimmed} {
		if err := trans.Normalize(ctx, in, parts[i], NormalizeOptions{}).Wait(ctx); err != nil {
			t.Fatalf("Normalize(%d) error = %v", i, err)
		}
	}

	merged := filepath.Join(dir, "merged.mp4")
	if err := trans.Concat(ctx, parts, merged).Wait(ctx); err != nil {
		t.Fatalf("Concat() error = %v", err)
	}
	if _, err := os.Stat(merged); err != nil {
		t.Fatalf("merged output missing: %v", err)
	}

	frame, err := trans.ExtractFrame(ctx, source, 1).Result(ctx)
	if err != nil {
		t.Fatalf("ExtractFrame() error = %v", err)
	}
	if len(frame) < 8 || string(frame[1:4]) != "PNG" {
		t.Error("Expected PNG frame data")
	}
}

func createTestVideo(t *testing.T, dir, name string, seconds int) string {
	t.Helper()

	videoPath := filepath.Join(dir, name)

	cmd := exec.CommandContext(context.Background(), "ffmpeg",
		"-f", "lavfi",
		"-i", "testsrc=duration="+strconv.Itoa(seconds)+":size=320x240:rate=10",
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-f", "mp4",
		"-y",
		videoPath,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("Failed to create test video: %v\nOutput: %s", err, output)
	}

	return videoPath
}
