package transcoder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"clipshare/internal/logging"
	"clipshare/internal/metrics"
)

// DefaultTimeout bounds a single job when no timeout is configured.
const DefaultTimeout = 2 * time.Minute

// Options configures a Transcoder.
type Options struct {
	FFmpegPath  string
	FFprobePath string
	Timeout     time.Duration
}

// Transcoder runs ffmpeg and ffprobe processes and tracks them so they can
// be killed on shutdown.
type Transcoder struct {
	ffmpegPath  string
	ffprobePath string
	timeout     time.Duration

	processes map[uint64]*exec.Cmd
	processMu sync.Mutex
	nextID    uint64
}

// VideoInfo contains information about a video file.
type VideoInfo struct {
	Duration float64 `json:"duration"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	Codec    string  `json:"codec"`
}

// New creates a new Transcoder instance.
func New(opts Options) *Transcoder {
	if opts.FFmpegPath == "" {
		opts.FFmpegPath = "ffmpeg"
	}
	if opts.FFprobePath == "" {
		opts.FFprobePath = "ffprobe"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	return &Transcoder{
		ffmpegPath:  opts.FFmpegPath,
		ffprobePath: opts.FFprobePath,
		timeout:     opts.Timeout,
		processes:   make(map[uint64]*exec.Cmd),
	}
}

// Timeout returns the per-job time limit.
func (t *Transcoder) Timeout() time.Duration {
	return t.timeout
}

// ActiveProcesses returns the number of running processes.
func (t *Transcoder) ActiveProcesses() int {
	t.processMu.Lock()
	defer t.processMu.Unlock()
	return len(t.processes)
}

// run executes a tracked process and records its metrics. When stdout is
// nil the output is discarded.
func (t *Transcoder) run(ctx context.Context, operation, binary string, args []string, stdout io.Writer) error {
	start := time.Now()

	cmd := exec.CommandContext(ctx, binary, args...)
	var stderr bytes.Buffer
	cmd.Stdout = stdout
	cmd.Stderr = &stderr

	logging.Debug("Running %s %s: %v", operation, binary, args)

	if err := cmd.Start(); err != nil {
		t.record(operation, start, "error")
		return fmt.Errorf("failed to start %s: %w", binary, err)
	}

	t.processMu.Lock()
	t.nextID++
	id := t.nextID
	t.processes[id] = cmd
	t.processMu.Unlock()
	metrics.TranscoderProcessesActive.Inc()

	err := cmd.Wait()

	t.processMu.Lock()
	delete(t.processes, id)
	t.processMu.Unlock()
	metrics.TranscoderProcessesActive.Dec()

	if err != nil {
		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			t.record(operation, start, "timeout")
			return fmt.Errorf("%s killed after deadline: %w", operation, ctx.Err())
		case errors.Is(ctx.Err(), context.Canceled):
			t.record(operation, start, "cancelled")
			return fmt.Errorf("%s cancelled: %w", operation, ctx.Err())
		}
		t.record(operation, start, "error")
		logging.Error("%s stderr: %s", binary, lastLine(stderr.String()))
		return fmt.Errorf("%s failed: %w", operation, err)
	}

	t.record(operation, start, "success")
	return nil
}

func (t *Transcoder) record(operation string, start time.Time, status string) {
	metrics.TranscoderOperationsTotal.WithLabelValues(operation, status).Inc()
	metrics.TranscoderOperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// Cleanup stops all active transcoding processes.
func (t *Transcoder) Cleanup() {
	t.processMu.Lock()
	defer t.processMu.Unlock()

	for id, cmd := range t.processes {
		if cmd.Process != nil {
			logging.Info("Killing transcoder process %d (pid %d)", id, cmd.Process.Pid)
			if err := cmd.Process.Kill(); err != nil {
				logging.Warn("failed to kill transcoder process %d: %v", id, err)
			}
		}
	}
}

// probeOutput mirrors the subset of ffprobe's JSON that is used.
type probeOutput struct {
	Streams []struct {
		CodecType string `json:"codec_type"`
		CodecName string `json:"codec_name"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
		Duration  string `json:"duration"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// parseProbeOutput extracts VideoInfo from ffprobe JSON output. The
// container duration is preferred; the video stream duration is used when
// the container does not report one.
func parseProbeOutput(data []byte) (*VideoInfo, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("invalid ffprobe output: %w", err)
	}

	info := &VideoInfo{}
	found := false
	for _, s := range out.Streams {
		if s.CodecType != "video" {
			continue
		}
		info.Codec = s.CodecName
		info.Width = s.Width
		info.Height = s.Height
		if d, err := strconv.ParseFloat(s.Duration, 64); err == nil {
			info.Duration = d
		}
		found = true
		break
	}
	if !found {
		return nil, errors.New("no video stream found")
	}

	if d, err := strconv.ParseFloat(out.Format.Duration, 64); err == nil {
		info.Duration = d
	}
	if info.Duration <= 0 {
		return nil, errors.New("unable to determine duration")
	}

	return info, nil
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
