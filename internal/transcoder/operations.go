package transcoder

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Letterbox target frame for normalized merge inputs.
const (
	LetterboxWidth  = 1920
	LetterboxHeight = 1080
)

// NormalizeOptions controls how a merge input is converted to an
// intermediate.
type NormalizeOptions struct {
	// Letterbox scales and pads the input to 1920x1080 and re-encodes it.
	// When false the streams are copied unchanged.
	Letterbox bool
}

// Probe reads duration, dimensions and codec of the video at path.
func (t *Transcoder) Probe(ctx context.Context, path string) *ProbeJob {
	return GoProbe(ctx, t.timeout, func(ctx context.Context) (*VideoInfo, error) {
		return t.probe(ctx, path)
	})
}

func (t *Transcoder) probe(ctx context.Context, path string) (*VideoInfo, error) {
	var stdout bytes.Buffer
	if err := t.run(ctx, "probe", t.ffprobePath, probeArgs(path), &stdout); err != nil {
		return nil, err
	}
	return parseProbeOutput(stdout.Bytes())
}

// Trim copies the window [start, start+duration) of input into output.
func (t *Transcoder) Trim(ctx context.Context, input, output string, start, duration float64) *Job {
	return Go(ctx, t.timeout, func(ctx context.Context) error {
		return t.run(ctx, "trim", t.ffmpegPath, trimArgs(input, output, start, duration), nil)
	})
}

// Normalize converts input into an MPEG-TS intermediate suitable for
// byte-level concatenation.
func (t *Transcoder) Normalize(ctx context.Context, input, output string, opts NormalizeOptions) *Job {
	return Go(ctx, t.timeout, func(ctx context.Context) error {
		filter := ""
		if opts.Letterbox {
			info, err := t.probe(ctx, input)
			if err != nil {
				return err
			}
			filter = LetterboxFilter(info.Width, info.Height)
		}
		return t.run(ctx, "normalize", t.ffmpegPath, normalizeArgs(input, output, filter), nil)
	})
}

// Concat joins the intermediates in order into output.
func (t *Transcoder) Concat(ctx context.Context, parts []string, output string) *Job {
	return Go(ctx, t.timeout, func(ctx context.Context) error {
		if len(parts) == 0 {
			return fmt.Errorf("concat requires at least one input")
		}
		return t.run(ctx, "concat", t.ffmpegPath, concatArgs(parts, output), nil)
	})
}

// ExtractFrame grabs one PNG frame at the given offset in seconds.
func (t *Transcoder) ExtractFrame(ctx context.Context, input string, at float64) *FrameJob {
	return GoFrame(ctx, t.timeout, func(ctx context.Context) ([]byte, error) {
		var stdout bytes.Buffer
		if err := t.run(ctx, "frame", t.ffmpegPath, frameArgs(input, at), &stdout); err != nil {
			return nil, err
		}
		if stdout.Len() == 0 {
			return nil, fmt.Errorf("ffmpeg produced no frame for %s", input)
		}
		return stdout.Bytes(), nil
	})
}

// LetterboxFilter returns the scale filter for a source of the given size.
// Portrait sources and sources narrower than the target are scaled to the
// target height and padded with black; everything else is scaled directly.
func LetterboxFilter(width, height int) string {
	if width < height || width < LetterboxWidth {
		return fmt.Sprintf("scale=-1:%d,pad=%d:%d:(ow-iw)/2:(oh-ih)/2:black",
			LetterboxHeight, LetterboxWidth, LetterboxHeight)
	}
	return fmt.Sprintf("scale=%d:%d", LetterboxWidth, LetterboxHeight)
}

func probeArgs(path string) []string {
	return []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	}
}

func trimArgs(input, output string, start, duration float64) []string {
	return []string{
		"-y",
		"-ss", formatSeconds(start),
		"-i", input,
		"-t", formatSeconds(duration),
		"-c", "copy",
		"-avoid_negative_ts", "make_zero",
		output,
	}
}

func normalizeArgs(input, output, filter string) []string {
	args := []string{"-y", "-i", input}
	if filter != "" {
		args = append(args,
			"-vf", filter,
			"-c:v", "libx264",
			"-preset", "fast",
			"-c:a", "aac",
		)
	} else {
		args = append(args,
			"-c", "copy",
			"-bsf:v", "h264_mp4toannexb",
		)
	}
	return append(args, "-f", "mpegts", output)
}

func concatArgs(parts []string, output string) []string {
	return []string{
		"-y",
		"-i", "concat:" + strings.Join(parts, "|"),
		"-c", "copy",
		"-bsf:a", "aac_adtstoasc",
		output,
	}
}

func frameArgs(input string, at float64) []string {
	return []string{
		"-ss", formatSeconds(at),
		"-i", input,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "png",
		"-",
	}
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', 3, 64)
}
