package streaming

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"clipshare/internal/metrics"
)

// ErrInvalidRange reports a Range header that cannot be satisfied.
var ErrInvalidRange = errors.New("invalid range")

// ByteRange is an inclusive window [Start, End] of a file.
type ByteRange struct {
	Start int64
	End   int64
}

// Length returns the number of bytes in the window.
func (br ByteRange) Length() int64 {
	return br.End - br.Start + 1
}

// ContentRange formats the Content-Range header value for a file of size.
func (br ByteRange) ContentRange(size int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", br.Start, br.End, size)
}

// UnsatisfiableContentRange is the Content-Range value sent with a 416.
func UnsatisfiableContentRange(size int64) string {
	return fmt.Sprintf("bytes */%d", size)
}

// ParseRange parses a single "bytes=start-end" range against a file of
// size bytes. An empty header yields ok=false and no error.
func ParseRange(header string, size int64) (br ByteRange, ok bool, err error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return ByteRange{}, false, nil
	}

	spec, found := strings.CutPrefix(header, "bytes=")
	if !found {
		return ByteRange{}, false, fmt.Errorf("%w: unsupported unit in %q", ErrInvalidRange, header)
	}
	if strings.Contains(spec, ",") {
		return ByteRange{}, false, fmt.Errorf("%w: multiple ranges not supported", ErrInvalidRange)
	}

	startStr, endStr, found := strings.Cut(spec, "-")
	if !found {
		return ByteRange{}, false, fmt.Errorf("%w: missing separator in %q", ErrInvalidRange, header)
	}
	startStr = strings.TrimSpace(startStr)
	endStr = strings.TrimSpace(endStr)
	if startStr == "" {
		return ByteRange{}, false, fmt.Errorf("%w: suffix ranges not supported", ErrInvalidRange)
	}

	start, err := strconv.ParseInt(startStr, 10, 64)
	if err != nil || start < 0 {
		return ByteRange{}, false, fmt.Errorf("%w: bad start %q", ErrInvalidRange, startStr)
	}
	if start >= size {
		return ByteRange{}, false, fmt.Errorf("%w: start %d beyond size %d", ErrInvalidRange, start, size)
	}

	end := size - 1
	if endStr != "" {
		end, err = strconv.ParseInt(endStr, 10, 64)
		if err != nil || end < 0 {
			return ByteRange{}, false, fmt.Errorf("%w: bad end %q", ErrInvalidRange, endStr)
		}
		if start > end {
			return ByteRange{}, false, fmt.Errorf("%w: start %d after end %d", ErrInvalidRange, start, end)
		}
		if end > size-1 {
			end = size - 1
		}
	}

	return ByteRange{Start: start, End: end}, true, nil
}

// ServeRange writes content of the given size honoring the request's Range
// header. It returns the status written. On ErrInvalidRange nothing is
// written and the caller is expected to answer 416.
func ServeRange(ctx context.Context, w http.ResponseWriter, r *http.Request, content io.ReaderAt, size int64, contentType string, config Config) (int, error) {
	br, partial, err := ParseRange(r.Header.Get("Range"), size)
	if err != nil {
		metrics.RangeResponsesTotal.WithLabelValues(strconv.Itoa(http.StatusRequestedRangeNotSatisfiable)).Inc()
		return http.StatusRequestedRangeNotSatisfiable, err
	}

	status := http.StatusOK
	if !partial {
		br = ByteRange{Start: 0, End: size - 1}
	}

	h := w.Header()
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	h.Set("Accept-Ranges", "bytes")
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("Content-Length", strconv.FormatInt(br.Length(), 10))
	if partial {
		status = http.StatusPartialContent
		h.Set("Content-Range", br.ContentRange(size))
	}

	w.WriteHeader(status)
	metrics.RangeResponsesTotal.WithLabelValues(strconv.Itoa(status)).Inc()

	if r.Method == http.MethodHead || br.Length() <= 0 {
		return status, nil
	}

	_, err = Copy(ctx, w, io.NewSectionReader(content, br.Start, br.Length()), config)
	return status, err
}
