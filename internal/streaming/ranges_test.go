package streaming

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestParseRange(t *testing.T) {
	const size = 10485760

	tests := []struct {
		name    string
		header  string
		want    ByteRange
		ok      bool
		wantErr bool
	}{
		{name: "no header", header: "", ok: false},
		{name: "first kilobyte", header: "bytes=0-1023", want: ByteRange{0, 1023}, ok: true},
		{name: "open ended", header: "bytes=1024-", want: ByteRange{1024, size - 1}, ok: true},
		{name: "end clamped", header: "bytes=100-99999999", want: ByteRange{100, size - 1}, ok: true},
		{name: "last byte", header: "bytes=10485759-10485759", want: ByteRange{size - 1, size - 1}, ok: true},
		{name: "spaces tolerated", header: " bytes=5 - 9 ", want: ByteRange{5, 9}, ok: true},
		{name: "suffix form", header: "bytes=-500", wantErr: true},
		{name: "wrong unit", header: "items=0-1", wantErr: true},
		{name: "multi range", header: "bytes=0-1,5-6", wantErr: true},
		{name: "non numeric", header: "bytes=a-b", wantErr: true},
		{name: "start after end", header: "bytes=500-100", wantErr: true},
		{name: "start at size", header: "bytes=10485760-", wantErr: true},
		{name: "missing dash", header: "bytes=100", wantErr: true},
		{name: "negative end", header: "bytes=1--5", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := ParseRange(tt.header, size)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidRange) {
					t.Fatalf("ParseRange(%q) error = %v, want ErrInvalidRange", tt.header, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRange(%q) error = %v", tt.header, err)
			}
			if ok != tt.ok || got != tt.want {
				t.Errorf("ParseRange(%q) = %+v, %v; want %+v, %v", tt.header, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestByteRangeHeaders(t *testing.T) {
	br := ByteRange{Start: 0, End: 1023}

	if br.Length() != 1024 {
		t.Errorf("Length() = %d, want 1024", br.Length())
	}
	if got := br.ContentRange(10485760); got != "bytes 0-1023/10485760" {
		t.Errorf("ContentRange() = %q", got)
	}
	if got := UnsatisfiableContentRange(2048); got != "bytes */2048" {
		t.Errorf("UnsatisfiableContentRange() = %q", got)
	}
}

func TestServeRange(t *testing.T) {
	content := make([]byte, 4096)
	for i := range content {
		content[i] = byte(i % 251)
	}
	size := int64(len(content))

	tests := []struct {
		name         string
		method       string
		rangeHeader  string
		wantStatus   int
		wantBody     []byte
		contentRange string
	}{
		{
			name:       "full file",
			method:     http.MethodGet,
			wantStatus: http.StatusOK,
			wantBody:   content,
		},
		{
			name:         "first kilobyte",
			method:       http.MethodGet,
			rangeHeader:  "bytes=0-1023",
			wantStatus:   http.StatusPartialContent,
			wantBody:     content[:1024],
			contentRange: "bytes 0-1023/4096",
		},
		{
			name:         "tail",
			method:       http.MethodGet,
			rangeHeader:  "bytes=4000-",
			wantStatus:   http.StatusPartialContent,
			wantBody:     content[4000:],
			contentRange: "bytes 4000-4095/4096",
		},
		{
			name:         "head request",
			method:       http.MethodHead,
			rangeHeader:  "bytes=10-19",
			wantStatus:   http.StatusPartialContent,
			wantBody:     nil,
			contentRange: "bytes 10-19/4096",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/video/1/share?token=x", nil)
			if tt.rangeHeader != "" {
				req.Header.Set("Range", tt.rangeHeader)
			}
			rec := httptest.NewRecorder()

			status, err := ServeRange(context.Background(), rec, req, bytes.NewReader(content), size, "video/mp4", DefaultConfig())
			if err != nil {
				t.Fatalf("ServeRange() error = %v", err)
			}
			if status != tt.wantStatus || rec.Code != tt.wantStatus {
				t.Errorf("status = %d (recorded %d), want %d", status, rec.Code, tt.wantStatus)
			}
			if !bytes.Equal(rec.Body.Bytes(), tt.wantBody) {
				t.Errorf("body length = %d, want %d", rec.Body.Len(), len(tt.wantBody))
			}
			if got := rec.Header().Get("Content-Range"); got != tt.contentRange {
				t.Errorf("Content-Range = %q, want %q", got, tt.contentRange)
			}
			if rec.Header().Get("Accept-Ranges") != "bytes" {
				t.Error("Expected Accept-Ranges: bytes")
			}
			if rec.Header().Get("Content-Type") != "video/mp4" {
				t.Errorf("Content-Type = %q", rec.Header().Get("Content-Type"))
			}
		})
	}
}

func TestServeRangeContentLength(t *testing.T) {
	content := bytes.Repeat([]byte{1}, 2048)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Range", "bytes=1024-2047")
	rec := httptest.NewRecorder()

	if _, err := ServeRange(context.Background(), rec, req, bytes.NewReader(content), 2048, "video/mp4", DefaultConfig()); err != nil {
		t.Fatalf("ServeRange() error = %v", err)
	}
	if got := rec.Header().Get("Content-Length"); got != "1024" {
		t.Errorf("Content-Length = %q, want 1024", got)
	}
}

func TestServeRangeInvalidWritesNothing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Range", "bytes=5000-")
	rec := httptest.NewRecorder()

	status, err := ServeRange(context.Background(), rec, req, bytes.NewReader(make([]byte, 100)), 100, "video/mp4", DefaultConfig())
	if !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("Expected ErrInvalidRange, got %v", err)
	}
	if status != http.StatusRequestedRangeNotSatisfiable {
		t.Errorf("status = %d, want 416", status)
	}
	if rec.Body.Len() != 0 || rec.Header().Get("Content-Length") != "" {
		t.Error("Nothing should be written for an invalid range")
	}
}
