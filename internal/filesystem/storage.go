package filesystem

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"clipshare/internal/logging"
	"clipshare/internal/metrics"
)

// ErrInvalidName is returned for names that would escape their directory.
var ErrInvalidName = errors.New("invalid file name")

// Storage owns the uploads directory and the temporary work area.
type Storage struct {
	uploadDir string
	tempDir   string
	retry     RetryConfig
}

// NewStorage creates both directories if needed.
func NewStorage(uploadDir, tempDir string) (*Storage, error) {
	for _, dir := range []string{uploadDir, tempDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	absUpload, err := filepath.Abs(uploadDir)
	if err != nil {
		return nil, err
	}
	absTemp, err := filepath.Abs(tempDir)
	if err != nil {
		return nil, err
	}

	return &Storage{
		uploadDir: absUpload,
		tempDir:   absTemp,
		retry:     DefaultRetryConfig(),
	}, nil
}

// UploadDir returns the absolute uploads directory.
func (s *Storage) UploadDir() string {
	return s.uploadDir
}

// TempDir returns the absolute temporary work directory.
func (s *Storage) TempDir() string {
	return s.tempDir
}

// UploadPath returns the absolute path for name inside the uploads directory.
func (s *Storage) UploadPath(name string) (string, error) {
	if err := validateName(name); err != nil {
		return "", err
	}
	return filepath.Join(s.uploadDir, name), nil
}

// Spool copies r into a new randomly named file in the uploads directory,
// keeping the extension of originalName. At most limit+1 bytes are read so
// callers can detect an oversized body from the returned size without
// storing all of it. limit <= 0 means no limit.
func (s *Storage) Spool(r io.Reader, originalName string, limit int64) (path string, size int64, err error) {
	ext := strings.ToLower(filepath.Ext(filepath.Base(originalName)))
	if ext == "" || len(ext) > 8 {
		ext = ".bin"
	}

	name := "upload-" + uuid.NewString() + ext
	path = filepath.Join(s.uploadDir, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create upload file: %w", err)
	}

	src := r
	if limit > 0 {
		src = io.LimitReader(r, limit+1)
	}
	size, err = io.Copy(f, src)
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = s.Remove(path)
		return "", 0, fmt.Errorf("failed to store upload: %w", err)
	}

	return path, size, nil
}

// Open opens a stored file, retrying stale NFS handles.
func (s *Storage) Open(path string) (*os.File, error) {
	return OpenWithRetry(path, s.retry)
}

// Stat stats a stored file, retrying stale NFS handles.
func (s *Storage) Stat(path string) (os.FileInfo, error) {
	return StatWithRetry(path, s.retry)
}

// Remove deletes a file. A missing file is not an error. Failures are
// logged and counted.
func (s *Storage) Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		metrics.FilesystemCleanupErrors.Inc()
		logging.Warn("Failed to remove %s: %v", path, err)
		return err
	}
	return nil
}

// TempEntries lists the names currently in the temporary work directory.
func (s *Storage) TempEntries() ([]string, error) {
	entries, err := os.ReadDir(s.tempDir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}

// Namespace is a private directory for one unit of work.
type Namespace struct {
	dir string
}

// NewNamespace creates <temp>/<prefix>-<id>. The directory must not exist.
func (s *Storage) NewNamespace(prefix, id string) (*Namespace, error) {
	name := prefix + "-" + id
	if err := validateName(name); err != nil {
		return nil, err
	}

	dir := filepath.Join(s.tempDir, name)
	if err := os.Mkdir(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create namespace %s: %w", name, err)
	}
	return &Namespace{dir: dir}, nil
}

// Dir returns the namespace directory.
func (n *Namespace) Dir() string {
	return n.dir
}

// Path returns the path for name inside the namespace.
func (n *Namespace) Path(name string) string {
	return filepath.Join(n.dir, name)
}

// Remove deletes the namespace and everything in it.
func (n *Namespace) Remove() error {
	if err := os.RemoveAll(n.dir); err != nil {
		metrics.FilesystemCleanupErrors.Inc()
		return fmt.Errorf("failed to remove namespace %s: %w", n.dir, err)
	}
	return nil
}

func validateName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
