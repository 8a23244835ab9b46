// Package local archives raw documents on the local filesystem.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/JakeFAU/toyota-maintenance-collector/internal/collector"
)

// Config captures the parameters for the local archive.
type Config struct {
	// BaseDir is the root directory for archived documents.
	BaseDir string `mapstructure:"dir"`
}

// BlobStore writes archived documents below a base directory.
type BlobStore struct {
	baseDir string
}

// New creates the base directory if needed and checks it is writable.
func New(cfg Config) (*BlobStore, error) {
	if strings.TrimSpace(cfg.BaseDir) == "" {
		return nil, fmt.Errorf("base directory is required")
	}

	info, err := os.Stat(cfg.BaseDir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if mkErr := os.MkdirAll(cfg.BaseDir, 0o750); mkErr != nil {
			return nil, fmt.Errorf("failed to create base directory: %w", mkErr)
		}
	case err != nil:
		return nil, fmt.Errorf("failed to stat base directory: %w", err)
	case !info.IsDir():
		return nil, fmt.Errorf("base directory path is not a directory")
	}

	probe, err := os.CreateTemp(cfg.BaseDir, ".writable-*")
	if err != nil {
		return nil, fmt.Errorf("base directory is not writable: %w", err)
	}
	_ = probe.Close()
	if err := os.Remove(probe.Name()); err != nil {
		return nil, fmt.Errorf("failed to clean up probe file: %w", err)
	}

	return &BlobStore{baseDir: filepath.Clean(cfg.BaseDir)}, nil
}

// PutObject writes data to path below the base directory and returns a
// file:// URI. Paths are content-addressed, so an existing file is left as is.
func (s *BlobStore) PutObject(_ context.Context, path string, _ string, data io.Reader) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("path is required")
	}

	fullPath := filepath.Join(s.baseDir, filepath.FromSlash(path))
	if !strings.HasPrefix(fullPath, s.baseDir+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal detected")
	}
	uri := "file://" + filepath.ToSlash(fullPath)

	if _, err := os.Stat(fullPath); err == nil {
		return uri, nil
	}
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o750); err != nil {
		return "", fmt.Errorf("failed to create parent directories: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(fullPath), ".blob-*.tmp")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := io.Copy(tmp, data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tmp.Name(), fullPath); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to move file into place: %w", err)
	}
	return uri, nil
}

// FindObject returns the lexically last archived file whose path below the
// base directory starts with prefix. Temporary files are skipped.
func (s *BlobStore) FindObject(_ context.Context, prefix string) (string, []byte, error) {
	dir, base := path.Split(prefix)
	fullDir := filepath.Join(s.baseDir, filepath.FromSlash(dir))
	if fullDir != s.baseDir && !strings.HasPrefix(fullDir, s.baseDir+string(filepath.Separator)) {
		return "", nil, fmt.Errorf("path traversal detected")
	}

	entries, err := os.ReadDir(fullDir)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil, collector.ErrObjectNotFound
	}
	if err != nil {
		return "", nil, fmt.Errorf("failed to list archive directory: %w", err)
	}
	found := ""
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasPrefix(name, base) {
			continue
		}
		if name > found {
			found = name
		}
	}
	if found == "" {
		return "", nil, collector.ErrObjectNotFound
	}

	fullPath := filepath.Join(fullDir, found)
	body, err := os.ReadFile(fullPath)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read archived file: %w", err)
	}
	return "file://" + filepath.ToSlash(fullPath), body, nil
}
