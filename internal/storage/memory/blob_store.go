// Package memory keeps archived documents in process memory. It backs tests
// and dry runs where nothing should reach disk or a bucket.
package memory

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	"github.com/JakeFAU/toyota-maintenance-collector/internal/collector"
)

// BlobStore implements collector.BlobStore over a map. Like the other
// archive backends, a second write to an existing path keeps the first copy.
type BlobStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewBlobStore creates an empty store.
func NewBlobStore() *BlobStore {
	return &BlobStore{data: make(map[string][]byte)}
}

// PutObject stores a copy of the reader's content and returns a memory:// URI.
func (s *BlobStore) PutObject(ctx context.Context, path string, _ string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read object %s: %w", path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[path]; !ok {
		s.data[path] = body
	}
	return "memory://" + path, nil
}

// FindObject returns the lexically last stored path that starts with prefix.
func (s *BlobStore) FindObject(ctx context.Context, prefix string) (string, []byte, error) {
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	found := ""
	for p := range s.data {
		if strings.HasPrefix(p, prefix) && p > found {
			found = p
		}
	}
	if found == "" {
		return "", nil, collector.ErrObjectNotFound
	}
	return "memory://" + found, slices.Clone(s.data[found]), nil
}

// Object returns a copy of the stored content at path.
func (s *BlobStore) Object(path string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	body, ok := s.data[path]
	return slices.Clone(body), ok
}

// Paths lists every stored path in ascending order.
func (s *BlobStore) Paths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.data))
	for p := range s.data {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}
