// Package checkpoint persists which work units have completed so an
// interrupted run can resume, and enumerates the job matrix.
package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/toyota-maintenance-collector/internal/collector"
)

// Version is the on-disk format version.
const Version = 1

// Entry records one completed unit.
type Entry struct {
	Source      collector.Source `json:"source"`
	Model       string           `json:"model"`
	Year        int              `json:"year"`
	CompletedAt time.Time        `json:"completed_at"`
}

// Unit returns the work unit the entry completes.
func (e Entry) Unit() collector.WorkUnit {
	return collector.WorkUnit{Source: e.Source, Model: e.Model, Year: e.Year}
}

type document struct {
	Version   int       `json:"version"`
	RunID     string    `json:"run_id"`
	StartedAt time.Time `json:"started_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Completed []Entry   `json:"completed"`
}

// Store is the durable set of completed units. Every mutation rewrites the
// whole file through a temp file and rename, so a crash leaves either the old
// or the new state on disk.
type Store struct {
	mu        sync.Mutex
	path      string
	clock     collector.Clock
	logger    *zap.Logger
	runID     string
	startedAt time.Time
	updatedAt time.Time
	completed map[string]Entry
	corrupted bool
}

// Load reads the checkpoint at path. A missing file yields an empty store. A
// file that cannot be decoded is moved aside to path+".corrupt" and also
// yields an empty store; Corrupted reports that this happened.
func Load(path string, clock collector.Clock, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		path:      path,
		clock:     clock,
		logger:    logger,
		completed: make(map[string]Entry),
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("read checkpoint: %w", err)
	}

	doc, err := decode(data)
	if err != nil {
		s.corrupted = true
		quarantine := path + ".corrupt"
		if renameErr := os.Rename(path, quarantine); renameErr != nil {
			logger.Warn("failed to move corrupt checkpoint aside", zap.String("path", path), zap.Error(renameErr))
			quarantine = ""
		}
		logger.Warn("checkpoint corrupt, starting from empty state",
			zap.String("path", path),
			zap.String("moved_to", quarantine),
			zap.Error(err),
		)
		return s, nil
	}

	s.runID = doc.RunID
	s.startedAt = doc.StartedAt
	s.updatedAt = doc.UpdatedAt
	for _, e := range doc.Completed {
		s.completed[e.Unit().Key()] = e
	}
	logger.Debug("checkpoint loaded", zap.String("path", path), zap.Int("completed", len(s.completed)))
	return s, nil
}

func decode(data []byte) (document, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return document{}, fmt.Errorf("%w: %w", collector.ErrCheckpointCorruption, err)
	}
	if doc.Version != Version {
		return document{}, fmt.Errorf("%w: unsupported version %d", collector.ErrCheckpointCorruption, doc.Version)
	}
	for i, e := range doc.Completed {
		if !e.Source.Valid() || e.Model == "" || e.Year <= 0 {
			return document{}, fmt.Errorf("%w: invalid entry %d", collector.ErrCheckpointCorruption, i)
		}
	}
	return doc, nil
}

// Path returns the checkpoint file location.
func (s *Store) Path() string {
	return s.path
}

// Corrupted reports whether Load discarded an unreadable file.
func (s *Store) Corrupted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.corrupted
}

// RunID returns the run that owns the checkpoint, or "" for a new store.
func (s *Store) RunID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runID
}

// Begin assigns runID to a store that has none. A resumed store keeps its
// original run ID. It returns the ID in effect.
func (s *Store) Begin(runID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runID == "" {
		s.runID = runID
		s.startedAt = s.clock.Now()
	}
	return s.runID
}

// IsComplete reports whether unit has been marked complete.
func (s *Store) IsComplete(unit collector.WorkUnit) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.completed[unit.Key()]
	return ok
}

// Len returns the number of completed entries, including ones outside the
// current matrix.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.completed)
}

// Completed returns every entry in matrix order.
func (s *Store) Completed() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedLocked()
}

func (s *Store) sortedLocked() []Entry {
	out := make([]Entry, 0, len(s.completed))
	for _, e := range s.completed {
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b Entry) int { return collector.CompareUnits(a.Unit(), b.Unit()) })
	return out
}

// MarkComplete adds unit and persists the full set before returning. Marking
// an already-complete unit is a no-op.
func (s *Store) MarkComplete(unit collector.WorkUnit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := unit.Key()
	if _, ok := s.completed[key]; ok {
		return nil
	}
	now := s.clock.Now()
	s.completed[key] = Entry{Source: unit.Source, Model: unit.Model, Year: unit.Year, CompletedAt: now}
	if err := s.saveLocked(now); err != nil {
		delete(s.completed, key)
		return err
	}
	return nil
}

// Reset forgets every completed unit and persists the empty set.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completed = make(map[string]Entry)
	s.runID = ""
	s.startedAt = time.Time{}
	return s.saveLocked(s.clock.Now())
}

func (s *Store) saveLocked(now time.Time) error {
	s.updatedAt = now
	doc := document{
		Version:   Version,
		RunID:     s.runID,
		StartedAt: s.startedAt,
		UpdatedAt: now,
		Completed: s.sortedLocked(),
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create checkpoint dir: %w", err)
	}
	if err := writeFileAtomic(s.path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	return nil
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".checkpoint-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
