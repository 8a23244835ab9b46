// Package output writes collected records as line-delimited JSON, one file
// per dataset, and exports them to CSV at the end of a run.
package output

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/JakeFAU/toyota-maintenance-collector/internal/collector"
)

// SummaryFile is the run summary written next to the datasets.
const SummaryFile = "scrape_summary.json"

// maxLine bounds a single JSONL line when reading existing files.
const maxLine = 16 << 20

// Datasets lists the output datasets in a stable order.
var Datasets = []string{
	collector.DatasetMaintenance,
	collector.DatasetFuelEconomy,
	collector.DatasetServiceSpecs,
}

var decoders = map[string]func([]byte) (collector.Line, error){
	collector.DatasetMaintenance:  decodeLine[collector.MaintenanceRecord],
	collector.DatasetFuelEconomy:  decodeLine[collector.VehicleSpec],
	collector.DatasetServiceSpecs: decodeLine[collector.ServiceSpec],
}

func decodeLine[T collector.Line](data []byte) (collector.Line, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// JSONLSink appends records to <dir>/<dataset>.jsonl. Lines whose dedup key
// is already present, from this run or an earlier one, are skipped.
type JSONLSink struct {
	mu      sync.Mutex
	dir     string
	logger  *zap.Logger
	seen    map[string]map[string]struct{}
	written map[string]int
}

// NewJSONLSink creates dir and seeds dedup keys from existing dataset files.
func NewJSONLSink(dir string, logger *zap.Logger) (*JSONLSink, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	s := &JSONLSink{
		dir:     dir,
		logger:  logger,
		seen:    make(map[string]map[string]struct{}, len(Datasets)),
		written: make(map[string]int, len(Datasets)),
	}
	for _, ds := range Datasets {
		keys, err := s.seed(ds)
		if err != nil {
			return nil, err
		}
		s.seen[ds] = keys
	}
	return s, nil
}

// Path returns the JSONL file for dataset.
func (s *JSONLSink) Path(dataset string) string {
	return filepath.Join(s.dir, dataset+".jsonl")
}

func (s *JSONLSink) seed(dataset string) (map[string]struct{}, error) {
	keys := make(map[string]struct{})
	f, err := os.Open(s.Path(dataset))
	if errors.Is(err, fs.ErrNotExist) {
		return keys, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dataset, err)
	}
	defer func() { _ = f.Close() }()

	decode := decoders[dataset]
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLine)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		line, err := decode(raw)
		if err != nil {
			s.logger.Warn("skipping unreadable output line",
				zap.String("dataset", dataset),
				zap.Int("line", lineNo),
				zap.Error(err),
			)
			continue
		}
		keys[line.DedupKey()] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", dataset, err)
	}
	return keys, nil
}

// Emit writes every new line of record with a single append, so a record is
// either fully present or absent.
func (s *JSONLSink) Emit(_ context.Context, record collector.Record) error {
	dataset := record.Dataset()
	if _, ok := decoders[dataset]; !ok {
		return fmt.Errorf("unknown dataset %q", dataset)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	seen := s.seen[dataset]
	var buf bytes.Buffer
	fresh := make([]string, 0, len(record.Lines()))
	for _, line := range record.Lines() {
		key := line.DedupKey()
		if _, dup := seen[key]; dup || slices.Contains(fresh, key) {
			continue
		}
		data, err := json.Marshal(line)
		if err != nil {
			return fmt.Errorf("encode %s line: %w", dataset, err)
		}
		buf.Write(data)
		buf.WriteByte('\n')
		fresh = append(fresh, key)
	}
	if len(fresh) == 0 {
		return nil
	}

	if err := s.appendLocked(s.Path(dataset), buf.Bytes()); err != nil {
		return fmt.Errorf("append %s: %w", dataset, err)
	}
	for _, k := range fresh {
		seen[k] = struct{}{}
	}
	s.written[dataset] += len(fresh)
	return nil
}

func (s *JSONLSink) appendLocked(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	// A torn final line from a crashed run must not swallow the next record.
	if info, statErr := f.Stat(); statErr == nil && info.Size() > 0 {
		last := make([]byte, 1)
		if _, err := f.ReadAt(last, info.Size()-1); err == nil && last[0] != '\n' {
			data = append([]byte{'\n'}, data...)
		}
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Written returns how many lines each dataset gained during this process.
func (s *JSONLSink) Written() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.written))
	for k, v := range s.written {
		out[k] = v
	}
	return out
}

// WriteSummary stores v as indented JSON in SummaryFile.
func (s *JSONLSink) WriteSummary(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode summary: %w", err)
	}
	path := filepath.Join(s.dir, SummaryFile)
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("write summary: %w", err)
	}
	return path, nil
}
