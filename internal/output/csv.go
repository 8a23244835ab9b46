package output

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
)

// ExportCSV converts each dataset's JSONL file into <dataset>.csv with one
// column per top-level field. Nested values are written as compact JSON. It
// returns the paths written; datasets without a JSONL file are skipped.
func (s *JSONLSink) ExportCSV() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var paths []string
	for _, ds := range Datasets {
		out := filepath.Join(s.dir, ds+".csv")
		ok, err := exportCSV(s.Path(ds), out)
		if err != nil {
			return paths, fmt.Errorf("export %s: %w", ds, err)
		}
		if ok {
			paths = append(paths, out)
		}
	}
	return paths, nil
}

func exportCSV(src, dst string) (bool, error) {
	f, err := os.Open(src)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	defer func() { _ = f.Close() }()

	var (
		rows    []map[string]json.RawMessage
		columns []string
	)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLine)
	for scanner.Scan() {
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var row map[string]json.RawMessage
		if err := json.Unmarshal(raw, &row); err != nil {
			continue
		}
		for k := range row {
			if !slices.Contains(columns, k) {
				columns = append(columns, k)
			}
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return false, err
	}
	slices.Sort(columns)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(columns); err != nil {
		return false, err
	}
	record := make([]string, len(columns))
	for _, row := range rows {
		for i, col := range columns {
			record[i] = cell(row[col])
		}
		if err := w.Write(record); err != nil {
			return false, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return false, err
	}
	return true, os.WriteFile(dst, buf.Bytes(), 0o644)
}

// cell renders a JSON value for a CSV field: strings unquoted, null empty,
// everything else as compact JSON.
func cell(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		return string(raw)
	}
	return compact.String()
}
