package cmd

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"github.com/JakeFAU/toyota-maintenance-collector/internal/collector"
	"github.com/JakeFAU/toyota-maintenance-collector/internal/runner"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const statusLabelWidth = 14

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := range columns {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := range columns {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := range columns {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	base := fmt.Sprintf("  %-*s [%s] %s", statusLabelWidth, label+":", statusKindLabel(kind), message)
	base = strings.TrimRight(base, " ")
	if colorize {
		return statusKindColor(kind) + base + ansiReset
	}
	return base
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	default:
		return ansiBlue
	}
}

func renderSectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	if colorize {
		line = ansiBlue + line + ansiReset
		rule = ansiBlue + rule + ansiReset
	}
	return []string{line, rule}
}

func shouldColorize(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// renderSummary prints the end-of-run report: overall status, per-source
// counts and the failed units.
func renderSummary(w io.Writer, s runner.Summary, colorize bool) {
	for _, line := range renderSectionHeader("Run "+s.RunID, colorize) {
		_, _ = fmt.Fprintln(w, line)
	}

	kind, msg := statusOK, "complete"
	switch {
	case s.Interrupted:
		kind, msg = statusWarn, fmt.Sprintf("interrupted; %d units remain, rerun to resume", s.Pending)
	case s.Failed > 0:
		kind, msg = statusWarn, fmt.Sprintf("%d units failed; rerun to retry them", s.Failed)
	}
	_, _ = fmt.Fprintln(w, renderStatusLine("status", kind, msg, colorize))
	_, _ = fmt.Fprintln(w, renderStatusLine("duration", statusInfo, s.Duration, colorize))
	if s.CheckpointCorrupted {
		_, _ = fmt.Fprintln(w, renderStatusLine("checkpoint", statusWarn, "corrupt file quarantined; started fresh", colorize))
	}

	rows := make([][]string, 0, len(s.BySource)+1)
	for _, src := range sortedSources(s) {
		c := s.BySource[src]
		rows = append(rows, []string{
			string(src), strconv.Itoa(c.Total), strconv.Itoa(c.Skipped), strconv.Itoa(c.Done),
			strconv.Itoa(c.Fallback), strconv.Itoa(c.Failed),
		})
	}
	rows = append(rows, []string{
		"all", strconv.Itoa(s.Total), strconv.Itoa(s.Skipped), strconv.Itoa(s.Done),
		strconv.Itoa(s.Fallback), strconv.Itoa(s.Failed),
	})
	_, _ = fmt.Fprintln(w, renderTable(
		[]string{"Source", "Total", "Skipped", "Done", "Fallback", "Failed"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight},
	))

	if len(s.Failures) == 0 {
		return
	}
	failed := make([][]string, 0, len(s.Failures))
	for _, f := range s.Failures {
		failed = append(failed, []string{f.Unit.Key(), string(f.Stage), f.Reason})
	}
	_, _ = fmt.Fprintln(w, renderTable([]string{"Unit", "Stage", "Reason"}, failed, nil))
}

func sortedSources(s runner.Summary) []collector.Source {
	out := make([]collector.Source, 0, len(s.BySource))
	for _, src := range collector.Sources() {
		if _, ok := s.BySource[src]; ok {
			out = append(out, src)
		}
	}
	return out
}
