package runner

import (
	"time"

	"github.com/JakeFAU/toyota-maintenance-collector/internal/collector"
)

// SourceCounts tallies units for one source.
type SourceCounts struct {
	Total    int `json:"total"`
	Done     int `json:"done"`
	Fallback int `json:"fallback"`
	Failed   int `json:"failed"`
	Skipped  int `json:"skipped"`
}

// Failure describes a unit that did not complete.
type Failure struct {
	Unit   collector.WorkUnit `json:"unit"`
	Stage  State              `json:"stage"`
	Reason string             `json:"reason"`
}

// Summary reports the outcome of one run. Fallback is a subset of Done.
// Skipped counts units already complete before the run started.
type Summary struct {
	RunID               string                             `json:"run_id"`
	StartedAt           time.Time                          `json:"started_at"`
	FinishedAt          time.Time                          `json:"finished_at"`
	Duration            string                             `json:"duration"`
	Total               int                                `json:"total"`
	Done                int                                `json:"done"`
	Fallback            int                                `json:"fallback"`
	Failed              int                                `json:"failed"`
	Skipped             int                                `json:"skipped"`
	Pending             int                                `json:"remaining"`
	Interrupted         bool                               `json:"interrupted"`
	CheckpointCorrupted bool                               `json:"checkpoint_corrupted"`
	Failures            []Failure                          `json:"failures"`
	BySource            map[collector.Source]*SourceCounts `json:"by_source"`
}

func newSummary(runID string, start time.Time, corrupted bool) Summary {
	return Summary{
		RunID:               runID,
		StartedAt:           start,
		CheckpointCorrupted: corrupted,
		Failures:            []Failure{},
		BySource:            make(map[collector.Source]*SourceCounts),
	}
}

func (s *Summary) source(src collector.Source) *SourceCounts {
	c, ok := s.BySource[src]
	if !ok {
		c = &SourceCounts{}
		s.BySource[src] = c
	}
	return c
}

func (s *Summary) record(u collector.WorkUnit, res unitResult) {
	c := s.source(u.Source)
	switch res.state {
	case StateDone:
		s.Done++
		c.Done++
		if res.fallback {
			s.Fallback++
			c.Fallback++
		}
	case StateFailed:
		s.Failed++
		c.Failed++
		s.Failures = append(s.Failures, Failure{Unit: u, Stage: res.stage, Reason: res.reason})
	}
}

// Remaining counts units that are still incomplete, including failed ones.
func (s *Summary) Remaining() int {
	return s.Total - s.Skipped - s.Done
}

// clone copies s deeply enough for concurrent readers.
func (s Summary) clone() Summary {
	out := s
	out.Failures = append([]Failure(nil), s.Failures...)
	out.BySource = make(map[collector.Source]*SourceCounts, len(s.BySource))
	for k, v := range s.BySource {
		c := *v
		out.BySource[k] = &c
	}
	return out
}
