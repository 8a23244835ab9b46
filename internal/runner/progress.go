package runner

import (
	"time"

	"github.com/JakeFAU/toyota-maintenance-collector/internal/collector"
)

// Status is the lifecycle of a run as seen by the status endpoint.
type Status string

// Run statuses.
const (
	StatusIdle     Status = "idle"
	StatusRunning  Status = "running"
	StatusFinished Status = "finished"
)

// Progress is a point-in-time view of a run.
type Progress struct {
	RunID     string                             `json:"run_id"`
	Status    Status                             `json:"status"`
	StartedAt time.Time                          `json:"started_at,omitempty"`
	Current   *collector.WorkUnit                `json:"current,omitempty"`
	Total     int                                `json:"total"`
	Done      int                                `json:"done"`
	Fallback  int                                `json:"fallback"`
	Failed    int                                `json:"failed"`
	Skipped   int                                `json:"skipped"`
	Remaining int                                `json:"remaining"`
	BySource  map[collector.Source]*SourceCounts `json:"by_source"`
}

// Progress returns a snapshot safe to read while the run continues.
func (r *Runner) Progress() Progress {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.progress
	if p.Current != nil {
		u := *p.Current
		p.Current = &u
	}
	p.BySource = make(map[collector.Source]*SourceCounts, len(r.progress.BySource))
	for k, v := range r.progress.BySource {
		c := *v
		p.BySource[k] = &c
	}
	return p
}

func (r *Runner) begin(s Summary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress.Status = StatusRunning
	r.progress.StartedAt = s.StartedAt
	r.applyLocked(s)
}

func (r *Runner) update(s Summary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.applyLocked(s)
}

func (r *Runner) finish(s Summary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress.Status = StatusFinished
	r.progress.Current = nil
	r.applyLocked(s)
}

func (r *Runner) setCurrent(u *collector.WorkUnit) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u == nil {
		r.progress.Current = nil
		return
	}
	cp := *u
	r.progress.Current = &cp
}

func (r *Runner) applyLocked(s Summary) {
	c := s.clone()
	r.progress.Total = c.Total
	r.progress.Done = c.Done
	r.progress.Fallback = c.Fallback
	r.progress.Failed = c.Failed
	r.progress.Skipped = c.Skipped
	r.progress.Remaining = c.Remaining()
	r.progress.BySource = c.BySource
}
