package domain

import (
	"sync"
	"sync/atomic"
	"time"
)

// TaskStatus represents the outcome of a single download task.
type TaskStatus string

const (
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusSkipped   TaskStatus = "skipped"
)

// IsValid checks if the status is a known value.
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusCompleted, TaskStatusFailed, TaskStatusSkipped:
		return true
	}
	return false
}

// TaskResult records what happened to one task during a run.
type TaskResult struct {
	Slug       string
	URL        string
	Status     TaskStatus
	Bytes      int64
	Attempts   int
	Error      string
	ErrorKind  string
	FinishedAt time.Time
}

// RunCounters are shared by every task goroutine of a run.
type RunCounters struct {
	admitted  atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
	skipped   atomic.Int64
	bytes     atomic.Int64
}

// CounterSnapshot is a point-in-time copy of RunCounters.
type CounterSnapshot struct {
	Admitted  int64
	Completed int64
	Failed    int64
	Skipped   int64
	Bytes     int64
}

// Finished returns the number of admitted tasks that are done.
func (s CounterSnapshot) Finished() int64 {
	return s.Completed + s.Failed
}

// Admit marks one task as started.
func (c *RunCounters) Admit() { c.admitted.Add(1) }

// Skip marks one task whose destination already exists.
func (c *RunCounters) Skip() { c.skipped.Add(1) }

// Fail marks one admitted task as permanently failed.
func (c *RunCounters) Fail() { c.failed.Add(1) }

// Complete marks one admitted task as finished successfully.
func (c *RunCounters) Complete(n int64) {
	c.bytes.Add(n)
	c.completed.Add(1)
}

// Snapshot returns the current values.
func (c *RunCounters) Snapshot() CounterSnapshot {
	return CounterSnapshot{
		Admitted:  c.admitted.Load(),
		Completed: c.completed.Load(),
		Failed:    c.failed.Load(),
		Skipped:   c.skipped.Load(),
		Bytes:     c.bytes.Load(),
	}
}

// Done reports whether every admitted task has finished.
func (c *RunCounters) Done() bool {
	s := c.Snapshot()
	return s.Finished() == s.Admitted
}

// RunSummary is the persisted header of a run.
type RunSummary struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Total      int
	Completed  int
	Failed     int
	Skipped    int
	Bytes      int64
	Error      string
}

// Duration returns how long the run took, or zero while it is running.
func (s *RunSummary) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// RunReport collects the results of a run. It is safe for concurrent use.
type RunReport struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Counters   CounterSnapshot

	mu      sync.Mutex
	results []TaskResult
}

// NewRunReport creates an empty report.
func NewRunReport(id string, startedAt time.Time) *RunReport {
	return &RunReport{ID: id, StartedAt: startedAt}
}

// Add appends a task result.
func (r *RunReport) Add(res TaskResult) {
	r.mu.Lock()
	r.results = append(r.results, res)
	r.mu.Unlock()
}

// Results returns a copy of all task results.
func (r *RunReport) Results() []TaskResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]TaskResult, len(r.results))
	copy(out, r.results)
	return out
}

// Failed returns the results with TaskStatusFailed.
func (r *RunReport) Failed() []TaskResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []TaskResult
	for _, res := range r.results {
		if res.Status == TaskStatusFailed {
			out = append(out, res)
		}
	}
	return out
}

// Elapsed returns the wall time of the run.
func (r *RunReport) Elapsed() time.Duration {
	if r.FinishedAt.IsZero() {
		return time.Since(r.StartedAt)
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Summary converts the report into its persisted header.
func (r *RunReport) Summary(runErr error) *RunSummary {
	s := &RunSummary{
		ID:         r.ID,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Completed:  int(r.Counters.Completed),
		Failed:     int(r.Counters.Failed),
		Skipped:    int(r.Counters.Skipped),
		Bytes:      r.Counters.Bytes,
	}
	s.Total = s.Completed + s.Failed + s.Skipped
	if runErr != nil {
		s.Error = runErr.Error()
	}
	return s
}
