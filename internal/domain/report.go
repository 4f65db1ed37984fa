package domain

import "time"

// TaskStatus is the outcome of reconciling one (region, source) archive.
type TaskStatus string

const (
	// StatusComplete means the archive already covered the source range.
	StatusComplete TaskStatus = "complete"
	// StatusNoNewData means months were missing but none could be extracted.
	StatusNoNewData TaskStatus = "no_new_data"
	// StatusUpdated means new months were merged and the archive rewritten.
	StatusUpdated TaskStatus = "updated"
	// StatusFailed means the task could not run, e.g. a corrupt archive.
	StatusFailed TaskStatus = "failed"
)

// TaskReport describes one reconciliation.
type TaskReport struct {
	RunID         string     `json:"run_id"`
	Region        string     `json:"region"`
	Source        string     `json:"source"`
	Status        TaskStatus `json:"status"`
	Missing       int        `json:"missing"`
	Extracted     int        `json:"extracted"`
	Skipped       int        `json:"skipped"`
	Rows          int        `json:"rows"`
	SkippedMonths []Month    `json:"skipped_months,omitempty"`
	Interrupted   bool       `json:"interrupted,omitempty"`
	Error         string     `json:"error,omitempty"`
	StartedAt     time.Time  `json:"started_at"`
	FinishedAt    time.Time  `json:"finished_at"`
}

// RunReport aggregates the task reports of one run.
type RunReport struct {
	RunID       string             `json:"run_id"`
	Tasks       int                `json:"tasks"`
	ByStatus    map[TaskStatus]int `json:"by_status"`
	Extracted   int                `json:"extracted"`
	Skipped     int                `json:"skipped"`
	Interrupted bool               `json:"interrupted,omitempty"`
	StartedAt   time.Time          `json:"started_at"`
	FinishedAt  time.Time          `json:"finished_at"`
}

// Add folds a task report into the run totals.
func (r *RunReport) Add(t TaskReport) {
	if r.ByStatus == nil {
		r.ByStatus = make(map[TaskStatus]int)
	}
	r.Tasks++
	r.ByStatus[t.Status]++
	r.Extracted += t.Extracted
	r.Skipped += t.Skipped
	if t.Interrupted {
		r.Interrupted = true
	}
}

// ExtractionFailure is one skipped month, kept for later inspection.
type ExtractionFailure struct {
	RunID  string
	Region string
	Source string
	Month  Month
	Reason string
	At     time.Time
}
