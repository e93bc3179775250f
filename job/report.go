// Package job describes the outcome of scheduled economy jobs.
package job

import (
	"time"

	"github.com/xraph/economy/id"
)

// Kind names a scheduled job.
type Kind string

const (
	KindWeeklyBonus      Kind = "weekly-bonus"
	KindAnnualAdjustment Kind = "annual-adjustment"
	KindFiscalYearSeed   Kind = "fiscal-year-seed"
)

// Outcome summarizes a job run as a whole.
type Outcome string

const (
	// OutcomeApplied means the run changed state.
	OutcomeApplied Outcome = "applied"
	// OutcomeNoOp means every unit was already applied or not yet due.
	OutcomeNoOp Outcome = "noop"
	// OutcomePartial means some units failed and others succeeded.
	OutcomePartial Outcome = "partial"
	// OutcomeFailed means no unit succeeded and at least one failed.
	OutcomeFailed Outcome = "failed"
)

// Failure records one unit of work that errored.
type Failure struct {
	Subject string `json:"subject"`
	Error   string `json:"error"`
}

// Report is returned by every job run. Jobs are safe to re-trigger, so a
// Report with only skipped units is the expected result of a duplicate run.
type Report struct {
	RunID      id.JobRunID `json:"run_id"`
	Kind       Kind        `json:"kind"`
	Outcome    Outcome     `json:"outcome"`
	Reason     string      `json:"reason,omitempty"`
	Now        time.Time   `json:"now"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt time.Time   `json:"finished_at"`
	Processed  int         `json:"processed"`
	Applied    int         `json:"applied"`
	Skipped    int         `json:"skipped"`
	Failed     int         `json:"failed"`
	Points     int64       `json:"points"`
	Failures   []Failure   `json:"failures,omitempty"`
}

// New starts a report for a run of kind evaluated at now.
func New(kind Kind, now time.Time) *Report {
	return &Report{
		RunID:     id.NewJobRunID(),
		Kind:      kind,
		Now:       now,
		StartedAt: time.Now().UTC(),
	}
}

// Fail records a failed unit.
func (r *Report) Fail(subject string, err error) {
	r.Processed++
	r.Failed++
	r.Failures = append(r.Failures, Failure{Subject: subject, Error: err.Error()})
}

// Apply records a unit that changed state and moved points.
func (r *Report) Apply(points int64) {
	r.Processed++
	r.Applied++
	r.Points += points
}

// Skip records a unit that was already applied.
func (r *Report) Skip() {
	r.Processed++
	r.Skipped++
}

// Finish stamps the report and derives its outcome.
func (r *Report) Finish() *Report {
	r.FinishedAt = time.Now().UTC()
	switch {
	case r.Failed > 0 && r.Applied == 0 && r.Skipped == 0:
		r.Outcome = OutcomeFailed
	case r.Failed > 0:
		r.Outcome = OutcomePartial
	case r.Applied > 0:
		r.Outcome = OutcomeApplied
	default:
		r.Outcome = OutcomeNoOp
	}
	return r
}

// Duration returns how long the run took.
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
