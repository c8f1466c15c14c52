package model

import (
	"time"

	"github.com/rotisserie/eris"
)

// JobStatus is the lifecycle state of a research job.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether no further transition is allowed.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// ErrJobTerminal is returned when mutating a completed or failed job.
var ErrJobTerminal = eris.New("job already in terminal state")

// ResearchJob tracks one deep investigation.
type ResearchJob struct {
	ID          string          `json:"job_id"`
	Status      JobStatus       `json:"status"`
	Progress    int             `json:"progress"`
	CurrentStep string          `json:"current_step"`
	CreatedAt   time.Time       `json:"created_at"`
	CompletedAt *time.Time      `json:"completed_at"`
	Result      *ResearchReport `json:"result"`
	Error       string          `json:"error,omitempty"`
}

// NewResearchJob returns a pending job.
func NewResearchJob(id string, now time.Time) *ResearchJob {
	return &ResearchJob{
		ID:          id,
		Status:      JobStatusPending,
		CurrentStep: "Initializing deep research...",
		CreatedAt:   now.UTC(),
	}
}

// Advance moves the job into processing at the given milestone. Progress never
// decreases.
func (j *ResearchJob) Advance(progress int, step string) error {
	if j.Status.Terminal() {
		return eris.Wrapf(ErrJobTerminal, "advance job %s", j.ID)
	}
	if progress < j.Progress {
		return eris.Errorf("model: job %s progress would regress from %d to %d", j.ID, j.Progress, progress)
	}
	j.Status = JobStatusProcessing
	j.Progress = ClampScore(progress)
	j.CurrentStep = step
	return nil
}

// Complete records the report and closes the job.
func (j *ResearchJob) Complete(report *ResearchReport, now time.Time) error {
	if j.Status.Terminal() {
		return eris.Wrapf(ErrJobTerminal, "complete job %s", j.ID)
	}
	t := now.UTC()
	j.Status = JobStatusCompleted
	j.Progress = 100
	j.CurrentStep = "Complete"
	j.Result = report
	j.CompletedAt = &t
	return nil
}

// Fail records the error and closes the job. Progress is left where it was.
func (j *ResearchJob) Fail(msg string, now time.Time) error {
	if j.Status.Terminal() {
		return eris.Wrapf(ErrJobTerminal, "fail job %s", j.ID)
	}
	t := now.UTC()
	j.Status = JobStatusFailed
	j.Error = msg
	j.CompletedAt = &t
	return nil
}

// Clone returns a deep copy so callers never share a record with its runner.
func (j *ResearchJob) Clone() *ResearchJob {
	if j == nil {
		return nil
	}
	c := *j
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		c.CompletedAt = &t
	}
	if j.Result != nil {
		r := *j.Result
		r.Sections = append(Sections(nil), j.Result.Sections...)
		c.Result = &r
	}
	return &c
}
