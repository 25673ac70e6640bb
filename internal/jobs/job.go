// Package jobs runs deep attribution scans as persisted, resumable
// background jobs.
package jobs

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"attrib/internal/cms"
	"attrib/internal/evidence"
	"attrib/internal/synthesis"
)

// Status represents the current state of a scan job.
type Status string

const (
	StatusInitiated  Status = "initiated"
	StatusInProgress Status = "in_progress"
	StatusPaused     Status = "paused"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
	StatusError      Status = "error"
)

// Phase identifies one stage of the deep scan.
type Phase string

const (
	PhaseTemplates  Phase = "template_files"
	PhaseExtensions Phase = "extensions"
	PhaseRecords    Phase = "content_records"
	PhaseBuilder    Phase = "page_builder"
	PhaseBranding   Phase = "branding"
	PhaseSynthesis  Phase = "synthesis"
)

// phaseOrder is the strict execution order of deep-scan phases.
var phaseOrder = []Phase{
	PhaseTemplates,
	PhaseExtensions,
	PhaseRecords,
	PhaseBuilder,
	PhaseBranding,
	PhaseSynthesis,
}

// Job is the persisted state of one deep scan.
type Job struct {
	ID            string                 `json:"id"`
	Query         string                 `json:"query"`
	Target        cms.PageContext        `json:"target"`
	Status        Status                 `json:"status"`
	Phase         Phase                  `json:"currentPhase"`
	Progress      int                    `json:"progressPercent"`
	BatchPosition int                    `json:"batchPosition"`
	Results       []evidence.Item        `json:"results,omitempty"`
	Outcome       *synthesis.Explanation `json:"outcome,omitempty"`
	StartedAt     time.Time              `json:"startedAt"`
	LastUpdate    time.Time              `json:"lastUpdate"`
	Error         string                 `json:"errorMessage,omitempty"`
}

// JobID derives the deterministic id for a (query, target) pair, so
// re-submitting an identical request lands on the existing job.
func JobID(query string, target cms.PageContext) string {
	h := sha256.Sum256([]byte(query + "\x00" + target.Path + "\x00" + target.RecordID))
	return "job_" + hex.EncodeToString(h[:8])
}

// NewJob creates a job in the initiated state.
func NewJob(query string, target cms.PageContext) *Job {
	now := time.Now().UTC()
	return &Job{
		ID:         JobID(query, target),
		Query:      query,
		Target:     target,
		Status:     StatusInitiated,
		Phase:      phaseOrder[0],
		StartedAt:  now,
		LastUpdate: now,
	}
}

// IsTerminal reports whether the job can never run another batch.
func (j *Job) IsTerminal() bool {
	return j.Status == StatusCompleted || j.Status == StatusCancelled || j.Status == StatusError
}

// phaseIndex returns the position of the job's current phase.
func (j *Job) phaseIndex() int {
	for i, p := range phaseOrder {
		if p == j.Phase {
			return i
		}
	}
	return 0
}

// advancePhase moves to the next phase, resetting the batch position.
// Returns false when the current phase was the last one.
func (j *Job) advancePhase() bool {
	idx := j.phaseIndex()
	if idx+1 >= len(phaseOrder) {
		return false
	}
	j.Phase = phaseOrder[idx+1]
	j.BatchPosition = 0
	j.Progress = phaseBaseProgress(idx + 1)
	return true
}

// phaseBaseProgress maps a phase index to the percentage reported when
// that phase begins.
func phaseBaseProgress(idx int) int {
	return idx * 100 / len(phaseOrder)
}

// bumpProgress nudges progress within the current phase band after a batch
// that did not finish the phase.
func (j *Job) bumpProgress() {
	ceiling := phaseBaseProgress(j.phaseIndex()+1) - 1
	if j.Progress < ceiling {
		j.Progress++
	}
}

// markCompleted finalizes the job.
func (j *Job) markCompleted(outcome *synthesis.Explanation) {
	j.Status = StatusCompleted
	j.Outcome = outcome
	j.Progress = 100
	j.LastUpdate = time.Now().UTC()
}

// markError finalizes the job with an error message.
func (j *Job) markError(msg string) {
	j.Status = StatusError
	j.Error = msg
	j.LastUpdate = time.Now().UTC()
}
