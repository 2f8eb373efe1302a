package sync

import (
	"fmt"
	"time"

	"github.com/staffline/boond-sync/pkg/boond"
)

// Outcome labels used in metrics.
const (
	OutcomeCreated      = "created"
	OutcomeUpdated      = "updated"
	OutcomeSkipped      = "skipped"
	OutcomeFailed       = "failed"
	OutcomeNotAttempted = "not_attempted"
)

// Counts tallies record outcomes.
type Counts struct {
	Created      int `json:"created"`
	Updated      int `json:"updated"`
	Skipped      int `json:"skipped"`
	Failed       int `json:"failed"`
	NotAttempted int `json:"notAttempted"`
}

func (c *Counts) add(o Counts) {
	c.Created += o.Created
	c.Updated += o.Updated
	c.Skipped += o.Skipped
	c.Failed += o.Failed
	c.NotAttempted += o.NotAttempted
}

// Stages of a record at which reconciliation can fail.
const (
	StageMatch    = "match"
	StageCreate   = "create"
	StageUpdate   = "update"
	StageResumes  = "resumes"
	StageDownload = "download"
	StageUpload   = "upload"
)

// SyncRecordError is the failure of one record. It never aborts a run.
type SyncRecordError struct {
	Type         boond.ResourceType `json:"type"`
	ProductionID boond.ID           `json:"productionId"`
	SandboxID    boond.ID           `json:"sandboxId,omitempty"`
	DocumentID   boond.ID           `json:"documentId,omitempty"`
	Stage        string             `json:"stage"`
	Reason       string             `json:"reason"`
	Kind         string             `json:"kind"`
	Permission   bool               `json:"permission"`

	Err error `json:"-"`
}

func newRecordError(rt boond.ResourceType, productionID boond.ID, stage string, err error) *SyncRecordError {
	return &SyncRecordError{
		Type:         rt,
		ProductionID: productionID,
		Stage:        stage,
		Reason:       err.Error(),
		Kind:         boond.ErrorKind(err),
		Permission:   boond.IsPermission(err),
		Err:          err,
	}
}

func (e *SyncRecordError) Error() string {
	if e.DocumentID != 0 {
		return fmt.Sprintf("sync %s %d document %d: %s: %s", e.Type, e.ProductionID, e.DocumentID, e.Stage, e.Reason)
	}
	return fmt.Sprintf("sync %s %d: %s: %s", e.Type, e.ProductionID, e.Stage, e.Reason)
}

func (e *SyncRecordError) Unwrap() error { return e.Err }

// TypeResult is the outcome of one resource type pass.
type TypeResult struct {
	Type boond.ResourceType `json:"type"`
	Counts
	// FetchError is set when either snapshot of the type could not be
	// listed; no record of the type is then reconciled.
	FetchError string `json:"fetchError,omitempty"`
	// ParentsNotAttempted counts, on the documents pass, linked candidates
	// and resources whose resumes were never listed because the run was
	// cancelled.
	ParentsNotAttempted int                `json:"parentsNotAttempted,omitempty"`
	Failures            []*SyncRecordError `json:"failures"`
}

func newTypeResult(rt boond.ResourceType) *TypeResult {
	return &TypeResult{Type: rt, Failures: []*SyncRecordError{}}
}

func (t *TypeResult) fail(e *SyncRecordError) {
	t.Failed++
	t.Failures = append(t.Failures, e)
}

// Result is the outcome of one production to sandbox run.
type Result struct {
	RunID      string        `json:"runId"`
	StartedAt  time.Time     `json:"startedAt"`
	FinishedAt time.Time     `json:"finishedAt"`
	Cancelled  bool          `json:"cancelled"`
	Types      []*TypeResult `json:"types"`
	Totals     Counts        `json:"totals"`
}

// Type returns the result of rt, or nil.
func (r *Result) Type(rt boond.ResourceType) *TypeResult {
	for _, t := range r.Types {
		if t.Type == rt {
			return t
		}
	}
	return nil
}

func (r *Result) total() {
	r.Totals = Counts{}
	for _, t := range r.Types {
		r.Totals.add(t.Counts)
	}
}
