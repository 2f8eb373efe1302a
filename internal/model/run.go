// Package model holds the persisted records of reconciliation runs.
package model

import (
	"encoding/json"
	"time"

	"github.com/staffline/boond-sync/pkg/boond"
)

// RunStatus represents the current state of a sync run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusComplete  RunStatus = "complete"
	RunStatusCancelled RunStatus = "cancelled"
	RunStatusFailed    RunStatus = "failed"
)

// Run is one on-demand production to sandbox reconciliation.
type Run struct {
	ID         string          `json:"id"`
	Status     RunStatus       `json:"status"`
	Result     json.RawMessage `json:"result,omitempty"`
	Error      string          `json:"error,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
	FinishedAt *time.Time      `json:"finished_at,omitempty"`
}

// Xref links a production record to its sandbox counterpart.
type Xref struct {
	Type         boond.ResourceType `json:"type"`
	ProductionID boond.ID           `json:"production_id"`
	SandboxID    boond.ID           `json:"sandbox_id"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}
