// Package store persists sync cross-references and run history.
package store

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/staffline/boond-sync/internal/model"
	"github.com/staffline/boond-sync/pkg/boond"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = eris.New("store: not found")

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// XrefStore maps production records to their sandbox counterparts.
type XrefStore interface {
	// GetXref returns nil, nil when no cross-reference exists.
	GetXref(ctx context.Context, rt boond.ResourceType, productionID boond.ID) (*model.Xref, error)
	PutXref(ctx context.Context, rt boond.ResourceType, productionID, sandboxID boond.ID) error
	ListXrefs(ctx context.Context, rt boond.ResourceType) ([]model.Xref, error)
	DeleteXref(ctx context.Context, rt boond.ResourceType, productionID boond.ID) error
}

// RunStore records sync runs.
type RunStore interface {
	CreateRun(ctx context.Context) (*model.Run, error)
	FinishRun(ctx context.Context, runID string, status model.RunStatus, result []byte, errMsg string) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)
}

// Store is the full persistence interface.
type Store interface {
	XrefStore
	RunStore

	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

// Drivers.
const (
	DriverNone     = "none"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Open connects to the configured backend. DriverNone (or blank) returns a
// nil Store: reconciliation then matches within the run only.
func Open(ctx context.Context, driver, dsn string, poolCfg *PoolConfig) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", DriverNone:
		return nil, nil
	case DriverSQLite:
		if dsn == "" {
			dsn = "boond-sync.db"
		}
		s, err := NewSQLite(dsn)
		if err != nil {
			return nil, err
		}
		return s, nil
	case DriverPostgres:
		if dsn == "" {
			return nil, eris.New("store: postgres requires database_url")
		}
		s, err := NewPostgres(ctx, dsn, poolCfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
}

func listLimit(n int) int {
	if n <= 0 {
		return 100
	}
	return n
}
