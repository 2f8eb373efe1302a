package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/staffline/boond-sync/internal/model"
	"github.com/staffline/boond-sync/pkg/boond"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS sync_runs (
	id          TEXT PRIMARY KEY,
	status      TEXT NOT NULL DEFAULT 'running',
	result      TEXT,
	error       TEXT NOT NULL DEFAULT '',
	created_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	finished_at DATETIME
);

CREATE TABLE IF NOT EXISTS sync_xrefs (
	resource_type TEXT NOT NULL,
	production_id INTEGER NOT NULL,
	sandbox_id    INTEGER NOT NULL,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (resource_type, production_id)
);

CREATE INDEX IF NOT EXISTS idx_sync_runs_status ON sync_runs(status);
CREATE INDEX IF NOT EXISTS idx_sync_xrefs_sandbox ON sync_xrefs(resource_type, sandbox_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetXref(ctx context.Context, rt boond.ResourceType, productionID boond.ID) (*model.Xref, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT resource_type, production_id, sandbox_id, created_at, updated_at
		 FROM sync_xrefs WHERE resource_type = ? AND production_id = ?`,
		string(rt), int64(productionID),
	)
	x, err := scanXref(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get xref %s/%d", rt, productionID)
	}
	return x, nil
}

func (s *SQLiteStore) PutXref(ctx context.Context, rt boond.ResourceType, productionID, sandboxID boond.ID) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sync_xrefs (resource_type, production_id, sandbox_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (resource_type, production_id)
		 DO UPDATE SET sandbox_id = excluded.sandbox_id, updated_at = excluded.updated_at`,
		string(rt), int64(productionID), int64(sandboxID), now, now,
	)
	return eris.Wrapf(err, "sqlite: put xref %s/%d", rt, productionID)
}

func (s *SQLiteStore) ListXrefs(ctx context.Context, rt boond.ResourceType) ([]model.Xref, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT resource_type, production_id, sandbox_id, created_at, updated_at
		 FROM sync_xrefs WHERE resource_type = ? ORDER BY production_id`,
		string(rt),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list xrefs %s", rt)
	}
	defer rows.Close() //nolint:errcheck

	xrefs := []model.Xref{}
	for rows.Next() {
		x, err := scanXref(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan xref")
		}
		xrefs = append(xrefs, *x)
	}
	return xrefs, eris.Wrap(rows.Err(), "sqlite: list xrefs iterate")
}

func (s *SQLiteStore) DeleteXref(ctx context.Context, rt boond.ResourceType, productionID boond.ID) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM sync_xrefs WHERE resource_type = ? AND production_id = ?`,
		string(rt), int64(productionID),
	)
	return eris.Wrapf(err, "sqlite: delete xref %s/%d", rt, productionID)
}

func (s *SQLiteStore) CreateRun(ctx context.Context) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sync_runs (id, status, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		id, string(model.RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}
	return &model.Run{ID: id, Status: model.RunStatusRunning, CreatedAt: now, UpdatedAt: now}, nil
}

func (s *SQLiteStore) FinishRun(ctx context.Context, runID string, status model.RunStatus, result []byte, errMsg string) error {
	now := time.Now().UTC()
	var resultVal sql.NullString
	if result != nil {
		resultVal = sql.NullString{String: string(result), Valid: true}
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE sync_runs SET status = ?, result = ?, error = ?, updated_at = ?, finished_at = ? WHERE id = ?`,
		string(status), resultVal, errMsg, now, now, runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: finish run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, status, result, error, created_at, updated_at, finished_at FROM sync_runs WHERE id = ?`,
		runID,
	)
	return scanRun(row)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, status, result, error, created_at, updated_at, finished_at FROM sync_runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, listLimit(filter.Limit))

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	runs := []model.Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanXref(row scannable) (*model.Xref, error) {
	var x model.Xref
	var rt string
	var prodID, sandboxID int64
	if err := row.Scan(&rt, &prodID, &sandboxID, &x.CreatedAt, &x.UpdatedAt); err != nil {
		return nil, err
	}
	x.Type = boond.ResourceType(rt)
	x.ProductionID = boond.ID(prodID)
	x.SandboxID = boond.ID(sandboxID)
	return &x, nil
}

func scanRun(row scannable) (*model.Run, error) {
	var r model.Run
	var result sql.NullString
	var finished sql.NullTime

	err := row.Scan(&r.ID, &r.Status, &result, &r.Error, &r.CreatedAt, &r.UpdatedAt, &finished)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrap(ErrNotFound, "run")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}
	if result.Valid {
		r.Result = []byte(result.String)
	}
	if finished.Valid {
		t := finished.Time
		r.FinishedAt = &t
	}
	return &r, nil
}
