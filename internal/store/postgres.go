package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/staffline/boond-sync/internal/model"
	"github.com/staffline/boond-sync/pkg/boond"
)

// Pool is the subset of pgxpool.Pool the store uses; pgxmock satisfies it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements are prepared on each new connection; the xref lookups
// run once per production record.
var preparedStatements = map[string]string{
	"get_xref": `SELECT resource_type, production_id, sandbox_id, created_at, updated_at FROM sync_xrefs WHERE resource_type = $1 AND production_id = $2`,
	"put_xref": `INSERT INTO sync_xrefs (resource_type, production_id, sandbox_id, created_at, updated_at) VALUES ($1, $2, $3, $4, $5) ` +
		`ON CONFLICT (resource_type, production_id) DO UPDATE SET sandbox_id = EXCLUDED.sandbox_id, updated_at = EXCLUDED.updated_at`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS sync_runs (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	status      TEXT NOT NULL DEFAULT 'running',
	result      JSONB,
	error       TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	finished_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS sync_xrefs (
	resource_type TEXT NOT NULL,
	production_id BIGINT NOT NULL,
	sandbox_id    BIGINT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (resource_type, production_id)
);

CREATE INDEX IF NOT EXISTS idx_sync_runs_status ON sync_runs(status);
CREATE INDEX IF NOT EXISTS idx_sync_xrefs_sandbox ON sync_xrefs(resource_type, sandbox_id);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) GetXref(ctx context.Context, rt boond.ResourceType, productionID boond.ID) (*model.Xref, error) {
	var x model.Xref
	var typ string
	var prodID, sandboxID int64
	err := s.pool.QueryRow(ctx,
		`SELECT resource_type, production_id, sandbox_id, created_at, updated_at FROM sync_xrefs WHERE resource_type = $1 AND production_id = $2`,
		string(rt), int64(productionID),
	).Scan(&typ, &prodID, &sandboxID, &x.CreatedAt, &x.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get xref %s/%d", rt, productionID)
	}
	x.Type, x.ProductionID, x.SandboxID = boond.ResourceType(typ), boond.ID(prodID), boond.ID(sandboxID)
	return &x, nil
}

func (s *PostgresStore) PutXref(ctx context.Context, rt boond.ResourceType, productionID, sandboxID boond.ID) error {
	now := time.Now().UTC()
	_, err := s.pool.Exec(ctx, preparedStatements["put_xref"],
		string(rt), int64(productionID), int64(sandboxID), now, now,
	)
	return eris.Wrapf(err, "postgres: put xref %s/%d", rt, productionID)
}

func (s *PostgresStore) ListXrefs(ctx context.Context, rt boond.ResourceType) ([]model.Xref, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT resource_type, production_id, sandbox_id, created_at, updated_at FROM sync_xrefs WHERE resource_type = $1 ORDER BY production_id`,
		string(rt),
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list xrefs %s", rt)
	}
	defer rows.Close()

	xrefs := []model.Xref{}
	for rows.Next() {
		var x model.Xref
		var typ string
		var prodID, sandboxID int64
		if err := rows.Scan(&typ, &prodID, &sandboxID, &x.CreatedAt, &x.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan xref")
		}
		x.Type, x.ProductionID, x.SandboxID = boond.ResourceType(typ), boond.ID(prodID), boond.ID(sandboxID)
		xrefs = append(xrefs, x)
	}
	return xrefs, eris.Wrap(rows.Err(), "postgres: list xrefs iterate")
}

func (s *PostgresStore) DeleteXref(ctx context.Context, rt boond.ResourceType, productionID boond.ID) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM sync_xrefs WHERE resource_type = $1 AND production_id = $2`,
		string(rt), int64(productionID),
	)
	return eris.Wrapf(err, "postgres: delete xref %s/%d", rt, productionID)
}

func (s *PostgresStore) CreateRun(ctx context.Context) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO sync_runs (id, status, created_at, updated_at) VALUES ($1, $2, $3, $4)`,
		id, string(model.RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}
	return &model.Run{ID: id, Status: model.RunStatusRunning, CreatedAt: now, UpdatedAt: now}, nil
}

func (s *PostgresStore) FinishRun(ctx context.Context, runID string, status model.RunStatus, result []byte, errMsg string) error {
	now := time.Now().UTC()
	tag, err := s.pool.Exec(ctx,
		`UPDATE sync_runs SET status = $1, result = $2, error = $3, updated_at = $4, finished_at = $5 WHERE id = $6`,
		string(status), result, errMsg, now, now, runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: finish run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "run %s", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, status, result, error, created_at, updated_at, finished_at FROM sync_runs WHERE id = $1`,
		runID,
	)
	r, err := scanPgRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: get run %s", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	return r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, status, result, error, created_at, updated_at, finished_at FROM sync_runs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d`, argIdx)
	args = append(args, listLimit(filter.Limit))
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	runs := []model.Run{}
	for rows.Next() {
		r, err := scanPgRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func scanPgRun(row scannable) (*model.Run, error) {
	var r model.Run
	var status string
	var result []byte
	var finished *time.Time
	if err := row.Scan(&r.ID, &status, &result, &r.Error, &r.CreatedAt, &r.UpdatedAt, &finished); err != nil {
		return nil, err
	}
	r.Status = model.RunStatus(status)
	r.Result = result
	r.FinishedAt = finished
	return &r, nil
}
