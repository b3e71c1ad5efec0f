package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/territory-cli/internal/db"
	"github.com/sells-group/territory-cli/internal/region"
)

// PostgresStore implements Store and Directory using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

const (
	sqlGetAssignment  = `SELECT region_type, code, name, installer_id, updated_at FROM region_assignments WHERE region_type = $1 AND code = $2`
	sqlAllAssignments = `SELECT region_type, code, name, installer_id, updated_at FROM region_assignments`

	sqlUpsertAssignment = `INSERT INTO region_assignments (region_type, code, name, installer_id, updated_at) VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (region_type, code) DO UPDATE SET name = EXCLUDED.name, installer_id = EXCLUDED.installer_id, updated_at = EXCLUDED.updated_at`

	sqlDeleteAssignment = `DELETE FROM region_assignments WHERE region_type = $1 AND code = $2`
	sqlGetInstaller     = `SELECT id, name, email, updated_at FROM installers WHERE id = $1`
	sqlListInstallers   = `SELECT id, name, email, updated_at FROM installers ORDER BY id`

	sqlUpsertInstaller = `INSERT INTO installers (id, name, email, updated_at) VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, email = EXCLUDED.email, updated_at = EXCLUDED.updated_at`
)

// preparedStatements are prepared on each new connection. The resolver
// hot path is get_assignment.
var preparedStatements = map[string]string{
	"get_assignment":    sqlGetAssignment,
	"all_assignments":   sqlAllAssignments,
	"upsert_assignment": sqlUpsertAssignment,
	"delete_assignment": sqlDeleteAssignment,
	"get_installer":     sqlGetInstaller,
}

var assignmentUpsert = db.UpsertConfig{
	Table:        "region_assignments",
	Columns:      []string{"region_type", "code", "name", "installer_id", "updated_at"},
	ConflictKeys: []string{"region_type", "code"},
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
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
				// Tables may not exist before the first migrate.
				if isUndefinedTable(err) {
					continue
				}
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
CREATE TABLE IF NOT EXISTS installers (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL DEFAULT '',
	email      TEXT NOT NULL DEFAULT '',
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS region_assignments (
	region_type  TEXT NOT NULL CHECK (region_type IN ('zip', 'city', 'county', 'state')),
	code         TEXT NOT NULL,
	name         TEXT NOT NULL DEFAULT '',
	installer_id TEXT NOT NULL DEFAULT '',
	updated_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (region_type, code)
);

CREATE INDEX IF NOT EXISTS idx_region_assignments_installer ON region_assignments(installer_id);
`

// Stat returns pool statistics, or nil when the store is not backed by a
// pgxpool.
func (s *PostgresStore) Stat() *pgxpool.Stat {
	if p, ok := s.pool.(*pgxpool.Pool); ok {
		return p.Stat()
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
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

func (s *PostgresStore) GetAll(ctx context.Context) ([]region.Assignment, error) {
	rows, err := s.pool.Query(ctx, sqlAllAssignments)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list assignments")
	}
	defer rows.Close()

	var out []region.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan assignment")
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate assignments")
	}
	region.Sort(out)
	return out, nil
}

func (s *PostgresStore) Get(ctx context.Context, t region.Type, code string) (*region.Assignment, error) {
	a, err := scanAssignment(s.pool.QueryRow(ctx, sqlGetAssignment, string(t), code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get assignment %s:%s", t, code)
	}
	return a, nil
}

func (s *PostgresStore) Upsert(ctx context.Context, a region.Assignment) error {
	_, err := s.pool.Exec(ctx, sqlUpsertAssignment,
		string(a.Type), a.Code, a.Name, a.InstallerID, nowUTC(a.UpdatedAt),
	)
	return eris.Wrapf(err, "postgres: upsert assignment %s", a.Key())
}

// UpsertMany writes all assignments in one COPY-backed transaction.
func (s *PostgresStore) UpsertMany(ctx context.Context, assignments []region.Assignment) (int64, error) {
	rows := make([][]any, len(assignments))
	for i, a := range assignments {
		rows[i] = []any{string(a.Type), a.Code, a.Name, a.InstallerID, nowUTC(a.UpdatedAt)}
	}
	n, err := db.BulkUpsert(ctx, s.pool, assignmentUpsert, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: bulk upsert assignments")
	}
	return n, nil
}

func (s *PostgresStore) Delete(ctx context.Context, t region.Type, code string) error {
	tag, err := s.pool.Exec(ctx, sqlDeleteAssignment, string(t), code)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete assignment %s:%s", t, code)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "assignment %s:%s", t, code)
	}
	return nil
}

func (s *PostgresStore) GetInstaller(ctx context.Context, id string) (*Installer, error) {
	var inst Installer
	err := s.pool.QueryRow(ctx, sqlGetInstaller, id).Scan(&inst.ID, &inst.Name, &inst.Email, &inst.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get installer %s", id)
	}
	return &inst, nil
}

func (s *PostgresStore) ListInstallers(ctx context.Context) ([]Installer, error) {
	rows, err := s.pool.Query(ctx, sqlListInstallers)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list installers")
	}
	defer rows.Close()

	var out []Installer
	for rows.Next() {
		var inst Installer
		if err := rows.Scan(&inst.ID, &inst.Name, &inst.Email, &inst.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan installer")
		}
		out = append(out, inst)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate installers")
}

func (s *PostgresStore) UpsertInstaller(ctx context.Context, inst Installer) error {
	_, err := s.pool.Exec(ctx, sqlUpsertInstaller, inst.ID, inst.Name, inst.Email, nowUTC(inst.UpdatedAt))
	return eris.Wrapf(err, "postgres: upsert installer %s", inst.ID)
}
