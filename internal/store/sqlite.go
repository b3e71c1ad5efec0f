package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/territory-cli/internal/region"
)

// SQLiteStore implements Store and Directory using modernc.org/sqlite.
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
CREATE TABLE IF NOT EXISTS installers (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL DEFAULT '',
	email      TEXT NOT NULL DEFAULT '',
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS region_assignments (
	region_type  TEXT NOT NULL CHECK (region_type IN ('zip', 'city', 'county', 'state')),
	code         TEXT NOT NULL,
	name         TEXT NOT NULL DEFAULT '',
	installer_id TEXT NOT NULL DEFAULT '',
	updated_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (region_type, code)
);

CREATE INDEX IF NOT EXISTS idx_region_assignments_installer ON region_assignments(installer_id);
`

const sqliteUpsertAssignment = `INSERT INTO region_assignments (region_type, code, name, installer_id, updated_at) VALUES (?, ?, ?, ?, ?)
ON CONFLICT (region_type, code) DO UPDATE SET name = excluded.name, installer_id = excluded.installer_id, updated_at = excluded.updated_at`

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetAll(ctx context.Context) ([]region.Assignment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT region_type, code, name, installer_id, updated_at FROM region_assignments`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list assignments")
	}
	defer rows.Close() //nolint:errcheck

	var out []region.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan assignment")
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate assignments")
	}
	region.Sort(out)
	return out, nil
}

func (s *SQLiteStore) Get(ctx context.Context, t region.Type, code string) (*region.Assignment, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT region_type, code, name, installer_id, updated_at FROM region_assignments WHERE region_type = ? AND code = ?`,
		string(t), code,
	)
	a, err := scanAssignment(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: get assignment %s:%s", t, code)
	}
	return a, nil
}

func (s *SQLiteStore) Upsert(ctx context.Context, a region.Assignment) error {
	_, err := s.db.ExecContext(ctx, sqliteUpsertAssignment,
		string(a.Type), a.Code, a.Name, a.InstallerID, nowUTC(a.UpdatedAt),
	)
	return eris.Wrapf(err, "sqlite: upsert assignment %s", a.Key())
}

// UpsertMany writes all assignments in a single transaction.
func (s *SQLiteStore) UpsertMany(ctx context.Context, assignments []region.Assignment) (int64, error) {
	if len(assignments) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, sqliteUpsertAssignment)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare upsert")
	}
	defer stmt.Close() //nolint:errcheck

	for _, a := range assignments {
		if _, err := stmt.ExecContext(ctx, string(a.Type), a.Code, a.Name, a.InstallerID, nowUTC(a.UpdatedAt)); err != nil {
			return 0, eris.Wrapf(err, "sqlite: upsert assignment %s", a.Key())
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit tx")
	}
	return int64(len(assignments)), nil
}

func (s *SQLiteStore) Delete(ctx context.Context, t region.Type, code string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM region_assignments WHERE region_type = ? AND code = ?`,
		string(t), code,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete assignment %s:%s", t, code)
	}
	return checkRowsAffected(res, "assignment", string(t)+":"+code)
}

func (s *SQLiteStore) GetInstaller(ctx context.Context, id string) (*Installer, error) {
	var inst Installer
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, updated_at FROM installers WHERE id = ?`, id,
	).Scan(&inst.ID, &inst.Name, &inst.Email, &inst.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: get installer %s", id)
	}
	inst.UpdatedAt = inst.UpdatedAt.UTC()
	return &inst, nil
}

func (s *SQLiteStore) ListInstallers(ctx context.Context) ([]Installer, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, email, updated_at FROM installers ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list installers")
	}
	defer rows.Close() //nolint:errcheck

	var out []Installer
	for rows.Next() {
		var inst Installer
		if err := rows.Scan(&inst.ID, &inst.Name, &inst.Email, &inst.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan installer")
		}
		inst.UpdatedAt = inst.UpdatedAt.UTC()
		out = append(out, inst)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate installers")
}

func (s *SQLiteStore) UpsertInstaller(ctx context.Context, inst Installer) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO installers (id, name, email, updated_at) VALUES (?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET name = excluded.name, email = excluded.email, updated_at = excluded.updated_at`,
		inst.ID, inst.Name, inst.Email, nowUTC(inst.UpdatedAt),
	)
	return eris.Wrapf(err, "sqlite: upsert installer %s", inst.ID)
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
