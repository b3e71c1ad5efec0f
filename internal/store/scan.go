package store

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/sells-group/territory-cli/internal/region"
)

type scannable interface {
	Scan(dest ...any) error
}

func scanAssignment(row scannable) (*region.Assignment, error) {
	var a region.Assignment
	var typ string
	if err := row.Scan(&typ, &a.Code, &a.Name, &a.InstallerID, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.Type = region.Type(typ)
	a.UpdatedAt = a.UpdatedAt.UTC()
	return &a, nil
}

func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "42P01"
}
