package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var assignmentUpsert = UpsertConfig{
	Table:        "region_assignments",
	Columns:      []string{"region_type", "code", "name", "installer_id", "updated_at"},
	ConflictKeys: []string{"region_type", "code"},
}

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })
	return mock
}

func TestBulkUpsert_EmptyRows(t *testing.T) {
	n, err := BulkUpsert(context.Background(), nil, assignmentUpsert, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestBulkUpsert_NoColumns(t *testing.T) {
	_, err := BulkUpsert(context.Background(), nil, UpsertConfig{
		Table:        "region_assignments",
		ConflictKeys: []string{"code"},
	}, [][]any{{"tx"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns specified")
}

func TestBulkUpsert_NoConflictKeys(t *testing.T) {
	_, err := BulkUpsert(context.Background(), nil, UpsertConfig{
		Table:   "region_assignments",
		Columns: []string{"code"},
	}, [][]any{{"tx"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no conflict keys specified")
}

func TestBulkUpsert_RowWidthMismatch(t *testing.T) {
	_, err := BulkUpsert(context.Background(), nil, assignmentUpsert, [][]any{{"state", "tx"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 0 has 2 values, want 5")
}

func TestBulkUpsert_Success(t *testing.T) {
	mock := newMockPool(t)
	rows := [][]any{
		{"state", "tx", "Texas", "inst-1", nil},
		{"city", "houston", "Houston", "inst-2", nil},
	}

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE "_tmp_upsert_region_assignments" \(LIKE "region_assignments"`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_region_assignments"}, assignmentUpsert.Columns).
		WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO "region_assignments" .* ON CONFLICT \("region_type", "code"\) DO UPDATE SET "name" = EXCLUDED."name"`).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	n, err := BulkUpsert(context.Background(), mock, assignmentUpsert, rows)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkUpsert_CopyFails(t *testing.T) {
	mock := newMockPool(t)

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_region_assignments"}, assignmentUpsert.Columns).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := BulkUpsert(context.Background(), mock, assignmentUpsert, [][]any{{"zip", "77001", "77001", "a", nil}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "copy into temp table")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertSQL(t *testing.T) {
	tests := []struct {
		name     string
		cfg      UpsertConfig
		contains string
	}{
		{
			name:     "default update columns",
			cfg:      assignmentUpsert,
			contains: `DO UPDATE SET "name" = EXCLUDED."name", "installer_id" = EXCLUDED."installer_id", "updated_at" = EXCLUDED."updated_at"`,
		},
		{
			name: "explicit update columns",
			cfg: UpsertConfig{
				Table:        "installers",
				Columns:      []string{"id", "name", "email"},
				ConflictKeys: []string{"id"},
				UpdateCols:   []string{"name"},
			},
			contains: `DO UPDATE SET "name" = EXCLUDED."name"`,
		},
		{
			name: "only key columns",
			cfg: UpsertConfig{
				Table:        "installers",
				Columns:      []string{"id"},
				ConflictKeys: []string{"id"},
			},
			contains: `ON CONFLICT ("id") DO NOTHING`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := upsertSQL(tt.cfg, TempTableName(tt.cfg.Table))
			assert.Contains(t, got, tt.contains)
		})
	}
}

func TestSanitizeTable(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"region_assignments", `"region_assignments"`},
		{"territory.installers", `"territory"."installers"`},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeTable(tt.input))
		})
	}
}

func TestTempTableName(t *testing.T) {
	assert.Equal(t, "_tmp_upsert_territory_installers", TempTableName("territory.installers"))
}

func TestQuoteAndJoin(t *testing.T) {
	assert.Equal(t, `"region_type", "code"`, quoteAndJoin([]string{"region_type", "code"}))
}
