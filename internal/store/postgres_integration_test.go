//go:build integration

package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

func newContainerPostgresStore(t *testing.T) *PostgresStore {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("territory"),
		tcpostgres.WithUsername("territory"),
		tcpostgres.WithPassword("territory"),
		tcpostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	st, err := NewPostgres(ctx, dsn, &PoolConfig{MaxConns: 4, MinConns: 1})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(ctx))
	return st
}

func TestPostgresStore_Integration(t *testing.T) {
	st := newContainerPostgresStore(t)
	ctx := context.Background()

	runStoreContract(t, func(t *testing.T) Store {
		_, err := st.pool.Exec(ctx, "TRUNCATE region_assignments")
		require.NoError(t, err)
		return &PostgresStore{pool: st.pool}
	})
	runDirectoryContract(t, func(t *testing.T) Directory {
		_, err := st.pool.Exec(ctx, "TRUNCATE installers")
		require.NoError(t, err)
		return &PostgresStore{pool: st.pool}
	})
}
