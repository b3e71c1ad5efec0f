package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/territory-cli/internal/region"
)

// runStoreContract exercises the behavior every Store implementation
// shares. newStore must return an empty, migrated store.
func runStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("get missing returns nil", func(t *testing.T) {
		s := newStore(t)
		a, err := s.Get(context.Background(), region.TypeState, "tx")
		require.NoError(t, err)
		assert.Nil(t, a)
	})

	t.Run("upsert then get", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		require.NoError(t, s.Upsert(ctx, region.Assignment{
			Type: region.TypeCity, Code: "houston", Name: "Houston", InstallerID: "inst-1", UpdatedAt: at,
		}))

		a, err := s.Get(ctx, region.TypeCity, "houston")
		require.NoError(t, err)
		require.NotNil(t, a)
		assert.Equal(t, "Houston", a.Name)
		assert.Equal(t, "inst-1", a.InstallerID)
		assert.True(t, at.Equal(a.UpdatedAt), "updated_at %v", a.UpdatedAt)

		other, err := s.Get(ctx, region.TypeCounty, "houston")
		require.NoError(t, err)
		assert.Nil(t, other, "keys are scoped by type")
	})

	t.Run("upsert overwrites", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.Upsert(ctx, region.Assignment{Type: region.TypeState, Code: "tx", Name: "Texas", InstallerID: "a"}))
		require.NoError(t, s.Upsert(ctx, region.Assignment{Type: region.TypeState, Code: "tx", Name: "TX", InstallerID: "b"}))

		all, err := s.GetAll(ctx)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, "b", all[0].InstallerID)
		assert.Equal(t, "TX", all[0].Name)
	})

	t.Run("get all sorted by tier", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		for _, a := range []region.Assignment{
			{Type: region.TypeState, Code: "tx", InstallerID: "a"},
			{Type: region.TypeZIP, Code: "77002", InstallerID: "b"},
			{Type: region.TypeCounty, Code: "harris", InstallerID: "c"},
			{Type: region.TypeZIP, Code: "77001", InstallerID: "b"},
			{Type: region.TypeCity, Code: "houston", InstallerID: "d"},
		} {
			require.NoError(t, s.Upsert(ctx, a))
		}
		all, err := s.GetAll(ctx)
		require.NoError(t, err)
		keys := make([]string, len(all))
		for i, a := range all {
			keys[i] = a.Key().String()
		}
		assert.Equal(t, []string{"zip:77001", "zip:77002", "city:houston", "county:harris", "state:tx"}, keys)
	})

	t.Run("empty installer is stored", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.Upsert(ctx, region.Assignment{Type: region.TypeZIP, Code: "90210"}))
		a, err := s.Get(ctx, region.TypeZIP, "90210")
		require.NoError(t, err)
		require.NotNil(t, a)
		assert.Empty(t, a.InstallerID)
	})

	t.Run("delete", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.Upsert(ctx, region.Assignment{Type: region.TypeState, Code: "ok", InstallerID: "a"}))
		require.NoError(t, s.Delete(ctx, region.TypeState, "ok"))

		a, err := s.Get(ctx, region.TypeState, "ok")
		require.NoError(t, err)
		assert.Nil(t, a)

		err = s.Delete(ctx, region.TypeState, "ok")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("upsert all", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		n, err := UpsertAll(ctx, s, []region.Assignment{
			{Type: region.TypeZIP, Code: "77001", InstallerID: "a"},
			{Type: region.TypeZIP, Code: "77002", InstallerID: "a"},
			{Type: region.TypeState, Code: "tx", InstallerID: "b"},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)

		all, err := s.GetAll(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})
}

// runDirectoryContract exercises Directory implementations.
func runDirectoryContract(t *testing.T, newDir func(t *testing.T) Directory) {
	t.Run("unknown installer", func(t *testing.T) {
		d := newDir(t)
		inst, err := d.GetInstaller(context.Background(), "nobody")
		require.NoError(t, err)
		assert.Nil(t, inst)
	})

	t.Run("upsert and list", func(t *testing.T) {
		d := newDir(t)
		ctx := context.Background()
		require.NoError(t, d.UpsertInstaller(ctx, Installer{ID: "b", Name: "Bravo Solar"}))
		require.NoError(t, d.UpsertInstaller(ctx, Installer{ID: "a", Name: "Acme", Email: "ops@acme.test"}))
		require.NoError(t, d.UpsertInstaller(ctx, Installer{ID: "a", Name: "Acme Energy", Email: "ops@acme.test"}))

		inst, err := d.GetInstaller(ctx, "a")
		require.NoError(t, err)
		require.NotNil(t, inst)
		assert.Equal(t, "Acme Energy", inst.Name)

		list, err := d.ListInstallers(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "a", list[0].ID)
		assert.Equal(t, "b", list[1].ID)
	})
}
