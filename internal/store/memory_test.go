package store

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/territory-cli/internal/region"
)

func TestMemoryStore(t *testing.T) {
	runStoreContract(t, func(*testing.T) Store { return NewMemory() })
}

func TestMemoryStore_Directory(t *testing.T) {
	runDirectoryContract(t, func(*testing.T) Directory { return NewMemory() })
}

func TestMemoryStore_CanceledContext(t *testing.T) {
	s := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Get(ctx, region.TypeState, "tx")
	assert.ErrorIs(t, err, context.Canceled)
	_, err = s.GetAll(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryStore_GetReturnsCopy(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	require.NoError(t, s.Upsert(ctx, region.Assignment{Type: region.TypeState, Code: "tx", InstallerID: "a"}))

	a, err := s.Get(ctx, region.TypeState, "tx")
	require.NoError(t, err)
	a.InstallerID = "mutated"

	b, err := s.Get(ctx, region.TypeState, "tx")
	require.NoError(t, err)
	assert.Equal(t, "a", b.InstallerID)
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = s.Upsert(ctx, region.Assignment{Type: region.TypeState, Code: "tx", InstallerID: "a"})
		}()
		go func() {
			defer wg.Done()
			_, _ = s.GetAll(ctx)
		}()
	}
	wg.Wait()

	all, err := s.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestMemoryStore_UpsertInstallerRequiresID(t *testing.T) {
	err := NewMemory().UpsertInstaller(context.Background(), Installer{Name: "anon"})
	require.Error(t, err)
}
