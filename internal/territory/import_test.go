package territory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/territory-cli/internal/region"
)

func TestImport(t *testing.T) {
	svc, mem := newTestService(t, assign(region.TypeState, "tx", "old"))

	var events []ChangeEvent
	svc.Subscribe(func(ev ChangeEvent) { events = append(events, ev) })

	res, err := svc.Import(context.Background(), []AssignmentInput{
		{Type: region.TypeState, Code: "TX", InstallerID: "a"},
		{Type: region.TypeCity, Name: "Houston", InstallerID: "b"},
		{Type: "country", Code: "us", InstallerID: "c"},
		{Type: region.TypeState, Code: "tx", InstallerID: "last"},
		{Type: region.TypeZIP, Code: "77001"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Written)

	require.Len(t, res.Rejected, 2)
	assert.Equal(t, 3, res.Rejected[0].Row)
	assert.Contains(t, res.Rejected[0].Err, "unknown region type")
	assert.Equal(t, 5, res.Rejected[1].Row)
	assert.Contains(t, res.Rejected[1].Err, "has no installer")

	tx, err := mem.Get(context.Background(), region.TypeState, "tx")
	require.NoError(t, err)
	assert.Equal(t, "last", tx.InstallerID)
	assert.Equal(t, fixedNow, tx.UpdatedAt)

	require.Len(t, events, 1)
	assert.Equal(t, OpImport, events[0].Op)
	assert.Equal(t, []region.Key{
		{Type: region.TypeState, Code: "tx"},
		{Type: region.TypeCity, Code: "houston"},
	}, events[0].Keys)
	require.NotNil(t, res.Event)
	assert.Equal(t, events[0].ID, res.Event.ID)
}

func TestImport_AllRejected(t *testing.T) {
	svc, mem := newTestService(t)
	published := 0
	svc.Subscribe(func(ChangeEvent) { published++ })

	res, err := svc.Import(context.Background(), []AssignmentInput{{Type: "moon"}})
	require.NoError(t, err)
	assert.Zero(t, res.Written)
	assert.Len(t, res.Rejected, 1)
	assert.Nil(t, res.Event)
	assert.Zero(t, published)

	all, _ := mem.GetAll(context.Background())
	assert.Empty(t, all)
}

func TestImport_Empty(t *testing.T) {
	svc, _ := newTestService(t)
	res, err := svc.Import(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, res.Written)
	assert.Empty(t, res.Rejected)
}

func TestImport_StoreFailure(t *testing.T) {
	svc, _ := newTestService(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Import(ctx, []AssignmentInput{{Type: region.TypeState, Code: "tx", InstallerID: "a"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "import assignments")
}
