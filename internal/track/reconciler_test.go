package track_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ybsops/ordertrack/internal/store"
	"github.com/ybsops/ordertrack/internal/testutil"
	"github.com/ybsops/ordertrack/internal/track"
)

var stations = []string{"Indigo", "Laminate", "Die Cutting ABG", "Machine Glue", "Shipping"}

func newTestReconciler(t *testing.T) (*track.Reconciler, *store.Store, *testutil.FakeClock) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"), stations)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	clock := testutil.NewFakeClock(time.Date(2023, 9, 5, 15, 0, 0, 0, time.UTC))
	return track.NewReconciler(st, stations, "YBS", clock, nil), st, clock
}

func snapshotByOrder(t *testing.T, st *store.Store) map[string]track.OrderSnapshot {
	t.Helper()
	snaps, err := st.CurrentOrders(context.Background(), false)
	require.NoError(t, err)
	byOrder := make(map[string]track.OrderSnapshot, len(snaps))
	for _, snap := range snaps {
		byOrder[snap.OrderNum] = snap
	}
	return byOrder
}

func TestReconcile_InsertsEventsAndActivatesOrders(t *testing.T) {
	rec, st, _ := newTestReconciler(t)

	page := track.Page{
		{"YBS 1001", "09/05/23 14:30", "", "", "", ""},
		{"YBS 1002", "", "", "", "", ""},
	}
	sum, err := rec.Reconcile(context.Background(), page)
	require.NoError(t, err)

	assert.Equal(t, 1, sum.Inserted)
	assert.Equal(t, 2, sum.OrdersSeen)
	assert.Empty(t, sum.Deactivated)
	assert.NotEmpty(t, sum.PassID)

	byOrder := snapshotByOrder(t, st)
	require.Contains(t, byOrder, "1001")
	require.Contains(t, byOrder, "1002")
	assert.True(t, byOrder["1001"].Active)
	assert.True(t, byOrder["1002"].Active)

	require.NotNil(t, byOrder["1001"].Stations["Indigo"])
	assert.True(t, byOrder["1001"].Stations["Indigo"].Equal(
		time.Date(2023, 9, 5, 14, 30, 0, 0, time.UTC)))
	assert.Nil(t, byOrder["1002"].Stations["Indigo"])
}

func TestReconcile_IdenticalPageIsIdempotent(t *testing.T) {
	rec, st, _ := newTestReconciler(t)

	page := track.Page{
		{"YBS 1001", "09/05/23 14:30", "09/05/23 16:00", "", "", ""},
		{"YBS 1002", "09/05/23 09:15", "", "", "", ""},
	}
	first, err := rec.Reconcile(context.Background(), page)
	require.NoError(t, err)
	assert.Equal(t, 3, first.Inserted)

	second, err := rec.Reconcile(context.Background(), page)
	require.NoError(t, err)
	assert.Zero(t, second.Inserted, "identical page must insert nothing")
	assert.Empty(t, second.Deactivated)

	for _, snap := range snapshotByOrder(t, st) {
		assert.True(t, snap.Active)
	}
}

func TestReconcile_AbsentOrderDeactivated(t *testing.T) {
	rec, st, clock := newTestReconciler(t)
	ctx := context.Background()

	_, err := rec.Reconcile(ctx, track.Page{
		{"YBS 1001", "09/05/23 14:30", "", "", "", ""},
		{"YBS 1002", "", "", "", "", ""},
	})
	require.NoError(t, err)

	clock.Advance(5 * time.Minute)
	sum, err := rec.Reconcile(ctx, track.Page{
		{"YBS 1001", "09/05/23 14:35", "", "", "", ""},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, sum.Inserted, "updated timestamp is a new event")
	assert.Equal(t, []string{"1002"}, sum.Deactivated)

	byOrder := snapshotByOrder(t, st)
	assert.True(t, byOrder["1001"].Active)
	assert.False(t, byOrder["1002"].Active)

	// 1001's latest value moved to the new timestamp, and last_seen tracks
	// the pass time.
	require.NotNil(t, byOrder["1001"].Stations["Indigo"])
	assert.True(t, byOrder["1001"].Stations["Indigo"].Equal(
		time.Date(2023, 9, 5, 14, 35, 0, 0, time.UTC)))
	assert.True(t, byOrder["1001"].LastSeen.Equal(
		time.Date(2023, 9, 5, 15, 5, 0, 0, time.UTC)))
}

func TestReconcile_ReappearingOrderReactivated(t *testing.T) {
	rec, st, _ := newTestReconciler(t)
	ctx := context.Background()

	_, err := rec.Reconcile(ctx, track.Page{{"YBS 1001", "09/05/23 14:30", "", "", "", ""}})
	require.NoError(t, err)
	_, err = rec.Reconcile(ctx, track.Page{{"YBS 9999", "", "", "", "", ""}})
	require.NoError(t, err)
	require.False(t, snapshotByOrder(t, st)["1001"].Active)

	_, err = rec.Reconcile(ctx, track.Page{{"YBS 1001", "09/05/23 14:30", "", "", "", ""}})
	require.NoError(t, err)
	assert.True(t, snapshotByOrder(t, st)["1001"].Active)
}

func TestReconcile_RetainsKnownStationValues(t *testing.T) {
	// Pinned policy: a station value, once known, survives a later pass
	// whose cell for that station is blank or unparsable.
	rec, st, _ := newTestReconciler(t)
	ctx := context.Background()

	_, err := rec.Reconcile(ctx, track.Page{
		{"YBS 1001", "09/05/23 08:00", "09/05/23 10:00", "", "", ""},
	})
	require.NoError(t, err)

	_, err = rec.Reconcile(ctx, track.Page{
		{"YBS 1001", "", "pending", "", "", "09/05/23 13:00"},
	})
	require.NoError(t, err)

	snap := snapshotByOrder(t, st)["1001"]
	require.NotNil(t, snap.Stations["Indigo"])
	assert.True(t, snap.Stations["Indigo"].Equal(time.Date(2023, 9, 5, 8, 0, 0, 0, time.UTC)))
	require.NotNil(t, snap.Stations["Laminate"])
	assert.True(t, snap.Stations["Laminate"].Equal(time.Date(2023, 9, 5, 10, 0, 0, 0, time.UTC)))
	require.NotNil(t, snap.Stations["Shipping"])
	assert.True(t, snap.Stations["Shipping"].Equal(time.Date(2023, 9, 5, 13, 0, 0, 0, time.UTC)))
}

func TestReconcile_SkipsNonOrderAndMalformedRows(t *testing.T) {
	rec, st, _ := newTestReconciler(t)

	page := track.Page{
		{"Job", "Indigo", "Laminate", "Die Cutting ABG", "Machine Glue", "Shipping"},
		{"YBS"},                        // marker without an order id
		{"YBS 2001", "09/05/23 14:30"}, // too few cells for the station mapping
		{"YBS 2002", "09/05/23 14:30", "", "", "", ""},
		{},
	}
	sum, err := rec.Reconcile(context.Background(), page)
	require.NoError(t, err)

	assert.Equal(t, 1, sum.Inserted)
	assert.Equal(t, 1, sum.OrdersSeen)
	assert.Equal(t, 2, sum.SkippedRows)

	byOrder := snapshotByOrder(t, st)
	assert.NotContains(t, byOrder, "2001")
	assert.Contains(t, byOrder, "2002")
}

func TestReconcile_UnparsableTimestampSkipsFieldOnly(t *testing.T) {
	rec, st, _ := newTestReconciler(t)

	sum, err := rec.Reconcile(context.Background(), track.Page{
		{"YBS 3001", "not a date", "09/05/23 10:00", "", "", ""},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Inserted)

	snap := snapshotByOrder(t, st)["3001"]
	assert.Nil(t, snap.Stations["Indigo"])
	require.NotNil(t, snap.Stations["Laminate"])
	assert.True(t, snap.Active)
}

func TestReconcile_ExtraLeadingCellsIgnored(t *testing.T) {
	// Station cells are the LAST len(stations) cells; extra leading columns
	// in the page layout must not shift the mapping.
	rec, st, _ := newTestReconciler(t)

	sum, err := rec.Reconcile(context.Background(), track.Page{
		{"YBS 4001", "some customer", "09/05/23 08:00", "", "", "", "09/05/23 13:00"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Inserted)

	snap := snapshotByOrder(t, st)["4001"]
	require.NotNil(t, snap.Stations["Indigo"])
	assert.True(t, snap.Stations["Indigo"].Equal(time.Date(2023, 9, 5, 8, 0, 0, 0, time.UTC)))
	require.NotNil(t, snap.Stations["Shipping"])
	assert.True(t, snap.Stations["Shipping"].Equal(time.Date(2023, 9, 5, 13, 0, 0, 0, time.UTC)))
}
