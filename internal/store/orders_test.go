package store

import (
	"context"
	"testing"
	"time"

	"github.com/ybsops/ordertrack/internal/track"
)

func snapshotWith(order string, lastSeen time.Time, stations map[string]*time.Time) track.OrderSnapshot {
	if stations == nil {
		stations = map[string]*time.Time{}
	}
	return track.OrderSnapshot{
		OrderNum: order,
		Stations: stations,
		LastSeen: lastSeen,
		Active:   true,
	}
}

func TestUpsertCurrentOrder_InsertAndRead(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	indigo := ts(t, 14, 30)
	err := s.UpsertCurrentOrder(ctx, snapshotWith("1001", ts(t, 15, 0),
		map[string]*time.Time{"Indigo": &indigo}))
	if err != nil {
		t.Fatalf("UpsertCurrentOrder() failed: %v", err)
	}

	snaps, err := s.CurrentOrders(ctx, false)
	if err != nil {
		t.Fatalf("CurrentOrders() failed: %v", err)
	}
	if len(snaps) != 1 {
		t.Fatalf("expected 1 snapshot, got %d", len(snaps))
	}
	snap := snaps[0]
	if snap.OrderNum != "1001" {
		t.Errorf("got order %q, want 1001", snap.OrderNum)
	}
	if !snap.Active {
		t.Error("expected active=true")
	}
	if snap.Stations["Indigo"] == nil || !snap.Stations["Indigo"].Equal(indigo) {
		t.Errorf("Indigo = %v, want %v", snap.Stations["Indigo"], indigo)
	}
	if snap.Stations["Laminate"] != nil {
		t.Errorf("Laminate should be unset, got %v", snap.Stations["Laminate"])
	}
	if !snap.LastSeen.Equal(ts(t, 15, 0)) {
		t.Errorf("last_seen = %v, want %v", snap.LastSeen, ts(t, 15, 0))
	}
}

func TestUpsertCurrentOrder_NilStationRetainsValue(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	indigo := ts(t, 8, 0)
	if err := s.UpsertCurrentOrder(ctx, snapshotWith("1001", ts(t, 9, 0),
		map[string]*time.Time{"Indigo": &indigo})); err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}

	// Second pass has no value for Indigo but a new Laminate value.
	laminate := ts(t, 10, 0)
	if err := s.UpsertCurrentOrder(ctx, snapshotWith("1001", ts(t, 11, 0),
		map[string]*time.Time{"Laminate": &laminate})); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	snaps, err := s.CurrentOrders(ctx, false)
	if err != nil {
		t.Fatalf("CurrentOrders() failed: %v", err)
	}
	snap := snaps[0]
	if snap.Stations["Indigo"] == nil || !snap.Stations["Indigo"].Equal(indigo) {
		t.Errorf("Indigo should retain %v, got %v", indigo, snap.Stations["Indigo"])
	}
	if snap.Stations["Laminate"] == nil || !snap.Stations["Laminate"].Equal(laminate) {
		t.Errorf("Laminate = %v, want %v", snap.Stations["Laminate"], laminate)
	}
	if !snap.LastSeen.Equal(ts(t, 11, 0)) {
		t.Errorf("last_seen should be overwritten, got %v", snap.LastSeen)
	}
}

func TestUpsertCurrentOrder_NewValueOverwrites(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	old := ts(t, 14, 30)
	if err := s.UpsertCurrentOrder(ctx, snapshotWith("1001", ts(t, 15, 0),
		map[string]*time.Time{"Indigo": &old})); err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}
	newer := ts(t, 14, 35)
	if err := s.UpsertCurrentOrder(ctx, snapshotWith("1001", ts(t, 15, 5),
		map[string]*time.Time{"Indigo": &newer})); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	snaps, err := s.CurrentOrders(ctx, false)
	if err != nil {
		t.Fatalf("CurrentOrders() failed: %v", err)
	}
	if got := snaps[0].Stations["Indigo"]; got == nil || !got.Equal(newer) {
		t.Errorf("Indigo = %v, want %v", got, newer)
	}
}

func TestDeactivateMissing(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, order := range []string{"1001", "1002", "1003"} {
		if err := s.UpsertCurrentOrder(ctx, snapshotWith(order, ts(t, 15, 0), nil)); err != nil {
			t.Fatalf("upsert %s failed: %v", order, err)
		}
	}

	deactivated, err := s.DeactivateMissing(ctx, map[string]bool{"1001": true})
	if err != nil {
		t.Fatalf("DeactivateMissing() failed: %v", err)
	}
	if len(deactivated) != 2 {
		t.Fatalf("expected 2 deactivated, got %v", deactivated)
	}

	snaps, err := s.CurrentOrders(ctx, true)
	if err != nil {
		t.Fatalf("CurrentOrders() failed: %v", err)
	}
	if len(snaps) != 1 || snaps[0].OrderNum != "1001" {
		t.Errorf("expected only 1001 active, got %v", snaps)
	}

	// Already-inactive orders are not reported again.
	deactivated, err = s.DeactivateMissing(ctx, map[string]bool{"1001": true})
	if err != nil {
		t.Fatalf("second DeactivateMissing() failed: %v", err)
	}
	if len(deactivated) != 0 {
		t.Errorf("expected no newly deactivated orders, got %v", deactivated)
	}
}

func TestDeactivateMissing_EmptyTable(t *testing.T) {
	s := createTestStore(t)

	deactivated, err := s.DeactivateMissing(context.Background(), map[string]bool{})
	if err != nil {
		t.Fatalf("DeactivateMissing() failed: %v", err)
	}
	if deactivated == nil {
		t.Error("expected empty slice, got nil")
	}
	if len(deactivated) != 0 {
		t.Errorf("expected none, got %v", deactivated)
	}
}

func TestCurrentOrders_OrderedByOrderNum(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, order := range []string{"1003", "1001", "1002"} {
		if err := s.UpsertCurrentOrder(ctx, snapshotWith(order, ts(t, 15, 0), nil)); err != nil {
			t.Fatalf("upsert %s failed: %v", order, err)
		}
	}

	snaps, err := s.CurrentOrders(ctx, false)
	if err != nil {
		t.Fatalf("CurrentOrders() failed: %v", err)
	}
	want := []string{"1001", "1002", "1003"}
	for i, w := range want {
		if snaps[i].OrderNum != w {
			t.Errorf("snapshot %d: got %q, want %q", i, snaps[i].OrderNum, w)
		}
	}
}
