package track

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Reconciler ingests scraped pages against the event log and the
// current-order snapshot. All collaborators are injected; the Reconciler
// holds no ambient state.
//
// Reconcile serializes itself with an internal mutex so a timer-driven
// refresh and a user-initiated sync never interleave.
type Reconciler struct {
	mu       sync.Mutex
	store    Store
	stations []string
	marker   string
	clock    Clock
	log      *slog.Logger
}

// NewReconciler creates a Reconciler over the given store and workstation
// sequence. marker is the token identifying order rows (e.g. "YBS").
// A nil logger falls back to slog.Default; a nil clock to the system clock.
func NewReconciler(store Store, stations []string, marker string, clock Clock, log *slog.Logger) *Reconciler {
	if clock == nil {
		clock = SystemClock{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Reconciler{
		store:    store,
		stations: stations,
		marker:   marker,
		clock:    clock,
		log:      log,
	}
}

// Reconcile runs one ingestion pass over a freshly scraped page.
//
// Malformed rows and unparsable timestamp cells are logged and skipped; they
// never abort the pass. A storage error fails the pass as a whole and is
// returned to the caller.
func (r *Reconciler) Reconcile(ctx context.Context, page Page) (Summary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sum := Summary{PassID: uuid.NewString()}
	now := r.clock.Now()
	seen := make(map[string]bool)

	for i, row := range page {
		orderNum, cells, err := r.parseRow(row)
		if err != nil {
			sum.SkippedRows++
			r.log.Warn("skipping malformed row",
				"pass_id", sum.PassID, "row", i, "error", err)
			continue
		}
		if orderNum == "" {
			// Not an order row (header, spacer, unrelated content).
			continue
		}

		snap := OrderSnapshot{
			OrderNum: orderNum,
			Stations: make(map[string]*time.Time, len(r.stations)),
			LastSeen: now,
			Active:   true,
		}
		for j, station := range r.stations {
			cell := CleanCell(cells[j])
			if cell == "" {
				continue
			}
			at, ok := ParseTimestamp(cell)
			if !ok {
				r.log.Warn("unrecognized timestamp",
					"pass_id", sum.PassID, "order", orderNum,
					"workstation", station, "text", cell)
				continue
			}
			inserted, err := r.store.RecordEvent(ctx, orderNum, station, at)
			if err != nil {
				return Summary{}, fmt.Errorf("record event for order %s: %w", orderNum, err)
			}
			if inserted {
				sum.Inserted++
			}
			t := at
			snap.Stations[station] = &t
		}

		if err := r.store.UpsertCurrentOrder(ctx, snap); err != nil {
			return Summary{}, fmt.Errorf("upsert order %s: %w", orderNum, err)
		}
		if !seen[orderNum] {
			seen[orderNum] = true
			sum.OrdersSeen++
		}
	}

	deactivated, err := r.store.DeactivateMissing(ctx, seen)
	if err != nil {
		return Summary{}, fmt.Errorf("deactivate missing orders: %w", err)
	}
	sum.Deactivated = deactivated

	r.log.Info("reconciliation pass complete",
		"pass_id", sum.PassID, "orders_seen", sum.OrdersSeen,
		"events_inserted", sum.Inserted, "deactivated", len(sum.Deactivated),
		"skipped_rows", sum.SkippedRows)
	return sum, nil
}

// parseRow classifies one raw row. Returns the order id and the station cells
// when the row is a well-formed order row, an empty order id when the row is
// unrelated content, and an error when the row looks like an order row but is
// structurally broken (missing id, too few cells).
//
// Positional contract with the external page layout: the station timestamps
// are the LAST len(stations) cells of the row, one per workstation in
// sequence order. The cell count is validated before slicing so a layout
// change surfaces as a malformed-row warning, not an out-of-bounds failure.
func (r *Reconciler) parseRow(row []string) (string, []string, error) {
	if len(row) == 0 {
		return "", nil, nil
	}
	first := CleanCell(row[0])
	if !strings.Contains(first, r.marker) {
		return "", nil, nil
	}
	fields := strings.Fields(first)
	if len(fields) < 2 {
		return "", nil, fmt.Errorf("marker cell %q has no order id", first)
	}
	orderNum := fields[1]
	if len(row) < len(r.stations)+1 {
		return "", nil, fmt.Errorf("order %s: row has %d cells, need at least %d",
			orderNum, len(row), len(r.stations)+1)
	}
	return orderNum, row[len(row)-len(r.stations):], nil
}
