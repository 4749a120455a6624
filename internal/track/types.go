package track

import (
	"context"
	"time"
)

// Page is one scraped snapshot of the order-management table: an ordered
// sequence of rows, each row an ordered sequence of cell text. The page is
// handed in by the scraper; this package never fetches anything itself.
type Page [][]string

// Event records that an order passed through a workstation at an instant.
// Events are immutable once stored and unique per (order, workstation, instant).
type Event struct {
	OrderNum    string
	Workstation string
	At          time.Time
}

// OrderSnapshot is the mutable current-state row for one order.
//
// Stations maps workstation name to the most recent known timestamp for that
// station, nil when no parseable value has ever been seen. During a
// reconciliation pass a nil entry means "no value this pass"; the store's
// upsert retains the previously known value in that case.
type OrderSnapshot struct {
	OrderNum string
	Stations map[string]*time.Time
	LastSeen time.Time
	Active   bool
}

// LeadTime is the derived per-order timing record. Durations maps a
// workstation to the fractional hours spent at it, keyed by the station whose
// event *starts* the interval. A station with no computed duration (last event
// in the sequence, or never reached) has no entry; lookups return nil.
// LeadTime records are computed on demand and never persisted.
type LeadTime struct {
	OrderNum  string
	Durations map[string]*float64
	Total     float64
}

// Summary reports the outcome of one reconciliation pass.
type Summary struct {
	PassID      string   // unique token for log correlation
	Inserted    int      // newly inserted events
	OrdersSeen  int      // distinct orders present in the page
	Deactivated []string // orders flipped to inactive this pass
	SkippedRows int      // malformed rows skipped
}

// EventStore is the append-only event log consumed by the Reconciler and the
// Calculator. Implemented by the SQLite store; injected, never ambient.
type EventStore interface {
	// RecordEvent inserts the triple if it does not already exist.
	// Reports false (and no error) when an identical triple is present.
	RecordEvent(ctx context.Context, orderNum, workstation string, at time.Time) (inserted bool, err error)

	// EventsFor returns the order's full history, ascending by instant.
	EventsFor(ctx context.Context, orderNum string) ([]Event, error)

	// EventsInRange returns events with instants in [start, end), grouped by
	// order, each group ascending by instant.
	EventsInRange(ctx context.Context, start, end time.Time) (map[string][]Event, error)
}

// SnapshotStore is the current-order state table consumed by the Reconciler.
type SnapshotStore interface {
	// UpsertCurrentOrder writes the order's snapshot row. Station entries that
	// are nil retain their previously stored value; last_seen and active are
	// always overwritten.
	UpsertCurrentOrder(ctx context.Context, snap OrderSnapshot) error

	// DeactivateMissing marks previously-active orders absent from seen as
	// inactive and returns their ids. Station fields are left untouched.
	DeactivateMissing(ctx context.Context, seen map[string]bool) ([]string, error)
}

// Store is the full persistence surface the Reconciler writes through.
type Store interface {
	EventStore
	SnapshotStore
}

// Clock supplies the reconciliation timestamp. Injectable so tests can pin
// last_seen values.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall-clock Clock used outside tests.
type SystemClock struct{}

// Now returns the current wall-clock time.
func (SystemClock) Now() time.Time { return time.Now() }

// DefaultWorkstations is the production sequence used when the config does
// not override it. Order is semantically meaningful: it is both the expected
// production path and the column position of the scraped timestamp cells.
var DefaultWorkstations = []string{
	"Indigo",
	"Laminate",
	"Die Cutting ABG",
	"Machine Glue",
	"Shipping",
}
