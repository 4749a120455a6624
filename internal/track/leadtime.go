package track

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// Calculator derives per-order lead times from the event log. Read-only; it
// may run concurrently with reconciliation passes.
type Calculator struct {
	store EventStore
}

// NewCalculator creates a Calculator reading from the given event store.
func NewCalculator(store EventStore) *Calculator {
	return &Calculator{store: store}
}

// Calculate returns one LeadTime per order that has at least one event with
// an instant in [start, end), sorted by order id.
//
// The range selects WHICH orders are reported; durations are computed from
// each order's full history, so an order touched inside the range still gets
// credit for stations it passed earlier. For each event except the last, the
// duration keyed by that event's workstation is the fractional hours until
// the next event. The final event has no successor and contributes no
// duration. A later event with an earlier instant yields a negative duration;
// the anomaly is surfaced, not corrected, so consumers can detect it.
//
// An empty range is not an error: the result is an empty slice.
func (c *Calculator) Calculate(ctx context.Context, start, end time.Time) ([]LeadTime, error) {
	inRange, err := c.store.EventsInRange(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("events in range: %w", err)
	}

	orderNums := make([]string, 0, len(inRange))
	for orderNum := range inRange {
		orderNums = append(orderNums, orderNum)
	}
	sort.Strings(orderNums)

	results := make([]LeadTime, 0, len(orderNums))
	for _, orderNum := range orderNums {
		history, err := c.store.EventsFor(ctx, orderNum)
		if err != nil {
			return nil, fmt.Errorf("history for order %s: %w", orderNum, err)
		}
		results = append(results, leadTimeFromHistory(orderNum, history))
	}
	return results, nil
}

// leadTimeFromHistory computes station durations from an ascending event
// sequence. Pure; exercised directly by tests.
func leadTimeFromHistory(orderNum string, history []Event) LeadTime {
	lt := LeadTime{
		OrderNum:  orderNum,
		Durations: make(map[string]*float64, len(history)),
	}
	for i := 0; i < len(history)-1; i++ {
		hours := history[i+1].At.Sub(history[i].At).Hours()
		lt.Durations[history[i].Workstation] = &hours
		lt.Total += hours
	}
	return lt
}
