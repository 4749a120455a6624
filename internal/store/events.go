package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ybsops/ordertrack/internal/track"
)

// RecordEvent inserts an (order, workstation, timestamp) fact into the event
// log. Uses ON CONFLICT DO NOTHING against the UNIQUE triple constraint:
// a duplicate insert is a silent no-op reported as inserted=false. This is
// the mechanism by which repeated scraping of an unchanged page creates zero
// duplicate rows.
func (s *Store) RecordEvent(ctx context.Context, orderNum, workstation string, at time.Time) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO events (order_num, workstation, ts)
		VALUES (?, ?, ?)
		ON CONFLICT DO NOTHING
	`, orderNum, workstation, formatTime(at))
	if err != nil {
		return false, fmt.Errorf("record event: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("record event: rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// EventsFor returns the order's full event history ascending by instant,
// tie-broken by workstation name for deterministic results.
// Returns an empty slice (not nil) when the order has no events.
func (s *Store) EventsFor(ctx context.Context, orderNum string) ([]track.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT order_num, workstation, ts
		FROM events
		WHERE order_num = ?
		ORDER BY ts ASC, workstation ASC
	`, orderNum)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

// EventsInRange returns events with instants in [start, end), grouped by
// order, each group ascending by instant. An empty range yields an empty map.
func (s *Store) EventsInRange(ctx context.Context, start, end time.Time) (map[string][]track.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT order_num, workstation, ts
		FROM events
		WHERE ts >= ? AND ts < ?
		ORDER BY order_num ASC, ts ASC, workstation ASC
	`, formatTime(start), formatTime(end))
	if err != nil {
		return nil, fmt.Errorf("query events in range: %w", err)
	}
	defer rows.Close()

	events, err := scanEvents(rows)
	if err != nil {
		return nil, err
	}
	grouped := make(map[string][]track.Event)
	for _, ev := range events {
		grouped[ev.OrderNum] = append(grouped[ev.OrderNum], ev)
	}
	return grouped, nil
}

func scanEvents(rows *sql.Rows) ([]track.Event, error) {
	events := []track.Event{}
	for rows.Next() {
		var ev track.Event
		var ts string
		if err := rows.Scan(&ev.OrderNum, &ev.Workstation, &ts); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		at, err := parseTime(ts)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.At = at
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}
