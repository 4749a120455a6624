package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/ybsops/ordertrack/internal/track"
)

// UpsertCurrentOrder writes one order's snapshot row.
//
// Retain policy: each station column is set to
// COALESCE(excluded.col, current_orders.col), so a nil station entry (blank
// or unparsable cell this pass) keeps the previously known value instead of
// clearing it. last_seen and active are always overwritten.
func (s *Store) UpsertCurrentOrder(ctx context.Context, snap track.OrderSnapshot) error {
	columns := make([]string, 0, len(s.columns)+3)
	columns = append(columns, "order_num")
	columns = append(columns, s.columns...)
	columns = append(columns, "last_seen", "active")

	args := make([]any, 0, len(columns))
	args = append(args, snap.OrderNum)
	for _, station := range s.stations {
		if at, ok := snap.Stations[station]; ok && at != nil {
			args = append(args, formatTime(*at))
		} else {
			args = append(args, nil)
		}
	}
	args = append(args, formatTime(snap.LastSeen), boolToInt(snap.Active))

	var sets []string
	for _, col := range s.columns {
		sets = append(sets, fmt.Sprintf("%s = COALESCE(excluded.%s, current_orders.%s)", col, col, col))
	}
	sets = append(sets, "last_seen = excluded.last_seen", "active = excluded.active")

	query := fmt.Sprintf(`
		INSERT INTO current_orders (%s)
		VALUES (%s)
		ON CONFLICT(order_num) DO UPDATE SET
		%s
	`, strings.Join(columns, ", "), placeholders(len(columns)), strings.Join(sets, ",\n\t\t"))

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert current order: %w", err)
	}
	return nil
}

// DeactivateMissing flips active=0 for every currently-active order whose id
// is not in seen and returns the affected ids. Station fields and last_seen
// keep their last known values; deactivation is the only "destruction" an
// order undergoes.
func (s *Store) DeactivateMissing(ctx context.Context, seen map[string]bool) ([]string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("deactivate missing: begin tx: %w", err)
	}
	defer tx.Rollback() // no-op if committed

	rows, err := tx.QueryContext(ctx, `SELECT order_num FROM current_orders WHERE active = 1`)
	if err != nil {
		return nil, fmt.Errorf("deactivate missing: query active: %w", err)
	}
	var missing []string
	for rows.Next() {
		var orderNum string
		if err := rows.Scan(&orderNum); err != nil {
			rows.Close()
			return nil, fmt.Errorf("deactivate missing: scan: %w", err)
		}
		if !seen[orderNum] {
			missing = append(missing, orderNum)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("deactivate missing: iterate: %w", err)
	}
	rows.Close()

	if len(missing) == 0 {
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("deactivate missing: commit: %w", err)
		}
		return []string{}, nil
	}

	args := make([]any, len(missing))
	for i, orderNum := range missing {
		args[i] = orderNum
	}
	query := fmt.Sprintf(
		`UPDATE current_orders SET active = 0 WHERE order_num IN (%s)`,
		placeholders(len(missing)))
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("deactivate missing: update: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("deactivate missing: commit: %w", err)
	}
	return missing, nil
}

// CurrentOrders returns snapshot rows ordered by order id. With activeOnly
// set, inactive orders are filtered out.
func (s *Store) CurrentOrders(ctx context.Context, activeOnly bool) ([]track.OrderSnapshot, error) {
	query := fmt.Sprintf(`
		SELECT order_num, %s, last_seen, active
		FROM current_orders
		%s
		ORDER BY order_num ASC
	`, strings.Join(s.columns, ", "), activeFilter(activeOnly))

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query current orders: %w", err)
	}
	defer rows.Close()

	snaps := []track.OrderSnapshot{}
	for rows.Next() {
		snap, err := s.scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate current orders: %w", err)
	}
	return snaps, nil
}

func (s *Store) scanSnapshot(rows *sql.Rows) (track.OrderSnapshot, error) {
	stationVals := make([]sql.NullString, len(s.columns))
	var lastSeen sql.NullString
	var active int

	dest := make([]any, 0, len(s.columns)+3)
	var orderNum string
	dest = append(dest, &orderNum)
	for i := range stationVals {
		dest = append(dest, &stationVals[i])
	}
	dest = append(dest, &lastSeen, &active)

	if err := rows.Scan(dest...); err != nil {
		return track.OrderSnapshot{}, fmt.Errorf("scan current order: %w", err)
	}

	snap := track.OrderSnapshot{
		OrderNum: orderNum,
		Stations: make(map[string]*time.Time, len(s.stations)),
		Active:   active != 0,
	}
	for i, station := range s.stations {
		if !stationVals[i].Valid {
			continue
		}
		at, err := parseTime(stationVals[i].String)
		if err != nil {
			return track.OrderSnapshot{}, fmt.Errorf("order %s, station %s: %w", orderNum, station, err)
		}
		snap.Stations[station] = &at
	}
	if lastSeen.Valid {
		at, err := parseTime(lastSeen.String)
		if err != nil {
			return track.OrderSnapshot{}, fmt.Errorf("order %s last_seen: %w", orderNum, err)
		}
		snap.LastSeen = at
	}
	return snap, nil
}

func activeFilter(activeOnly bool) string {
	if activeOnly {
		return "WHERE active = 1"
	}
	return ""
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
