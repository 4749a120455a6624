package store

import (
	"database/sql"
	_ "embed"
	"fmt"
	"strings"
	"time"
	"unicode"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// TimeLayout is the canonical persisted timestamp format.
const TimeLayout = "2006-01-02 15:04:05"

// Store wraps the SQLite database holding the event log and the
// current-order snapshot.
type Store struct {
	db       *sql.DB
	stations []string
	columns  []string // sanitized column name per station, same order
}

// Open creates or opens the SQLite database at path and ensures the schema
// for the given workstation sequence exists. Idempotent; safe to call on an
// existing database as long as the workstation sequence is unchanged.
func Open(path string, stations []string) (*Store, error) {
	if len(stations) == 0 {
		return nil, fmt.Errorf("open store: workstation sequence is empty")
	}
	columns, err := stationColumns(stations)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	// SQLite supports one writer at a time; a single pooled connection
	// avoids SQLITE_BUSY under concurrent use.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if err := applySchema(db, columns); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db, stations: stations, columns: columns}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Stations returns the workstation sequence the store was opened with.
func (s *Store) Stations() []string {
	return s.stations
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %q: %w", pragma, err)
		}
	}
	return nil
}

// applySchema runs the embedded events schema and generates the
// current_orders table, one column per workstation. Idempotent.
func applySchema(db *sql.DB, columns []string) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}

	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS current_orders (\n")
	b.WriteString("    order_num TEXT PRIMARY KEY,\n")
	for _, col := range columns {
		fmt.Fprintf(&b, "    %s TEXT,\n", col)
	}
	b.WriteString("    last_seen TEXT,\n")
	b.WriteString("    active INTEGER DEFAULT 1\n")
	b.WriteString(")")
	if _, err := db.Exec(b.String()); err != nil {
		return fmt.Errorf("create current_orders: %w", err)
	}
	return nil
}

// stationColumns maps workstation names to SQL column names: lowercase,
// non-alphanumeric runs collapsed to a single underscore
// ("Die Cutting ABG" -> "die_cutting_abg"). Names must stay unique and
// non-empty after sanitizing.
func stationColumns(stations []string) ([]string, error) {
	columns := make([]string, len(stations))
	seen := make(map[string]string, len(stations))
	for i, station := range stations {
		col := sanitizeColumn(station)
		if col == "" {
			return nil, fmt.Errorf("workstation %q yields an empty column name", station)
		}
		if prev, dup := seen[col]; dup {
			return nil, fmt.Errorf("workstations %q and %q collide on column %q", prev, station, col)
		}
		seen[col] = station
		columns[i] = col
	}
	return columns, nil
}

func sanitizeColumn(name string) string {
	var b strings.Builder
	lastUnderscore := true // suppress leading underscore
	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastUnderscore = false
		case !lastUnderscore:
			b.WriteRune('_')
			lastUnderscore = true
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}

func formatTime(t time.Time) string {
	return t.Format(TimeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("stored timestamp %q: %w", s, err)
	}
	return t, nil
}
