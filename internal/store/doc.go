// Package store provides SQLite-backed persistence for the order tracker.
//
// Two logical tables:
//
//   - events: the append-only, deduplicated log of
//     (order, workstation, timestamp) facts. UNIQUE on the triple makes
//     RecordEvent idempotent, so re-scraping an unchanged page inserts
//     nothing. Events are never updated or deleted.
//   - current_orders: one mutable row per order ever seen, with one column
//     per workstation holding the most recent known timestamp, plus
//     last_seen and active. Orders are deactivated, never deleted.
//
// The events schema is embedded from schema.sql. The current_orders table is
// generated at Open time because its columns depend on the configured
// workstation sequence.
//
// Station columns use COALESCE on upsert: a NULL value for a station retains
// the previously stored timestamp. Once known, a station value survives later
// passes whose cell for that station is blank or unparsable.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON
//
// Timestamps persist as "2006-01-02 15:04:05" text, which compares correctly
// as strings for range queries.
package store
