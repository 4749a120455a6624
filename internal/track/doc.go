// Package track implements the order event ingestion and lead-time
// derivation core.
//
// The package turns raw scraped page rows into an append-only, deduplicated
// event log, maintains a current-order snapshot with active/inactive
// lifecycle tracking, and derives per-order station durations from the
// accumulated history.
//
// ARCHITECTURE:
//
// Single-Writer Reconciliation:
// All writes go through Reconciler.Reconcile, which serializes passes with a
// mutex. A timer-driven refresh and an on-demand sync therefore never
// interleave half-updates. Read paths (Calculator, snapshot queries) do not
// take the lock; the store's WAL mode gives them read-committed visibility.
//
// Reconciliation Flow:
//  1. Recognize order rows by the marker token in the first cell.
//  2. Map the trailing cells positionally onto the workstation sequence.
//  3. Parse each cell; parseable timestamps become events (idempotent insert)
//     and snapshot values, unparsable cells are logged and skipped.
//  4. Upsert the order's snapshot row (active, last_seen = pass time).
//  5. Deactivate previously-active orders absent from the pass.
//
// Parsing problems are recovered locally; storage errors fail the whole pass.
package track
