// Package report renders lead-time records to CSV.
//
// Layout contract: header is "Job", one column per workstation in sequence
// order, then "Total Hours". Durations are formatted with exactly two decimal
// places; a station with no computed duration renders as an empty field.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ybsops/ordertrack/internal/track"
)

// Writer renders lead-time records to a tabular form. The CSV implementation
// below is the only one in tree; the interface keeps the core decoupled from
// serialization mechanics.
type Writer interface {
	Write(w io.Writer, records []track.LeadTime) error
}

// CSVWriter renders lead-time records as CSV with the configured workstation
// sequence as the column order.
type CSVWriter struct {
	stations []string
}

// NewCSVWriter creates a CSVWriter for the given workstation sequence.
func NewCSVWriter(stations []string) *CSVWriter {
	return &CSVWriter{stations: stations}
}

// Write renders the header and one row per record.
func (c *CSVWriter) Write(w io.Writer, records []track.LeadTime) error {
	cw := csv.NewWriter(w)

	header := make([]string, 0, len(c.stations)+2)
	header = append(header, "Job")
	header = append(header, c.stations...)
	header = append(header, "Total Hours")
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, rec := range records {
		row := make([]string, 0, len(header))
		row = append(row, rec.OrderNum)
		for _, station := range c.stations {
			row = append(row, formatHours(rec.Durations[station]))
		}
		row = append(row, fmt.Sprintf("%.2f", rec.Total))
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row for order %s: %w", rec.OrderNum, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteFile renders the records to a file, creating parent directories as
// needed.
func (c *CSVWriter) WriteFile(path string, records []track.LeadTime) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	defer f.Close()

	if err := c.Write(f, records); err != nil {
		return err
	}
	return f.Close()
}

// formatHours renders a duration to two decimals, or empty when absent.
// Absent means "not yet reached / unknown", which must stay distinguishable
// from an explicit 0.00.
func formatHours(hours *float64) string {
	if hours == nil {
		return ""
	}
	return fmt.Sprintf("%.2f", *hours)
}
