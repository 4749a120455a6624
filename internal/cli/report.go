package cli

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/ybsops/ordertrack/internal/report"
	"github.com/ybsops/ordertrack/internal/track"
)

// ReportOptions holds flags for the report command.
type ReportOptions struct {
	*RootOptions
	From string
	To   string
	Out  string
}

// NewReportCommand creates the report command, which computes lead times for
// a date range and renders them as CSV.
func NewReportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Export a lead-time CSV for a date range",
		Long: `Compute per-order station durations and totals for every order with at
least one event in [from, to), and render them as CSV.

Dates are inclusive start, exclusive end:
  ordertrack report --from 2023-09-05 --to 2023-09-06 --out leadtimes.csv`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			start, end, err := parseRange(opts.From, opts.To)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid date range", err)
			}

			cfg, err := loadConfig(opts.RootOptions)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load config", err)
			}
			st, err := openStore(cfg)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to open database", err)
			}
			defer func() {
				if closeErr := st.Close(); closeErr != nil {
					slog.Error("error closing database", "error", closeErr)
				}
			}()

			calc := track.NewCalculator(st)
			records, err := calc.Calculate(cmd.Context(), start, end)
			if err != nil {
				return WrapExitError(ExitFailure, "lead-time calculation failed", err)
			}

			writer := report.NewCSVWriter(cfg.Workstations)
			if opts.Out == "" {
				if err := writer.Write(cmd.OutOrStdout(), records); err != nil {
					return WrapExitError(ExitFailure, "failed to write report", err)
				}
				return nil
			}
			if err := writer.WriteFile(opts.Out, records); err != nil {
				return WrapExitError(ExitFailure, "failed to write report", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d orders to %s\n", len(records), opts.Out)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.From, "from", "", "range start date, YYYY-MM-DD (required)")
	cmd.Flags().StringVar(&opts.To, "to", "", "range end date, YYYY-MM-DD, exclusive (required)")
	cmd.Flags().StringVar(&opts.Out, "out", "", "output file (stdout when omitted)")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")

	return cmd
}

func parseRange(from, to string) (time.Time, time.Time, error) {
	start, err := time.Parse("2006-01-02", from)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("--from: %w", err)
	}
	end, err := time.Parse("2006-01-02", to)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("--to: %w", err)
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("--to %s must be after --from %s", to, from)
	}
	return start, end, nil
}
