package cli

import (
	"fmt"
	"log/slog"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ybsops/ordertrack/internal/store"
	"github.com/ybsops/ordertrack/internal/track"
)

// OrdersOptions holds flags for the orders command.
type OrdersOptions struct {
	*RootOptions
	ActiveOnly bool
}

// NewOrdersCommand creates the orders command, which lists the current-order
// snapshot.
func NewOrdersCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &OrdersOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "orders",
		Short:         "List tracked orders and their latest station timestamps",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
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

			snaps, err := st.CurrentOrders(cmd.Context(), opts.ActiveOnly)
			if err != nil {
				return WrapExitError(ExitFailure, "failed to read orders", err)
			}

			if opts.Format == "json" {
				return formatter(cmd, opts.RootOptions).Success(snapshotRows(cfg.Workstations, snaps))
			}
			return writeOrdersTable(cmd, cfg.Workstations, snaps)
		},
	}

	cmd.Flags().BoolVar(&opts.ActiveOnly, "active", false, "only orders present in the most recent pass")

	return cmd
}

// snapshotRow is the JSON shape for one order.
type snapshotRow struct {
	OrderNum string            `json:"order_num"`
	Stations map[string]string `json:"stations"`
	LastSeen string            `json:"last_seen"`
	Active   bool              `json:"active"`
}

func snapshotRows(stations []string, snaps []track.OrderSnapshot) []snapshotRow {
	rows := make([]snapshotRow, 0, len(snaps))
	for _, snap := range snaps {
		row := snapshotRow{
			OrderNum: snap.OrderNum,
			Stations: make(map[string]string, len(stations)),
			LastSeen: snap.LastSeen.Format(store.TimeLayout),
			Active:   snap.Active,
		}
		for _, station := range stations {
			if at := snap.Stations[station]; at != nil {
				row.Stations[station] = at.Format(store.TimeLayout)
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func writeOrdersTable(cmd *cobra.Command, stations []string, snaps []track.OrderSnapshot) error {
	if len(snaps) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No orders tracked.")
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "ORDER\t%s\tLAST SEEN\tACTIVE\n", strings.ToUpper(strings.Join(stations, "\t")))
	for _, snap := range snaps {
		cells := make([]string, 0, len(stations)+3)
		cells = append(cells, snap.OrderNum)
		for _, station := range stations {
			if at := snap.Stations[station]; at != nil {
				cells = append(cells, at.Format(store.TimeLayout))
			} else {
				cells = append(cells, "-")
			}
		}
		cells = append(cells, snap.LastSeen.Format(store.TimeLayout), fmt.Sprintf("%t", snap.Active))
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}
