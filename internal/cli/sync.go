package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/ybsops/ordertrack/internal/scrape"
	"github.com/ybsops/ordertrack/internal/track"
)

// NewSyncCommand creates the sync command: one on-demand scrape-and-reconcile
// pass.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Scrape the order page once and ingest it",
		Long: `Log in, fetch the order-management page, and reconcile it against the
event log and the current-order snapshot. Prints the number of newly
recorded events.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(rootOpts)
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

			client, err := newScrapeClient(cfg)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to build client", err)
			}

			rec := track.NewReconciler(st, cfg.Workstations, cfg.OrderMarker, nil, slog.Default())
			sum, err := runPass(cmd.Context(), client, rec)
			if err != nil {
				return WrapExitError(ExitFailure, "sync failed", err)
			}

			out := formatter(cmd, rootOpts)
			if rootOpts.Format == "json" {
				return out.Success(sum)
			}
			return out.Success(fmt.Sprintf("%d new events (%d orders seen, %d deactivated)",
				sum.Inserted, sum.OrdersSeen, len(sum.Deactivated)))
		},
	}
	return cmd
}

// runPass is the full fetch-and-reconcile body shared by sync and watch:
// login, fetch the page, hand it to the reconciler. Network work happens
// entirely before Reconcile is called, so the reconciler's critical section
// never blocks on I/O.
func runPass(ctx context.Context, client *scrape.Client, rec *track.Reconciler) (track.Summary, error) {
	if err := client.Login(ctx); err != nil {
		return track.Summary{}, fmt.Errorf("login: %w", err)
	}
	page, err := client.FetchPage(ctx)
	if err != nil {
		return track.Summary{}, fmt.Errorf("fetch page: %w", err)
	}
	return rec.Reconcile(ctx, page)
}
