package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ybsops/ordertrack/internal/poll"
	"github.com/ybsops/ordertrack/internal/track"
)

// WatchOptions holds flags for the watch command.
type WatchOptions struct {
	*RootOptions
	Interval time.Duration
}

// NewWatchCommand creates the watch command: periodic scrape-and-reconcile
// until interrupted.
func NewWatchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WatchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Poll the order page on a schedule",
		Long: `Run scrape-and-reconcile passes on a fixed interval until interrupted.

The first pass runs immediately. A failed pass (network down, login
rejected) is logged and the loop keeps going. The interval defaults to
the config's poll_interval.

Example:
  ordertrack watch --db ./ordertrack.db
  ordertrack watch --interval 2m --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, opts)
		},
	}

	cmd.Flags().DurationVar(&opts.Interval, "interval", 0, "poll interval (overrides config)")

	return cmd
}

func runWatch(cmd *cobra.Command, opts *WatchOptions) error {
	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}

	interval := opts.Interval
	if interval == 0 {
		interval, err = cfg.Interval()
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to parse poll interval", err)
		}
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

	// One reconciler for the whole watch: its mutex is what serializes
	// passes, so it must be shared rather than built per tick.
	rec := track.NewReconciler(st, cfg.Workstations, cfg.OrderMarker, nil, slog.Default())

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	fmt.Fprintf(cmd.OutOrStdout(), "Watching every %s. Press Ctrl-C to stop.\n", interval)

	runner := &poll.Runner{
		Interval: interval,
		Log:      slog.Default(),
		Task: func(ctx context.Context) error {
			sum, err := runPass(ctx, client, rec)
			if err != nil {
				return err
			}
			if sum.Inserted > 0 || opts.Verbose {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d new events\n",
					time.Now().Format("15:04:05"), sum.Inserted)
			}
			return nil
		},
	}

	if err := runner.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return WrapExitError(ExitFailure, "watch error", err)
	}
	slog.Info("watch stopped")
	return nil
}
