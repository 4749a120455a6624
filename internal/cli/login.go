package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/ybsops/ordertrack/internal/config"
	"github.com/ybsops/ordertrack/internal/scrape"
)

// NewLoginCommand creates the login command, which verifies the configured
// credentials against the site without touching the database.
func NewLoginCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Verify site credentials",
		Long: `Attempt a session login against the configured site and report the result.

Credentials come from YBS_USERNAME and YBS_PASSWORD (environment or .env).`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(rootOpts)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load config", err)
			}
			client, err := newScrapeClient(cfg)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to build client", err)
			}

			out := formatter(cmd, rootOpts)
			if err := client.Login(cmd.Context()); err != nil {
				if errors.Is(err, scrape.ErrLoginFailed) {
					_ = out.Error("login failed: check credentials")
					return WrapExitError(ExitFailure, "login rejected", err)
				}
				return WrapExitError(ExitFailure, "login request failed", err)
			}
			return out.Success("Login successful.")
		},
	}
	return cmd
}

// newScrapeClient builds the session client from config + environment
// credentials. Shared by login, sync and watch.
func newScrapeClient(cfg config.Config) (*scrape.Client, error) {
	creds, err := config.LoadCredentials()
	if err != nil {
		return nil, err
	}
	return scrape.New(scrape.Config{
		BaseURL:    cfg.BaseURL,
		LoginPath:  cfg.LoginPath,
		ManagePath: cfg.ManagePath,
		Username:   creds.Username,
		Password:   creds.Password,
	})
}
