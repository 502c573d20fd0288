// Package cmd defines and implements the CLI commands for the mgrcrawl executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/manager-records-crawler/internal/app"
	"github.com/JakeFAU/manager-records-crawler/internal/config"
	"github.com/JakeFAU/manager-records-crawler/internal/logging"
)

// appKeyType is the key for storing the App in the context.
type appKeyType string

const appKey appKeyType = "app"

// Runner defines the application interface that commands use.
// This allows us to inject a fake app during tests.
type Runner interface {
	Close()
	Config() config.Config
	Logger() *zap.Logger
	RunManagers(ctx context.Context, opts app.RunOptions) (app.Summary, error)
	RunStats(ctx context.Context, opts app.RunOptions) (app.Summary, error)
}

// newApp is the application factory. It's a variable so tests can replace it.
var newApp = func(ctx context.Context, cfgFile string) (Runner, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	a, err := app.New(ctx, cfg, logger, app.Deps{})
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}
	return a, nil
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	var cfgFile string
	cmd := &cobra.Command{
		Use:   "mgrcrawl",
		Short: "Collects head-to-head records between football managers.",
		Long: `mgrcrawl lists the managers active in a range of league seasons and
scrapes every manager's head-to-head record against each opponent they faced,
writing the results as CSV (and optionally to Postgres, object storage and
Pub/Sub).`,
		SilenceUsage: true,

		// Build the application before the subcommand's RunE.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := newApp(cmd.Context(), cfgFile)
			if err != nil {
				return fmt.Errorf("failed to initialize application services: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, appInstance))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, ok := cmd.Context().Value(appKey).(Runner); ok && appInstance != nil {
				appInstance.Close()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (defaults and MGRCRAWL_* environment variables apply without one)")

	cmd.AddCommand(newManagersCmd())
	cmd.AddCommand(newStatsCmd())
	return cmd
}

func resolveApp(ctx context.Context) (Runner, error) {
	appInstance, ok := ctx.Value(appKey).(Runner)
	if !ok || appInstance == nil {
		return nil, errors.New("application services not initialized")
	}
	return appInstance, nil
}

// seasonFlags are shared by the crawl subcommands.
type seasonFlags struct {
	first int
	last  int
	out   string
}

func (f *seasonFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.first, "first", 0, "first season (start year); defaults to crawler.seasons_first")
	cmd.Flags().IntVar(&f.last, "last", 0, "last season (start year); defaults to crawler.seasons_last")
	cmd.Flags().StringVar(&f.out, "out", "", "output directory; defaults to output.dir")
}

func (f *seasonFlags) options(cfg config.Config) (app.RunOptions, error) {
	seasons := cfg.Seasons()
	if f.first != 0 {
		seasons.First = f.first
	}
	if f.last != 0 {
		seasons.Last = f.last
	}
	if err := seasons.Validate(); err != nil {
		return app.RunOptions{}, fmt.Errorf("--first/--last: %w", err)
	}
	return app.RunOptions{Seasons: seasons, OutDir: f.out}, nil
}

type runFunc func(Runner, context.Context, app.RunOptions) (app.Summary, error)

func runCommand(cmd *cobra.Command, flags *seasonFlags, run runFunc) error {
	appInstance, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}
	opts, err := flags.options(appInstance.Config())
	if err != nil {
		return err
	}
	summary, err := run(appInstance, cmd.Context(), opts)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", cmd.Name(), err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d managers, %d rows, %d failures -> %s\n",
		cmd.Name(), summary.Managers, summary.Rows, summary.Failures, summary.Output)
	return nil
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
