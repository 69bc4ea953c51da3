// Package cmd defines and implements the CLI commands for the catalogcrawler executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/catalog-crawler/internal/app"
	"github.com/JakeFAU/catalog-crawler/internal/config"
	"github.com/JakeFAU/catalog-crawler/internal/crawler"
	"github.com/JakeFAU/catalog-crawler/internal/logging"
	"github.com/JakeFAU/catalog-crawler/internal/storage/postgres"
)

// Exit codes.
const (
	ExitOK        = 0
	ExitStartup   = 1
	ExitRunFailed = 2
)

// envKeyType is the key for storing the loaded environment in the context.
type envKeyType string

const envKey envKeyType = "env"

// App defines the application interface that commands will use.
// This allows us to inject a fake app during tests.
type App interface {
	Close()
	Logger() *zap.Logger
	Run(ctx context.Context, sources []string) (crawler.RunReport, error)
	Search(ctx context.Context, q postgres.SearchQuery) (postgres.SearchResult, error)
}

// newApp is the application factory. It's a variable so tests can replace it.
var newApp = func(ctx context.Context, cfg config.Config, logger *zap.Logger, opts app.Options) (App, error) {
	return app.New(ctx, cfg, logger, opts)
}

// environment is what PersistentPreRunE hands to subcommands.
type environment struct {
	cfg    config.Config
	logger *zap.Logger
}

// exitError carries a non-zero exit code without an error message.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

func newRootCmd() *cobra.Command {
	var cfgFile string

	cmd := &cobra.Command{
		Use:   "catalogcrawler",
		Short: "Crawls supplier product catalogs into Postgres.",
		Long: `catalogcrawler drives a headless browser through the Makito, TopTex and
Payper catalogs, normalizes what it finds and loads one table per source.`,
		SilenceUsage:  true,
		SilenceErrors: true,

		// Loads configuration and the logger before any subcommand runs.
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.LoadEnvFiles(); err != nil {
				return err
			}
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
			if err != nil {
				return err
			}
			cmd.SetContext(context.WithValue(cmd.Context(), envKey, &environment{cfg: cfg, logger: logger}))
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default searches ./catalogcrawler.yaml, /etc/catalogcrawler, $HOME/.catalogcrawler)")

	cmd.AddCommand(newRunCmd(), newSearchCmd(), newSourcesCmd())
	return cmd
}

func resolveEnv(ctx context.Context) (*environment, error) {
	env, ok := ctx.Value(envKey).(*environment)
	if !ok || env == nil {
		return nil, errors.New("configuration not loaded")
	}
	return env, nil
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return execute(ctx, newRootCmd())
}

func execute(ctx context.Context, root *cobra.Command) int {
	err := root.ExecuteContext(ctx)
	if err == nil {
		return ExitOK
	}
	var exit *exitError
	if errors.As(err, &exit) {
		return exit.code
	}
	fmt.Fprintln(root.ErrOrStderr(), "Error:", err)
	return ExitStartup
}
