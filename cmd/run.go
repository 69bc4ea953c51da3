package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/catalog-crawler/internal/app"
)

func newRunCmd() *cobra.Command {
	var (
		dryRun  bool
		sources []string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Crawls the catalogs and loads their tables",
		Long: `Crawls every selected source one after another and loads each source
table with its configured strategy. The process exits with status 2 when any
source failed or the run was interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := resolveEnv(cmd.Context())
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), env.cfg, env.logger, app.Options{DryRun: dryRun})
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.Run(cmd.Context(), sources)
			if err != nil {
				return err
			}
			renderReport(cmd.OutOrStdout(), report)
			if report.Failed() {
				a.Logger().Warn("run finished with failures", zap.String("run_id", report.RunID))
				return &exitError{code: ExitRunFailed}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "load into memory instead of Postgres")
	cmd.Flags().StringSliceVar(&sources, "source", nil, "sources to crawl (repeatable; default crawl.sources or all)")
	return cmd
}
