package cmd

import (
	"github.com/spf13/cobra"

	"github.com/JakeFAU/catalog-crawler/internal/catalog"
	"github.com/JakeFAU/catalog-crawler/internal/crawler"
)

func newSourcesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "Lists the built-in catalogs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			env, err := resolveEnv(cmd.Context())
			if err != nil {
				return err
			}
			opts, err := env.cfg.CatalogOptions(nil)
			if err != nil {
				return err
			}
			defs, err := catalog.Select(nil)
			if err != nil {
				return err
			}
			selected := make(map[string]bool)
			picked, err := catalog.Select(opts.Sources)
			if err != nil {
				return err
			}
			for _, d := range picked {
				selected[d.Name] = true
			}

			rows := make([]sourceRow, 0, len(defs))
			for _, d := range defs {
				strategy := opts.DefaultStrategy
				if s, ok := opts.Strategies[d.Name]; ok {
					strategy = s
				}
				categories := d.Categories
				if override, ok := opts.Categories[d.Name]; ok {
					categories = override
				}
				rows = append(rows, sourceRow{
					def:        d,
					categories: len(categories),
					strategy:   strategy,
					selected:   selected[d.Name],
				})
			}
			renderSources(cmd.OutOrStdout(), rows)
			return nil
		},
	}
}

type sourceRow struct {
	def        catalog.Definition
	categories int
	strategy   crawler.Strategy
	selected   bool
}
