package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/catalog-crawler/internal/app"
	"github.com/JakeFAU/catalog-crawler/internal/catalog"
	"github.com/JakeFAU/catalog-crawler/internal/crawler"
	"github.com/JakeFAU/catalog-crawler/internal/storage/postgres"
)

func newSearchCmd() *cobra.Command {
	var (
		sources  []string
		brands   []string
		colors   []string
		page     int
		pageSize int
	)
	cmd := &cobra.Command{
		Use:   "search [text]",
		Short: "Searches loaded products by name",
		Long: `Searches product names across the selected source tables. --brand keeps
sources that record a brand; --color keeps sources that record color names.`,
		Example: `  catalogcrawler search polo
  catalogcrawler search veste --source toptex --brand Kariban
  catalogcrawler search sac --color Rouge --page 2`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := resolveEnv(cmd.Context())
			if err != nil {
				return err
			}
			q, err := buildSearchQuery(args, sources, brands, colors, page, pageSize)
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), env.cfg, env.logger, app.Options{})
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.Search(cmd.Context(), q)
			if err != nil {
				return err
			}
			renderSearch(cmd.OutOrStdout(), res)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&sources, "source", nil, "sources to search (repeatable; default all)")
	cmd.Flags().StringSliceVar(&brands, "brand", nil, "restrict to these brands")
	cmd.Flags().StringSliceVar(&colors, "color", nil, "keep products offered in any of these colors")
	cmd.Flags().IntVar(&page, "page", 1, "1-based result page")
	cmd.Flags().IntVar(&pageSize, "page-size", postgres.DefaultPageSize, fmt.Sprintf("results per page (max %d)", postgres.MaxPageSize))
	return cmd
}

func buildSearchQuery(args, sources, brands, colors []string, page, pageSize int) (postgres.SearchQuery, error) {
	defs, err := catalog.Select(sources)
	if err != nil {
		return postgres.SearchQuery{}, err
	}
	q := postgres.SearchQuery{Colors: colors, Page: page, PageSize: pageSize}
	if len(args) > 0 {
		q.Text = args[0]
	}
	for _, d := range defs {
		src := postgres.SearchSource{Name: d.Name, Schema: d.Schema}
		if len(brands) > 0 {
			if !d.Schema.Has(crawler.ColumnBrand) {
				continue
			}
			src.Brands = brands
		}
		q.Sources = append(q.Sources, src)
	}
	if len(q.Sources) == 0 {
		return postgres.SearchQuery{}, fmt.Errorf("none of the selected sources records a brand")
	}
	return q, nil
}
