package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/JakeFAU/catalog-crawler/internal/crawler"
	"github.com/JakeFAU/catalog-crawler/internal/storage/postgres"
)

const maxNameWidth = 60

func newTable(out io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(table.StyleLight)
	return t
}

func renderReport(out io.Writer, report crawler.RunReport) {
	t := newTable(out)
	t.SetTitle("run %s: %s in %s", report.RunID, report.Status(), report.Duration().Round(time.Millisecond))
	t.AppendHeader(table.Row{"Source", "Status", "Strategy", "Categories", "Skipped", "Pages", "Records", "Inserted", "Updated", "Duplicates", "Failed", "Error"})
	for _, s := range report.Sources {
		t.AppendRow(table.Row{
			s.Source, s.Status, s.Strategy, s.Categories, s.SkippedCategories, s.Pages, s.Records,
			s.Load.Inserted, s.Load.Updated, s.Load.SkippedDuplicate, s.Load.Failed, s.Error,
		})
	}
	totals := report.Totals()
	t.AppendFooter(table.Row{"total", "", "", "", "", "", "", totals.Inserted, totals.Updated, totals.SkippedDuplicate, totals.Failed, ""})
	t.Render()
}

func renderSearch(out io.Writer, res postgres.SearchResult) {
	t := newTable(out)
	t.SetTitle("%d matches, page %d", res.Total, res.Page)
	t.AppendHeader(table.Row{"Source", "Reference", "Name", "Brand", "Category", "Price", "Colors", "Link"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, WidthMax: maxNameWidth, WidthMaxEnforcer: text.WrapSoft},
	})
	for _, r := range res.Rows {
		colors := strings.Join(r.Colors, ", ")
		if colors == "" && r.ColorCount > 0 {
			colors = pluralColors(r.ColorCount)
		}
		t.AppendRow(table.Row{r.Source, r.Reference, r.Name, r.Brand, r.Category, r.Price, colors, r.Link})
	}
	t.Render()
}

func renderSources(out io.Writer, rows []sourceRow) {
	t := newTable(out)
	t.AppendHeader(table.Row{"Source", "Layout", "Table", "Categories", "Strategy", "Selected"})
	for _, r := range rows {
		t.AppendRow(table.Row{r.def.Name, r.def.Kind, r.def.Schema.Table, r.categories, r.strategy, r.selected})
	}
	t.Render()
}

func pluralColors(n int) string {
	if n == 1 {
		return "1 color"
	}
	return fmt.Sprintf("%d colors", n)
}
