package catalog

import (
	"fmt"

	"github.com/JakeFAU/catalog-crawler/internal/adapter"
	"github.com/JakeFAU/catalog-crawler/internal/crawler"
)

const makitoSearchURL = "https://makito.es/epages/Makito.sf/fr_FR/?ChangeAction=RealizaBusquedaAvanzada&ObjectID=%s&ViewAction=View&Page=1&PageSize=%d"

// makitoListings are the advanced-search object IDs, in crawl order.
// "monitor" is the store front page.
var makitoListings = []struct {
	id       string
	pageSize int
}{
	{"49851", 1000}, {"monitor", 0}, {"23943", 1000}, {"23935", 1000},
	{"23942", 10000}, {"23857", 10000}, {"23921", 1000}, {"23924", 1000},
	{"23923", 1000}, {"23947", 1000}, {"23946", 1000}, {"23927", 1000},
	{"23948", 1000}, {"23939", 1000}, {"23922", 1000}, {"23928", 1000},
	{"23938", 1000}, {"23926", 1000}, {"8343132", 1000}, {"23940", 1000},
	{"23925", 1000}, {"23945", 1000}, {"23930", 1000}, {"23944", 1000},
	{"23937", 1000}, {"23931", 1000}, {"23933", 1000}, {"300703", 1000},
	{"23932", 1000}, {"148654", 1000}, {"23836", 1000}, {"23941", 1000},
	{"23934", 1000},
}

func makito() Definition {
	cats := make([]crawler.Category, 0, len(makitoListings))
	for _, l := range makitoListings {
		u := fmt.Sprintf(makitoSearchURL, l.id, l.pageSize)
		if l.id == "monitor" {
			u = "https://makito.es/epages/Makito.sf/fr_FR/?ViewAction=Monitor&GUID=Store-67C1E0FF-E689-ADA0-FAF8-ACE979B3B378"
		}
		cats = append(cats, crawler.Category{Name: l.id, URL: u})
	}
	return Definition{
		Name: Makito,
		Kind: adapter.KindInfiniteScroll,
		Layout: adapter.Layout{
			BaseURL:         "https://makito.es",
			Item:            ".HotDeal",
			Reference:       ".ProductNo",
			ReferencePrefix: "Réf: ",
			Name:            ".ProductName",
			Link:            ".ProductName",
			Image:           ".ImageArea img",
			Colors:          ".IconoColor",
			ColorsAttr:      "title",
			Loading:         ".loading-spinner",
		},
		Schema: crawler.Schema{
			Table: "products_makito",
			Columns: []crawler.Column{
				crawler.ColumnReference, crawler.ColumnName, crawler.ColumnLink,
				crawler.ColumnImage, crawler.ColumnColors,
			},
		},
		Categories: cats,
	}
}

func toptex() Definition {
	names := []string{"vetements", "casquettes-et-bonnets", "bagagerie", "linge-de-maison", "chaussures"}
	cats := make([]crawler.Category, len(names))
	for i, n := range names {
		cats[i] = crawler.Category{Name: n, URL: "https://www.toptex.fr/produits/" + n + ".html"}
	}
	return Definition{
		Name: TopTex,
		Kind: adapter.KindPaginatedGrid,
		Layout: adapter.Layout{
			BaseURL:       "https://www.toptex.fr",
			Item:          "ul#cat_products_grid li[data-objectid]",
			Reference:     ".product-ref span",
			Name:          ".product-description a",
			NameSeparator: " - ",
			Link:          ".product-description a",
			Brand:         ".product-description a b",
			Image:         ".product-image-wrapper img",
			Price:         ".product-price",
			ColorCount:    ".product-colors-nb-value",
			PageParam:     "page",
			PageSizeParam: "limit",
			PageSize:      24,
		},
		Schema: crawler.Schema{
			Table: "products_toptex",
			Columns: []crawler.Column{
				crawler.ColumnReference, crawler.ColumnName, crawler.ColumnLink, crawler.ColumnImage,
				crawler.ColumnBrand, crawler.ColumnCategory, crawler.ColumnPrice, crawler.ColumnColorCount,
			},
		},
		Categories: cats,
	}
}

// payperGroups maps each category key to its section of the workwear tree.
var payperGroups = []struct{ group, key string }{
	{"t-shirts-polo-shirts-shirts", "polo-shirts"},
	{"t-shirts-polo-shirts-shirts", "t-shirts"},
	{"t-shirts-polo-shirts-shirts", "shirts"},
	{"sweatshirts-pullovers", "sweatshirts"},
	{"sweatshirts-pullovers", "pullovers"},
	{"sweatshirts-pullovers", "polar-jackets"},
	{"jackets", "4-season"},
	{"jackets", "work-coats"},
	{"jackets", "vests"},
	{"jackets", "jackets"},
	{"jackets", "soft-shells"},
	{"jackets", "padded-soft-shells"},
	{"trousers", "bermuda-shorts"},
	{"trousers", "denim"},
	{"trousers", "trousers"},
	{"trousers", "sweat-trousers"},
	{"overalls-and-sets", "overall-and-bib"},
	{"baselayers", "thermal-shirts"},
	{"overalls-and-sets", "anti-rain"},
	{"baselayers", "thermal-pants"},
	{"swimwear", "swimwear"},
	{"other", "accessories"},
	{"other", "merchandising"},
	{"other", "neckwarmer"},
	{"topics", "high-visibility"},
	{"topics", "tech-nik"},
	{"topics", "multipro"},
	{"topics", "industry"},
	{"topics", "corporate"},
}

func payper() Definition {
	cats := make([]crawler.Category, len(payperGroups))
	for i, g := range payperGroups {
		cats[i] = crawler.Category{
			Name: g.key,
			URL:  fmt.Sprintf("https://www.payperwear.com/cat/it-fr/casual-workwear/%s/%s", g.group, g.key),
		}
	}
	return Definition{
		Name: Payper,
		Kind: adapter.KindFlatList,
		Layout: adapter.Layout{
			BaseURL:    "https://www.payperwear.com",
			Title:      ".catalogo-title h1",
			Item:       ".catalogoItem",
			Link:       "a",
			Name:       ".catalogoItemLabel",
			Image:      ".catalogoItemImg img",
			ColorCount: ".catalogoItemColors .label-danger",
		},
		Schema: crawler.Schema{
			Table: "products_payper",
			Columns: []crawler.Column{
				crawler.ColumnReference, crawler.ColumnName, crawler.ColumnLink,
				crawler.ColumnImage, crawler.ColumnColorCount, crawler.ColumnCategory,
			},
		},
		Categories: cats,
	}
}
