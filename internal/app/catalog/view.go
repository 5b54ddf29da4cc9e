package catalog

import (
	"sort"
	"strings"

	"github.com/mrops-br/catalog-manager/internal/domain"
	"github.com/shopspring/decimal"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Sort orders accepted by Query.
const (
	SortName      = "name"
	SortPriceAsc  = "price-asc"
	SortPriceDesc = "price-desc"
)

// Favorite filters accepted by Query.
const (
	ShowAll       = "all"
	ShowFavorites = "favorites"
)

// AllCategories disables the category filter.
const AllCategories = "all"

const (
	DefaultPageSize = 8
	PopularCount    = 4
)

// Query describes a listing view over the catalog.
type Query struct {
	Search   string
	Show     string
	Category string
	Sort     string
	Page     int
	PageSize int
}

// Page is the result of applying a Query.
type Page struct {
	Products   []domain.Product
	Total      int
	Page       int
	TotalPages int
	Categories []string
}

// Popular returns the first n products in store order.
func Popular(products []domain.Product, n int) []domain.Product {
	if n <= 0 {
		n = PopularCount
	}
	if len(products) < n {
		n = len(products)
	}
	return cloneProducts(products[:n])
}

// Categories lists the distinct categories in first-seen order.
func Categories(products []domain.Product) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, p := range products {
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		out = append(out, p.Category)
	}
	return out
}

// Apply filters, sorts and paginates products. The input is not modified.
func (q Query) Apply(products []domain.Product) Page {
	filtered := make([]domain.Product, 0, len(products))
	search := strings.ToLower(strings.TrimSpace(q.Search))
	for _, p := range products {
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(strings.ToLower(p.Description), search) {
			continue
		}
		if q.Show == ShowFavorites && !p.IsFavorite {
			continue
		}
		if q.Category != "" && q.Category != AllCategories && p.Category != q.Category {
			continue
		}
		filtered = append(filtered, p)
	}

	sortProducts(filtered, q.Sort)

	size := q.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	total := len(filtered)
	totalPages := (total + size - 1) / size

	page := q.Page
	if page > totalPages {
		page = totalPages
	}
	if page < 1 {
		page = 1
	}

	start := (page - 1) * size
	end := start + size
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	return Page{
		Products:   filtered[start:end],
		Total:      total,
		Page:       page,
		TotalPages: totalPages,
		Categories: Categories(products),
	}
}

func sortProducts(products []domain.Product, order string) {
	switch order {
	case SortPriceAsc, SortPriceDesc:
		prices := make(map[string]decimal.Decimal, len(products))
		for _, p := range products {
			// unparsable prices rank as zero
			d, _ := domain.ParsePrice(p.Price)
			prices[p.ID] = d
		}
		sort.SliceStable(products, func(i, j int) bool {
			if order == SortPriceDesc {
				return prices[products[i].ID].GreaterThan(prices[products[j].ID])
			}
			return prices[products[i].ID].LessThan(prices[products[j].ID])
		})
	default:
		c := collate.New(language.English)
		sort.SliceStable(products, func(i, j int) bool {
			return c.CompareString(products[i].Name, products[j].Name) < 0
		})
	}
}
