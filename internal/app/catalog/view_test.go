package catalog

import (
	"testing"

	"github.com/mrops-br/catalog-manager/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func viewFixture() []domain.Product {
	return []domain.Product{
		{ID: "1", Name: "backpack", Description: "Fits a laptop", Price: "$109.95", Category: "men's clothing"},
		{ID: "2", Name: "Ring", Description: "Silver", Price: "$9.99", Category: "jewelery", IsFavorite: true},
		{ID: "3", Name: "Monitor", Description: "Wide screen", Price: "$999", Category: "electronics"},
		{ID: "4", Name: "Hard Drive", Description: "Fast laptop storage", Price: "$64", Category: "electronics", IsFavorite: true},
		{ID: "5", Name: "Jacket", Description: "Warm", Price: "oops", Category: "women's clothing"},
	}
}

func TestQuery_SortByNameUsesCollation(t *testing.T) {
	page := Query{Sort: SortName}.Apply(viewFixture())
	assert.Equal(t, []string{"1", "4", "5", "3", "2"}, ids(page.Products))
}

func TestQuery_SortByPrice(t *testing.T) {
	page := Query{Sort: SortPriceAsc}.Apply(viewFixture())
	assert.Equal(t, []string{"5", "2", "4", "1", "3"}, ids(page.Products))

	page = Query{Sort: SortPriceDesc}.Apply(viewFixture())
	assert.Equal(t, []string{"3", "1", "4", "2", "5"}, ids(page.Products))
}

func TestQuery_SearchMatchesNameOrDescription(t *testing.T) {
	page := Query{Search: "LAPTOP"}.Apply(viewFixture())
	assert.Equal(t, []string{"1", "4"}, ids(page.Products))
	assert.Equal(t, 2, page.Total)
}

func TestQuery_FavoritesAndCategory(t *testing.T) {
	page := Query{Show: ShowFavorites}.Apply(viewFixture())
	assert.Equal(t, []string{"4", "2"}, ids(page.Products))

	page = Query{Show: ShowFavorites, Category: "electronics"}.Apply(viewFixture())
	assert.Equal(t, []string{"4"}, ids(page.Products))

	page = Query{Show: ShowAll, Category: AllCategories}.Apply(viewFixture())
	assert.Equal(t, 5, page.Total)
}

func TestQuery_Pagination(t *testing.T) {
	page := Query{PageSize: 2, Page: 2, Sort: SortPriceAsc}.Apply(viewFixture())
	assert.Equal(t, []string{"4", "1"}, ids(page.Products))
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, 2, page.Page)

	page = Query{PageSize: 2, Page: 99}.Apply(viewFixture())
	assert.Equal(t, 3, page.Page)
	assert.Len(t, page.Products, 1)

	page = Query{PageSize: 2, Page: -1}.Apply(viewFixture())
	assert.Equal(t, 1, page.Page)
}

func TestQuery_EmptyResult(t *testing.T) {
	page := Query{Search: "nothing matches"}.Apply(viewFixture())
	assert.Empty(t, page.Products)
	assert.Equal(t, 0, page.TotalPages)
	assert.Equal(t, 1, page.Page)
	// categories always come from the unfiltered list
	assert.Len(t, page.Categories, 4)
}

func TestQuery_DoesNotReorderInput(t *testing.T) {
	products := viewFixture()
	Query{Sort: SortPriceDesc}.Apply(products)
	assert.Equal(t, []string{"1", "2", "3", "4", "5"}, ids(products))
}

func TestCategories_FirstSeenOrder(t *testing.T) {
	assert.Equal(t,
		[]string{"men's clothing", "jewelery", "electronics", "women's clothing"},
		Categories(viewFixture()),
	)
}

func TestPopular(t *testing.T) {
	top := Popular(viewFixture(), 0)
	require.Len(t, top, PopularCount)
	assert.Equal(t, []string{"1", "2", "3", "4"}, ids(top))

	assert.Len(t, Popular(viewFixture()[:2], 4), 2)
	assert.Empty(t, Popular(nil, 4))
}
