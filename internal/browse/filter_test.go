package browse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"garagesale/internal/domain"
)

// Every filter dimension paired with a setter that activates it.
var dimensions = []struct {
	name string
	set  func(*Filter)
}{
	{"search", func(f *Filter) { f.Search = "bicicleta" }},
	{"category", func(f *Filter) { f.SetCategory("Deportes") }},
	{"condition", func(f *Filter) { f.SetCondition(domain.ConditionNew) }},
	{"location", func(f *Filter) { f.SetLocation("Córdoba") }},
	{"ends_in", func(f *Filter) { f.SetEndsIn(domain.EndsTomorrow) }},
	{"seller", func(f *Filter) {
		f.SelectSuggestion(domain.Suggestion{Type: domain.SuggestSeller, Text: "Ana", SellerID: 7})
	}},
	{"price_min", func(f *Filter) { f.StagePriceMin("100"); f.ApplyPrice() }},
	{"price_max", func(f *Filter) { f.StagePriceMax("900"); f.ApplyPrice() }},
}

func TestFeaturedOnlyOverAllDimensionCombinations(t *testing.T) {
	for mask := 0; mask < 1<<len(dimensions); mask++ {
		f := Filter{}
		var active []string
		for i, d := range dimensions {
			if mask&(1<<i) == 0 {
				continue
			}
			d.set(&f)
			active = append(active, d.name)
		}
		want := mask == 0
		assert.Equal(t, want, FeaturedOnly(f), "active=%v", active)
		assert.Equal(t, want, f.Request(15).FeaturedOnly, "active=%v", active)
		assert.Equal(t, !want, f.Active(), "active=%v", active)
	}
}

func TestSelectingLocationOrSellerClearsSearch(t *testing.T) {
	cases := []domain.Suggestion{
		{Type: domain.SuggestLocation, Text: "Rosario"},
		{Type: domain.SuggestSeller, Text: "Ana", SellerID: 7},
		{Type: domain.SuggestSeller, Text: "42"},
	}
	for _, s := range cases {
		t.Run(string(s.Type)+"/"+s.Text, func(t *testing.T) {
			f := Filter{}
			f.SetSearch("lampara")
			f.SetCategory("Hogar")

			f.SelectSuggestion(s)
			once := f
			f.SelectSuggestion(s)

			assert.Empty(t, f.Search)
			assert.Equal(t, once, f, "selecting twice must be idempotent")
			assert.Equal(t, "Hogar", f.Category, "sidebar filters are kept")
			assert.Equal(t, 1, f.Page)
		})
	}

	f := Filter{}
	f.SelectSuggestion(domain.Suggestion{Type: domain.SuggestSeller, Text: "Ana"})
	assert.Zero(t, f.SellerID, "non-numeric seller text without id is ignored")
}

func TestSelectingProductSetsSearch(t *testing.T) {
	f := Filter{}
	f.SetCategory("Hogar")
	f.SelectSuggestion(domain.Suggestion{Type: domain.SuggestProduct, Text: "Lámpara de pie"})
	assert.Equal(t, "Lámpara de pie", f.Search)
	assert.Empty(t, f.Category, "a new term resets the sidebar")
}

func TestChangingSearchResetsSidebar(t *testing.T) {
	f := Filter{}
	f.SetSearch("mesa")
	f.SetCategory("Hogar")
	f.SetCondition(domain.ConditionUsed)
	f.SetLocation("Santa Fe")
	f.SetEndsIn(domain.Ends7Plus)
	f.StagePriceMin("10")
	f.StagePriceMax("500")
	f.ApplyPrice()
	f.SetPage(3)

	f.SetSearch(" mesa ")
	assert.Equal(t, "Hogar", f.Category, "same term is not a change")
	assert.Equal(t, 3, f.Page)

	f.SetSearch("silla")
	assert.Equal(t, Filter{Search: "silla", Page: 1}, f)
}

func TestSidebarChangesMergeAndResetPage(t *testing.T) {
	f := Filter{}
	f.SetCategory("Hogar")
	f.SetPage(4)
	f.SetCondition(domain.ConditionNew)

	req := f.Request(15)
	assert.Equal(t, "Hogar", req.Category)
	assert.Equal(t, domain.ConditionNew, req.Condition)
	assert.Equal(t, 1, req.Page)
	assert.True(t, req.ActiveOnly)
	assert.False(t, req.FeaturedOnly)
}

func TestPriceIsStagedThenAppliedTogether(t *testing.T) {
	f := Filter{}
	assert.Equal(t, "1500", f.StagePriceMin("$1.500"))
	assert.Equal(t, "", f.StagePriceMax("abc"))
	assert.Equal(t, "20000", f.StagePriceMax("20 000"))

	assert.Empty(t, f.PriceMin, "typing does not apply")
	assert.True(t, FeaturedOnly(f))

	f.ApplyPrice()
	req := f.Request(0)
	require.NotNil(t, req.PriceMin)
	require.NotNil(t, req.PriceMax)
	assert.Equal(t, 1500.0, *req.PriceMin)
	assert.Equal(t, 20000.0, *req.PriceMax)
	assert.Equal(t, domain.DefaultPageSize, req.PageSize)
}

func TestHomeRequiresFirstPage(t *testing.T) {
	f := Filter{}
	assert.True(t, Home(f))
	f.SetPage(2)
	assert.False(t, Home(f))
	assert.True(t, FeaturedOnly(f))
	f.Reset()
	assert.True(t, Home(f))
}
