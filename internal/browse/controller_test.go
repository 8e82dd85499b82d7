package browse

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"garagesale/internal/clock"
	"garagesale/internal/domain"
)

func newController(store *fakeStore, sug Suggester) *Controller {
	return NewController(context.Background(), store, sug, NewSession(), Config{
		PageSize: 15,
		Clock:    clock.NewMock(testNow),
	})
}

func catalog() []domain.Listing {
	var items []domain.Listing
	for i := int64(1); i <= 8; i++ {
		items = append(items, listing(i, fmt.Sprintf("Bicicleta %d", i), 0))
	}
	items = append(items, listing(20, "Lámpara de pie", 3), listing(21, "Lámpara de mesa", 1))
	return items
}

func TestNewerQueryWinsOverLateStaleResponse(t *testing.T) {
	store := newFakeStore(catalog()...)
	release := make(chan struct{})
	store.gate = func(f domain.ListingFilter) <-chan struct{} {
		if f.Search == "Lámpara" {
			return release
		}
		return nil
	}
	c := newController(store, nil)

	c.Search("Lámpara") // A: held until released
	c.Search("Bicicleta")

	require.Eventually(t, func() bool {
		st := c.State()
		return !st.Loading && st.Page.Total == 8
	}, time.Second, 5*time.Millisecond)

	close(release)
	c.Drain()

	st := c.State()
	assert.Equal(t, "Bicicleta", st.Filter.Search)
	assert.Equal(t, "Bicicleta", st.Request.Search)
	assert.Equal(t, 8, st.Page.Total)
	require.Len(t, st.View.Cards, 8)
	for _, card := range st.View.Cards {
		assert.Contains(t, card.Title, "Bicicleta")
	}
	assert.Zero(t, store.searchCalls(20), "the stale response triggers no side effects")
	assert.Zero(t, store.viewCalls(20))
}

func TestLoadingFlagAndInlineError(t *testing.T) {
	store := newFakeStore(catalog()...)
	release := make(chan struct{})
	store.gate = func(domain.ListingFilter) <-chan struct{} { return release }
	store.queryErr = errStoreDown
	c := newController(store, nil)

	c.SetCategory("Deportes")
	assert.True(t, c.State().Loading)

	close(release)
	c.Drain()
	st := c.State()
	assert.False(t, st.Loading)
	assert.Equal(t, QueryErrorMessage, st.Err)

	store.mu.Lock()
	store.queryErr = nil
	store.mu.Unlock()
	c.Refresh()
	c.Drain()
	assert.Empty(t, c.State().Err)
}

func TestSearchScenarioCountsSearchesOnceThenRefetches(t *testing.T) {
	store := newFakeStore(catalog()...)
	c := newController(store, nil)

	c.Search("bicicleta")
	c.Drain()

	st := c.State()
	assert.LessOrEqual(t, len(st.Page.Items), st.Request.PageSize)
	assert.GreaterOrEqual(t, st.Page.Total, len(st.Page.Items))
	assert.Equal(t, 8, st.Page.Total)
	assert.Len(t, st.View.Cards, 8)
	assert.Nil(t, st.View.Pagination)
	assert.Equal(t, 2, store.queryCount(), "query plus one re-fetch")
	for _, l := range st.Page.Items {
		assert.EqualValues(t, 1, l.Searches, "re-fetched page shows the increment")
		assert.Equal(t, 1, store.searchCalls(l.ID))
		assert.Equal(t, 1, store.viewCalls(l.ID))
	}
	assert.Equal(t, []string{"bicicleta"}, st.Recent)

	// Same ids again: nothing new to count, so no re-fetch.
	c.Refresh()
	c.Drain()
	assert.Equal(t, 3, store.queryCount())
	for _, l := range st.Page.Items {
		assert.Equal(t, 1, store.searchCalls(l.ID))
		assert.Equal(t, 1, store.viewCalls(l.ID))
	}
}

func TestHomeViewRecalculatesFeaturedWithoutWaiting(t *testing.T) {
	items := catalog()
	for i := range items {
		items[i].Featured = true
		items[i].Searches = int64(i * 5)
	}
	store := newFakeStore(items...)
	c := newController(store, nil)

	c.Refresh()
	c.Drain()

	st := c.State()
	assert.True(t, st.Request.FeaturedOnly)
	assert.Len(t, st.View.Cards, 10)
	for _, card := range st.View.Cards {
		assert.True(t, card.Featured, "the fetched page renders with its known flags")
	}
	assert.Len(t, store.featuredIDs(), domain.FeaturedSlots)
	assert.Equal(t, []int64{5, 6, 7, 8, 20, 21}, store.featuredIDs())
	assert.Equal(t, 1, store.queryCount(), "home view does not re-fetch")
	assert.Zero(t, store.searchCalls(21), "home view counts views only")
	assert.Equal(t, 1, store.viewCalls(21))

	c.Refresh()
	c.Drain()
	assert.Len(t, c.State().View.Cards, domain.FeaturedSlots, "next home fetch sees the new set")
}

func TestSettleDoesNotWaitForBackgroundEffects(t *testing.T) {
	items := catalog()
	for i := range items {
		items[i].Featured = true
		items[i].Searches = int64(i * 5)
	}
	store := newFakeStore(items...)
	store.featuredGate = make(chan struct{})
	store.viewGate = make(chan struct{})
	c := newController(store, nil)

	c.Refresh()
	done := make(chan struct{})
	go func() {
		c.Settle()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Settle waited on featured mutations or view counts")
	}

	st := c.State()
	assert.False(t, st.Loading)
	assert.Len(t, st.View.Cards, 10)
	assert.Len(t, store.featuredIDs(), 10, "demotions still held")
	assert.Zero(t, store.viewCalls(21))

	close(store.featuredGate)
	close(store.viewGate)
	c.Drain()
	assert.Equal(t, []int64{5, 6, 7, 8, 20, 21}, store.featuredIDs())
	assert.Equal(t, 1, store.viewCalls(21))
}

func TestSettleWaitsForSearchCountRefetch(t *testing.T) {
	store := newFakeStore(catalog()...)
	store.viewGate = make(chan struct{})
	c := newController(store, nil)

	c.Search("lámpara")
	c.Settle()

	st := c.State()
	require.Len(t, st.Page.Items, 2)
	for _, l := range st.Page.Items {
		assert.Equal(t, 1, store.searchCalls(l.ID))
	}
	assert.EqualValues(t, 4, st.Page.Items[0].Searches, "rendered counts include this search")
	assert.Equal(t, 2, store.queryCount())

	close(store.viewGate)
	c.Drain()
	assert.Equal(t, 1, store.viewCalls(20))
}

func TestEffectsUseTheirOwnContext(t *testing.T) {
	store := newFakeStore(catalog()...)
	ctx, cancel := context.WithCancel(context.Background())
	seen := make(chan context.Context, 16)
	c := NewController(ctx, ctxRecorder{fakeStore: store, seen: seen}, nil, NewSession(), Config{
		PageSize:       15,
		Clock:          clock.NewMock(testNow),
		EffectsContext: context.WithoutCancel(ctx),
	})

	c.Search("bicicleta")
	c.Settle()
	cancel()
	c.Drain()
	close(seen)
	n := 0
	for got := range seen {
		assert.NoError(t, got.Err(), "view counting outlives the request")
		n++
	}
	assert.Equal(t, 8, n)
}

// ctxRecorder reports the context each view increment runs under.
type ctxRecorder struct {
	*fakeStore
	seen chan context.Context
}

func (r ctxRecorder) IncrementView(ctx context.Context, id int64) error {
	r.seen <- ctx
	return r.fakeStore.IncrementView(ctx, id)
}

func TestFeaturedRecalculationOnlyOnFirstHomePage(t *testing.T) {
	items := catalog()
	for i := range items {
		items[i].Featured = true
	}
	store := newFakeStore(items...)
	c := NewController(context.Background(), store, nil, nil, Config{PageSize: 5})

	c.GoToPage(2)
	c.Drain()
	assert.True(t, c.State().Request.FeaturedOnly)
	assert.Empty(t, store.featured)

	c.SetCategory("Deportes")
	c.Drain()
	assert.Empty(t, store.featured)
}

func TestSuggestionsIgnoreShortTermsAndStaleAnswers(t *testing.T) {
	sug := &fakeSuggester{
		res: map[string]domain.SuggestionResult{
			"bi":  {Suggestions: []domain.Suggestion{{Text: "Bicicleta 1", Type: domain.SuggestProduct}}},
			"bic": {Suggestions: []domain.Suggestion{{Text: "Bicicleta 2", Type: domain.SuggestProduct}}},
		},
		gate: map[string]chan struct{}{"bi": make(chan struct{})},
	}
	c := newController(newFakeStore(), sug)
	c.SetCategory("Deportes")
	c.Drain()

	c.Type("b")
	assert.False(t, c.State().Panel.Open)

	c.Type("bi")
	c.Type("bic")
	require.Eventually(t, func() bool { return c.State().Panel.Open }, time.Second, 5*time.Millisecond)
	close(sug.gate["bi"])
	c.Drain()

	p := c.State().Panel
	assert.Equal(t, "bic", p.Term)
	require.Len(t, p.Items, 1)
	assert.Equal(t, "Bicicleta 2", p.Items[0].Text)
	assert.ElementsMatch(t, []string{"bi|Deportes", "bic|Deportes"}, sug.calls)
}

func TestSuggestionFailureShowsNothing(t *testing.T) {
	sug := &fakeSuggester{err: errStoreDown}
	c := newController(newFakeStore(), sug)
	c.Type("mesa")
	c.Drain()
	st := c.State()
	assert.False(t, st.Panel.Open)
	assert.Empty(t, st.Err)
}

func TestSelectingSellerSuggestionQueriesBySeller(t *testing.T) {
	store := newFakeStore(catalog()...)
	c := newController(store, nil)
	c.Search("Lámpara")
	c.Drain()

	c.Select(domain.Suggestion{Text: "Vendedor", Type: domain.SuggestSeller, SellerID: 12})
	c.Drain()
	st := c.State()
	assert.Empty(t, st.Request.Search)
	assert.EqualValues(t, 12, st.Request.SellerID)
	for _, l := range st.Page.Items {
		assert.EqualValues(t, 12, l.Seller.ID)
	}
	assert.Equal(t, []string{"Lámpara"}, st.Recent, "seller picks are not searches")
}

func TestStagedPriceDoesNotQueryUntilApplied(t *testing.T) {
	store := newFakeStore(catalog()...)
	c := newController(store, nil)

	c.StagePrice("1x0", "9000")
	assert.Zero(t, store.queryCount())

	c.ApplyPrice()
	c.Drain()
	req := c.State().Request
	require.NotNil(t, req.PriceMin)
	assert.Equal(t, 10.0, *req.PriceMin)
	assert.Equal(t, 9000.0, *req.PriceMax)
	assert.False(t, req.FeaturedOnly)
}
