package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"garagesale/internal/clock"
	"garagesale/internal/domain"
	"garagesale/internal/metrics"
)

type memCache struct {
	mu      sync.Mutex
	data    map[string]domain.SuggestionResult
	sets    int
	flushes int
}

func (c *memCache) Get(_ context.Context, q, cat string) (*domain.SuggestionResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if res, ok := c.data[cat+"|"+q]; ok {
		return &res, nil
	}
	return nil, nil
}

func (c *memCache) Set(_ context.Context, q, cat string, res domain.SuggestionResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.data == nil {
		c.data = map[string]domain.SuggestionResult{}
	}
	c.data[cat+"|"+q] = res
	c.sets++
	return nil
}

func (c *memCache) Flush(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = nil
	c.flushes++
	return nil
}

func texts(res domain.SuggestionResult, typ domain.SuggestionType) []string {
	var out []string
	for _, s := range res.Suggestions {
		if s.Type == typ {
			out = append(out, s.Text)
		}
	}
	return out
}

func TestSuggestShortQueryNeverTouchesStore(t *testing.T) {
	svc := NewSuggestionService(nil, nil, clock.NewMock(now))
	for _, q := range []string{"", " ", "a", " é "} {
		res, err := svc.Suggest(context.Background(), q, "")
		require.NoError(t, err)
		assert.NotNil(t, res.Suggestions)
		assert.Empty(t, res.Suggestions)
		assert.Nil(t, res.Suggestion)
	}
}

func TestSuggestMixesCategoriesProductsPlacesAndSellers(t *testing.T) {
	e := newEnv(t)
	svc := NewSuggestionService(e.lists, e.cats, e.clk)
	ctx := context.Background()

	res, err := svc.Suggest(ctx, "de", "")
	require.NoError(t, err)
	assert.Equal(t, domain.Suggestion{Text: "Deportes", Type: domain.SuggestCategory}, res.Suggestions[0], "categories lead")
	assert.ElementsMatch(t, []string{"Sillón de dos cuerpos", "Libros de cocina", "Lámpara de pie", "Pelota de fútbol"},
		texts(res, domain.SuggestProduct))

	res, err = svc.Suggest(ctx, "belgr", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"Belgrano"}, texts(res, domain.SuggestLocation), "one entry per place")

	res, err = svc.Suggest(ctx, "garc", "")
	require.NoError(t, err)
	require.Len(t, res.Suggestions, 1)
	assert.Equal(t, domain.Suggestion{Text: "María García", Type: domain.SuggestSeller, SellerID: 2}, res.Suggestions[0])
}

func TestSuggestFoldsAccentsAndCase(t *testing.T) {
	e := newEnv(t)
	svc := NewSuggestionService(e.lists, e.cats, e.clk)

	res, err := svc.Suggest(context.Background(), "LAMPARA", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"Lámpara de pie"}, texts(res, domain.SuggestProduct))
	assert.Equal(t, "Hogar y Jardín", res.Suggestions[0].Category)
}

func TestSuggestScopesToCategory(t *testing.T) {
	e := newEnv(t)
	svc := NewSuggestionService(e.lists, e.cats, e.clk)

	res, err := svc.Suggest(context.Background(), "de", "Deportes")
	require.NoError(t, err)
	assert.Equal(t, []string{"Deportes"}, texts(res, domain.SuggestCategory))
	assert.Equal(t, []string{"Pelota de fútbol"}, texts(res, domain.SuggestProduct))
}

func TestSuggestDedupsProductsAndCaps(t *testing.T) {
	e := newEnv(t)
	svc := NewSuggestionService(e.lists, e.cats, e.clk)
	e.publish(t, "Mesa ratona", "Muebles")
	e.publish(t, "Mesa Ratona", "Muebles")
	e.publish(t, "Mesa ratona", "Hogar y Jardín")

	res, err := svc.Suggest(context.Background(), "ratona", "")
	require.NoError(t, err)
	require.Len(t, res.Suggestions, 2, "same title and first category collapse")

	for i := 0; i < 12; i++ {
		e.publish(t, fmt.Sprintf("Mesa de luz %c", 'A'+i), "Muebles")
	}
	svc.Invalidate(context.Background())
	res, err = svc.Suggest(context.Background(), "mesa", "")
	require.NoError(t, err)
	assert.Len(t, res.Suggestions, maxSuggestions)
}

func TestSuggestSkipsExpiredListings(t *testing.T) {
	e := newEnv(t)
	svc := NewSuggestionService(e.lists, e.cats, e.clk)

	res, err := svc.Suggest(context.Background(), "bici", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"Bicicleta rodado 26"}, texts(res, domain.SuggestProduct))

	e.clk.Advance(13 * time.Hour)
	res, err = svc.Suggest(context.Background(), "bici", "")
	require.NoError(t, err)
	assert.Empty(t, res.Suggestions)
}

func TestSuggestOffersSpellingFix(t *testing.T) {
	e := newEnv(t)
	svc := NewSuggestionService(e.lists, e.cats, e.clk)

	res, err := svc.Suggest(context.Background(), "guitara", "")
	require.NoError(t, err)
	require.NotNil(t, res.Suggestion)
	assert.Equal(t, "guitarra", *res.Suggestion)

	res, err = svc.Suggest(context.Background(), "guitarra", "")
	require.NoError(t, err)
	assert.Nil(t, res.Suggestion)
}

func TestSuggestUsesCache(t *testing.T) {
	e := newEnv(t)
	m := metrics.New("test")
	c := &memCache{}
	svc := NewSuggestionService(e.lists, e.cats, e.clk)
	svc.Cache, svc.Metrics = c, m
	ctx := context.Background()

	first, err := svc.Suggest(ctx, "Lámp", "")
	require.NoError(t, err)
	second, err := svc.Suggest(ctx, "LAMP", "")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, c.sets)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SuggestionCache.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SuggestionCache.WithLabelValues("miss")))

	_, err = svc.Suggest(ctx, "lamp", "Muebles")
	require.NoError(t, err)
	assert.Equal(t, 2, c.sets, "category is part of the key")
}

func TestInvalidateDropsCachedAnswers(t *testing.T) {
	e := newEnv(t)
	c := &memCache{}
	svc := NewSuggestionService(e.lists, e.cats, e.clk)
	svc.Cache = c
	ctx := context.Background()

	res, err := svc.Suggest(ctx, "trompeta", "")
	require.NoError(t, err)
	assert.Empty(t, res.Suggestions)

	e.publish(t, "Trompeta", "Instrumentos Musicales")
	res, err = svc.Suggest(ctx, "trompeta", "")
	require.NoError(t, err)
	assert.Empty(t, res.Suggestions, "cached answer until invalidated")

	svc.Invalidate(ctx)
	assert.Equal(t, 1, c.flushes)
	res, err = svc.Suggest(ctx, "trompeta", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"Trompeta"}, texts(res, domain.SuggestProduct))
}

func TestVocabularyRefreshesAfterTTLOrInvalidate(t *testing.T) {
	e := newEnv(t)
	svc := NewSuggestionService(e.lists, e.cats, e.clk)
	ctx := context.Background()

	_, changed, err := svc.Correct(ctx, "trompta")
	require.NoError(t, err)
	assert.False(t, changed)

	e.publish(t, "Trompeta", "Instrumentos Musicales")
	_, changed, _ = svc.Correct(ctx, "trompta")
	assert.False(t, changed, "vocabulary is cached")

	svc.Invalidate(ctx)
	fixed, changed, err := svc.Correct(ctx, "trompta")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "trompeta", fixed)

	e.publish(t, "Saxofón", "Instrumentos Musicales")
	e.clk.Advance(vocabularyTTL)
	fixed, changed, _ = svc.Correct(ctx, "saxofon")
	assert.False(t, changed, "accent-folded words count as known: %q", fixed)
	fixed, changed, _ = svc.Correct(ctx, "saxfon")
	assert.True(t, changed)
	assert.Equal(t, "saxofón", fixed)
}
