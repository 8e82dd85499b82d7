package browse

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"garagesale/internal/domain"
)

var errStoreDown = errors.New("store unavailable")

type featuredCall struct {
	ID       int64
	Featured bool
}

// fakeStore is an in-memory listing store that records every call. gate, when
// set, may return a channel the query blocks on until closed; featuredGate
// and viewGate hold SetFeatured and IncrementView the same way.
type fakeStore struct {
	mu       sync.Mutex
	listings map[int64]*domain.Listing
	queries  []domain.ListingFilter
	views    map[int64]int
	searches map[int64]int
	featured []featuredCall
	queryErr error
	failInc  map[int64]bool
	gate     func(domain.ListingFilter) <-chan struct{}

	featuredGate chan struct{}
	viewGate     chan struct{}
}

func newFakeStore(items ...domain.Listing) *fakeStore {
	s := &fakeStore{
		listings: map[int64]*domain.Listing{},
		views:    map[int64]int{},
		searches: map[int64]int{},
		failInc:  map[int64]bool{},
	}
	for i := range items {
		l := items[i]
		s.listings[l.ID] = &l
	}
	return s
}

func (s *fakeStore) Query(ctx context.Context, f domain.ListingFilter) (domain.ListingPage, error) {
	s.mu.Lock()
	s.queries = append(s.queries, f)
	gate := s.gate
	err := s.queryErr
	s.mu.Unlock()

	if gate != nil {
		if ch := gate(f); ch != nil {
			<-ch
		}
	}
	if err != nil {
		return domain.ListingPage{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var match []domain.Listing
	for _, l := range s.listings {
		if f.FeaturedOnly && !l.Featured {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(l.Title), strings.ToLower(f.Search)) {
			continue
		}
		if f.SellerID != 0 && l.Seller.ID != f.SellerID {
			continue
		}
		if f.Category != "" && (len(l.Categories) == 0 || l.Categories[0].Name != f.Category) {
			continue
		}
		match = append(match, *l)
	}
	sort.Slice(match, func(i, j int) bool {
		a, b := match[i], match[j]
		if a.Searches != b.Searches {
			return a.Searches > b.Searches
		}
		if a.Views != b.Views {
			return a.Views > b.Views
		}
		return a.ID > b.ID
	})
	page := domain.ListingPage{Total: len(match), Items: []domain.Listing{}}
	from := (f.Page - 1) * f.PageSize
	if from < len(match) {
		to := min(from+f.PageSize, len(match))
		page.Items = append(page.Items, match[from:to]...)
	}
	return page, nil
}

func (s *fakeStore) IncrementView(ctx context.Context, id int64) error {
	s.mu.Lock()
	gate := s.viewGate
	s.mu.Unlock()
	if gate != nil {
		<-gate
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failInc[id] {
		return errStoreDown
	}
	l, ok := s.listings[id]
	if !ok {
		return domain.ErrNotFound
	}
	s.views[id]++
	l.Views++
	return nil
}

func (s *fakeStore) IncrementSearch(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failInc[id] {
		return errStoreDown
	}
	l, ok := s.listings[id]
	if !ok {
		return domain.ErrNotFound
	}
	s.searches[id]++
	l.Searches++
	return nil
}

func (s *fakeStore) SetFeatured(ctx context.Context, id int64, featured bool) error {
	s.mu.Lock()
	gate := s.featuredGate
	s.mu.Unlock()
	if gate != nil {
		<-gate
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.listings[id]
	if !ok {
		return domain.ErrNotFound
	}
	s.featured = append(s.featured, featuredCall{id, featured})
	l.Featured = featured
	return nil
}

func (s *fakeStore) queryCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queries)
}

func (s *fakeStore) featuredIDs() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []int64
	for id, l := range s.listings {
		if l.Featured {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s *fakeStore) viewCalls(id int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.views[id]
}

func (s *fakeStore) searchCalls(id int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.searches[id]
}

type fakeSuggester struct {
	mu    sync.Mutex
	calls []string
	res   map[string]domain.SuggestionResult
	err   error
	gate  map[string]chan struct{}
}

func (f *fakeSuggester) Suggest(ctx context.Context, query, category string) (domain.SuggestionResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, query+"|"+category)
	ch := f.gate[query]
	f.mu.Unlock()
	if ch != nil {
		<-ch
	}
	if f.err != nil {
		return domain.SuggestionResult{}, f.err
	}
	return f.res[query], nil
}

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func listing(id int64, title string, searches int64) domain.Listing {
	return domain.Listing{
		ID:         id,
		Title:      title,
		Price:      float64(id * 1000),
		Condition:  domain.ConditionUsed,
		Categories: []domain.Category{{ID: 1, Name: "Deportes"}},
		Locality:   &domain.Locality{ID: 1, Name: "Rosario", ProvinceID: 3, ProvinceName: "Santa Fe"},
		Seller:     domain.Seller{ID: 10 + id%3, Name: "Vendedor"},
		Images:     []string{"img.jpg"},
		EndsAt:     testNow.Add(72 * time.Hour),
		Available:  true,
		Searches:   searches,
	}
}
