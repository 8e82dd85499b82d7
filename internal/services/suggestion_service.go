package services

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"garagesale/internal/clock"
	"garagesale/internal/domain"
	"garagesale/internal/metrics"
	"garagesale/internal/repos"
)

const (
	// MinSuggestLen is the shortest query worth answering.
	MinSuggestLen  = 2
	maxSuggestions = 8
	// vocabularyTTL bounds how stale the spelling vocabulary may get.
	vocabularyTTL = time.Minute
)

// SuggestionCache is the optional shared cache in front of Suggest.
type SuggestionCache interface {
	Get(ctx context.Context, query, category string) (*domain.SuggestionResult, error)
	Set(ctx context.Context, query, category string, res domain.SuggestionResult) error
	Flush(ctx context.Context) error
}

type SuggestionService struct {
	Listings *repos.ListingRepo
	Cats     *repos.CategoryRepo
	Cache    SuggestionCache
	Clock    clock.Clock
	Metrics  *metrics.Metrics
	Log      *zap.Logger

	mu      sync.Mutex
	speller *Speller
	builtAt time.Time
}

func NewSuggestionService(listings *repos.ListingRepo, cats *repos.CategoryRepo, clk clock.Clock) *SuggestionService {
	return &SuggestionService{Listings: listings, Cats: cats, Clock: clk, Log: zap.NewNop()}
}

// Suggest returns autocomplete candidates for query, scoped to category when
// set, plus a spelling correction. Queries under MinSuggestLen characters get
// an empty answer without touching the store.
func (s *SuggestionService) Suggest(ctx context.Context, query, category string) (domain.SuggestionResult, error) {
	query = strings.TrimSpace(query)
	empty := domain.SuggestionResult{Suggestions: []domain.Suggestion{}}
	if utf8.RuneCountInString(query) < MinSuggestLen {
		return empty, nil
	}
	needle := domain.Fold(query)

	if s.Cache != nil {
		hit, err := s.Cache.Get(ctx, needle, category)
		if err != nil {
			s.Log.Warn("suggest.cache.get.fail", zap.Error(err))
		}
		s.Metrics.CacheLookup(hit != nil)
		if hit != nil {
			return *hit, nil
		}
	}

	cats, err := s.Cats.List(ctx)
	if err != nil {
		return empty, err
	}
	active, err := s.Listings.ListActive(ctx, category, s.Clock.Now())
	if err != nil {
		return empty, err
	}

	out := make([]domain.Suggestion, 0, maxSuggestions)
	for _, c := range cats {
		if category != "" && c.Name != category {
			continue
		}
		if strings.Contains(domain.Fold(c.Name), needle) {
			out = append(out, domain.Suggestion{Text: c.Name, Type: domain.SuggestCategory})
		}
	}

	products := map[[2]string]struct{}{}
	places := map[string]struct{}{}
	sellers := map[string]struct{}{}
	for _, l := range active {
		if len(out) >= maxSuggestions {
			break
		}
		firstCat := "Otros"
		if len(l.Categories) > 0 {
			firstCat = l.Categories[0].Name
		}
		if t := domain.Fold(l.Title); strings.Contains(t, needle) {
			k := [2]string{t, firstCat}
			if _, dup := products[k]; !dup {
				products[k] = struct{}{}
				out = append(out, domain.Suggestion{Text: l.Title, Type: domain.SuggestProduct, Category: firstCat})
			}
		}
		if l.Locality != nil && strings.Contains(domain.Fold(l.Locality.Name), needle) {
			k := strings.ToLower(strings.TrimSpace(l.Locality.Name))
			if _, dup := places[k]; !dup {
				places[k] = struct{}{}
				out = append(out, domain.Suggestion{Text: l.Locality.Name, Type: domain.SuggestLocation})
			}
		}
		if strings.Contains(domain.Fold(l.Seller.Name), needle) {
			k := strings.ToLower(strings.TrimSpace(l.Seller.Name))
			if _, dup := sellers[k]; !dup {
				sellers[k] = struct{}{}
				out = append(out, domain.Suggestion{Text: l.Seller.Name, Type: domain.SuggestSeller, SellerID: l.Seller.ID})
			}
		}
	}
	if len(out) > maxSuggestions {
		out = out[:maxSuggestions]
	}

	res := domain.SuggestionResult{Suggestions: out}
	if fixed, ok, err := s.Correct(ctx, query); err != nil {
		s.Log.Warn("spelling.correct.fail", zap.String("query", query), zap.Error(err))
	} else if ok {
		res.Suggestion = &fixed
	}

	if s.Cache != nil {
		if err := s.Cache.Set(ctx, needle, category, res); err != nil {
			s.Log.Warn("suggest.cache.set.fail", zap.Error(err))
		}
	}
	return res, nil
}

// Correct implements Corrector over a vocabulary rebuilt from the active
// catalog at most once per vocabularyTTL.
func (s *SuggestionService) Correct(ctx context.Context, query string) (string, bool, error) {
	sp, err := s.vocabulary(ctx)
	if err != nil {
		return "", false, err
	}
	fixed, changed := sp.Correct(query)
	return fixed, changed, nil
}

// Invalidate forces the next lookup to rebuild the vocabulary and drops
// cached answers, so a new listing shows up in autocomplete right away.
func (s *SuggestionService) Invalidate(ctx context.Context) {
	s.mu.Lock()
	s.speller = nil
	s.mu.Unlock()
	if s.Cache != nil {
		if err := s.Cache.Flush(ctx); err != nil {
			s.Log.Warn("suggest.cache.flush.fail", zap.Error(err))
		}
	}
}

func (s *SuggestionService) vocabulary(ctx context.Context) (*Speller, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.Clock.Now()
	if s.speller != nil && now.Sub(s.builtAt) < vocabularyTTL {
		return s.speller, nil
	}
	cats, err := s.Cats.List(ctx)
	if err != nil {
		return nil, err
	}
	active, err := s.Listings.ListActive(ctx, "", now)
	if err != nil {
		return nil, err
	}
	sp := NewSpeller()
	for _, c := range cats {
		sp.Add(c.Name)
	}
	for _, l := range active {
		sp.Add(l.Title)
		sp.Add(l.Description)
		if l.Locality != nil {
			sp.Add(l.Locality.Name)
		}
	}
	s.speller, s.builtAt = sp, now
	return sp, nil
}
