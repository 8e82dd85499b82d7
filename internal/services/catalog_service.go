package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"garagesale/internal/clock"
	"garagesale/internal/domain"
	"garagesale/internal/metrics"
	"garagesale/internal/repos"
)

// Corrector proposes a spelling correction for a search term.
type Corrector interface {
	Correct(ctx context.Context, query string) (string, bool, error)
}

type CatalogService struct {
	Listings  *repos.ListingRepo
	Cats      *repos.CategoryRepo
	Locations *repos.LocationRepo
	Speller   Corrector
	Clock     clock.Clock
	Metrics   *metrics.Metrics
	Log       *zap.Logger
}

func NewCatalogService(listings *repos.ListingRepo, cats *repos.CategoryRepo, locs *repos.LocationRepo, clk clock.Clock) *CatalogService {
	return &CatalogService{Listings: listings, Cats: cats, Locations: locs, Clock: clk, Log: zap.NewNop()}
}

// Query runs a filtered, paginated listing query.
func (s *CatalogService) Query(ctx context.Context, f domain.ListingFilter) (page domain.ListingPage, err error) {
	start := time.Now()
	defer func() { s.Metrics.ObserveQuery(start, err) }()

	if err := f.Normalize(); err != nil {
		return domain.ListingPage{}, err
	}
	scope, err := s.Locations.Resolve(ctx, f.Location)
	if err != nil {
		return domain.ListingPage{}, fmt.Errorf("resolve location %q: %w", f.Location, err)
	}
	items, total, err := s.Listings.Query(ctx, f, scope, s.Clock.Now())
	if err != nil {
		return domain.ListingPage{}, fmt.Errorf("query listings: %w", err)
	}
	page = domain.ListingPage{Items: items, Total: total}

	if f.Search != "" && s.Speller != nil {
		fixed, ok, err := s.Speller.Correct(ctx, f.Search)
		if err != nil {
			s.Log.Warn("spelling.correct.fail", zap.String("query", f.Search), zap.Error(err))
		} else if ok {
			page.Suggestion = fixed
		}
	}
	return page, nil
}

func (s *CatalogService) Get(ctx context.Context, id int64) (domain.Listing, error) {
	return s.Listings.Get(ctx, id)
}

// Publish validates and stores a new listing, returning it as stored.
func (s *CatalogService) Publish(ctx context.Context, n domain.NewListing) (domain.Listing, error) {
	if err := n.Validate(); err != nil {
		return domain.Listing{}, err
	}
	id, err := s.Listings.Create(ctx, n, s.Clock.Now())
	if err != nil {
		return domain.Listing{}, err
	}
	return s.Listings.Get(ctx, id)
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.Cats.List(ctx)
}

func (s *CatalogService) ListLocations(ctx context.Context) ([]domain.Province, []domain.Locality, error) {
	provs, err := s.Locations.Provinces(ctx)
	if err != nil {
		return nil, nil, err
	}
	locs, err := s.Locations.Localities(ctx)
	if err != nil {
		return nil, nil, err
	}
	return provs, locs, nil
}
