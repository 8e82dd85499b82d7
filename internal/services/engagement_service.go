package services

import (
	"context"

	"garagesale/internal/metrics"
	"garagesale/internal/repos"
)

// EngagementService applies counter increments and featured flips. Each call
// changes the store exactly once; deduplication belongs to the caller.
type EngagementService struct {
	Listings *repos.ListingRepo
	Metrics  *metrics.Metrics
}

func NewEngagementService(listings *repos.ListingRepo, m *metrics.Metrics) *EngagementService {
	return &EngagementService{Listings: listings, Metrics: m}
}

func (s *EngagementService) IncrementView(ctx context.Context, id int64) (int64, error) {
	n, err := s.Listings.IncrementViews(ctx, id)
	if err == nil {
		s.Metrics.Engaged("view")
	}
	return n, err
}

func (s *EngagementService) IncrementSearch(ctx context.Context, id int64) (int64, error) {
	n, err := s.Listings.IncrementSearches(ctx, id)
	if err == nil {
		s.Metrics.Engaged("search")
	}
	return n, err
}

func (s *EngagementService) SetFeatured(ctx context.Context, id int64, featured bool) error {
	if err := s.Listings.SetFeatured(ctx, id, featured); err != nil {
		return err
	}
	if featured {
		s.Metrics.Featured("client", 1, 0)
	} else {
		s.Metrics.Featured("client", 0, 1)
	}
	return nil
}
