package handlers

import (
	"context"

	"garagesale/internal/domain"
	"garagesale/internal/services"
)

// localStore lets the server-rendered browse page drive the same flow a
// remote client does, without the HTTP hop.
type localStore struct {
	catalog    *services.CatalogService
	engagement *services.EngagementService
}

func (s *localStore) Query(ctx context.Context, f domain.ListingFilter) (domain.ListingPage, error) {
	return s.catalog.Query(ctx, f)
}

func (s *localStore) IncrementView(ctx context.Context, id int64) error {
	_, err := s.engagement.IncrementView(ctx, id)
	return err
}

func (s *localStore) IncrementSearch(ctx context.Context, id int64) error {
	_, err := s.engagement.IncrementSearch(ctx, id)
	return err
}

func (s *localStore) SetFeatured(ctx context.Context, id int64, featured bool) error {
	return s.engagement.SetFeatured(ctx, id, featured)
}
