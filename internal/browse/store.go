// Package browse is the buyer-side search flow: filter state, result cards,
// engagement counting, featured promotion and the controller that ties them
// to a remote listing store.
package browse

import (
	"context"

	"garagesale/internal/domain"
)

// Store is the listing store as seen by a browse client.
type Store interface {
	Query(ctx context.Context, f domain.ListingFilter) (domain.ListingPage, error)
	IncrementView(ctx context.Context, id int64) error
	IncrementSearch(ctx context.Context, id int64) error
	SetFeatured(ctx context.Context, id int64, featured bool) error
}

// Suggester answers autocomplete lookups.
type Suggester interface {
	Suggest(ctx context.Context, query, category string) (domain.SuggestionResult, error)
}
