package browse

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"garagesale/internal/domain"
)

// PlanFeatured ranks a home page by searches and returns which listings to
// promote and which to demote so that exactly the top FeaturedSlots are
// featured. Ties keep the store's order.
func PlanFeatured(items []domain.Listing) (promote, demote []int64) {
	ranked := append([]domain.Listing(nil), items...)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Searches > ranked[j].Searches })

	for i, l := range ranked {
		top := i < domain.FeaturedSlots
		switch {
		case top && !l.Featured:
			promote = append(promote, l.ID)
		case !top && l.Featured:
			demote = append(demote, l.ID)
		}
	}
	return promote, demote
}

// Recalculator persists the featured set for the home view. Nothing guards
// against two clients recalculating at once: the last writer wins per
// listing and the set converges on the next home view.
type Recalculator struct {
	Store Store
	Log   *zap.Logger
}

// Recalculate issues the mutations planned for items. Failures are logged
// and do not stop the remaining mutations.
func (r *Recalculator) Recalculate(ctx context.Context, items []domain.Listing) (promoted, demoted int) {
	promote, demote := PlanFeatured(items)
	for _, id := range promote {
		if r.set(ctx, id, true) {
			promoted++
		}
	}
	for _, id := range demote {
		if r.set(ctx, id, false) {
			demoted++
		}
	}
	return promoted, demoted
}

func (r *Recalculator) set(ctx context.Context, id int64, featured bool) bool {
	if err := r.Store.SetFeatured(ctx, id, featured); err != nil {
		logger(r.Log).Warn("featured.set.fail", zap.Int64("id", id), zap.Bool("featured", featured), zap.Error(err))
		return false
	}
	return true
}

func logger(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
