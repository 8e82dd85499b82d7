package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"garagesale/internal/clock"
	"garagesale/internal/domain"
	"garagesale/internal/metrics"
	"garagesale/internal/repos"
)

// FeaturedBatch periodically recomputes the featured set over the whole
// active catalog. It complements the best-effort recalculation browse
// clients perform on the home view.
type FeaturedBatch struct {
	Listings *repos.ListingRepo
	Clock    clock.Clock
	Metrics  *metrics.Metrics
	Log      *zap.Logger
}

// RunOnce promotes the top listings by searches and demotes the rest,
// including expired ones.
func (b *FeaturedBatch) RunOnce(ctx context.Context) (promoted, demoted []int64, err error) {
	promoted, demoted, err = b.Listings.RecomputeFeatured(ctx, domain.FeaturedSlots, b.Clock.Now())
	if err != nil {
		return nil, nil, err
	}
	b.Metrics.Featured("batch", len(promoted), len(demoted))
	return promoted, demoted, nil
}

// Run ticks until ctx is cancelled. Errors are logged and the next tick retries.
func (b *FeaturedBatch) Run(ctx context.Context, every time.Duration) {
	log := b.Log
	if log == nil {
		log = zap.NewNop()
	}
	log.Info("featured.batch.start", zap.Duration("interval", every))
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		promoted, demoted, err := b.RunOnce(ctx)
		switch {
		case err != nil && ctx.Err() == nil:
			log.Error("featured.batch.fail", zap.Error(err))
		case len(promoted)+len(demoted) > 0:
			log.Info("featured.batch.changes", zap.Int64s("promoted", promoted), zap.Int64s("demoted", demoted))
		default:
			log.Debug("featured.batch.unchanged")
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}
