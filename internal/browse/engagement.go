package browse

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"garagesale/internal/domain"
)

const maxConcurrentIncrements = 4

// Counters issues view and search increments at most once per listing per
// session.
type Counters struct {
	Store   Store
	Session *Session
	Log     *zap.Logger
}

// CountViews increments views for every listing not yet viewed in the
// session and returns how many increments succeeded.
func (c *Counters) CountViews(ctx context.Context, items []domain.Listing) int {
	return c.count(ctx, viewCounter, items, c.Store.IncrementView)
}

// CountSearches does the same for search hits. Callers re-fetch when the
// result is non-zero so the rendered counts include the increments.
func (c *Counters) CountSearches(ctx context.Context, items []domain.Listing) int {
	return c.count(ctx, searchCounter, items, c.Store.IncrementSearch)
}

func (c *Counters) count(ctx context.Context, k counterKind, items []domain.Listing, inc func(context.Context, int64) error) int {
	var (
		g  errgroup.Group
		ok atomic.Int64
	)
	g.SetLimit(maxConcurrentIncrements)
	for _, l := range items {
		id := l.ID
		if !c.Session.claim(k, id) {
			continue
		}
		g.Go(func() error {
			err := inc(ctx, id)
			c.Session.settle(k, id, err == nil)
			if err != nil {
				logger(c.Log).Warn("engagement.increment.fail",
					zap.String("kind", k.String()), zap.Int64("id", id), zap.Error(err))
				return nil
			}
			ok.Add(1)
			return nil
		})
	}
	_ = g.Wait()
	return int(ok.Load())
}

func (k counterKind) String() string {
	if k == searchCounter {
		return "search"
	}
	return "view"
}
