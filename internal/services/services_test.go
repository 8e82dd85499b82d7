package services

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"garagesale/internal/clock"
	"garagesale/internal/domain"
	"garagesale/internal/repos"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type env struct {
	db    *sqlx.DB
	clk   *clock.MockClock
	lists *repos.ListingRepo
	cats  *repos.CategoryRepo
	locs  *repos.LocationRepo
}

// newEnv opens an in-memory store seeded with the demo catalog.
func newEnv(t *testing.T) env {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, repos.SeedDemo(db, now))
	return env{
		db:    db,
		clk:   clock.NewMock(now),
		lists: repos.NewListingRepo(db),
		cats:  repos.NewCategoryRepo(db),
		locs:  repos.NewLocationRepo(db),
	}
}

func (e env) publish(t *testing.T, title, category string) int64 {
	t.Helper()
	id, err := e.lists.Create(context.Background(), domain.NewListing{
		Title:         title,
		Price:         1000,
		LocalityID:    10,
		Categories:    []string{category},
		Condition:     "New",
		EndsAt:        now.Add(5 * 24 * time.Hour),
		SellerName:    "Tienda Rosario",
		SellerContact: "rosario@example.com",
		Images:        []string{"x.jpg"},
	}, now)
	require.NoError(t, err)
	return id
}
