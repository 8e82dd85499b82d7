package handlers

import (
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"garagesale/internal/browse"
	"garagesale/internal/clock"
	"garagesale/internal/config"
	"garagesale/internal/metrics"
	"garagesale/internal/repos"
	"garagesale/internal/services"
)

type Deps struct {
	ProductHandler    *ProductHandler
	SearchHandler     *SearchHandler
	ReferenceHandler  *ReferenceHandler
	EngagementHandler *EngagementHandler
	BrowseHandler     *BrowseHandler
	MediaHandler      *MediaHandler

	Catalog     *services.CatalogService
	Suggestions *services.SuggestionService
	Batch       *services.FeaturedBatch
	Metrics     *metrics.Metrics
}

// Options carries the optional collaborators. Zero values are fine: the
// real clock, no metrics, no cache and a no-op logger.
type Options struct {
	Clock   clock.Clock
	Metrics *metrics.Metrics
	Cache   services.SuggestionCache
	Log     *zap.Logger
}

func NewDeps(db *sqlx.DB, cfg config.Config, opt Options) *Deps {
	if opt.Clock == nil {
		opt.Clock = clock.New()
	}
	if opt.Log == nil {
		opt.Log = zap.NewNop()
	}
	listingRepo := repos.NewListingRepo(db)
	catRepo := repos.NewCategoryRepo(db)
	locRepo := repos.NewLocationRepo(db)

	suggestSvc := services.NewSuggestionService(listingRepo, catRepo, opt.Clock)
	suggestSvc.Cache = opt.Cache
	suggestSvc.Metrics = opt.Metrics
	suggestSvc.Log = opt.Log.Named("suggest")

	catalogSvc := services.NewCatalogService(listingRepo, catRepo, locRepo, opt.Clock)
	catalogSvc.Speller = suggestSvc
	catalogSvc.Metrics = opt.Metrics
	catalogSvc.Log = opt.Log.Named("catalog")

	engagementSvc := services.NewEngagementService(listingRepo, opt.Metrics)

	batch := &services.FeaturedBatch{
		Listings: listingRepo,
		Clock:    opt.Clock,
		Metrics:  opt.Metrics,
		Log:      opt.Log.Named("featured"),
	}

	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 15
	}

	return &Deps{
		ProductHandler:    &ProductHandler{Catalog: catalogSvc, Vocabulary: suggestSvc},
		SearchHandler:     &SearchHandler{Service: suggestSvc},
		ReferenceHandler:  &ReferenceHandler{Catalog: catalogSvc},
		EngagementHandler: &EngagementHandler{Engagement: engagementSvc},
		BrowseHandler: &BrowseHandler{
			Store:    &localStore{catalog: catalogSvc, engagement: engagementSvc},
			Suggest:  suggestSvc,
			Catalog:  catalogSvc,
			Sessions: browse.NewRegistry(cfg.BrowseSessionTTL, opt.Clock),
			Clock:    opt.Clock,
			PageSize: pageSize,
			Log:      opt.Log.Named("browse"),
		},
		MediaHandler: NewMediaHandler(cfg.MediaDir),

		Catalog:     catalogSvc,
		Suggestions: suggestSvc,
		Batch:       batch,
		Metrics:     opt.Metrics,
	}
}
