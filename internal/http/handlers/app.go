package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	html "github.com/gofiber/template/html/v2"

	"garagesale/internal/config"
	applog "garagesale/internal/log"
)

// NewApp builds the fiber app with middleware and every route.
func NewApp(cfg config.Config, deps *Deps) *fiber.App {
	engine := html.New(cfg.TemplatesDir, ".html")

	app := fiber.New(fiber.Config{
		Views:        engine,
		ErrorHandler: errorHandler,
	})
	// Global body size guard
	app.Server().MaxRequestBodySize = 1 << 20 // 1 MiB

	// ---------- Middlewares ----------
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} ${method} ${path} ${latency}\n",
	}))
	app.Use(helmet.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type",
	}))
	if cfg.RateLimit > 0 {
		app.Use(limiter.New(limiter.Config{
			Max:        cfg.RateLimit,
			Expiration: time.Minute,
			Next: func(c *fiber.Ctx) bool {
				p := c.Path()
				return strings.HasPrefix(p, "/uploads/") || p == "/healthz" || p == "/metrics"
			},
			LimitReached: func(c *fiber.Ctx) error {
				applog.Security(c, "rate.global.hit", nil)
				return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate limit exceeded, retry soon"})
			},
		}))
	}

	// ---------- Static media ----------
	app.Get("/uploads/*", deps.MediaHandler.Serve)

	// ---------- Browse pages ----------
	app.Get("/", deps.BrowseHandler.Page)
	app.Get("/browse", deps.BrowseHandler.Page)

	// ---------- API ----------
	app.Get("/products", deps.ProductHandler.List)
	app.Post("/products", deps.ProductHandler.Publish)
	app.Get("/products/:id", deps.ProductHandler.Detail)
	app.Post("/products/:id/view", deps.EngagementHandler.View)
	app.Post("/products/:id/search", deps.EngagementHandler.Search)
	app.Post("/products/:id/featured", deps.EngagementHandler.Featured)
	app.Get("/categories", deps.ReferenceHandler.Categories)
	app.Get("/locations", deps.ReferenceHandler.Locations)

	suggest := []fiber.Handler{}
	if cfg.SearchRateLimit > 0 {
		suggest = append(suggest, limiter.New(limiter.Config{
			Max:        cfg.SearchRateLimit,
			Expiration: time.Minute,
			KeyGenerator: func(c *fiber.Ctx) string {
				return c.IP() + "|suggest"
			},
			LimitReached: func(c *fiber.Ctx) error {
				applog.Security(c, "rate.suggest.hit", nil)
				return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate limit exceeded, retry soon"})
			},
		}))
	}
	app.Get("/search/suggestions", append(suggest, deps.SearchHandler.Suggestions)...)

	// ---------- Ops ----------
	app.Get("/healthz", func(c *fiber.Ctx) error { return c.JSON(fiber.Map{"ok": true}) })
	if deps.Metrics != nil {
		app.Get("/metrics", deps.Metrics.Handler())
	}

	app.Use(func(c *fiber.Ctx) error {
		if wantsHTML(c) {
			return c.Status(fiber.StatusNotFound).Render("notfound", fiber.Map{"Message": "Page not found"})
		}
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	})
	return app
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "Something went wrong. Please try again."
	if fe, ok := err.(*fiber.Error); ok && fe.Code < fiber.StatusInternalServerError {
		code, msg = fe.Code, fe.Message
	} else {
		applog.Error(c, "server.error", err, nil)
	}
	if wantsHTML(c) {
		// Avoid leaking internals; best-effort render
		if rerr := c.Status(code).Render("notfound", fiber.Map{"Message": msg}); rerr == nil {
			return nil
		}
	}
	return c.Status(code).JSON(fiber.Map{"error": msg})
}

// RunFeaturedBatch runs the featured batch until ctx ends. A zero interval
// disables it.
func RunFeaturedBatch(ctx context.Context, deps *Deps, every time.Duration) {
	if every <= 0 {
		return
	}
	deps.Batch.Run(ctx, every)
}
