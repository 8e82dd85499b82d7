package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"garagesale/internal/cache"
	"garagesale/internal/clock"
	"garagesale/internal/config"
	"garagesale/internal/http/handlers"
	applog "garagesale/internal/log"
	"garagesale/internal/metrics"
	"garagesale/internal/repos"
)

func main() {
	cfg := config.Load()

	logger, err := applog.Setup(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	if err != nil {
		log.Fatalf("[log] %v", err)
	}
	defer func() { _ = logger.Sync() }()

	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		logger.Fatal("db.open", zap.Error(err))
	}
	defer db.Close()

	clk := clock.New()
	if cfg.SeedDemo {
		if err := repos.SeedDemo(db, clk.Now()); err != nil {
			logger.Fatal("db.seed", zap.Error(err))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opt := handlers.Options{Clock: clk, Metrics: metrics.New("garagesale"), Log: logger}
	if cfg.RedisAddr != "" {
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		sc, err := cache.NewSuggestionCache(pingCtx, cfg.RedisAddr, cfg.SuggestionTTL)
		cancel()
		if err != nil {
			// autocomplete still works, just uncached
			logger.Warn("cache.redis.unavailable", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		} else {
			defer sc.Close()
			opt.Cache = sc
			logger.Info("cache.redis.ready", zap.String("addr", cfg.RedisAddr))
		}
	}

	deps := handlers.NewDeps(db, cfg, opt)
	app := handlers.NewApp(cfg, deps)

	go handlers.RunFeaturedBatch(ctx, deps, cfg.FeaturedBatchInterval)

	go func() {
		<-ctx.Done()
		logger.Info("server.shutdown")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logger.Error("server.shutdown.fail", zap.Error(err))
		}
	}()

	logger.Info("server.listen", zap.String("port", cfg.Port))
	if err := app.Listen(":" + cfg.Port); err != nil {
		logger.Error("server.listen.fail", zap.Error(err))
	}
}
