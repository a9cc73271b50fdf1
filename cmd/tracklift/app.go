// cmd/tracklift/app.go
package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"tracklift/internal/browser"
	"tracklift/internal/cache"
	"tracklift/internal/config"
	"tracklift/internal/logging"
	"tracklift/internal/metadata"
	"tracklift/internal/monitoring"
	"tracklift/internal/requestqueue"
	"tracklift/internal/scraper"
	"tracklift/pkg/types"
)

// app bundles the wired engine components behind one cleanup handle.
type app struct {
	cfg        *config.Config
	logger     logging.Logger
	store      cache.Store
	scraper    *scraper.Scraper
	aggregator *metadata.Aggregator
	registry   *prometheus.Registry
}

// buildApp wires configuration, logging, cache tiers, the scraper and
// the metadata aggregator. withMetrics controls whether a Prometheus
// registry is created (the one-shot commands skip it).
func buildApp(withMetrics bool) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}

	var registry *prometheus.Registry
	var metrics *monitoring.Metrics
	if withMetrics {
		registry = prometheus.NewRegistry()
		metrics = monitoring.New(registry)
	}

	store, err := buildCache(cfg.Cache, logger)
	if err != nil {
		return nil, err
	}

	queue := requestqueue.New(cfg.Scraper.MaxConcurrency, cfg.Scraper.MinInterval.Std())
	engine := scraper.New(cfg.Scraper, queue, store, logger, metrics)

	catalog := metadata.NewCatalogProvider(cfg.Catalog, catalogFetcher(cfg.Scraper, queue, logger), logger, metrics)
	fallback := metadata.NewFallbackProvider(cfg.Catalog, logger)
	aggregator := metadata.NewAggregator(catalog, fallback, store, logger, metrics)

	engine.SetEnricher(func(ctx context.Context, title, artist string, enrich bool) *types.EnhancedMetadata {
		return aggregator.SearchMetadata(ctx, title, artist, metadata.SearchOptions{Enrich: enrich})
	})

	return &app{
		cfg:        cfg,
		logger:     logger,
		store:      store,
		scraper:    engine,
		aggregator: aggregator,
		registry:   registry,
	}, nil
}

func (a *app) close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.Warnf("failed to close cache: %v", err)
		}
	}
}

// buildCache assembles the memory tier plus the configured persistent
// tier, if any.
func buildCache(cfg config.CacheConfig, logger logging.Logger) (cache.Store, error) {
	fast := cache.NewMemoryStore(cfg.MaxEntries, cfg.SweepInterval.Std())

	var slow cache.Store
	switch {
	case cfg.RedisAddr != "":
		redis, err := cache.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		slow = redis
	case cfg.SQLitePath != "":
		sqlite, err := cache.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open cache database: %w", err)
		}
		slow = sqlite
	default:
		return fast, nil
	}

	return cache.NewTiered(fast, slow, logger), nil
}

// catalogFetcher picks the page fetcher for the catalog provider: the
// headless backend when available, the static fetch otherwise.
func catalogFetcher(cfg config.ScraperConfig, queue *requestqueue.Queue, logger logging.Logger) metadata.PageFetcher {
	if cfg.HeadlessEnabled {
		strategy := scraper.NewHeadlessStrategy(types.MethodHeadlessRobust, browser.DefaultConfig(), queue, cfg.UserAgents, logger)
		return metadata.StrategyFetcher{Strategy: strategy}
	}
	return metadata.StrategyFetcher{Strategy: scraper.NewStaticStrategy(queue, cfg.UserAgents, logger)}
}
