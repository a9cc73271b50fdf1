// internal/server/server.go
// Package server exposes the scraping and metadata engines over an HTTP
// API.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tracklift/internal/cache"
	"tracklift/internal/config"
	"tracklift/internal/logging"
	"tracklift/internal/metadata"
	"tracklift/pkg/types"
)

// scrapeService is the slice of the scraper the API needs.
type scrapeService interface {
	Scrape(ctx context.Context, url string, opts types.ScrapingOptions) *types.ScrapingResult
}

// metadataService is the slice of the aggregator the API needs.
type metadataService interface {
	SearchMetadata(ctx context.Context, title, artist string, opts metadata.SearchOptions) *types.EnhancedMetadata
}

// Server is the HTTP facade over the engine.
type Server struct {
	cfg      config.ServerConfig
	scraper  scrapeService
	metadata metadataService
	cache    cache.Store
	logger   logging.Logger
	registry *prometheus.Registry
	router   *mux.Router
}

// New assembles the router. registry may be nil to disable /metrics.
func New(cfg config.ServerConfig, scraper scrapeService, aggregator metadataService, store cache.Store, logger logging.Logger, registry *prometheus.Registry) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		cfg:      cfg,
		scraper:  scraper,
		metadata: aggregator,
		cache:    store,
		logger:   logger,
		registry: registry,
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/scrape", s.handleScrape).Methods(http.MethodPost)
	api.HandleFunc("/metadata", s.handleMetadata).Methods(http.MethodGet)
	api.HandleFunc("/cache/stats", s.handleCacheStats).Methods(http.MethodGet)
	api.HandleFunc("/cache", s.handleCacheClear).Methods(http.MethodDelete)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	if s.registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}
	return r
}

// Handler returns the assembled router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.ListenAddress,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout.Std(),
		WriteTimeout: s.cfg.WriteTimeout.Std(),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Infof("server: listening on %s", s.cfg.ListenAddress)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Infof("server: shutting down")
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debugf("http: %s %s (%s)", r.Method, r.URL.Path, time.Since(start))
	})
}
