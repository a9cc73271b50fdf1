// internal/scraper/scraper.go
// Package scraper contains the extraction backends and the orchestrator
// that drives them: cache lookup, strategy selection, retry-wrapped
// execution, post-processing and cache store.
package scraper

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"tracklift/internal/browser"
	"tracklift/internal/cache"
	"tracklift/internal/config"
	"tracklift/internal/logging"
	"tracklift/internal/monitoring"
	"tracklift/internal/requestqueue"
	"tracklift/internal/scraperr"
	"tracklift/pkg/types"
)

const maxBackoff = 30 * time.Second

// Scraper is the top-level entry point for tracklist extraction. The
// request queue and cache are injected and shared with the metadata
// pipeline; no hidden global state.
type Scraper struct {
	cfg        config.ScraperConfig
	queue      *requestqueue.Queue
	cache      cache.Store
	logger     logging.Logger
	metrics    *monitoring.Metrics
	strategies map[types.ScrapingMethod]Strategy
	prober     linkProber
	enricher   EnrichFunc
}

// EnrichFunc looks up metadata for one track. The metadata aggregator is
// installed here at wiring time; the indirection keeps this package free
// of a dependency on the provider pipeline.
type EnrichFunc func(ctx context.Context, title, artist string, enrich bool) *types.EnhancedMetadata

// New assembles the orchestrator with its default strategy backends. The
// headless variants are registered only when headless execution is
// enabled in the configuration.
func New(cfg config.ScraperConfig, queue *requestqueue.Queue, store cache.Store, logger logging.Logger, metrics *monitoring.Metrics) *Scraper {
	if logger == nil {
		logger = logging.NewNop()
	}

	s := &Scraper{
		cfg:        cfg,
		queue:      queue,
		cache:      store,
		logger:     logger,
		metrics:    metrics,
		strategies: make(map[types.ScrapingMethod]Strategy),
		prober:     newHTTPProber(),
	}

	s.RegisterStrategy(NewStaticStrategy(queue, cfg.UserAgents, logger))
	if cfg.HeadlessEnabled {
		s.RegisterStrategy(NewHeadlessStrategy(types.MethodHeadlessRobust, browser.DefaultConfig(), queue, cfg.UserAgents, logger))
		s.RegisterStrategy(NewHeadlessStrategy(types.MethodHeadlessAdvanced, browser.DefaultConfig(), queue, cfg.UserAgents, logger))
	}
	return s
}

// RegisterStrategy installs or replaces a backend under its own name.
func (s *Scraper) RegisterStrategy(strategy Strategy) {
	s.strategies[strategy.Name()] = strategy
}

// SetEnricher installs the metadata lookup used when a scrape requests
// include_metadata.
func (s *Scraper) SetEnricher(fn EnrichFunc) {
	s.enricher = fn
}

// Scrape extracts a tracklist from the given URL. It never returns an
// error: failures surface as ScrapingResult{Success: false} with the
// collected error messages.
func (s *Scraper) Scrape(ctx context.Context, target string, opts types.ScrapingOptions) *types.ScrapingResult {
	start := time.Now()
	opts = opts.Normalized()

	if err := s.validateURL(target); err != nil {
		// Malformed input fails fast; there is nothing to retry.
		return &types.ScrapingResult{
			Success: false,
			Errors:  []string{err.Error()},
			Stats:   types.ScrapeStats{Method: string(opts.Method)},
		}
	}

	fingerprint := Fingerprint(target, opts)
	if opts.UseCache {
		if result, ok := s.cacheLookup(ctx, fingerprint); ok {
			s.metrics.CacheHit()
			s.logger.Debugf("scrape: cache hit for %s", target)
			return result
		}
		s.metrics.CacheMiss()
	}

	strategy := s.selectStrategy(opts)
	s.logger.Infof("scrape: %s via %s", target, strategy.Name())

	capture, errs := s.fetchWithRetry(ctx, strategy, target, opts)
	if capture == nil {
		elapsed := time.Since(start)
		s.metrics.ScrapeCompleted(string(strategy.Name()), false, elapsed)
		return &types.ScrapingResult{
			Success: false,
			Errors:  errs,
			Stats:   types.ScrapeStats{Method: string(strategy.Name()), ScrapingTime: elapsed},
		}
	}

	result := s.assemble(ctx, capture, opts, errs)
	result.Stats.ScrapingTime = time.Since(start)
	s.metrics.ScrapeCompleted(string(capture.Method), result.Success, result.Stats.ScrapingTime)

	if opts.UseCache && result.Success {
		s.cacheStore(ctx, fingerprint, result, opts.CacheTTL)
	}
	return result
}

// validateURL fails fast on anything that is not an absolute http(s) URL
// on an allowed host.
func (s *Scraper) validateURL(target string) error {
	parsed, err := url.Parse(target)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return scraperr.Newf(scraperr.CodeInvalidInput, "not an absolute URL: %q", target)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return scraperr.Newf(scraperr.CodeInvalidInput, "unsupported scheme %q", parsed.Scheme)
	}
	if len(s.cfg.AllowedHosts) > 0 {
		host := strings.ToLower(parsed.Host)
		for _, allowed := range s.cfg.AllowedHosts {
			if host == strings.ToLower(allowed) {
				return nil
			}
		}
		return scraperr.Newf(scraperr.CodeInvalidInput, "host %q is not a supported tracklist site", parsed.Host)
	}
	return nil
}

// selectStrategy resolves an explicit method override or auto-selects,
// favoring the static fetch when headless execution is disabled.
func (s *Scraper) selectStrategy(opts types.ScrapingOptions) Strategy {
	if opts.Method != types.MethodAuto {
		if strategy, ok := s.strategies[opts.Method]; ok {
			return strategy
		}
		s.logger.Warnf("scrape: method %q unavailable, falling back to auto selection", opts.Method)
	}
	if s.cfg.HeadlessEnabled {
		if strategy, ok := s.strategies[types.MethodHeadlessRobust]; ok {
			return strategy
		}
	}
	return s.strategies[types.MethodStatic]
}

// fetchWithRetry runs one strategy under the bounded retry loop:
// fixed attempt count, exponential backoff with jitter, every failure
// logged with its attempt number. Exhausting retries returns a nil
// capture and the collected errors, never a panic or raised error.
func (s *Scraper) fetchWithRetry(ctx context.Context, strategy Strategy, target string, opts types.ScrapingOptions) (*Capture, []string) {
	var errs []string

	for attempt := 1; attempt <= opts.Retries; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
		capture, err := strategy.Fetch(attemptCtx, target, opts)
		cancel()

		if err == nil {
			return capture, errs
		}

		errs = append(errs, fmt.Sprintf("attempt %d: %v", attempt, err))
		s.logger.Warnf("scrape: attempt %d/%d failed: %v", attempt, opts.Retries, err)

		if !scraperr.IsRetryable(err) || ctx.Err() != nil {
			break
		}
		if attempt < opts.Retries {
			s.metrics.RetryRecorded()
			if !sleepContext(ctx, backoff(opts.Delay, attempt)) {
				break
			}
		}
	}
	return nil, errs
}

// backoff computes exponential backoff with jitter for the given attempt
// (1-based), capped at maxBackoff.
func backoff(base time.Duration, attempt int) time.Duration {
	delay := base << uint(attempt-1)
	if delay > maxBackoff {
		delay = maxBackoff
	}
	jitter := time.Duration(rand.Int63n(int64(delay/2) + 1))
	return delay + jitter
}

func sleepContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// assemble parses the capture and runs post-processing: stats recompute,
// optional link probing, cue-time normalization and deduplication.
func (s *Scraper) assemble(ctx context.Context, capture *Capture, opts types.ScrapingOptions, errs []string) *types.ScrapingResult {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(capture.HTML))
	if err != nil {
		return &types.ScrapingResult{
			Success: false,
			Errors:  append(errs, fmt.Sprintf("failed to parse page: %v", err)),
			Stats:   types.ScrapeStats{Method: string(capture.Method)},
		}
	}

	meta, tracks := parseDocument(doc, capture.URL)
	if len(tracks) == 0 {
		errs = append(errs, scraperr.New(scraperr.CodeExtractionEmpty, "page loaded but no track rows recognized").Error())
	}

	tracks = dedupeTracks(tracks)
	normalizeTrackTimes(tracks)
	if opts.ValidateLinks {
		verifyLinks(ctx, tracks, s.prober, s.cfg.LinkProbeLimit)
	}
	if opts.IncludeMetadata {
		s.enrichTracks(ctx, tracks, opts.Enrich)
	}

	meta.TotalTracks = len(tracks)
	return &types.ScrapingResult{
		Success:  len(tracks) > 0,
		Metadata: meta,
		Tracks:   tracks,
		Stats:    computeStats(tracks, capture.Method, 0),
		Errors:   errs,
	}
}

// enrichTracks fills each track's metadata block through the installed
// enricher. Runs sequentially: the providers rate-limit themselves, and
// the caller's context bounds the total time.
func (s *Scraper) enrichTracks(ctx context.Context, tracks []types.Track, enrich bool) {
	if s.enricher == nil {
		return
	}
	for i := range tracks {
		if ctx.Err() != nil {
			return
		}
		meta := s.enricher(ctx, tracks[i].Title, tracks[i].Artist, enrich)
		if meta == nil {
			continue
		}
		if meta.Genre == "" && meta.BPM == 0 && meta.Key == "" && meta.Year == 0 && meta.Duration == 0 {
			continue
		}
		tracks[i].Metadata = &types.TrackMetadata{
			Genre:    meta.Genre,
			BPM:      meta.BPM,
			Key:      meta.Key,
			Year:     meta.Year,
			Duration: meta.Duration,
		}
	}
}

// Fingerprint computes the cache key: a stable hash of the URL plus the
// normalized options that affect the result.
func Fingerprint(target string, opts types.ScrapingOptions) string {
	opts = opts.Normalized()
	payload, _ := json.Marshal(struct {
		URL             string               `json:"url"`
		Method          types.ScrapingMethod `json:"method"`
		UserAgent       string               `json:"user_agent"`
		ValidateLinks   bool                 `json:"validate_links"`
		IncludeMetadata bool                 `json:"include_metadata"`
		Enrich          bool                 `json:"enrich"`
	}{target, opts.Method, opts.UserAgent, opts.ValidateLinks, opts.IncludeMetadata, opts.Enrich})

	sum := sha256.Sum256(payload)
	return "scrape:" + hex.EncodeToString(sum[:])
}

func (s *Scraper) cacheLookup(ctx context.Context, key string) (*types.ScrapingResult, bool) {
	if s.cache == nil {
		return nil, false
	}
	entry, ok := s.cache.Get(ctx, key)
	if !ok {
		return nil, false
	}

	var result types.ScrapingResult
	if err := json.Unmarshal(entry.Payload, &result); err != nil {
		s.logger.Warnf("scrape: dropping undecodable cache entry: %v", err)
		_ = s.cache.Invalidate(ctx, key)
		return nil, false
	}
	result.FromCache = true
	return &result, true
}

func (s *Scraper) cacheStore(ctx context.Context, key string, result *types.ScrapingResult, ttl time.Duration) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(result)
	if err != nil {
		s.logger.Warnf("scrape: failed to encode result for cache: %v", err)
		return
	}
	if err := s.cache.Set(ctx, key, payload, ttl); err != nil {
		// Cache trouble never fails the scrape.
		s.logger.Warnf("scrape: cache store failed: %v", err)
	}
}
