// internal/scraper/scraper_test.go
package scraper

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"tracklift/internal/cache"
	"tracklift/internal/config"
	"tracklift/internal/logging"
	"tracklift/internal/requestqueue"
	"tracklift/internal/scraperr"
	"tracklift/pkg/types"
)

// stubStrategy serves canned HTML, optionally failing the first N calls.
type stubStrategy struct {
	method   types.ScrapingMethod
	html     string
	failures int
	err      error
	calls    atomic.Int64
}

func (s *stubStrategy) Name() types.ScrapingMethod { return s.method }

func (s *stubStrategy) Fetch(ctx context.Context, url string, opts types.ScrapingOptions) (*Capture, error) {
	call := s.calls.Add(1)
	if int(call) <= s.failures {
		if s.err != nil {
			return nil, s.err
		}
		return nil, errors.New("connection reset by peer")
	}
	return &Capture{HTML: s.html, URL: url, Method: s.method}, nil
}

func newTestScraper(t *testing.T, stub *stubStrategy) (*Scraper, *cache.MemoryStore) {
	t.Helper()
	store := cache.NewMemoryStore(100, time.Hour)
	t.Cleanup(func() { store.Close() })

	cfg := config.ScraperConfig{MaxConcurrency: 4, MinInterval: config.Duration(time.Millisecond), LinkProbeLimit: 10}
	s := New(cfg, requestqueue.New(4, time.Millisecond), store, logging.NewNop(), nil)
	if stub != nil {
		s.RegisterStrategy(stub)
	}
	return s, store
}

func fastOptions() types.ScrapingOptions {
	return types.ScrapingOptions{
		Timeout:  5 * time.Second,
		Retries:  3,
		Delay:    time.Millisecond,
		UseCache: true,
		CacheTTL: time.Hour,
		Method:   types.MethodStatic,
	}
}

func TestScrapeInvalidInputFailsFast(t *testing.T) {
	stub := &stubStrategy{method: types.MethodStatic, html: sampleTracklistHTML}
	s, _ := newTestScraper(t, stub)

	result := s.Scrape(context.Background(), "not a url", fastOptions())
	if result.Success {
		t.Fatal("expected failure for malformed URL")
	}
	if stub.calls.Load() != 0 {
		t.Error("invalid input must not reach a strategy")
	}
	if len(result.Errors) == 0 {
		t.Error("expected a diagnostic error entry")
	}
}

func TestScrapeAllowedHostEnforced(t *testing.T) {
	store := cache.NewMemoryStore(10, time.Hour)
	defer store.Close()
	cfg := config.ScraperConfig{AllowedHosts: []string{"www.1001tracklists.com"}, MaxConcurrency: 1, MinInterval: config.Duration(time.Millisecond)}
	s := New(cfg, requestqueue.New(1, time.Millisecond), store, logging.NewNop(), nil)
	s.RegisterStrategy(&stubStrategy{method: types.MethodStatic, html: sampleTracklistHTML})

	if result := s.Scrape(context.Background(), "https://evil.example.com/x", fastOptions()); result.Success {
		t.Error("expected rejection of disallowed host")
	}
	if result := s.Scrape(context.Background(), "https://www.1001tracklists.com/tracklist/abc", fastOptions()); !result.Success {
		t.Errorf("expected allowed host to succeed, errors: %v", result.Errors)
	}
}

func TestScrapeRetrySucceedsOnThirdAttempt(t *testing.T) {
	stub := &stubStrategy{method: types.MethodStatic, html: sampleTracklistHTML, failures: 2}
	s, _ := newTestScraper(t, stub)

	result := s.Scrape(context.Background(), "https://www.1001tracklists.com/tracklist/abc", fastOptions())
	if !result.Success {
		t.Fatalf("expected success on third attempt, errors: %v", result.Errors)
	}
	if stub.calls.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", stub.calls.Load())
	}
	// The two failed attempts stay visible as diagnostics.
	if len(result.Errors) != 2 {
		t.Errorf("expected 2 recorded retry errors, got %d: %v", len(result.Errors), result.Errors)
	}
}

func TestScrapeExhaustedRetriesReturnsDegradedResult(t *testing.T) {
	stub := &stubStrategy{method: types.MethodStatic, failures: 99}
	s, _ := newTestScraper(t, stub)

	result := s.Scrape(context.Background(), "https://www.1001tracklists.com/tracklist/abc", fastOptions())
	if result.Success {
		t.Fatal("expected degraded result after exhausted retries")
	}
	if stub.calls.Load() != 3 {
		t.Errorf("expected exactly 3 attempts, got %d", stub.calls.Load())
	}
	if len(result.Errors) != 3 {
		t.Errorf("expected 3 error entries, got %d", len(result.Errors))
	}
}

func TestScrapeNonRetryableErrorStopsEarly(t *testing.T) {
	stub := &stubStrategy{
		method:   types.MethodStatic,
		failures: 99,
		err:      scraperr.New(scraperr.CodeInvalidInput, "bad target"),
	}
	s, _ := newTestScraper(t, stub)

	s.Scrape(context.Background(), "https://www.1001tracklists.com/tracklist/abc", fastOptions())
	if stub.calls.Load() != 1 {
		t.Errorf("non-retryable error must stop after 1 attempt, got %d", stub.calls.Load())
	}
}

func TestScrapeCacheIdempotence(t *testing.T) {
	stub := &stubStrategy{method: types.MethodStatic, html: sampleTracklistHTML}
	s, _ := newTestScraper(t, stub)
	ctx := context.Background()
	url := "https://www.1001tracklists.com/tracklist/abc"

	first := s.Scrape(ctx, url, fastOptions())
	if !first.Success {
		t.Fatalf("first scrape failed: %v", first.Errors)
	}

	second := s.Scrape(ctx, url, fastOptions())
	if !second.Success {
		t.Fatalf("second scrape failed: %v", second.Errors)
	}
	if !second.FromCache {
		t.Error("second scrape within TTL must be served from cache")
	}
	if stub.calls.Load() != 1 {
		t.Errorf("expected a single backend fetch, got %d", stub.calls.Load())
	}
	if len(second.Tracks) != len(first.Tracks) {
		t.Errorf("cached result differs: %d vs %d tracks", len(second.Tracks), len(first.Tracks))
	}
}

func TestScrapeCacheExpiry(t *testing.T) {
	stub := &stubStrategy{method: types.MethodStatic, html: sampleTracklistHTML}
	s, _ := newTestScraper(t, stub)
	ctx := context.Background()
	url := "https://www.1001tracklists.com/tracklist/abc"

	opts := fastOptions()
	opts.CacheTTL = time.Second

	s.Scrape(ctx, url, opts)
	time.Sleep(2 * time.Second)
	result := s.Scrape(ctx, url, opts)

	if result.FromCache {
		t.Error("expired entry must trigger a fresh scrape")
	}
	if stub.calls.Load() != 2 {
		t.Errorf("expected 2 backend fetches across expiry, got %d", stub.calls.Load())
	}
}

func TestScrapeBypassCache(t *testing.T) {
	stub := &stubStrategy{method: types.MethodStatic, html: sampleTracklistHTML}
	s, _ := newTestScraper(t, stub)
	ctx := context.Background()

	opts := fastOptions()
	opts.UseCache = false

	s.Scrape(ctx, "https://www.1001tracklists.com/tracklist/abc", opts)
	s.Scrape(ctx, "https://www.1001tracklists.com/tracklist/abc", opts)
	if stub.calls.Load() != 2 {
		t.Errorf("useCache=false must hit the backend every time, got %d calls", stub.calls.Load())
	}
}

func TestScrapeDeduplicatesTracks(t *testing.T) {
	html := `<html><body>
	<div class="tlpItem"><span class="trackValue">deadmau5 - Strobe</span></div>
	<div class="tlpItem"><span class="trackValue">Deadmau5 -   STROBE</span></div>
	<div class="tlpItem"><span class="trackValue">Carl Cox - The Player</span></div>
	</body></html>`
	stub := &stubStrategy{method: types.MethodStatic, html: html}
	s, _ := newTestScraper(t, stub)

	result := s.Scrape(context.Background(), "https://www.1001tracklists.com/tracklist/abc", fastOptions())
	if len(result.Tracks) != 2 {
		t.Fatalf("expected duplicates collapsed to 2 tracks, got %d", len(result.Tracks))
	}
	if result.Tracks[0].Title != "Strobe" {
		t.Errorf("first occurrence must win, got %q", result.Tracks[0].Title)
	}
	if result.Stats.TotalTracks != 2 {
		t.Errorf("stats must reflect deduplicated count, got %d", result.Stats.TotalTracks)
	}
}

func TestScrapeEmptyPageIsExtractionEmpty(t *testing.T) {
	stub := &stubStrategy{method: types.MethodStatic, html: "<html><body>blank</body></html>"}
	s, _ := newTestScraper(t, stub)

	result := s.Scrape(context.Background(), "https://www.1001tracklists.com/tracklist/abc", fastOptions())
	if result.Success {
		t.Error("a page without recognizable structure must not be a success")
	}
	found := false
	for _, msg := range result.Errors {
		if strings.Contains(msg, string(scraperr.CodeExtractionEmpty)) {
			found = true
		}
	}
	if !found {
		t.Errorf("expected an EXTRACTION_EMPTY diagnostic, got %v", result.Errors)
	}
}

func TestScrapeIncludeMetadataEnrichesTracks(t *testing.T) {
	stub := &stubStrategy{method: types.MethodStatic, html: sampleTracklistHTML}
	s, _ := newTestScraper(t, stub)

	var sawEnrich bool
	s.SetEnricher(func(_ context.Context, title, _ string, enrich bool) *types.EnhancedMetadata {
		sawEnrich = enrich
		if title == "Strobe" {
			return &types.EnhancedMetadata{BPM: 128, Genre: "Progressive House"}
		}
		return nil
	})

	opts := fastOptions()
	opts.IncludeMetadata = true
	opts.Enrich = true

	result := s.Scrape(context.Background(), "https://www.1001tracklists.com/tracklist/abc", opts)
	if !result.Success {
		t.Fatalf("scrape failed: %v", result.Errors)
	}
	if !sawEnrich {
		t.Error("enrich flag must reach the enricher")
	}

	var strobe *types.Track
	for i := range result.Tracks {
		if result.Tracks[i].Title == "Strobe" {
			strobe = &result.Tracks[i]
		}
	}
	if strobe == nil || strobe.Metadata == nil {
		t.Fatal("expected the matched track to carry a metadata block")
	}
	if strobe.Metadata.BPM != 128 || strobe.Metadata.Genre != "Progressive House" {
		t.Errorf("unexpected metadata %+v", strobe.Metadata)
	}
	if result.Tracks[0].Metadata != nil {
		t.Error("tracks the enricher missed must stay bare")
	}
}

func TestFingerprintStability(t *testing.T) {
	url := "https://www.1001tracklists.com/tracklist/abc"

	a := Fingerprint(url, types.ScrapingOptions{Method: "STATIC", UseCache: true})
	b := Fingerprint(url, types.ScrapingOptions{Method: "static", UseCache: false, Retries: 5})
	if a != b {
		t.Error("options that do not affect the payload must hash identically")
	}

	c := Fingerprint(url, types.ScrapingOptions{Method: types.MethodHeadlessRobust})
	if a == c {
		t.Error("different methods must produce different fingerprints")
	}
}
