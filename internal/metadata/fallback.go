// internal/metadata/fallback.go
package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"tracklift/internal/config"
	"tracklift/internal/logging"
	"tracklift/internal/matcher"
	"tracklift/pkg/types"
)

const fallbackConfidence = 0.6

// lookupResponse mirrors the iTunes-style search payload.
type lookupResponse struct {
	ResultCount int            `json:"resultCount"`
	Results     []lookupResult `json:"results"`
}

type lookupResult struct {
	TrackName        string `json:"trackName"`
	ArtistName       string `json:"artistName"`
	CollectionName   string `json:"collectionName"`
	PrimaryGenreName string `json:"primaryGenreName"`
	ReleaseDate      string `json:"releaseDate"`
	TrackTimeMillis  int    `json:"trackTimeMillis"`
}

// FallbackProvider performs lightweight structured lookups against a
// public search endpoint. It is rate limited independently of the
// scraping queue because it talks to a different host.
type FallbackProvider struct {
	cfg     config.CatalogConfig
	client  *http.Client
	limiter *rate.Limiter
	logger  logging.Logger
}

// NewFallbackProvider builds the provider around the configured lookup
// endpoint.
func NewFallbackProvider(cfg config.CatalogConfig, logger logging.Logger) *FallbackProvider {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &FallbackProvider{
		cfg:     cfg,
		client:  &http.Client{Timeout: 15 * time.Second},
		limiter: rate.NewLimiter(rate.Every(500*time.Millisecond), 1),
		logger:  logger,
	}
}

// Name implements Provider.
func (p *FallbackProvider) Name() string { return "fallback" }

// Confidence implements Provider.
func (p *FallbackProvider) Confidence() float64 { return fallbackConfidence }

// IsConfigured implements Provider.
func (p *FallbackProvider) IsConfigured() bool { return p.cfg.FallbackURL != "" }

// Search implements Provider.
func (p *FallbackProvider) Search(ctx context.Context, title, artist string) (*types.EnhancedMetadata, error) {
	if !p.IsConfigured() {
		return nil, errors.New("fallback provider is not configured")
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	term := strings.TrimSpace(artist + " " + title)
	endpoint := p.cfg.FallbackURL + "?media=music&limit=10&term=" + url.QueryEscape(term)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("lookup endpoint returned %s", resp.Status)
	}

	var payload lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode lookup response: %w", err)
	}
	if payload.ResultCount == 0 || len(payload.Results) == 0 {
		return nil, nil
	}

	result, ok := pickResult(payload.Results, title, artist)
	if !ok {
		return nil, nil
	}

	meta := &types.EnhancedMetadata{
		Title:      title,
		Artist:     artist,
		Album:      result.CollectionName,
		Genre:      result.PrimaryGenreName,
		Year:       releaseYear(result.ReleaseDate),
		Duration:   result.TrackTimeMillis / 1000,
		Confidence: p.Confidence(),
		Sources:    []string{p.Name()},
	}
	return meta, nil
}

// pickResult ranks the lookup results with the candidate matcher and
// keeps the best one. The endpoint already filtered by term, so the
// ranking mostly guards against same-artist different-track hits.
func pickResult(results []lookupResult, title, artist string) (lookupResult, bool) {
	candidates := make([]matcher.Candidate, len(results))
	for i, r := range results {
		candidates[i] = matcher.Candidate{
			Text: r.ArtistName + " " + r.TrackName,
			Href: strconv.Itoa(i),
		}
	}

	best, ok := matcher.Best(candidates, matcher.Target{Title: title, Artist: artist})
	if !ok {
		return lookupResult{}, false
	}
	index, _ := strconv.Atoi(best.Href)
	return results[index], true
}

func releaseYear(date string) int {
	if len(date) < 4 {
		return 0
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return year
}
