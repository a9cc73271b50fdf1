// internal/scraper/static.go
package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"tracklift/internal/antidetect"
	"tracklift/internal/logging"
	"tracklift/internal/requestqueue"
	"tracklift/internal/scraperr"
	"tracklift/pkg/types"
)

// StaticStrategy fetches pages with a single HTTP GET through the shared
// request queue, wearing rotated browser-like headers.
type StaticStrategy struct {
	client *http.Client
	queue  *requestqueue.Queue
	agents *antidetect.UserAgentRotator
	logger logging.Logger
}

// NewStaticStrategy creates the static backend.
func NewStaticStrategy(queue *requestqueue.Queue, userAgents []string, logger logging.Logger) *StaticStrategy {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &StaticStrategy{
		client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		queue:  queue,
		agents: antidetect.NewUserAgentRotator(userAgents),
		logger: logger,
	}
}

// Name implements Strategy.
func (s *StaticStrategy) Name() types.ScrapingMethod { return types.MethodStatic }

// Fetch implements Strategy.
func (s *StaticStrategy) Fetch(ctx context.Context, target string, opts types.ScrapingOptions) (*Capture, error) {
	if err := s.queue.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.queue.Release()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, scraperr.Wrap(err, scraperr.CodeInvalidInput, "failed to build request")
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = s.agents.Next()
	}
	req.Header = antidetect.BrowserHeaders(userAgent, refererFor(target))
	// Let the transport negotiate encoding so the body arrives decoded.
	req.Header.Del("Accept-Encoding")

	resp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, scraperr.Wrap(err, scraperr.CodeTimeout, "static fetch timed out")
		}
		return nil, fmt.Errorf("static fetch failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusForbidden, resp.StatusCode == http.StatusServiceUnavailable:
		// The usual status codes of an anti-bot wall.
		return nil, scraperr.Newf(scraperr.CodeNavigationBlocked, "HTTP %d from %s", resp.StatusCode, target)
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Capture{HTML: string(body), URL: target, Method: types.MethodStatic}, nil
}

// refererFor makes the request look like in-site navigation from the
// target's own front page.
func refererFor(target string) string {
	parsed, err := url.Parse(target)
	if err != nil || parsed.Host == "" {
		return ""
	}
	return parsed.Scheme + "://" + parsed.Host + "/"
}
