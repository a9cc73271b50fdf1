// internal/scraper/headless.go
package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"tracklift/internal/antidetect"
	"tracklift/internal/browser"
	"tracklift/internal/logging"
	"tracklift/internal/requestqueue"
	"tracklift/internal/scraperr"
	"tracklift/pkg/types"
)

// headlessSession is the slice of browser.Client the strategy drives.
// *browser.Session satisfies it; tests substitute fakes.
type headlessSession interface {
	Navigate(ctx context.Context, url string) error
	HTML(ctx context.Context) (string, error)
	TriggerLazyLoad(ctx context.Context) error
	Close() error
}

// sessionFactory opens a fresh isolated browser session.
type sessionFactory func(cfg *browser.Config, logger logging.Logger) (headlessSession, error)

func defaultSessionFactory(cfg *browser.Config, logger logging.Logger) (headlessSession, error) {
	return browser.NewSession(cfg, logger)
}

// navApproach is one way of reaching the target page. When an approach
// ends Blocked, the next one in fixed order gets a fresh session.
type navApproach int

const (
	approachDirect navApproach = iota
	approachPreVisit
	approachMobile
)

func (a navApproach) String() string {
	switch a {
	case approachDirect:
		return "direct"
	case approachPreVisit:
		return "pre-visit"
	case approachMobile:
		return "mobile"
	default:
		return "unknown"
	}
}

// HeadlessStrategy drives a stealth browser session. The robust variant
// navigates directly; the advanced variant falls through direct →
// pre-visit-then-navigate → mobile-variant URL when blocked.
type HeadlessStrategy struct {
	method     types.ScrapingMethod
	config     *browser.Config
	queue      *requestqueue.Queue
	agents     *antidetect.UserAgentRotator
	logger     logging.Logger
	newSession sessionFactory
}

// NewHeadlessStrategy creates a headless backend for the given method
// (MethodHeadlessRobust or MethodHeadlessAdvanced).
func NewHeadlessStrategy(method types.ScrapingMethod, config *browser.Config, queue *requestqueue.Queue, userAgents []string, logger logging.Logger) *HeadlessStrategy {
	if config == nil {
		config = browser.DefaultConfig()
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &HeadlessStrategy{
		method:     method,
		config:     config,
		queue:      queue,
		agents:     antidetect.NewUserAgentRotator(userAgents),
		logger:     logger,
		newSession: defaultSessionFactory,
	}
}

// Name implements Strategy.
func (s *HeadlessStrategy) Name() types.ScrapingMethod { return s.method }

func (s *HeadlessStrategy) approaches() []navApproach {
	if s.method == types.MethodHeadlessAdvanced {
		return []navApproach{approachDirect, approachPreVisit, approachMobile}
	}
	return []navApproach{approachDirect}
}

// Fetch implements Strategy.
func (s *HeadlessStrategy) Fetch(ctx context.Context, target string, opts types.ScrapingOptions) (*Capture, error) {
	var lastErr error
	for _, approach := range s.approaches() {
		capture, err := s.tryApproach(ctx, approach, target, opts)
		if err == nil {
			return capture, nil
		}
		lastErr = err

		if errors.Is(err, scraperr.New(scraperr.CodeNavigationBlocked, "")) {
			s.logger.Warnf("headless: %s navigation blocked, falling through", approach)
			continue
		}
		return nil, err
	}
	return nil, lastErr
}

// tryApproach runs one approach in its own session, closing it on every
// path so an aborted scrape never leaks a browser process.
func (s *HeadlessStrategy) tryApproach(ctx context.Context, approach navApproach, target string, opts types.ScrapingOptions) (*Capture, error) {
	if err := s.queue.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.queue.Release()

	cfg := *s.config
	if opts.UserAgent != "" {
		cfg.UserAgent = opts.UserAgent
	} else if cfg.UserAgent == "" {
		cfg.UserAgent = s.agents.Random()
	}

	session, err := s.newSession(&cfg, s.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open browser session: %w", err)
	}
	defer session.Close()

	navTarget := target
	switch approach {
	case approachPreVisit:
		if root := siteRoot(target); root != "" {
			if err := session.Navigate(ctx, root); err != nil {
				return nil, err
			}
		}
	case approachMobile:
		navTarget = mobileVariant(target)
	}

	if err := session.Navigate(ctx, navTarget); err != nil {
		return nil, err
	}

	html, err := session.HTML(ctx)
	if err != nil {
		return nil, err
	}

	// One lazy-load pass when no track rows matched; if the page still
	// shows none, return the partial structure rather than failing.
	if !hasTrackRows(html) {
		if err := session.TriggerLazyLoad(ctx); err == nil {
			if reloaded, err := session.HTML(ctx); err == nil {
				html = reloaded
			}
		}
	}

	return &Capture{HTML: html, URL: target, Method: s.method}, nil
}

// hasTrackRows checks the capture against the prioritized row selectors.
func hasTrackRows(html string) bool {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return false
	}
	for _, selector := range trackRowSelectors {
		if doc.Find(selector).Length() > 0 {
			return true
		}
	}
	return false
}

func siteRoot(target string) string {
	parsed, err := url.Parse(target)
	if err != nil || parsed.Host == "" {
		return ""
	}
	return parsed.Scheme + "://" + parsed.Host + "/"
}

// mobileVariant rewrites the host to its mobile subdomain, which often
// sits behind a lighter anti-bot configuration.
func mobileVariant(target string) string {
	parsed, err := url.Parse(target)
	if err != nil || parsed.Host == "" {
		return target
	}
	if strings.HasPrefix(parsed.Host, "www.") {
		parsed.Host = "m." + strings.TrimPrefix(parsed.Host, "www.")
	} else if !strings.HasPrefix(parsed.Host, "m.") {
		parsed.Host = "m." + parsed.Host
	}
	return parsed.String()
}
