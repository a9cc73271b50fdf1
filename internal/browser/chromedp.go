// internal/browser/chromedp.go
package browser

import (
	"context"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"tracklift/internal/antidetect"
	"tracklift/internal/logging"
	"tracklift/internal/scraperr"
)

// openSessions counts live browser sessions. Tests use it to verify that
// cancellation tears sessions down instead of leaking Chrome processes.
var openSessions atomic.Int64

// OpenSessions returns the number of sessions not yet closed.
func OpenSessions() int64 { return openSessions.Load() }

// Session is a chromedp-backed Client running in an isolated browser
// context with anti-automation countermeasures applied.
type Session struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	config      *Config
	pause       *antidetect.DelayRandomizer
	logger      logging.Logger
	closed      atomic.Bool
}

// NewSession launches a browser with masked automation markers, a spoofed
// plugin/language list and a realistic viewport, locale and timezone.
func NewSession(config *Config, logger logging.Logger) (*Session, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.DisableGPU,
		chromedp.NoSandbox,
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("lang", config.Locale),
		chromedp.WindowSize(config.ViewportWidth, config.ViewportHeight),
	)
	if !config.Headless {
		opts = append(opts, chromedp.Flag("headless", false))
	}
	if config.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(config.UserAgent))
	}
	if config.Timezone != "" {
		opts = append(opts, chromedp.Env("TZ="+config.Timezone))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	ctx, cancel := chromedp.NewContext(allocCtx)

	s := &Session{
		ctx:         ctx,
		cancel:      cancel,
		allocCancel: allocCancel,
		config:      config,
		pause:       antidetect.NewDelayRandomizer(config.MinPause, config.MaxPause),
		logger:      logger,
	}

	// Install the stealth script before any page scripts run.
	err := chromedp.Run(ctx,
		chromedp.ActionFunc(func(ctx context.Context) error {
			_, err := page.AddScriptToEvaluateOnNewDocument(antidetect.StealthScript).Do(ctx)
			return err
		}),
		chromedp.EmulateViewport(int64(config.ViewportWidth), int64(config.ViewportHeight)),
	)
	if err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("failed to initialize browser session: %w", err)
	}

	openSessions.Add(1)
	return s, nil
}

// Navigate implements Client. It loads the URL with human-like pacing and
// runs the interstitial recovery loop: wait, click a continue control,
// re-navigate; after bounded retries the attempt is Blocked.
func (s *Session) Navigate(ctx context.Context, url string) error {
	navCtx, cancel := context.WithTimeout(s.ctx, s.config.NavTimeout)
	defer cancel()
	stop := propagateCancel(ctx, cancel)
	defer stop()

	if err := s.load(navCtx, url); err != nil {
		return err
	}

	state := StateLoading
	for retries := 0; ; retries++ {
		title, err := s.Title(ctx)
		if err != nil {
			return err
		}

		state = Advance(state, title, retries)
		switch state {
		case StateReady:
			return nil
		case StateBlocked:
			return scraperr.Newf(scraperr.CodeNavigationBlocked,
				"interstitial %q undefeated after %d recovery rounds", title, retries)
		}

		s.logger.Debugf("browser: interstitial detected (%q), recovery round %d", title, retries+1)

		// Give the challenge time to self-resolve, then try to click
		// through, then reload as a last resort for this round.
		if !sleepCtx(ctx, s.pause.Delay()*2) {
			return scraperr.Wrap(ctx.Err(), scraperr.CodeTimeout, "navigation cancelled")
		}
		s.tryContinueClick(ctx)
		if err := s.load(navCtx, url); err != nil {
			return err
		}
	}
}

// load performs one navigation with randomized pauses, simulated pointer
// movement and a small scroll.
func (s *Session) load(ctx context.Context, url string) error {
	err := chromedp.Run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.Sleep(s.pause.Delay()),
		chromedp.ActionFunc(func(ctx context.Context) error {
			x := float64(100 + rand.Intn(s.config.ViewportWidth/2))
			y := float64(100 + rand.Intn(s.config.ViewportHeight/2))
			return input.DispatchMouseEvent(input.MouseMoved, x, y).Do(ctx)
		}),
		chromedp.Evaluate(`window.scrollBy(0, 200 + Math.random() * 300)`, nil),
		chromedp.Sleep(s.pause.Delay()),
	)
	if err != nil {
		if ctx.Err() != nil {
			return scraperr.Wrap(err, scraperr.CodeTimeout, "navigation deadline exceeded")
		}
		return fmt.Errorf("navigation failed: %w", err)
	}
	return nil
}

// tryContinueClick attempts the known continue controls. Absence of any is
// normal and ignored.
func (s *Session) tryContinueClick(ctx context.Context) {
	for _, selector := range continueSelectors {
		clickCtx, cancel := context.WithTimeout(s.ctx, 2*time.Second)
		stop := propagateCancel(ctx, cancel)
		err := chromedp.Run(clickCtx, chromedp.Click(selector, chromedp.NodeVisible))
		stop()
		cancel()
		if err == nil {
			s.logger.Debugf("browser: clicked continue control %q", selector)
			sleepCtx(ctx, s.pause.Delay())
			return
		}
	}
}

// run executes chromedp actions on a child of the session context that is
// also cancelled when the caller's context is done, so every Client call
// honors the caller's deadline even when the browser wedges.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	stop := propagateCancel(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return scraperr.Wrap(ctx.Err(), scraperr.CodeTimeout, "browser call cancelled")
	}
	return err
}

// TriggerLazyLoad scrolls through the page to force lazy-loaded rows in.
func (s *Session) TriggerLazyLoad(ctx context.Context) error {
	err := s.run(ctx,
		chromedp.Evaluate(antidetect.ScrollScript, nil),
		chromedp.Sleep(2*time.Second),
	)
	if err != nil {
		return fmt.Errorf("lazy-load scroll failed: %w", err)
	}
	return nil
}

// HTML implements Client.
func (s *Session) HTML(ctx context.Context) (string, error) {
	var html string
	if err := s.run(ctx, chromedp.OuterHTML("html", &html)); err != nil {
		return "", fmt.Errorf("failed to get page HTML: %w", err)
	}
	return html, nil
}

// Title implements Client.
func (s *Session) Title(ctx context.Context) (string, error) {
	var title string
	if err := s.run(ctx, chromedp.Title(&title)); err != nil {
		return "", fmt.Errorf("failed to get page title: %w", err)
	}
	return title, nil
}

// Evaluate implements Client.
func (s *Session) Evaluate(ctx context.Context, script string) error {
	if err := s.run(ctx, chromedp.Evaluate(script, nil)); err != nil {
		return fmt.Errorf("script evaluation failed: %w", err)
	}
	return nil
}

// Click implements Client.
func (s *Session) Click(ctx context.Context, selector string, timeout time.Duration) error {
	clickCtx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	stop := propagateCancel(ctx, cancel)
	defer stop()
	if err := chromedp.Run(clickCtx, chromedp.Click(selector, chromedp.NodeVisible)); err != nil {
		return fmt.Errorf("click %q failed: %w", selector, err)
	}
	return nil
}

// Close implements Client. Safe to call more than once; only the first
// call tears down the browser process.
func (s *Session) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.cancel()
	s.allocCancel()
	openSessions.Add(-1)
	return nil
}

// sleepCtx pauses for d unless the context is cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// propagateCancel cancels the chromedp context when the caller's context
// is done, so an aborted scrape tears the browser work down immediately.
func propagateCancel(caller context.Context, cancel context.CancelFunc) func() {
	done := make(chan struct{})
	go func() {
		select {
		case <-caller.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
