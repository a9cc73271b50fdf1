// internal/browser/types.go
package browser

import (
	"context"
	"time"
)

// Config defines headless browser session configuration.
type Config struct {
	Headless       bool          `yaml:"headless" json:"headless"`
	UserAgent      string        `yaml:"user_agent,omitempty" json:"user_agent,omitempty"`
	ViewportWidth  int           `yaml:"viewport_width" json:"viewport_width"`
	ViewportHeight int           `yaml:"viewport_height" json:"viewport_height"`
	Locale         string        `yaml:"locale" json:"locale"`
	Timezone       string        `yaml:"timezone" json:"timezone"`
	NavTimeout     time.Duration `yaml:"nav_timeout" json:"nav_timeout"`
	MinPause       time.Duration `yaml:"min_pause" json:"min_pause"`
	MaxPause       time.Duration `yaml:"max_pause" json:"max_pause"`
}

// DefaultConfig returns defaults that pass for a desktop browser.
func DefaultConfig() *Config {
	return &Config{
		Headless:       true,
		ViewportWidth:  1920,
		ViewportHeight: 1080,
		Locale:         "en-US",
		Timezone:       "Europe/Amsterdam",
		NavTimeout:     30 * time.Second,
		MinPause:       400 * time.Millisecond,
		MaxPause:       1500 * time.Millisecond,
	}
}

// Client is the browser automation contract the headless strategies drive.
type Client interface {
	// Navigate loads a URL with human-like pacing and interstitial
	// recovery. A Blocked outcome surfaces as a NavigationBlocked error.
	Navigate(ctx context.Context, url string) error

	// HTML returns the current page's outer HTML.
	HTML(ctx context.Context) (string, error)

	// Title returns the current page title.
	Title(ctx context.Context) (string, error)

	// Evaluate runs a script on the page, discarding its result.
	Evaluate(ctx context.Context, script string) error

	// Click clicks the first node matching the selector, bounded by timeout.
	Click(ctx context.Context, selector string, timeout time.Duration) error

	// Close tears the browser process down. Must be called exactly once;
	// leaked sessions are a correctness failure.
	Close() error
}
