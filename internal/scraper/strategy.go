// internal/scraper/strategy.go
package scraper

import (
	"context"

	"tracklift/pkg/types"
)

// Capture is the uniform intermediate record every strategy produces: the
// raw page HTML plus the method that obtained it. Parsing into typed
// records happens in one place, regardless of the backend used.
type Capture struct {
	HTML   string
	URL    string
	Method types.ScrapingMethod
}

// Strategy is one interchangeable extraction backend.
type Strategy interface {
	// Name returns the method identifier used for selection and stats.
	Name() types.ScrapingMethod

	// Fetch retrieves the page for one attempt. Implementations must pass
	// every outbound request through the shared request queue and honor
	// ctx cancellation, releasing any browser resources they hold.
	Fetch(ctx context.Context, url string, opts types.ScrapingOptions) (*Capture, error)
}
