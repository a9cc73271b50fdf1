// internal/scraper/postprocess.go
package scraper

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"tracklift/pkg/types"
)

// dedupeTracks collapses tracks sharing a normalized (title, artist) key.
// The first occurrence wins; positions are renumbered afterwards.
func dedupeTracks(tracks []types.Track) []types.Track {
	seen := make(map[string]bool, len(tracks))
	deduped := make([]types.Track, 0, len(tracks))

	for _, track := range tracks {
		key := track.DedupeKey()
		if seen[key] {
			continue
		}
		seen[key] = true
		track.Position = len(deduped) + 1
		deduped = append(deduped, track)
	}
	return deduped
}

// computeStats recalculates the aggregate counters from the final track
// list.
func computeStats(tracks []types.Track, method types.ScrapingMethod, elapsed time.Duration) types.ScrapeStats {
	stats := types.ScrapeStats{
		TotalTracks:  len(tracks),
		ScrapingTime: elapsed,
		Method:       string(method),
	}

	platformSet := make(map[types.Platform]bool)
	for _, track := range tracks {
		if len(track.Links) > 0 {
			stats.TracksWithLinks++
		}
		for _, link := range track.Links {
			platformSet[link.Platform] = true
		}
	}
	for _, p := range types.ValidPlatforms() {
		if platformSet[p] {
			stats.Platforms = append(stats.Platforms, p)
		}
	}
	return stats
}

// linkProber issues the HEAD requests for link verification. Swapped out
// in tests.
type linkProber interface {
	Probe(ctx context.Context, url string) bool
}

type httpProber struct {
	client *http.Client
}

func newHTTPProber() *httpProber {
	return &httpProber{client: &http.Client{Timeout: 10 * time.Second}}
}

func (p *httpProber) Probe(ctx context.Context, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < 400
}

// verifyLinks HEAD-probes every link with bounded concurrency. Probing is
// best-effort: a failed probe leaves the link in place with
// Verified=false.
func verifyLinks(ctx context.Context, tracks []types.Track, prober linkProber, maxInFlight int) {
	if maxInFlight < 1 {
		maxInFlight = 10
	}
	sem := make(chan struct{}, maxInFlight)
	var wg sync.WaitGroup

	for ti := range tracks {
		for li := range tracks[ti].Links {
			wg.Add(1)
			sem <- struct{}{}
			go func(link *types.TrackLink) {
				defer wg.Done()
				defer func() { <-sem }()
				link.Verified = prober.Probe(ctx, link.URL)
			}(&tracks[ti].Links[li])
		}
	}
	wg.Wait()
}

// normalizeTrackTimes rewrites cue times into canonical h:mm:ss / m:ss
// form and fills metadata duration where a per-track duration was scraped.
func normalizeTrackTimes(tracks []types.Track) {
	for i := range tracks {
		if seconds, ok := parseClock(tracks[i].Time); ok {
			tracks[i].Time = formatClock(seconds)
		}
	}
}

// parseClock parses "m:ss", "mm:ss" or "h:mm:ss" into seconds.
func parseClock(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, false
	}

	total := 0
	for _, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 0 {
			return 0, false
		}
		total = total*60 + n
	}
	return total, true
}

func formatClock(seconds int) string {
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60

	if h > 0 {
		return strconv.Itoa(h) + ":" + pad(m) + ":" + pad(s)
	}
	return strconv.Itoa(m) + ":" + pad(s)
}

func pad(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
