// pkg/types/types.go
package types

import (
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Platform identifies the streaming or store service a track link points to.
type Platform string

const (
	PlatformSpotify    Platform = "spotify"
	PlatformYouTube    Platform = "youtube"
	PlatformSoundCloud Platform = "soundcloud"
	PlatformBeatport   Platform = "beatport"
	PlatformAppleMusic Platform = "applemusic"
	PlatformTidal      Platform = "tidal"
	PlatformDeezer     Platform = "deezer"
	PlatformOther      Platform = "other"
)

// ValidPlatforms returns all known platform values in canonical order.
func ValidPlatforms() []Platform {
	return []Platform{
		PlatformSpotify, PlatformYouTube, PlatformSoundCloud, PlatformBeatport,
		PlatformAppleMusic, PlatformTidal, PlatformDeezer, PlatformOther,
	}
}

// IsValid checks if the platform is a known value.
func (p Platform) IsValid() bool {
	for _, valid := range ValidPlatforms() {
		if p == valid {
			return true
		}
	}
	return false
}

// TrackLink is an outbound link from a scraped track to a platform.
// Verified stays false until the link has been probed successfully.
type TrackLink struct {
	Platform Platform `json:"platform"`
	URL      string   `json:"url"`
	Verified bool     `json:"verified"`
}

// TrackMetadata carries enrichment fields attached to a track.
type TrackMetadata struct {
	Genre    string  `json:"genre,omitempty"`
	BPM      float64 `json:"bpm,omitempty"`
	Key      string  `json:"key,omitempty"`
	Year     int     `json:"year,omitempty"`
	Duration int     `json:"duration,omitempty"` // seconds
}

// Track is a single entry of a scraped tracklist.
type Track struct {
	ID       string         `json:"id"`
	Title    string         `json:"title"`
	Artist   string         `json:"artist,omitempty"`
	Remix    string         `json:"remix,omitempty"`
	Label    string         `json:"label,omitempty"`
	Time     string         `json:"time,omitempty"`     // cue time within the set, e.g. "1:02:30"
	Position int            `json:"position,omitempty"` // 1-based position in the tracklist
	Links    []TrackLink    `json:"links,omitempty"`
	Metadata *TrackMetadata `json:"metadata,omitempty"`
}

// AddLink appends a link, keeping links unique by (platform, url).
func (t *Track) AddLink(link TrackLink) {
	for _, existing := range t.Links {
		if existing.Platform == link.Platform && existing.URL == link.URL {
			return
		}
	}
	t.Links = append(t.Links, link)
}

// DedupeKey returns the normalized (title, artist) key used for
// first-occurrence-wins deduplication.
func (t *Track) DedupeKey() string {
	return NormalizeText(t.Title) + "|" + NormalizeText(t.Artist)
}

// PlaylistMetadata describes the scraped set/playlist page itself.
type PlaylistMetadata struct {
	Title       string    `json:"title"`
	Artist      string    `json:"artist"`
	Venue       string    `json:"venue,omitempty"`
	Date        string    `json:"date,omitempty"`
	URL         string    `json:"url"`
	TotalTracks int       `json:"total_tracks"`
	ScrapedAt   time.Time `json:"scraped_at"`
}

// ScrapeStats aggregates counters about a completed scrape.
type ScrapeStats struct {
	TotalTracks     int           `json:"total_tracks"`
	TracksWithLinks int           `json:"tracks_with_links"`
	Platforms       []Platform    `json:"platforms"`
	ScrapingTime    time.Duration `json:"scraping_time"`
	Method          string        `json:"method"`
}

// ScrapingResult is the value returned by every scrape call. Failures are
// reported through Success and Errors rather than raised to the caller.
type ScrapingResult struct {
	Success   bool             `json:"success"`
	Metadata  PlaylistMetadata `json:"metadata"`
	Tracks    []Track          `json:"tracks"`
	Stats     ScrapeStats      `json:"stats"`
	Errors    []string         `json:"errors,omitempty"`
	FromCache bool             `json:"from_cache,omitempty"`
}

// ScrapingMethod selects an extraction strategy.
type ScrapingMethod string

const (
	MethodAuto             ScrapingMethod = "auto"
	MethodStatic           ScrapingMethod = "static"
	MethodHeadlessRobust   ScrapingMethod = "headless-robust"
	MethodHeadlessAdvanced ScrapingMethod = "headless-advanced"
)

// ScrapingOptions controls a single scrape call.
type ScrapingOptions struct {
	Timeout         time.Duration  `json:"timeout,omitempty"`
	Retries         int            `json:"retries,omitempty"`
	Delay           time.Duration  `json:"delay,omitempty"` // base backoff delay
	UseCache        bool           `json:"use_cache"`
	CacheTTL        time.Duration  `json:"cache_ttl,omitempty"`
	Method          ScrapingMethod `json:"method,omitempty"`
	UserAgent       string         `json:"user_agent,omitempty"`
	ValidateLinks   bool           `json:"validate_links,omitempty"`
	IncludeMetadata bool           `json:"include_metadata,omitempty"`
	Enrich          bool           `json:"enrich,omitempty"`
}

// DefaultScrapingOptions returns the documented option defaults.
func DefaultScrapingOptions() ScrapingOptions {
	return ScrapingOptions{
		Timeout:  30 * time.Second,
		Retries:  3,
		Delay:    time.Second,
		UseCache: true,
		CacheTTL: time.Hour,
		Method:   MethodAuto,
	}
}

// Normalized returns a copy with zero values replaced by defaults and the
// method lowered to its canonical form. Used both before execution and when
// computing cache fingerprints so equivalent option sets hash identically.
//
// UseCache is the one field Normalized cannot default: its zero value is a
// valid setting (cache off), so a zero ScrapingOptions scrapes uncached.
// Callers that want the documented defaults, caching included, must start
// from DefaultScrapingOptions and override from there.
func (o ScrapingOptions) Normalized() ScrapingOptions {
	defaults := DefaultScrapingOptions()
	if o.Timeout <= 0 {
		o.Timeout = defaults.Timeout
	}
	if o.Retries <= 0 {
		o.Retries = defaults.Retries
	}
	if o.Delay <= 0 {
		o.Delay = defaults.Delay
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = defaults.CacheTTL
	}
	if o.Method == "" {
		o.Method = MethodAuto
	}
	o.Method = ScrapingMethod(strings.ToLower(string(o.Method)))
	return o
}

// EnhancedMetadata is the merged result of a metadata search across providers.
type EnhancedMetadata struct {
	Title      string   `json:"title"`
	Artist     string   `json:"artist"`
	Album      string   `json:"album,omitempty"`
	Year       int      `json:"year,omitempty"`
	Genre      string   `json:"genre,omitempty"`
	Label      string   `json:"label,omitempty"`
	BPM        float64  `json:"bpm,omitempty"`
	Key        string   `json:"key,omitempty"`
	Duration   int      `json:"duration,omitempty"` // seconds
	ISRC       string   `json:"isrc,omitempty"`
	Confidence float64  `json:"confidence,omitempty"`
	Sources    []string `json:"sources,omitempty"`
}

// normalizer strips diacritics so "Beyoncé" and "beyonce" compare equal
// during dedupe and candidate matching.
var normalizer = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// NormalizeText lowercases, folds diacritics and collapses whitespace.
func NormalizeText(s string) string {
	if folded, _, err := transform.String(normalizer, s); err == nil {
		s = folded
	}
	s = strings.ToLower(s)
	return strings.Join(strings.Fields(s), " ")
}
