// internal/scraper/extract.go
package scraper

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"tracklift/internal/platform"
	"tracklift/pkg/types"
)

// fieldSelector is one step of an ordered fallback chain: a CSS selector
// plus an optional attribute to read instead of the text content.
type fieldSelector struct {
	Selector string
	Attr     string
}

// fieldChain is evaluated in order; the first selector yielding non-empty
// usable text wins.
type fieldChain []fieldSelector

// Page-level chains. The site ships several markup generations, so each
// field carries the selectors observed across them, newest first.
var (
	pageTitleChain = fieldChain{
		{Selector: "#pageTitle"},
		{Selector: "h1.page-title"},
		{Selector: "meta[property='og:title']", Attr: "content"},
		{Selector: "h1"},
	}
	pageArtistChain = fieldChain{
		{Selector: "#pageTitle .artistName"},
		{Selector: ".tlHead .artist a"},
		{Selector: "meta[name='author']", Attr: "content"},
	}
	pageVenueChain = fieldChain{
		{Selector: ".tlHead .venue a"},
		{Selector: "[id*='venue'] a"},
		{Selector: ".event-location"},
	}
	pageDateChain = fieldChain{
		{Selector: ".tlHead .date"},
		{Selector: "[id*='eventDate']"},
		{Selector: "meta[property='music:release_date']", Attr: "content"},
		{Selector: "time", Attr: "datetime"},
	}
)

// trackRowSelectors are tried in priority order until one matches at
// least one row.
var trackRowSelectors = []string{
	".tlpItem",
	"[id^='tlp_']",
	"tr.tlpTog",
	".tracklist-item",
	"ol.tracks > li",
}

// Row-level chains, evaluated relative to one track row.
var (
	trackValueChain = fieldChain{
		{Selector: ".trackValue"},
		{Selector: ".track-value"},
		{Selector: ".trackFormat"},
		{Selector: "meta[itemprop='name']", Attr: "content"},
	}
	trackTimeChain = fieldChain{
		{Selector: ".cueValueField"},
		{Selector: ".cue"},
		{Selector: ".track-time"},
	}
	trackLabelChain = fieldChain{
		{Selector: ".trackLabel"},
		{Selector: ".label a"},
		{Selector: ".record-label"},
	}
)

// firstText resolves a chain against the whole document.
func firstText(doc *goquery.Document, chain fieldChain) string {
	for _, step := range chain {
		if value := selectionText(doc.Find(step.Selector), step.Attr); value != "" {
			return value
		}
	}
	return ""
}

// firstTextIn resolves a chain against one row.
func firstTextIn(row *goquery.Selection, chain fieldChain) string {
	for _, step := range chain {
		if value := selectionText(row.Find(step.Selector), step.Attr); value != "" {
			return value
		}
	}
	return ""
}

func selectionText(sel *goquery.Selection, attr string) string {
	if sel.Length() == 0 {
		return ""
	}
	if attr != "" {
		value, _ := sel.First().Attr(attr)
		return strings.TrimSpace(value)
	}
	return strings.TrimSpace(sel.First().Text())
}

// parseDocument turns a captured page into typed playlist metadata and
// track records.
func parseDocument(doc *goquery.Document, pageURL string) (types.PlaylistMetadata, []types.Track) {
	meta := types.PlaylistMetadata{
		Title:     firstText(doc, pageTitleChain),
		Artist:    firstText(doc, pageArtistChain),
		Venue:     firstText(doc, pageVenueChain),
		Date:      firstText(doc, pageDateChain),
		URL:       pageURL,
		ScrapedAt: time.Now(),
	}

	tracks := parseTracks(doc)
	meta.TotalTracks = len(tracks)

	if meta.Artist == "" {
		meta.Artist = inferArtistFromTitle(meta.Title)
	}
	return meta, tracks
}

// parseTracks finds track rows via the prioritized selector list and
// extracts one Track per row. Rows without a usable title are dropped.
func parseTracks(doc *goquery.Document) []types.Track {
	var rows *goquery.Selection
	for _, selector := range trackRowSelectors {
		found := doc.Find(selector)
		if found.Length() > 0 {
			rows = found
			break
		}
	}
	if rows == nil {
		return nil
	}

	var tracks []types.Track
	rows.Each(func(i int, row *goquery.Selection) {
		value := firstTextIn(row, trackValueChain)
		title, artist, remix := splitTrackValue(value)
		if title == "" {
			return
		}

		track := types.Track{
			ID:       uuid.NewString(),
			Title:    title,
			Artist:   artist,
			Remix:    remix,
			Label:    firstTextIn(row, trackLabelChain),
			Time:     firstTextIn(row, trackTimeChain),
			Position: len(tracks) + 1,
		}

		row.Find("a[href]").Each(func(_ int, anchor *goquery.Selection) {
			href, _ := anchor.Attr("href")
			href = strings.TrimSpace(href)
			if href == "" {
				return
			}
			if p := platform.Classify(href); p != types.PlatformOther {
				track.AddLink(types.TrackLink{Platform: p, URL: href})
			}
		})

		tracks = append(tracks, track)
	})
	return tracks
}

// splitTrackValue splits the combined "Artist - Title (Remix)" row value.
// Rows carrying only a title come back with an empty artist.
func splitTrackValue(value string) (title, artist, remix string) {
	value = strings.Join(strings.Fields(value), " ")
	if value == "" {
		return "", "", ""
	}

	if idx := strings.Index(value, " - "); idx > 0 {
		artist = strings.TrimSpace(value[:idx])
		title = strings.TrimSpace(value[idx+3:])
	} else {
		title = value
	}

	// Pull a trailing parenthesized remix/version marker out of the title.
	if open := strings.LastIndex(title, "("); open > 0 && strings.HasSuffix(title, ")") {
		inner := title[open+1 : len(title)-1]
		if looksLikeVersion(inner) {
			remix = strings.TrimSpace(inner)
			title = strings.TrimSpace(title[:open])
		}
	}
	return title, artist, remix
}

var versionMarkers = []string{"mix", "remix", "edit", "dub", "version", "bootleg", "rework", "vip"}

func looksLikeVersion(s string) bool {
	lowered := strings.ToLower(s)
	for _, marker := range versionMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}

// inferArtistFromTitle guesses the set artist from titles shaped like
// "Artist @ Venue" or "Artist - Event".
func inferArtistFromTitle(title string) string {
	for _, sep := range []string{" @ ", " - ", " | ", " live at "} {
		if idx := strings.Index(title, sep); idx > 0 {
			return strings.TrimSpace(title[:idx])
		}
	}
	return ""
}
