// internal/metadata/catalog.go
package metadata

import (
	"context"
	"errors"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"tracklift/internal/config"
	"tracklift/internal/logging"
	"tracklift/internal/matcher"
	"tracklift/internal/monitoring"
	"tracklift/internal/scraper"
	"tracklift/pkg/types"
)

const catalogConfidence = 0.9

// PageFetcher retrieves rendered page HTML for the catalog provider.
// Scraper strategies satisfy it through StrategyFetcher.
type PageFetcher interface {
	FetchPage(ctx context.Context, url string) (string, error)
}

// StrategyFetcher adapts a scraper strategy backend to PageFetcher.
type StrategyFetcher struct {
	Strategy scraper.Strategy
}

// FetchPage implements PageFetcher.
func (f StrategyFetcher) FetchPage(ctx context.Context, target string) (string, error) {
	capture, err := f.Strategy.Fetch(ctx, target, types.ScrapingOptions{})
	if err != nil {
		return "", err
	}
	return capture.HTML, nil
}

// CatalogProvider scrapes an electronic-music catalog site: it fetches
// the search page, ranks result anchors against the target track,
// navigates to the best-matching detail page and extracts fields through
// a three-tier fallback (selectors, labeled table cells, whole-page
// regex). The whole pipeline for one track runs under a single hard
// deadline and fails soft on timeout.
type CatalogProvider struct {
	cfg     config.CatalogConfig
	fetcher PageFetcher
	logger  logging.Logger
	metrics *monitoring.Metrics
}

// NewCatalogProvider wires the provider to a page fetcher, typically a
// headless strategy backend.
func NewCatalogProvider(cfg config.CatalogConfig, fetcher PageFetcher, logger logging.Logger, metrics *monitoring.Metrics) *CatalogProvider {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &CatalogProvider{cfg: cfg, fetcher: fetcher, logger: logger, metrics: metrics}
}

// Name implements Provider.
func (p *CatalogProvider) Name() string { return "catalog" }

// Confidence implements Provider.
func (p *CatalogProvider) Confidence() float64 { return catalogConfidence }

// IsConfigured implements Provider.
func (p *CatalogProvider) IsConfigured() bool {
	return p.cfg.BaseURL != "" && p.fetcher != nil
}

// Search implements Provider. Timeouts and blocked navigation surface as
// a clean miss so the aggregator can degrade instead of failing.
func (p *CatalogProvider) Search(ctx context.Context, title, artist string) (*types.EnhancedMetadata, error) {
	if !p.IsConfigured() {
		return nil, errors.New("catalog provider is not configured")
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.Deadline.Std())
	defer cancel()

	query := strings.TrimSpace(artist + " " + title)
	searchURL := p.cfg.BaseURL + p.cfg.SearchPath + url.QueryEscape(query)

	searchHTML, err := p.fetcher.FetchPage(ctx, searchURL)
	if err != nil {
		return p.softFail("search fetch", err)
	}
	searchDoc, err := goquery.NewDocumentFromReader(strings.NewReader(searchHTML))
	if err != nil {
		return p.softFail("search parse", err)
	}

	best, ok := matcher.Best(collectCandidates(searchDoc), matcher.Target{Title: title, Artist: artist})
	if !ok {
		p.logger.Debugf("catalog: no confident match for %q / %q", title, artist)
		return nil, nil
	}

	detailHTML, err := p.fetcher.FetchPage(ctx, p.resolve(best.Href))
	if err != nil {
		return p.softFail("detail fetch", err)
	}
	detailDoc, err := goquery.NewDocumentFromReader(strings.NewReader(detailHTML))
	if err != nil {
		return p.softFail("detail parse", err)
	}

	meta := p.extractDetail(detailDoc)
	meta.Title = title
	meta.Artist = artist
	meta.Confidence = p.Confidence()
	meta.Sources = []string{p.Name()}
	return meta, nil
}

// softFail turns pipeline failures into a miss. The catalog site hanging
// or blocking must never take the enrichment call down with it.
func (p *CatalogProvider) softFail(stage string, err error) (*types.EnhancedMetadata, error) {
	p.logger.Warnf("catalog: %s failed: %v", stage, err)
	return nil, nil
}

// resolve turns a relative detail href into an absolute URL.
func (p *CatalogProvider) resolve(href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return strings.TrimSuffix(p.cfg.BaseURL, "/") + "/" + strings.TrimPrefix(href, "/")
}

// collectCandidates gathers track anchors from a search result page.
func collectCandidates(doc *goquery.Document) []matcher.Candidate {
	var candidates []matcher.Candidate
	seen := make(map[string]bool)

	doc.Find("a[href*='/track/'], a[href*='/release/'], .track-title a, [class*='track'] a").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || href == "" || seen[href] {
			return
		}
		text := strings.Join(strings.Fields(sel.Text()), " ")
		if text == "" {
			return
		}
		seen[href] = true
		candidates = append(candidates, matcher.Candidate{Text: text, Href: href})
	})
	return candidates
}

func (p *CatalogProvider) extractDetail(doc *goquery.Document) *types.EnhancedMetadata {
	meta := &types.EnhancedMetadata{
		BPM:   extractBPM(doc),
		Key:   extractKey(doc),
		Genre: extractGenre(doc),
		Label: extractLabel(doc),
		Year:  extractYear(doc),
		Album: firstSelectorText(doc, []string{".interior-track-release a", "[class*='release-title']"}),
	}
	return meta
}

var bpmPattern = regexp.MustCompile(`(?i)\b(\d{2,3})\s*bpm\b`)

// extractBPM walks the three tiers and accepts only values in the range
// a real dance record can have.
func extractBPM(doc *goquery.Document) float64 {
	raw := firstSelectorText(doc, []string{
		".interior-track-bpm .value",
		"[class*='bpm'] .value",
		"[class*='Bpm']",
	})
	if raw == "" {
		raw = labeledValue(doc, "bpm")
	}
	if bpm, ok := parseBPM(raw); ok {
		return bpm
	}
	if m := bpmPattern.FindStringSubmatch(doc.Text()); m != nil {
		if bpm, ok := parseBPM(m[1]); ok {
			return bpm
		}
	}
	return 0
}

var digitsPattern = regexp.MustCompile(`\d{2,3}`)

func parseBPM(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if m := digitsPattern.FindString(raw); m != "" {
		raw = m
	}
	bpm, err := strconv.ParseFloat(raw, 64)
	if err != nil || bpm < 60 || bpm > 200 {
		return 0, false
	}
	return bpm, true
}

var keyPattern = regexp.MustCompile(`(?i)\b([A-G])\s*([#♭b]?)\s*(major|minor|maj|min)\b`)

func extractKey(doc *goquery.Document) string {
	raw := firstSelectorText(doc, []string{
		".interior-track-key .value",
		"[class*='key'] .value",
	})
	if raw == "" {
		raw = labeledValue(doc, "key")
	}
	if key := normalizeKey(raw); key != "" {
		return key
	}
	return normalizeKey(doc.Text())
}

// normalizeKey canonicalizes key notation: "a min" and "A♭ Maj" become
// "A Minor" and "Ab Major".
func normalizeKey(raw string) string {
	m := keyPattern.FindStringSubmatch(raw)
	if m == nil {
		return ""
	}

	note := strings.ToUpper(m[1])
	accidental := m[2]
	if accidental == "♭" {
		accidental = "b"
	}

	quality := "Major"
	if strings.HasPrefix(strings.ToLower(m[3]), "min") {
		quality = "Minor"
	}
	return note + accidental + " " + quality
}

// genreVocabulary is checked longest-first so "tech house" wins over
// "house".
var genreVocabulary = []string{
	"progressive house", "electro house", "future house", "bass house",
	"deep house", "tech house", "acid house", "afro house",
	"drum & bass", "drum and bass", "melodic techno", "hard techno",
	"minimal techno", "psy-trance", "uplifting trance", "hard dance",
	"breakbeat", "hardstyle", "dubstep", "techno", "trance", "house",
	"electronica", "ambient", "garage", "disco", "downtempo", "dnb",
}

func extractGenre(doc *goquery.Document) string {
	raw := firstSelectorText(doc, []string{
		".interior-track-genre a",
		"[class*='genre'] a",
		"[class*='genre'] .value",
	})
	if raw == "" {
		raw = labeledValue(doc, "genre")
	}
	if genre := matchGenre(raw); genre != "" {
		return genre
	}
	return matchGenre(doc.Text())
}

// matchGenre maps free text onto the curated vocabulary, dropping stray
// tokens around the known genre name.
func matchGenre(raw string) string {
	lowered := strings.ToLower(raw)
	for _, genre := range genreVocabulary {
		if strings.Contains(lowered, genre) {
			return titleCase(genre)
		}
	}
	return ""
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, word := range words {
		if word == "&" || word == "and" {
			continue
		}
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}

func extractLabel(doc *goquery.Document) string {
	if label := firstSelectorText(doc, []string{
		".interior-track-labels a",
		"[class*='label'] a",
	}); label != "" {
		return label
	}
	return labeledValue(doc, "label")
}

var yearPattern = regexp.MustCompile(`\b(19|20)\d{2}\b`)

func extractYear(doc *goquery.Document) int {
	raw := firstSelectorText(doc, []string{
		".interior-track-released .value",
		"[class*='released'] .value",
	})
	if raw == "" {
		raw = labeledValue(doc, "released")
	}
	if m := yearPattern.FindString(raw); m != "" {
		year, _ := strconv.Atoi(m)
		return year
	}
	return 0
}

// firstSelectorText is tier one: the first selector with a non-empty
// text wins.
func firstSelectorText(doc *goquery.Document, selectors []string) string {
	for _, selector := range selectors {
		if text := strings.TrimSpace(doc.Find(selector).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

// labeledValue is tier two: positional lookup in label/value structures
// (table rows, definition lists, "BPM: 128" list items).
func labeledValue(doc *goquery.Document, label string) string {
	value := ""

	doc.Find("tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		cells := row.Find("th, td")
		if cells.Length() < 2 {
			return true
		}
		if strings.Contains(strings.ToLower(cells.First().Text()), label) {
			value = strings.TrimSpace(cells.Eq(1).Text())
			return value == ""
		}
		return true
	})
	if value != "" {
		return value
	}

	doc.Find("dt").EachWithBreak(func(_ int, dt *goquery.Selection) bool {
		if strings.Contains(strings.ToLower(dt.Text()), label) {
			value = strings.TrimSpace(dt.Next().Text())
			return value == ""
		}
		return true
	})
	if value != "" {
		return value
	}

	doc.Find("li, span, div").EachWithBreak(func(_ int, item *goquery.Selection) bool {
		if item.Children().Length() > 0 {
			return true
		}
		text := strings.TrimSpace(item.Text())
		lowered := strings.ToLower(text)
		if strings.HasPrefix(lowered, label+":") {
			value = strings.TrimSpace(text[len(label)+1:])
			return value == ""
		}
		return true
	})
	return value
}
