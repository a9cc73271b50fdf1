// internal/metadata/catalog_test.go
package metadata

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tracklift/internal/config"
	"tracklift/internal/logging"
)

const searchPageHTML = `<html><body>
<div class="search-results">
	<a href="/track/strobe-original-mix/101">deadmau5 - Strobe (Original Mix)</a>
	<a href="/track/strobe-club-edit/102">deadmau5 - Strobe (Club Edit)</a>
	<a href="/track/ghosts-n-stuff/103">deadmau5 - Ghosts 'n' Stuff</a>
	<a href="/release/random-album/55">Various Artists - Beach Anthems</a>
</div>
</body></html>`

const detailPageHTML = `<html><body>
<div class="interior-track-content">
	<div class="interior-track-bpm"><span class="label">BPM</span><span class="value">128</span></div>
	<div class="interior-track-key"><span class="label">Key</span><span class="value">F# min</span></div>
	<div class="interior-track-genre"><a href="/genre/progressive-house">Progressive House</a></div>
	<div class="interior-track-labels"><a href="/label/mau5trap">mau5trap</a></div>
	<div class="interior-track-released"><span class="value">2009-10-06</span></div>
</div>
</body></html>`

// fakeFetcher serves canned pages by URL substring.
type fakeFetcher struct {
	pages   map[string]string
	fetched []string
	block   bool
}

func (f *fakeFetcher) FetchPage(ctx context.Context, url string) (string, error) {
	f.fetched = append(f.fetched, url)
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	for fragment, html := range f.pages {
		if strings.Contains(url, fragment) {
			return html, nil
		}
	}
	return "<html><body></body></html>", nil
}

func testCatalogConfig() config.CatalogConfig {
	return config.CatalogConfig{
		BaseURL:    "https://catalog.example.com",
		SearchPath: "/search?q=",
		Deadline:   config.Duration(5 * time.Second),
	}
}

func TestCatalogSearchFullPipeline(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]string{
		"/search":                    searchPageHTML,
		"/track/strobe-original-mix": detailPageHTML,
	}}
	provider := NewCatalogProvider(testCatalogConfig(), fetcher, logging.NewNop(), nil)

	meta, err := provider.Search(context.Background(), "Strobe", "deadmau5")
	require.NoError(t, err)
	require.NotNil(t, meta)

	assert.Equal(t, "Strobe", meta.Title)
	assert.Equal(t, "deadmau5", meta.Artist)
	assert.Equal(t, 128.0, meta.BPM)
	assert.Equal(t, "F# Minor", meta.Key)
	assert.Equal(t, "Progressive House", meta.Genre)
	assert.Equal(t, "mau5trap", meta.Label)
	assert.Equal(t, 2009, meta.Year)
	assert.Equal(t, catalogConfidence, meta.Confidence)
	assert.Equal(t, []string{"catalog"}, meta.Sources)

	// The plain title must select the original mix over the club edit.
	require.Len(t, fetcher.fetched, 2)
	assert.Contains(t, fetcher.fetched[1], "strobe-original-mix")
}

func TestCatalogSearchNoConfidentMatch(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]string{"/search": searchPageHTML}}
	provider := NewCatalogProvider(testCatalogConfig(), fetcher, logging.NewNop(), nil)

	meta, err := provider.Search(context.Background(), "Windowlicker", "Aphex Twin")
	require.NoError(t, err)
	assert.Nil(t, meta, "an unrelated result page must be a clean miss")
	assert.Len(t, fetcher.fetched, 1, "no detail page should be fetched without a match")
}

func TestCatalogSearchDeadlineFailsSoft(t *testing.T) {
	cfg := testCatalogConfig()
	cfg.Deadline = config.Duration(50 * time.Millisecond)
	provider := NewCatalogProvider(cfg, &fakeFetcher{block: true}, logging.NewNop(), nil)

	start := time.Now()
	meta, err := provider.Search(context.Background(), "Strobe", "deadmau5")
	require.NoError(t, err, "deadline must degrade to a miss, not an error")
	assert.Nil(t, meta)
	assert.Less(t, time.Since(start), time.Second, "the hard deadline must bound the call")
}

func TestCatalogSearchUnconfigured(t *testing.T) {
	provider := NewCatalogProvider(config.CatalogConfig{}, nil, logging.NewNop(), nil)
	assert.False(t, provider.IsConfigured())

	_, err := provider.Search(context.Background(), "Strobe", "deadmau5")
	assert.Error(t, err)
}

func mustDetailDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestExtractFieldsFromLabeledTable(t *testing.T) {
	doc := mustDetailDoc(t, `<html><body><table>
		<tr><th>BPM</th><td>174</td></tr>
		<tr><th>Key</th><td>A min</td></tr>
		<tr><th>Genre</th><td>Drum &amp; Bass</td></tr>
		<tr><th>Label</th><td>Hospital Records</td></tr>
		<tr><th>Released</th><td>June 2015</td></tr>
	</table></body></html>`)

	assert.Equal(t, 174.0, extractBPM(doc))
	assert.Equal(t, "A Minor", extractKey(doc))
	assert.Equal(t, "Drum & Bass", extractGenre(doc))
	assert.Equal(t, "Hospital Records", extractLabel(doc))
	assert.Equal(t, 2015, extractYear(doc))
}

func TestExtractFieldsFromPlainText(t *testing.T) {
	doc := mustDetailDoc(t, `<html><body><p>This Tech House cut clocks
	in at 126 BPM and is written in G minor.</p></body></html>`)

	assert.Equal(t, 126.0, extractBPM(doc))
	assert.Equal(t, "G Minor", extractKey(doc))
	assert.Equal(t, "Tech House", extractGenre(doc))
}

func TestExtractBPMRejectsImplausibleValues(t *testing.T) {
	doc := mustDetailDoc(t, `<html><body><p>rendered at 250 BPM</p></body></html>`)
	assert.Equal(t, 0.0, extractBPM(doc))

	doc = mustDetailDoc(t, `<html><body><p>around 59 BPM</p></body></html>`)
	assert.Equal(t, 0.0, extractBPM(doc))
}

func TestNormalizeKey(t *testing.T) {
	tests := []struct{ in, want string }{
		{"F# min", "F# Minor"},
		{"a minor", "A Minor"},
		{"Ab Major", "Ab Major"},
		{"E♭ maj", "Eb Major"},
		{"not a key", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizeKey(tt.in), "normalizeKey(%q)", tt.in)
	}
}

func TestMatchGenrePrefersSpecificName(t *testing.T) {
	assert.Equal(t, "Deep House", matchGenre("Genres: Deep House / Electronica"))
	assert.Equal(t, "Melodic Techno", matchGenre("melodic techno adjacent"))
	assert.Equal(t, "", matchGenre("spoken word"))
}
