// internal/metadata/aggregator.go
package metadata

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strconv"
	"time"

	"tracklift/internal/cache"
	"tracklift/internal/logging"
	"tracklift/internal/monitoring"
	"tracklift/pkg/types"
)

// SearchOptions controls provider selection for one metadata search.
type SearchOptions struct {
	// Enrich selects the catalog-scrape provider; without it only the
	// lightweight fallback provider runs. Selection is exclusive, never
	// pooled.
	Enrich bool
	// CacheTTL bounds how long the merged result may be served from
	// cache. Zero uses the default.
	CacheTTL time.Duration
}

const defaultMetadataTTL = 24 * time.Hour

// Aggregator sequences providers and merges their partial results by
// confidence. It never returns an error: provider failures are logged
// and the caller gets whatever could be assembled.
type Aggregator struct {
	catalog  Provider
	fallback Provider
	cache    cache.Store
	logger   logging.Logger
	metrics  *monitoring.Metrics
}

// NewAggregator wires the two provider slots. Either may be nil.
func NewAggregator(catalog, fallback Provider, store cache.Store, logger logging.Logger, metrics *monitoring.Metrics) *Aggregator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Aggregator{catalog: catalog, fallback: fallback, cache: store, logger: logger, metrics: metrics}
}

// SearchMetadata runs the selected providers sequentially, short-circuits
// on the first usable hit and merges by confidence. The result always
// carries the requested title/artist even when every provider came back
// empty.
func (a *Aggregator) SearchMetadata(ctx context.Context, title, artist string, opts SearchOptions) *types.EnhancedMetadata {
	key := metadataFingerprint(title, artist, opts.Enrich)
	if cached, ok := a.cacheLookup(ctx, key); ok {
		a.metrics.CacheHit()
		return cached
	}
	a.metrics.CacheMiss()

	var hits []*types.EnhancedMetadata
	for _, provider := range a.selectProviders(opts) {
		if !provider.IsConfigured() {
			a.logger.Warnf("metadata: provider %s is not configured, skipping", provider.Name())
			continue
		}

		start := time.Now()
		hit, err := provider.Search(ctx, title, artist)
		a.metrics.ProviderSearch(provider.Name(), hit != nil, time.Since(start))

		if err != nil {
			// Swallowed: a broken provider degrades the result, never
			// the call.
			a.logger.Warnf("metadata: provider %s failed: %v", provider.Name(), err)
			continue
		}
		if hit == nil || !usable(hit) {
			continue
		}
		hits = append(hits, hit)
		break
	}

	merged := mergeHits(hits)
	merged.Title = title
	merged.Artist = artist

	if len(hits) > 0 {
		a.cacheStore(ctx, key, merged, opts.CacheTTL)
	}
	return merged
}

// selectProviders implements the exclusive selection rule.
func (a *Aggregator) selectProviders(opts SearchOptions) []Provider {
	if opts.Enrich {
		if a.catalog == nil {
			return nil
		}
		return []Provider{a.catalog}
	}
	if a.fallback == nil {
		return nil
	}
	return []Provider{a.fallback}
}

// usable reports whether a hit carries at least one enrichment field.
func usable(meta *types.EnhancedMetadata) bool {
	return meta.Album != "" || meta.Genre != "" || meta.Label != "" ||
		meta.Key != "" || meta.BPM > 0 || meta.Year > 0 || meta.Duration > 0 ||
		meta.ISRC != ""
}

// mergeHits merges partial results by confidence, descending: the best
// hit seeds the result, lower-confidence hits backfill missing fields,
// and BPM reported by several sources is averaged. Sources lists every
// contributor in merge order.
func mergeHits(hits []*types.EnhancedMetadata) *types.EnhancedMetadata {
	merged := &types.EnhancedMetadata{}
	if len(hits) == 0 {
		return merged
	}

	ordered := make([]*types.EnhancedMetadata, len(hits))
	copy(ordered, hits)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Confidence > ordered[j].Confidence
	})

	*merged = *ordered[0]
	merged.Sources = append([]string(nil), ordered[0].Sources...)

	bpmTotal := 0.0
	bpmCount := 0
	if merged.BPM > 0 {
		bpmTotal, bpmCount = merged.BPM, 1
	}

	for _, hit := range ordered[1:] {
		if merged.Album == "" {
			merged.Album = hit.Album
		}
		if merged.Genre == "" {
			merged.Genre = hit.Genre
		}
		if merged.Label == "" {
			merged.Label = hit.Label
		}
		if merged.Key == "" {
			merged.Key = hit.Key
		}
		if merged.Year == 0 {
			merged.Year = hit.Year
		}
		if merged.Duration == 0 {
			merged.Duration = hit.Duration
		}
		if merged.ISRC == "" {
			merged.ISRC = hit.ISRC
		}
		if hit.BPM > 0 {
			bpmTotal += hit.BPM
			bpmCount++
		}
		merged.Sources = append(merged.Sources, hit.Sources...)
	}

	if bpmCount > 0 {
		merged.BPM = bpmTotal / float64(bpmCount)
	}
	return merged
}

// metadataFingerprint computes the cache key for one search.
func metadataFingerprint(title, artist string, enrich bool) string {
	payload := types.NormalizeText(title) + "|" + types.NormalizeText(artist) + "|" + strconv.FormatBool(enrich)
	sum := sha256.Sum256([]byte(payload))
	return "metadata:" + hex.EncodeToString(sum[:])
}

func (a *Aggregator) cacheLookup(ctx context.Context, key string) (*types.EnhancedMetadata, bool) {
	if a.cache == nil {
		return nil, false
	}
	entry, ok := a.cache.Get(ctx, key)
	if !ok {
		return nil, false
	}
	var meta types.EnhancedMetadata
	if err := json.Unmarshal(entry.Payload, &meta); err != nil {
		a.logger.Warnf("metadata: dropping undecodable cache entry: %v", err)
		_ = a.cache.Invalidate(ctx, key)
		return nil, false
	}
	return &meta, true
}

func (a *Aggregator) cacheStore(ctx context.Context, key string, meta *types.EnhancedMetadata, ttl time.Duration) {
	if a.cache == nil {
		return
	}
	if ttl <= 0 {
		ttl = defaultMetadataTTL
	}
	payload, err := json.Marshal(meta)
	if err != nil {
		return
	}
	if err := a.cache.Set(ctx, key, payload, ttl); err != nil {
		a.logger.Warnf("metadata: cache store failed: %v", err)
	}
}
