// internal/metadata/provider.go
// Package metadata enriches individual tracks with catalog attributes
// (BPM, key, genre, label) through pluggable providers sequenced by an
// aggregator.
package metadata

import (
	"context"

	"tracklift/pkg/types"
)

// Provider is the common search contract. Search returns (nil, nil) for
// a clean miss; errors are reserved for infrastructure failures the
// aggregator may want to log.
type Provider interface {
	// Name identifies the provider in EnhancedMetadata.Sources.
	Name() string
	// Confidence is the trust score attached to this provider's fields
	// during aggregation.
	Confidence() float64
	// IsConfigured reports whether the provider has the configuration it
	// needs to run.
	IsConfigured() bool
	Search(ctx context.Context, title, artist string) (*types.EnhancedMetadata, error)
}
