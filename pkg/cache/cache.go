// Package cache stores rendered artifacts keyed by image content and run
// parameters.
//
// Two runs over the same pixels with the same parameters and seed produce the
// same points, so their artifacts can be reused. The CLI uses a [FileCache]
// under the user cache directory, the HTTP server can share a [RedisCache]
// across instances, and [NullCache] disables caching.
//
// Keys are produced by a [Keyer]. [DefaultKeyer] hashes every option that
// affects the output; [ScopedKeyer] adds a prefix for namespacing.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with optional expiry.
type Cache interface {
	// Get returns the value for key and whether it was found.
	// Expired or unreadable entries count as misses.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the cache.
	Close() error
}

// TTLs for cached entries.
const (
	// TTLArtifact is how long rendered SVG, PNG, and JSON output is kept.
	TTLArtifact = 7 * 24 * time.Hour
)

// ArtifactKeyOpts lists every parameter that changes a rendered artifact.
type ArtifactKeyOpts struct {
	Format          string  `json:"format"`
	MaxDim          int     `json:"max_dim"`
	PointCount      int     `json:"points"`
	Iterations      int     `json:"iterations"`
	Gamma           float64 `json:"gamma"`
	Invert          bool    `json:"invert"`
	Relax           float64 `json:"relax"`
	SamplesPerPoint int     `json:"spp"`
	Seed            uint64  `json:"seed"`
	DotSize         float64 `json:"dot_size"`
	DotColor        string  `json:"dot_color"`
	Background      string  `json:"background,omitempty"`
	ShowSource      bool    `json:"show_source,omitempty"`
	Scale           float64 `json:"scale,omitempty"`
}

// Keyer builds cache keys.
type Keyer interface {
	// ArtifactKey returns the key for an artifact rendered from the image
	// with the given content hash.
	ArtifactKey(imageHash string, opts ArtifactKeyOpts) string
}

// DefaultKeyer produces "artifact:<sha256>" keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// ArtifactKey hashes the image hash together with all options.
func (DefaultKeyer) ArtifactKey(imageHash string, opts ArtifactKeyOpts) string {
	return hashKey("artifact", imageHash, opts)
}
