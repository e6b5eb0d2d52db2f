// Package cache stores rendered artifacts so repeated exports of an
// unchanged frame skip the encoder.
//
// Three backends implement [Cache]:
//
//   - [FileCache]: one JSON file per entry under a directory (CLI default)
//   - [RedisCache]: a shared Redis instance (server deployments)
//   - [NullCache]: never stores anything (--no-cache)
//
// Keys come from a [Keyer], which hashes the inputs that determine the
// artifact. [ScopedKeyer] adds a prefix so several tenants can share one
// backend.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// Cache is a byte-oriented key/value store with optional expiry.
type Cache interface {
	// Get returns the value for key. The bool reports a hit; a miss is not
	// an error.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases resources held by the cache.
	Close() error
}

// ExportKeyOpts are the rendering options that change an exported image.
type ExportKeyOpts struct {
	Format string `json:"format"`
	Scale  int    `json:"scale"`
	Frame  int    `json:"frame"`
}

// Keyer builds cache keys.
type Keyer interface {
	// ExportKey returns the key for an exported frame. contentHash must
	// identify the frame's pixels.
	ExportKey(contentHash string, opts ExportKeyOpts) string
}

// DefaultKeyer produces unscoped keys of the form "kind:sha256".
type DefaultKeyer struct{}

// NewDefaultKeyer returns a DefaultKeyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// ExportKey implements Keyer.
func (DefaultKeyer) ExportKey(contentHash string, opts ExportKeyOpts) string {
	return hashKey("export", contentHash, opts)
}

// hashKey returns "kind:" followed by the SHA-256 of the JSON encoding of
// parts.
func hashKey(kind string, parts ...any) string {
	data, _ := json.Marshal(parts)
	return kind + ":" + Hash(data)
}

// Hash returns the hex SHA-256 of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
