// Package cache stores parse results so repeated submissions of the same
// availability text skip the LLM round trip.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// CacheService defines the cache service interface.
type CacheService interface {
	// Get retrieves a value from cache.
	// Returns: value, whether it exists
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set stores a value in cache.
	// ttl: expiration time, 0 uses the backend default
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Invalidate invalidates cache entries.
	// pattern: exact key or a trailing wildcard (parse:meeting:*)
	Invalidate(ctx context.Context, pattern string) error
}

// StatsReporter is implemented by caches that count hits and misses.
type StatsReporter interface {
	Stats() Stats
}

// KeyHash returns a short SHA256 digest of s.
func KeyHash(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])[:16]
}

// ParseKey builds "parse:<mode>:<hash>" where the hash covers every
// component, so keys stay short no matter how long the text is and a
// whole mode can be invalidated with "parse:<mode>:*".
func ParseKey(mode string, components ...string) string {
	return "parse:" + mode + ":" + KeyHash(strings.Join(components, "\x00"))
}
