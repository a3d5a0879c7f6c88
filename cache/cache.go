// Package cache provides short-lived key sets used to skip redundant
// idempotent writes. A cache miss only costs an extra store round-trip.
package cache

import (
	"context"
	"strconv"
	"strings"
	"time"
)

// Set is a set of opaque keys that may forget entries at any time.
type Set interface {
	// Add inserts key, refreshing its expiry if already present.
	Add(ctx context.Context, key string) error
	// Discard removes key. It is a no-op if key is absent.
	Discard(ctx context.Context, key string) error
	// Exists reports whether key was added and has not yet expired.
	Exists(ctx context.Context, key string) (bool, error)
	// Close releases the set and drops every entry.
	Close() error
}

// Key builds a cache key from a bucket name and one or more ids.
func Key(bucket string, ids ...uint64) string {
	var b strings.Builder
	b.WriteString(bucket)
	for _, id := range ids {
		b.WriteByte('-')
		b.WriteString(strconv.FormatUint(id, 10))
	}
	return b.String()
}

// Clock abstracts time for the memory set so tests can advance it.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

// Now returns time.Now, which carries a monotonic reading.
func (realClock) Now() time.Time { return time.Now() }
