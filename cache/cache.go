package cache

import (
	"context"
	"errors"
	"strings"
	"time"
)

var ErrNotFound = errors.New("cache: key not found")

// Store represents a simple TTL-based cache abstraction that can be backed
// by memory, Redis, PostgreSQL, or any other KV store.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Key builds a parameter-addressed key such as "mars:curiosity:1000:all".
// Callers substitute their own placeholder for absent parameters so that
// distinct inputs never collapse onto the same key.
func Key(tag string, parts ...string) string {
	var b strings.Builder
	b.WriteString(tag)
	for _, p := range parts {
		b.WriteByte(':')
		b.WriteString(p)
	}
	return b.String()
}
