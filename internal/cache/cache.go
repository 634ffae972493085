// Package cache stores probe responses so repeated candidates within and
// across runs do not refetch. Keys are derived from the probed URL; values
// are opaque bytes owned by the caller.
package cache

import (
	"time"

	"github.com/osprey-sec/osprey/internal/identity"
)

// Cache is the storage contract shared by the memory, disk, and layered
// implementations.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key derives a stable cache key from a URL.
func Key(url string) string {
	return "osprey-v1-" + identity.SHA256Hex([]byte(url))
}
