package cache

import "time"

// Cache is a keyed TTL cache. RistrettoCache is the only implementation; the
// interface lets markets depend on the behavior without the ristretto import.
type Cache interface {
	Get(key string) (interface{}, bool)

	// Set reports whether the write was admitted. A ttl <= 0 uses the cache default.
	Set(key string, value interface{}, ttl time.Duration) bool

	Delete(key string)
	Clear()

	// Wait blocks until earlier Sets are visible to Get.
	Wait()

	Close()
}
