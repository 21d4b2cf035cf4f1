package markets

import (
	"fmt"

	"github.com/mselser95/sports-arb/pkg/cache"
)

// CachedParser memoizes ParseOddID. The provider reuses the same few thousand odd IDs
// across every event and scan, so parsed descriptors are kept in the shared cache.
type CachedParser struct {
	cache cache.Cache
}

// NewCachedParser creates a parser backed by c. Entries live for the cache's
// default TTL. A nil cache parses every time.
func NewCachedParser(c cache.Cache) *CachedParser {
	return &CachedParser{cache: c}
}

// Parse returns the descriptor for oddID. Parse failures are cached too so a
// malformed ID is not re-split on every scan.
func (p *CachedParser) Parse(oddID string) (Descriptor, error) {
	cacheKey := fmt.Sprintf("oddid:%s", oddID)

	if p.cache != nil {
		if cached, ok := p.cache.Get(cacheKey); ok {
			switch v := cached.(type) {
			case Descriptor:
				DescriptorCacheHitsTotal.Inc()
				return v, nil
			case error:
				DescriptorCacheHitsTotal.Inc()
				return Descriptor{}, v
			}
		}
		DescriptorCacheMissesTotal.Inc()
	}

	d, err := ParseOddID(oddID)

	if p.cache != nil {
		if err != nil {
			p.cache.Set(cacheKey, err, 0)
		} else {
			p.cache.Set(cacheKey, d, 0)
		}
	}

	return d, err
}
