package analysis

import (
	"container/list"
	"regexp"
	"sync"
)

// DefaultRegexCacheSize is the number of compiled patterns kept.
const DefaultRegexCacheSize = 128

// maxCachedPatternLength keeps pathological patterns out of the cache.
const maxCachedPatternLength = 1000

// RegexCache is an LRU of compiled search patterns shared across requests.
type RegexCache struct {
	mu      sync.Mutex
	entries map[string]*list.Element
	lru     *list.List
	maxSize int
	stats   CacheStats
}

// CacheStats counts cache traffic.
type CacheStats struct {
	Hits      int64
	Misses    int64
	Evictions int64
}

type cacheEntry struct {
	key      string
	compiled *regexp.Regexp
}

func NewRegexCache(maxSize int) *RegexCache {
	if maxSize <= 0 {
		maxSize = DefaultRegexCacheSize
	}
	return &RegexCache{
		entries: make(map[string]*list.Element),
		lru:     list.New(),
		maxSize: maxSize,
	}
}

func buildCacheKey(pattern string, caseInsensitive bool) string {
	if caseInsensitive {
		return "(?i)" + pattern
	}
	return pattern
}

// Compile returns the compiled form of pattern, compiling it on a miss.
func (rc *RegexCache) Compile(pattern string, caseInsensitive bool) (*regexp.Regexp, error) {
	key := buildCacheKey(pattern, caseInsensitive)

	rc.mu.Lock()
	if e, ok := rc.entries[key]; ok {
		rc.lru.MoveToFront(e)
		rc.stats.Hits++
		rc.mu.Unlock()
		return e.Value.(*cacheEntry).compiled, nil
	}
	rc.stats.Misses++
	rc.mu.Unlock()

	compiled, err := regexp.Compile(key)
	if err != nil {
		return nil, err
	}
	if len(pattern) > maxCachedPatternLength {
		return compiled, nil
	}

	rc.mu.Lock()
	defer rc.mu.Unlock()
	if e, ok := rc.entries[key]; ok {
		return e.Value.(*cacheEntry).compiled, nil
	}
	if rc.lru.Len() >= rc.maxSize {
		if back := rc.lru.Back(); back != nil {
			delete(rc.entries, back.Value.(*cacheEntry).key)
			rc.lru.Remove(back)
			rc.stats.Evictions++
		}
	}
	rc.entries[key] = rc.lru.PushFront(&cacheEntry{key: key, compiled: compiled})
	return compiled, nil
}

// Stats returns a copy of the counters.
func (rc *RegexCache) Stats() CacheStats {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.stats
}
