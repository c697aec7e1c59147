// pkg/cache/parse_cache.go
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/golang/groupcache/lru"
)

// DefaultCapacity is the default number of parse trees to cache
const DefaultCapacity = 512

// Entry holds a cached parse tree
type Entry struct {
	Lang      string // sql, action, procedure or schema
	Tree      any
	CreatedAt time.Time
	Size      int64 // source length in bytes
}

// Stats holds statistics about the parse cache
type Stats struct {
	Hits     int64
	Misses   int64
	Entries  int
	Capacity int
	Bytes    int64
	HitRate  float64
}

// ParseCache is an LRU cache of parse trees keyed by source text. Cached
// trees are shared between callers and must not be modified.
type ParseCache struct {
	mu        sync.RWMutex
	capacity  int
	entries   *lru.Cache
	langIndex map[string]map[string]struct{} // lang -> set of cache keys
	bytes     int64
	hits      int64
	misses    int64
	ttl       time.Duration
}

// New creates a new parse cache with the specified capacity.
// If capacity is 0 or negative, DefaultCapacity is used.
func New(capacity int) *ParseCache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	pc := &ParseCache{
		capacity:  capacity,
		langIndex: make(map[string]map[string]struct{}),
	}
	pc.reset()
	return pc
}

func (pc *ParseCache) reset() {
	pc.entries = lru.New(pc.capacity)
	pc.entries.OnEvicted = pc.evicted
	pc.bytes = 0
	pc.langIndex = make(map[string]map[string]struct{})
}

// GenerateKey returns the cache key for src parsed as lang.
func GenerateKey(lang, src string) string {
	h := sha256.New()
	h.Write([]byte(lang))
	h.Write([]byte{0})
	h.Write([]byte(src))
	return hex.EncodeToString(h.Sum(nil))
}

// Capacity returns the maximum number of entries
func (pc *ParseCache) Capacity() int {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	return pc.capacity
}

// SetCapacity changes the maximum number of entries, evicting the least
// recently used ones if the cache is over the new limit.
func (pc *ParseCache) SetCapacity(capacity int) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	pc.mu.Lock()
	defer pc.mu.Unlock()

	pc.capacity = capacity
	pc.entries.MaxEntries = capacity
	for pc.entries.Len() > capacity {
		pc.entries.RemoveOldest()
	}
}

// SetTTL sets how long entries stay valid. Zero disables expiry.
func (pc *ParseCache) SetTTL(ttl time.Duration) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.ttl = ttl
}

// Put caches tree under key, replacing any previous entry.
func (pc *ParseCache) Put(key, lang string, tree any, size int64) {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	// Add on an existing key replaces the value without OnEvicted
	pc.entries.Remove(key)

	pc.entries.Add(key, &Entry{
		Lang:      lang,
		Tree:      tree,
		CreatedAt: time.Now(),
		Size:      size,
	})
	pc.bytes += size
	keys, ok := pc.langIndex[lang]
	if !ok {
		keys = make(map[string]struct{})
		pc.langIndex[lang] = keys
	}
	keys[key] = struct{}{}
}

// Get retrieves a cached entry
func (pc *ParseCache) Get(key string) (*Entry, bool) {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	v, ok := pc.entries.Get(key)
	if !ok {
		pc.misses++
		return nil, false
	}
	entry := v.(*Entry)

	if pc.ttl > 0 && time.Since(entry.CreatedAt) > pc.ttl {
		pc.entries.Remove(key)
		pc.misses++
		return nil, false
	}

	pc.hits++
	return entry, true
}

// InvalidateLang removes all cached trees of one language
func (pc *ParseCache) InvalidateLang(lang string) {
	pc.mu.Lock()
	defer pc.mu.Unlock()

	for key := range pc.langIndex[lang] {
		pc.entries.Remove(key)
	}
	delete(pc.langIndex, lang)
}

// Purge clears the entire cache. Hit and miss counters are kept.
func (pc *ParseCache) Purge() {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	pc.reset()
}

// Stats returns cache statistics
func (pc *ParseCache) Stats() Stats {
	pc.mu.RLock()
	defer pc.mu.RUnlock()

	total := pc.hits + pc.misses
	hitRate := float64(0)
	if total > 0 {
		hitRate = float64(pc.hits) / float64(total)
	}

	return Stats{
		Hits:     pc.hits,
		Misses:   pc.misses,
		Entries:  pc.entries.Len(),
		Capacity: pc.capacity,
		Bytes:    pc.bytes,
		HitRate:  hitRate,
	}
}

// evicted keeps the byte count and language index in step with the LRU
// (called while holding lock)
func (pc *ParseCache) evicted(key lru.Key, value interface{}) {
	entry := value.(*Entry)
	pc.bytes -= entry.Size
	k := key.(string)
	if keys, ok := pc.langIndex[entry.Lang]; ok {
		delete(keys, k)
		if len(keys) == 0 {
			delete(pc.langIndex, entry.Lang)
		}
	}
}
