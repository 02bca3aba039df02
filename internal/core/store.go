package core

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/teracrafts/flagcache-go/types"
)

// cacheEntry is a stored result and the time it was written.
type cacheEntry struct {
	value    types.EvaluationResult
	storedAt time.Time
}

// store holds cache entries. Implementations must be safe for concurrent use.
type store interface {
	get(key CacheKey) (cacheEntry, bool)
	put(key CacheKey, entry cacheEntry)
	len() int
	entries() []cacheEntry
}

// mapStore is the unbounded store. Entries are only ever overwritten.
type mapStore struct {
	mu    sync.RWMutex
	items map[CacheKey]cacheEntry
}

func newMapStore() *mapStore {
	return &mapStore{items: make(map[CacheKey]cacheEntry)}
}

func (s *mapStore) get(key CacheKey) (cacheEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.items[key]
	return e, ok
}

func (s *mapStore) put(key CacheKey, entry cacheEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = entry
}

func (s *mapStore) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *mapStore) entries() []cacheEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]cacheEntry, 0, len(s.items))
	for _, e := range s.items {
		out = append(out, e)
	}
	return out
}

// lruStore bounds the number of entries, evicting the least recently used.
type lruStore struct {
	cache *lru.Cache[CacheKey, cacheEntry]
}

func newLRUStore(size int, logger types.Logger) (*lruStore, error) {
	c, err := lru.NewWithEvict(size, func(key CacheKey, _ cacheEntry) {
		logger.Debug("Cache evicted least recently used", "key", key.String())
	})
	if err != nil {
		return nil, err
	}
	return &lruStore{cache: c}, nil
}

func (s *lruStore) get(key CacheKey) (cacheEntry, bool) {
	return s.cache.Get(key)
}

func (s *lruStore) put(key CacheKey, entry cacheEntry) {
	s.cache.Add(key, entry)
}

func (s *lruStore) len() int {
	return s.cache.Len()
}

func (s *lruStore) entries() []cacheEntry {
	return s.cache.Values()
}
