package cache

import (
	"sort"
	"sync"
)

// Store holds every bucket the agent has ever opened, current version
// or not. Activation prunes the stale ones.
type Store interface {
	// Open returns the named bucket, creating an unbounded one when
	// absent.
	Open(name string) Bucket
	// OpenBounded is Open with an LRU bound for newly created buckets.
	OpenBounded(name string, cap int) Bucket
	Names() []string
	Delete(name string) bool
	// Match searches every bucket in name order.
	Match(req Request) (*Response, bool)
}

type MemoryStore struct {
	mu      sync.RWMutex
	buckets map[string]Bucket
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{buckets: make(map[string]Bucket)}
}

func (s *MemoryStore) Open(name string) Bucket {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.buckets[name]; ok {
		return b
	}
	b := newMapBucket()
	s.buckets[name] = b
	return b
}

func (s *MemoryStore) OpenBounded(name string, cap int) Bucket {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.buckets[name]; ok {
		return b
	}
	b := newLRUBucket(cap)
	s.buckets[name] = b
	return b
}

func (s *MemoryStore) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.buckets))
	for n := range s.buckets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (s *MemoryStore) Delete(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.buckets[name]; !ok {
		return false
	}
	delete(s.buckets, name)
	return true
}

func (s *MemoryStore) Match(req Request) (*Response, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, name := range s.namesLocked() {
		if resp, ok := s.buckets[name].Match(req); ok {
			return resp, true
		}
	}
	return nil, false
}

func (s *MemoryStore) namesLocked() []string {
	names := make([]string, 0, len(s.buckets))
	for n := range s.buckets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
