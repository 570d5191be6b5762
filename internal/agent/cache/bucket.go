package cache

import (
	"net/http"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Request is the slice of a fetch the cache cares about.
type Request struct {
	Method     string
	URL        string
	Navigation bool
}

// Response is a cached or live fetch result.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

func (r *Response) Clone() *Response {
	if r == nil {
		return nil
	}
	cp := &Response{Status: r.Status, Header: r.Header.Clone(), Body: make([]byte, len(r.Body))}
	copy(cp.Body, r.Body)
	return cp
}

// Bucket is one named, versioned request→response store. Concurrent
// writes to the same key are last-writer-wins.
type Bucket interface {
	Put(req Request, resp *Response)
	Match(req Request) (*Response, bool)
	Len() int
}

// mapBucket backs the static bucket: unbounded, holds the install
// manifest plus opportunistic asset copies.
type mapBucket struct {
	mu      sync.RWMutex
	entries map[string]*Response
}

func newMapBucket() *mapBucket {
	return &mapBucket{entries: make(map[string]*Response)}
}

func (b *mapBucket) Put(req Request, resp *Response) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[req.URL] = resp.Clone()
}

func (b *mapBucket) Match(req Request) (*Response, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	resp, ok := b.entries[req.URL]
	if !ok {
		return nil, false
	}
	return resp.Clone(), true
}

func (b *mapBucket) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

// lruBucket backs the runtime bucket: navigations and revalidated
// copies, bounded so a long-lived agent cannot grow without limit.
type lruBucket struct {
	c *lru.Cache[string, *Response]
}

func newLRUBucket(cap int) *lruBucket {
	if cap <= 0 {
		cap = 128
	}
	c, _ := lru.New[string, *Response](cap)
	return &lruBucket{c: c}
}

func (b *lruBucket) Put(req Request, resp *Response) {
	b.c.Add(req.URL, resp.Clone())
}

func (b *lruBucket) Match(req Request) (*Response, bool) {
	resp, ok := b.c.Get(req.URL)
	if !ok {
		return nil, false
	}
	return resp.Clone(), true
}

func (b *lruBucket) Len() int { return b.c.Len() }
