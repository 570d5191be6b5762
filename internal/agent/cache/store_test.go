package cache

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func put(b Bucket, url, body string) {
	b.Put(Request{Method: http.MethodGet, URL: url}, &Response{
		Status: http.StatusOK, Header: http.Header{}, Body: []byte(body),
	})
}

func TestOpenReturnsSameBucket(t *testing.T) {
	s := NewMemoryStore()
	a := s.Open("static-v1")
	put(a, "/x", "x")
	require.Equal(t, 1, s.Open("static-v1").Len())
}

func TestRuntimeBucketEvictsOldest(t *testing.T) {
	s := NewMemoryStore()
	b := s.OpenBounded("runtime-v1", 3)
	for i := 0; i < 5; i++ {
		put(b, fmt.Sprintf("/page-%d", i), "body")
	}
	require.Equal(t, 3, b.Len())

	_, ok := b.Match(Request{Method: http.MethodGet, URL: "/page-0"})
	require.False(t, ok)
	_, ok = b.Match(Request{Method: http.MethodGet, URL: "/page-4"})
	require.True(t, ok)
}

func TestMatchSearchesAllBuckets(t *testing.T) {
	s := NewMemoryStore()
	put(s.Open("static-v1"), "/a", "from static")
	put(s.OpenBounded("runtime-v1", 4), "/b", "from runtime")

	resp, ok := s.Match(Request{Method: http.MethodGet, URL: "/b"})
	require.True(t, ok)
	require.Equal(t, "from runtime", string(resp.Body))

	_, ok = s.Match(Request{Method: http.MethodGet, URL: "/c"})
	require.False(t, ok)
}

func TestDelete(t *testing.T) {
	s := NewMemoryStore()
	s.Open("static-v1")
	require.True(t, s.Delete("static-v1"))
	require.False(t, s.Delete("static-v1"))
	require.Empty(t, s.Names())
}

func TestCachedResponsesAreDetached(t *testing.T) {
	s := NewMemoryStore()
	b := s.Open("static-v1")
	put(b, "/a", "original")

	resp, ok := b.Match(Request{Method: http.MethodGet, URL: "/a"})
	require.True(t, ok)
	resp.Body[0] = 'X'

	again, _ := b.Match(Request{Method: http.MethodGet, URL: "/a"})
	require.Equal(t, "original", string(again.Body))
}
