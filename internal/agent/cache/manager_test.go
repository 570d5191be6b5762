package cache

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/NordCoder/Beacon/internal/agent/platform"
	"github.com/NordCoder/Beacon/internal/agent/task"
)

// scriptedFetcher answers from a fixed table; unknown URLs are network
// errors.
type scriptedFetcher struct {
	mu        sync.Mutex
	responses map[string]*Response
	calls     map[string]int
	offline   bool
}

func newScriptedFetcher() *scriptedFetcher {
	return &scriptedFetcher{
		responses: make(map[string]*Response),
		calls:     make(map[string]int),
	}
}

func (f *scriptedFetcher) serve(url string, status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[url] = &Response{Status: status, Header: http.Header{}, Body: []byte(body)}
}

func (f *scriptedFetcher) Fetch(_ context.Context, req Request) (*Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[req.URL]++
	if f.offline {
		return nil, errors.New("network down")
	}
	if resp, ok := f.responses[req.URL]; ok {
		return resp.Clone(), nil
	}
	return nil, errors.New("no route")
}

func (f *scriptedFetcher) callCount(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[url]
}

type fakeReg struct {
	mu          sync.Mutex
	skipWaiting int
	claimed     int
}

func (r *fakeReg) SkipWaiting(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.skipWaiting++
	return nil
}

func (r *fakeReg) Claim(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.claimed++
	return nil
}

type fakeContext struct {
	mu   sync.Mutex
	url  string
	msgs []platform.Message
}

func (c *fakeContext) URL() string                 { return c.url }
func (c *fakeContext) Focus(context.Context) error { return nil }
func (c *fakeContext) Post(msg platform.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msg)
}

func (c *fakeContext) messages() []platform.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]platform.Message(nil), c.msgs...)
}

type fakeContexts struct {
	list []*fakeContext
}

func (cs *fakeContexts) MatchAll(context.Context) []platform.ForegroundContext {
	out := make([]platform.ForegroundContext, 0, len(cs.list))
	for _, c := range cs.list {
		out = append(out, c)
	}
	return out
}

func (cs *fakeContexts) OpenWindow(context.Context, string) error { return nil }

func testConfig() Config {
	return Config{
		Version:        "v2",
		Host:           "app.example",
		StaticAssets:   []string{"/", "/index.html", "/manifest.json"},
		AllowedOrigins: []string{"cdn.example"},
		RuntimeCap:     8,
	}
}

func newTestManager(t *testing.T) (*Manager, *MemoryStore, *scriptedFetcher, *fakeReg, *fakeContexts) {
	t.Helper()
	store := NewMemoryStore()
	fetcher := newScriptedFetcher()
	reg := &fakeReg{}
	contexts := &fakeContexts{}
	m := NewManager(zap.NewNop(), store, fetcher, reg, contexts, testConfig())
	return m, store, fetcher, reg, contexts
}

func TestInstallPopulatesStaticBucket(t *testing.T) {
	m, store, fetcher, reg, _ := newTestManager(t)
	fetcher.serve("/", http.StatusOK, "root")
	fetcher.serve("/index.html", http.StatusOK, "index")
	// /manifest.json stays unreachable; install must survive it.

	scope := task.NewScope()
	m.Install(context.Background(), scope)
	require.NoError(t, scope.Wait(context.Background()))

	static := store.Open("static-v2")
	require.Equal(t, 2, static.Len())
	require.Equal(t, 1, reg.skipWaiting)
}

func TestActivateEvictsStaleBuckets(t *testing.T) {
	m, store, _, reg, contexts := newTestManager(t)
	ctx := &fakeContext{url: "https://app.example/"}
	contexts.list = []*fakeContext{ctx}

	store.Open("static-v1")
	store.Open("runtime-v1")
	store.Open("static-v2")

	scope := task.NewScope()
	m.Activate(context.Background(), scope)
	require.NoError(t, scope.Wait(context.Background()))

	require.Equal(t, []string{"static-v2"}, store.Names())
	require.Equal(t, 1, reg.claimed)

	msgs := ctx.messages()
	require.Len(t, msgs, 1)
	require.Equal(t, platform.MsgAgentActivated, msgs[0].Type)
	require.Equal(t, "v2", msgs[0].Data["version"])
}

func TestFetchPassThrough(t *testing.T) {
	m, _, _, _, _ := newTestManager(t)
	scope := task.NewScope()

	_, handled := m.HandleFetch(context.Background(), scope, Request{Method: http.MethodPost, URL: "/api/subscribe"})
	require.False(t, handled)

	_, handled = m.HandleFetch(context.Background(), scope, Request{Method: http.MethodGet, URL: "wss://push.example/socket"})
	require.False(t, handled)
}

func TestNavigationNetworkFirst(t *testing.T) {
	m, store, fetcher, _, _ := newTestManager(t)
	fetcher.serve("/dashboard", http.StatusOK, "fresh page")

	scope := task.NewScope()
	resp, handled := m.HandleFetch(context.Background(), scope, Request{
		Method: http.MethodGet, URL: "/dashboard", Navigation: true,
	})
	require.True(t, handled)
	require.Equal(t, "fresh page", string(resp.Body))

	// Successful navigations land in the runtime bucket.
	cached, ok := store.Open("runtime-v2").Match(Request{Method: http.MethodGet, URL: "/dashboard"})
	require.True(t, ok)
	require.Equal(t, "fresh page", string(cached.Body))
}

func TestNavigationOfflineFallsBackToCachedIndex(t *testing.T) {
	m, store, fetcher, _, _ := newTestManager(t)
	store.Open("static-v2").Put(
		Request{Method: http.MethodGet, URL: "/index.html"},
		&Response{Status: http.StatusOK, Header: http.Header{}, Body: []byte("cached index")},
	)
	fetcher.offline = true

	scope := task.NewScope()
	resp, handled := m.HandleFetch(context.Background(), scope, Request{
		Method: http.MethodGet, URL: "/dashboard", Navigation: true,
	})
	require.True(t, handled)
	require.Equal(t, "cached index", string(resp.Body))
}

func TestNavigationOfflinePlaceholder(t *testing.T) {
	m, _, fetcher, _, _ := newTestManager(t)
	fetcher.offline = true

	scope := task.NewScope()
	resp, handled := m.HandleFetch(context.Background(), scope, Request{
		Method: http.MethodGet, URL: "/anywhere", Navigation: true,
	})
	require.True(t, handled)
	require.Equal(t, http.StatusOK, resp.Status)
	require.Contains(t, string(resp.Body), "currently offline")
}

func TestAssetCacheFirstWithRevalidation(t *testing.T) {
	m, store, fetcher, _, _ := newTestManager(t)
	store.Open("static-v2").Put(
		Request{Method: http.MethodGet, URL: "/app.js"},
		&Response{Status: http.StatusOK, Header: http.Header{}, Body: []byte("old js")},
	)
	fetcher.serve("/app.js", http.StatusOK, "new js")

	scope := task.NewScope()
	resp, handled := m.HandleFetch(context.Background(), scope, Request{Method: http.MethodGet, URL: "/app.js"})
	require.True(t, handled)
	// Cached copy answers immediately.
	require.Equal(t, "old js", string(resp.Body))

	// Background revalidation refreshes the bucket.
	require.NoError(t, scope.Wait(context.Background()))
	require.Equal(t, 1, fetcher.callCount("/app.js"))
	cached, ok := store.Open("static-v2").Match(Request{Method: http.MethodGet, URL: "/app.js"})
	require.True(t, ok)
	require.Equal(t, "new js", string(cached.Body))
}

func TestAssetMissGoesToNetwork(t *testing.T) {
	m, store, fetcher, _, _ := newTestManager(t)
	fetcher.serve("/logo.png", http.StatusOK, "png bytes")

	scope := task.NewScope()
	resp, handled := m.HandleFetch(context.Background(), scope, Request{Method: http.MethodGet, URL: "/logo.png"})
	require.True(t, handled)
	require.Equal(t, "png bytes", string(resp.Body))

	_, ok := store.Open("static-v2").Match(Request{Method: http.MethodGet, URL: "/logo.png"})
	require.True(t, ok)
}

func TestAssetDisallowedOriginNotCached(t *testing.T) {
	m, store, fetcher, _, _ := newTestManager(t)
	fetcher.serve("https://evil.example/x.js", http.StatusOK, "payload")

	scope := task.NewScope()
	resp, handled := m.HandleFetch(context.Background(), scope, Request{Method: http.MethodGet, URL: "https://evil.example/x.js"})
	require.True(t, handled)
	require.Equal(t, http.StatusOK, resp.Status)

	_, ok := store.Open("static-v2").Match(Request{Method: http.MethodGet, URL: "https://evil.example/x.js"})
	require.False(t, ok)
}

func TestAssetUnavailable(t *testing.T) {
	m, _, fetcher, _, _ := newTestManager(t)
	fetcher.offline = true

	scope := task.NewScope()
	resp, handled := m.HandleFetch(context.Background(), scope, Request{Method: http.MethodGet, URL: "/missing.js"})
	require.True(t, handled)
	require.Equal(t, http.StatusServiceUnavailable, resp.Status)
}

func TestClearAll(t *testing.T) {
	m, store, _, _, _ := newTestManager(t)
	store.Open("static-v2")
	store.Open("runtime-v2")

	require.NoError(t, m.ClearAll(context.Background()))
	require.Empty(t, store.Names())
}
