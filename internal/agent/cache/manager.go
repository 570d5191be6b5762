package cache

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/NordCoder/Beacon/internal/agent/platform"
	"github.com/NordCoder/Beacon/internal/agent/task"
)

const offlineHTML = `<!DOCTYPE html>
<html>
<head>
  <title>Offline - Beacon</title>
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <style>
    body { font-family: system-ui; text-align: center; padding: 2rem; }
    .offline { color: #666; }
  </style>
</head>
<body>
  <h1>Offline</h1>
  <p class="offline">You're currently offline. Please check your connection and try again.</p>
  <button onclick="location.reload()">Retry</button>
</body>
</html>`

// Fetcher is the live network.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) (*Response, error)
}

type Config struct {
	// Version tags the two current bucket names; buckets tagged with
	// any other version are stale.
	Version string
	// Host is the application's own origin, always allowed to cache.
	Host string
	// StaticAssets is the install manifest.
	StaticAssets []string
	// AllowedOrigins are the approved third-party content hosts.
	AllowedOrigins []string
	RuntimeCap     int
}

func (c Config) StaticBucket() string  { return "static-" + c.Version }
func (c Config) RuntimeBucket() string { return "runtime-" + c.Version }

// Manager drives the agent's cache buckets through the install /
// activate / fetch lifecycle.
type Manager struct {
	log      *zap.Logger
	store    Store
	fetcher  Fetcher
	reg      platform.Registration
	contexts platform.Contexts
	cfg      Config
}

func NewManager(log *zap.Logger, store Store, fetcher Fetcher, reg platform.Registration, contexts platform.Contexts, cfg Config) *Manager {
	return &Manager{
		log:      log.With(zap.String("component", "agent.cache")),
		store:    store,
		fetcher:  fetcher,
		reg:      reg,
		contexts: contexts,
		cfg:      cfg,
	}
}

// Install pre-populates the static bucket from the manifest. Every
// asset is best effort; installation never fails because one resource
// is missing. Readiness to skip the waiting phase is signaled once the
// population work is registered.
func (m *Manager) Install(ctx context.Context, scope *task.Scope) {
	bucket := m.store.Open(m.cfg.StaticBucket())

	scope.Go(func() error {
		for _, asset := range m.cfg.StaticAssets {
			req := Request{Method: http.MethodGet, URL: asset}
			resp, err := m.fetcher.Fetch(ctx, req)
			if err != nil {
				m.log.Warn("failed to cache asset", zap.String("url", asset), zap.Error(err))
				continue
			}
			if resp.Status != http.StatusOK {
				m.log.Warn("asset not cached", zap.String("url", asset), zap.Int("status", resp.Status))
				continue
			}
			bucket.Put(req, resp)
		}
		m.log.Info("static assets cached", zap.Int("count", bucket.Len()))
		return nil
	})

	if err := m.reg.SkipWaiting(ctx); err != nil {
		m.log.Warn("skip waiting", zap.Error(err))
	}
}

// Activate evicts every bucket not tagged with the current version,
// claims the open contexts and tells them the new version is live.
func (m *Manager) Activate(ctx context.Context, scope *task.Scope) {
	scope.Go(func() error {
		keep := map[string]bool{
			m.cfg.StaticBucket():  true,
			m.cfg.RuntimeBucket(): true,
		}
		for _, name := range m.store.Names() {
			if keep[name] {
				continue
			}
			m.log.Info("deleting stale cache bucket", zap.String("bucket", name))
			m.store.Delete(name)
		}

		if err := m.reg.Claim(ctx); err != nil {
			m.log.Warn("claim contexts", zap.Error(err))
		}
		for _, c := range m.contexts.MatchAll(ctx) {
			c.Post(platform.Message{
				Type: platform.MsgAgentActivated,
				Data: map[string]any{"version": m.cfg.Version},
			})
		}
		m.log.Info("agent activated", zap.String("version", m.cfg.Version))
		return nil
	})
}

// HandleFetch applies the interception policy. handled=false means the
// request is outside policy (non-GET, non-http) and must go to the
// network untouched. When handled, the response is never nil: worst
// case is the synthesized offline or unavailable response.
func (m *Manager) HandleFetch(ctx context.Context, scope *task.Scope, req Request) (*Response, bool) {
	if req.Method != http.MethodGet {
		return nil, false
	}
	u, err := url.Parse(req.URL)
	if err != nil {
		return nil, false
	}
	// Relative URLs are own-origin http. Absolute ones must be http(s):
	// ws/wss push-transport sockets and anything exotic pass through.
	if u.Scheme != "" && !strings.HasPrefix(u.Scheme, "http") {
		return nil, false
	}

	if req.Navigation {
		return m.fetchNavigation(ctx, req), true
	}
	return m.fetchAsset(ctx, scope, req, u), true
}

// fetchNavigation is network-first with a cached-root then placeholder
// fallback chain: an offline page load must always render something.
func (m *Manager) fetchNavigation(ctx context.Context, req Request) *Response {
	resp, err := m.fetcher.Fetch(ctx, req)
	if err == nil {
		if resp.Status == http.StatusOK {
			m.runtime().Put(req, resp)
		}
		return resp
	}

	if cached, ok := m.store.Match(Request{Method: http.MethodGet, URL: "/index.html"}); ok {
		return cached
	}
	if cached, ok := m.store.Match(Request{Method: http.MethodGet, URL: "/"}); ok {
		return cached
	}
	return offlineResponse()
}

// fetchAsset is cache-first with background revalidation.
func (m *Manager) fetchAsset(ctx context.Context, scope *task.Scope, req Request, u *url.URL) *Response {
	if cached, ok := m.store.Match(req); ok {
		scope.Go(func() error {
			fresh, err := m.fetcher.Fetch(ctx, req)
			if err != nil {
				// Revalidation is opportunistic; the cached copy stands.
				return nil
			}
			if fresh.Status == http.StatusOK {
				m.static().Put(req, fresh)
			}
			return nil
		})
		return cached
	}

	resp, err := m.fetcher.Fetch(ctx, req)
	if err != nil {
		m.log.Debug("fetch failed", zap.String("url", req.URL), zap.Error(err))
		return unavailableResponse()
	}
	if resp.Status == http.StatusOK && m.originAllowed(u) {
		m.static().Put(req, resp)
	}
	return resp
}

// ClearAll drops every bucket. Used by the CLEAR_CACHE message.
func (m *Manager) ClearAll(_ context.Context) error {
	names := m.store.Names()
	for _, name := range names {
		m.store.Delete(name)
	}
	m.log.Info("all cache buckets cleared", zap.Int("count", len(names)))
	return nil
}

func (m *Manager) originAllowed(u *url.URL) bool {
	host := u.Hostname()
	if host == "" || host == m.cfg.Host {
		return true
	}
	for _, o := range m.cfg.AllowedOrigins {
		if host == o {
			return true
		}
	}
	return false
}

func (m *Manager) static() Bucket  { return m.store.Open(m.cfg.StaticBucket()) }
func (m *Manager) runtime() Bucket { return m.store.OpenBounded(m.cfg.RuntimeBucket(), m.cfg.RuntimeCap) }

func offlineResponse() *Response {
	return &Response{
		Status: http.StatusOK,
		Header: http.Header{"Content-Type": []string{"text/html"}},
		Body:   []byte(offlineHTML),
	}
}

func unavailableResponse() *Response {
	return &Response{
		Status: http.StatusServiceUnavailable,
		Header: http.Header{"Content-Type": []string{"text/plain"}},
		Body:   []byte("Network error occurred"),
	}
}
