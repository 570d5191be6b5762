package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/NordCoder/Beacon/internal/agent/cache"
	"github.com/NordCoder/Beacon/internal/agent/lifecycle"
	"github.com/NordCoder/Beacon/internal/agent/platform"
	"github.com/NordCoder/Beacon/internal/domain/subscription"
)

// httpFetcher serves the cache manager's live-network port. Relative
// URLs resolve against the application origin.
type httpFetcher struct {
	base   string
	client *http.Client
}

func newHTTPFetcher(base string) *httpFetcher {
	return &httpFetcher{
		base:   strings.TrimRight(base, "/"),
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

func (f *httpFetcher) Fetch(ctx context.Context, req cache.Request) (*cache.Response, error) {
	u := req.URL
	if strings.HasPrefix(u, "/") {
		u = f.base + u
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, err
	}
	return &cache.Response{Status: resp.StatusCode, Header: resp.Header.Clone(), Body: body}, nil
}

// hostRegistration is the headless stand-in for a real agent host:
// version swaps and context claims are immediate.
type hostRegistration struct{ log *zap.Logger }

func (h hostRegistration) SkipWaiting(context.Context) error {
	h.log.Debug("skip waiting acknowledged")
	return nil
}

func (h hostRegistration) Claim(context.Context) error {
	h.log.Debug("contexts claimed")
	return nil
}

// hostContexts runs without any foreground contexts attached.
type hostContexts struct{ log *zap.Logger }

func (h hostContexts) MatchAll(context.Context) []platform.ForegroundContext { return nil }

func (h hostContexts) OpenWindow(_ context.Context, url string) error {
	h.log.Info("open window requested", zap.String("url", url))
	return nil
}

// logDisplay writes notifications to the log instead of a notification
// tray.
type logDisplay struct{ log *zap.Logger }

func (d logDisplay) Show(_ context.Context, n *lifecycle.Notification) error {
	d.log.Info("notification",
		zap.String("tag", n.Tag),
		zap.String("title", n.Title),
		zap.String("body", n.Body),
		zap.Bool("require_interaction", n.RequireInteraction),
	)
	return nil
}

func (d logDisplay) Close(_ context.Context, tag string) {
	d.log.Debug("notification closed", zap.String("tag", tag))
}

// noResubscribe rejects subscription renewal; only a platform with a
// push service connection can mint new subscription keys.
type noResubscribe struct{}

func (noResubscribe) Resubscribe(context.Context, string) (*subscription.Subscription, error) {
	return nil, errors.New("host cannot mint push subscriptions")
}
