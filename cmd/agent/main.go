package main

import (
	"context"
	"log"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/NordCoder/Beacon/internal/agent/cache"
	"github.com/NordCoder/Beacon/internal/agent/lifecycle"
	"github.com/NordCoder/Beacon/internal/agent/platform"
	"github.com/NordCoder/Beacon/internal/agent/relayclient"
	"github.com/NordCoder/Beacon/internal/agent/task"
	config "github.com/NordCoder/Beacon/internal/config/agent"
	"github.com/NordCoder/Beacon/internal/obs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configPath())
	if err != nil {
		log.Fatal(err)
	}

	l, err := obs.NewLogger(cfg.AsLoggerConfig())
	if err != nil {
		log.Fatal(err)
	}
	l.Info("starting agent",
		zap.String("cache_version", cfg.Cache.Version),
		zap.String("relay", cfg.Relay.BaseURL),
	)

	reg := hostRegistration{log: l}
	contexts := hostContexts{log: l}
	fetcher := newHTTPFetcher(cfg.Relay.BaseURL)

	mgr := cache.NewManager(l, cache.NewMemoryStore(), fetcher, reg, contexts, cache.Config{
		Version:        cfg.Cache.Version,
		Host:           hostOf(cfg.Relay.BaseURL),
		StaticAssets:   cfg.Cache.StaticAssets,
		AllowedOrigins: cfg.Cache.AllowedOrigins,
		RuntimeCap:     cfg.Cache.RuntimeCap,
	})

	vapidKey := cfg.Relay.VAPIDPublicKey
	if vapidKey == "" {
		rc := relayclient.New(cfg.Relay.BaseURL)
		kctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		vapidKey, err = rc.VAPIDPublicKey(kctx)
		cancel()
		if err != nil {
			l.Warn("fetch vapid key", zap.Error(err))
		}
	}

	ctrl := lifecycle.NewController(
		l, logDisplay{log: l}, contexts, reg,
		noResubscribe{}, relayclient.New(cfg.Relay.BaseURL), mgr,
		cfg.Cache.Version, vapidKey, nil,
	)

	// install / activate lifecycle
	installScope := task.NewScope()
	mgr.Install(ctx, installScope)
	if err := installScope.Wait(ctx); err != nil {
		l.Warn("install finished with errors", zap.Error(err))
	}

	activateScope := task.NewScope()
	mgr.Activate(ctx, activateScope)
	if err := activateScope.Wait(ctx); err != nil {
		l.Warn("activate finished with errors", zap.Error(err))
	}

	l.Info("agent active")

	if os.Getenv("AGENT_SELF_TEST") != "" {
		ctrl.HandleMessage(ctx, platform.Message{Type: platform.MsgTestNotification}, func(reply platform.Message) {
			l.Info("self-test reply", zap.String("type", reply.Type), zap.Any("data", reply.Data))
		})
	}

	<-ctx.Done()
	l.Info("bye")
}

func configPath() string {
	if p := os.Getenv("AGENT_CONFIG"); p != "" {
		return p
	}
	return "config/agent.yaml"
}

func hostOf(base string) string {
	if u, err := url.Parse(base); err == nil {
		return u.Host
	}
	return ""
}
