package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	config "github.com/NordCoder/Beacon/internal/config/relay"
	"github.com/NordCoder/Beacon/internal/repository/memory"
	kafkax "github.com/NordCoder/Beacon/internal/repository/kafka"
	"github.com/NordCoder/Beacon/internal/repository/webpush"
	relay "github.com/NordCoder/Beacon/internal/services/relay"
)

func main() {
	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configPath())
	if err != nil {
		panic(err)
	}

	logger, err := initLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting relay", zap.String("env", cfg.App.Env), zap.String("ver", cfg.App.Version))

	otelShutdown, err := initOTel(rootCtx, cfg)
	if err != nil {
		logger.Fatal("otel init", zap.Error(err))
	}
	defer func() { _ = otelShutdown(context.Background()) }()

	// wiring: registry, transport, engine
	subs := memory.NewSubscriptionRepo(nil)
	sender := webpush.New(cfg.Push).WithLogger(logger)
	bc := relay.NewBroadcaster(logger, sender, subs, cfg.Broadcast)
	uc := relay.NewUC(logger, subs, bc, nil)

	httpSrv := buildHTTPServer(cfg, logger, uc)
	httpErrCh := make(chan error, 1)
	go func() { httpErrCh <- serveHTTP(httpSrv, cfg, logger) }()

	// notify-event consumer
	consErrCh := make(chan error, 1)
	var cons *kafkax.Consumer
	if cfg.Kafka.Enable {
		cons = kafkax.BootstrapConsumer(rootCtx, &kafkax.ConsumerConfig{
			Brokers: cfg.Kafka.Brokers,
			GroupID: cfg.Kafka.GroupID,
			Topic:   cfg.Kafka.Topic,
			Logger:  logger,
		}, logger)
		runner := relay.NewRunner(logger, cons, uc)
		go func() { consErrCh <- runner.Run(rootCtx) }()
	}

	var runErr error
	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal")
	case runErr = <-httpErrCh:
		if runErr != nil && !errors.Is(runErr, http.ErrServerClosed) {
			logger.Error("http serve", zap.Error(runErr))
		}
	case runErr = <-consErrCh:
		if runErr != nil && !errors.Is(runErr, context.Canceled) {
			logger.Error("notify consumer", zap.Error(runErr))
		}
	}

	shCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()

	_ = httpSrv.Shutdown(shCtx)
	if cons != nil {
		_ = cons.Close()
	}

	time.Sleep(100 * time.Millisecond)
	logger.Info("bye")
}

func configPath() string {
	if p := os.Getenv("RELAY_CONFIG"); p != "" {
		return p
	}
	return "config/relay.yaml"
}
