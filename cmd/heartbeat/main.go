package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	config "github.com/NordCoder/Beacon/internal/config/heartbeat"
	"github.com/NordCoder/Beacon/internal/obs"
	kafkaRepo "github.com/NordCoder/Beacon/internal/repository/kafka"
	"github.com/NordCoder/Beacon/internal/services/heartbeat"
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
	l.Info("starting heartbeat",
		zap.Any("kafka_out", cfg.Kafka),
		zap.Duration("interval", cfg.Beat.Interval),
		zap.String("metrics_addr", cfg.Beat.MetricsAddr),
	)

	otelCloser, err := obs.SetupOTel(ctx, cfg.OTEL.AsOTELConfig())
	if err != nil {
		l.Fatal("otel init", zap.Error(err))
	}
	defer func() { _ = otelCloser.Shutdown(context.Background()) }()

	// kafka
	prod := kafkaRepo.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	events := kafkaRepo.NewNotifyEventsKafka(prod)
	defer func() { _ = prod.Close() }()

	ms := obs.BootstrapMetricsServer(cfg.Beat.MetricsAddr, func(context.Context) error { return nil }, l)

	uc := heartbeat.NewUC(events, time.Now, l)
	runner := heartbeat.New(l, uc, &cfg.Beat)

	errCh := make(chan error, 1)
	go func() { errCh <- runner.Run(ctx) }()

	l.Info("heartbeat started")

	select {
	case <-ctx.Done():
	case err = <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			l.Error("runner error", zap.Error(err))
		}
	}

	shCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = ms.Shutdown(shCtx)
	l.Info("bye")
}

func configPath() string {
	if p := os.Getenv("HEARTBEAT_CONFIG"); p != "" {
		return p
	}
	return "config/heartbeat.yaml"
}
