package main

import (
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	kafkax "github.com/NordCoder/Beacon/internal/repository/kafka"
	"go.uber.org/zap"
)

// One-shot topic bootstrap for compose setups: creates the notify
// topics and waits until their partitions have leaders, so the relay
// consumer does not join a group against a missing topic.
func main() {
	brokers := strings.Split(env("KAFKA_BROKER", "kafka:9092"), ",")
	topics := strings.Split(env("KAFKA_TOPICS", "beacon.notify"), ",")
	partitions := envInt("KAFKA_PARTITIONS", 1)
	rf := envInt("KAFKA_RF", 1)

	log, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer log.Sync()
	log = log.With(zap.String("service", "kafka-init"))

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	for _, t := range topics {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		spec := kafkax.TopicSpec{
			Name:              t,
			NumPartitions:     partitions,
			ReplicationFactor: rf,
			MaxWait:           30 * time.Second,
		}
		if err := kafkax.EnsureTopic(ctx, brokers, spec, log); err != nil {
			log.Fatal("ensure topic", zap.String("topic", t), zap.Error(err))
		}
	}
	log.Info("kafka-init done", zap.Strings("topics", topics))
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, _ := strconv.Atoi(v); n > 0 {
			return n
		}
	}
	return def
}
