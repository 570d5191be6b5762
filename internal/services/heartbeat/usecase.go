package heartbeat

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	domkafka "github.com/NordCoder/Beacon/internal/domain/kafka"
	"github.com/NordCoder/Beacon/internal/domain/notification"
	"github.com/NordCoder/Beacon/internal/obs/retry"
)

const source = "heartbeat"

type Usecase struct {
	Events domkafka.NotifyEvents
	Clock  func() time.Time
	Log    *zap.Logger
}

func NewUC(events domkafka.NotifyEvents, clk func() time.Time, log *zap.Logger) *Usecase {
	if clk == nil {
		clk = func() time.Time { return time.Now().UTC() }
	}
	return &Usecase{Events: events, Clock: clk, Log: log}
}

// Beat publishes one heartbeat notify event. The publish is retried;
// a heartbeat that never lands means silent monitoring gaps.
func (u *Usecase) Beat(ctx context.Context) error {
	tr := otel.Tracer("heartbeat.uc")
	ctx, span := tr.Start(ctx, "heartbeat.beat")
	defer span.End()

	payload := notification.Heartbeat(u.Clock())

	err := retry.Do(ctx, func() error {
		return u.Events.PublishNotify(ctx, source, []notification.Payload{payload})
	}, retry.DefaultPublishPolicy(u.Log))
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("publish heartbeat: %w", err)
	}
	span.SetAttributes(attribute.String("publish.status", "ok"))
	return nil
}
