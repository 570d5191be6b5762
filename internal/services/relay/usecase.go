package relay

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/NordCoder/Beacon/internal/domain/notification"
	"github.com/NordCoder/Beacon/internal/domain/subscription"
)

// Usecase owns the registry and the broadcast engine; the HTTP surface
// and the Kafka consumer are thin glue over it.
type Usecase struct {
	log  *zap.Logger
	subs subscription.Repo
	bc   *Broadcaster
	clk  func() time.Time
}

func NewUC(log *zap.Logger, subs subscription.Repo, bc *Broadcaster, clk func() time.Time) *Usecase {
	if clk == nil {
		clk = func() time.Time { return time.Now().UTC() }
	}
	return &Usecase{
		log:  log.With(zap.String("component", "relay.uc")),
		subs: subs,
		bc:   bc,
		clk:  clk,
	}
}

func (u *Usecase) Subscribe(ctx context.Context, sub *subscription.Subscription) (int, error) {
	total, err := u.subs.Upsert(ctx, sub)
	if err != nil {
		return total, err
	}
	u.log.Info("subscription upserted", zap.Int("total", total))
	return total, nil
}

func (u *Usecase) Unsubscribe(ctx context.Context, endpoint string) (int, error) {
	return u.subs.Remove(ctx, endpoint)
}

func (u *Usecase) Stats(ctx context.Context) subscription.Stats {
	return u.subs.Stats(ctx)
}

func (u *Usecase) Count(ctx context.Context) int {
	return u.subs.Count(ctx)
}

func (u *Usecase) Clear(ctx context.Context) int {
	n := u.subs.Clear(ctx)
	u.log.Info("registry cleared", zap.Int("removed", n))
	return n
}

// Heartbeat broadcasts the canned heartbeat payload to every current
// subscription.
func (u *Usecase) Heartbeat(ctx context.Context) Report {
	return u.broadcastOne(ctx, notification.Heartbeat(u.clk()))
}

// TestNotification broadcasts the template for status with overrides
// applied. The registry is untouched when status is unknown.
func (u *Usecase) TestNotification(ctx context.Context, status string, o notification.Overrides) (notification.Payload, Report, error) {
	st, err := notification.ParseStatus(status)
	if err != nil {
		return notification.Payload{}, Report{}, err
	}
	p, err := notification.FromTemplate(st, o, u.clk())
	if err != nil {
		return notification.Payload{}, Report{}, err
	}
	return p, u.broadcastOne(ctx, p), nil
}

// NotifyBulk broadcasts each payload in order to the full registry:
// sequential across payloads, concurrent within each fan-out.
func (u *Usecase) NotifyBulk(ctx context.Context, payloads []notification.Payload) Report {
	tr := otel.Tracer("relay.uc")
	ctx, span := tr.Start(ctx, "relay.notify_bulk",
		trace.WithAttributes(attribute.Int("bulk.payloads", len(payloads))),
	)
	defer span.End()

	var acc Report
	for _, p := range payloads {
		acc = acc.Add(u.broadcastOne(ctx, p))
	}
	span.SetAttributes(
		attribute.Int("bulk.sent", acc.Sent),
		attribute.Int("bulk.failed", acc.Failed),
	)
	return acc
}

func (u *Usecase) broadcastOne(ctx context.Context, p notification.Payload) Report {
	targets := u.subs.Snapshot(ctx)
	return u.bc.Broadcast(ctx, p, targets)
}
