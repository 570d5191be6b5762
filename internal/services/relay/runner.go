package relay

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/NordCoder/Beacon/internal/obs"
	kafkax "github.com/NordCoder/Beacon/internal/repository/kafka"
)

var (
	mEventsConsumed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_notify_events_consumed_total", Help: "NotifyEvents consumed from Kafka",
	})
	mEventsInvalid = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_notify_events_invalid_total", Help: "NotifyEvents dropped as malformed",
	})
)

// Runner feeds NotifyEvents from the bus into the broadcast engine.
type Runner struct {
	log  *zap.Logger
	cons *kafkax.Consumer
	uc   *Usecase
}

func NewRunner(log *zap.Logger, cons *kafkax.Consumer, uc *Usecase) *Runner {
	return &Runner{
		log:  log.With(zap.String("component", "relay.runner")),
		cons: cons,
		uc:   uc,
	}
}

func (r *Runner) Run(ctx context.Context) error {
	handler := kafkax.JSONHandler(
		func(ctx context.Context, _ []byte, ev *kafkax.NotifyEvent) error {
			mEventsConsumed.Inc()
			log := obs.WithTrace(ctx, r.log)
			if len(ev.Payloads) == 0 {
				mEventsInvalid.Inc()
				log.Warn("notify event without payloads", zap.String("event_id", ev.ID), zap.String("source", ev.Source))
				return nil
			}
			rep := r.uc.NotifyBulk(ctx, ev.Payloads)
			log.Debug("notify event broadcast",
				zap.String("event_id", ev.ID),
				zap.String("source", ev.Source),
				zap.Int("sent", rep.Sent),
				zap.Int("failed", rep.Failed),
			)
			return nil
		},
	)

	if err := r.cons.Consume(ctx, handler); err != nil && !errors.Is(err, context.Canceled) {
		r.log.Warn("kafka consume", zap.Error(err))
		return err
	}
	return ctx.Err()
}
