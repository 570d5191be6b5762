package relay

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/NordCoder/Beacon/internal/domain/notification"
	"github.com/NordCoder/Beacon/internal/domain/subscription"
)

var (
	mDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_delivered_total", Help: "Push deliveries confirmed by the transport",
	})
	mFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_failed_total", Help: "Push deliveries that failed",
	})
	mPruned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_pruned_total", Help: "Subscriptions removed after a gone signal",
	})
	mInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "relay_inflight_deliveries", Help: "Delivery attempts currently in flight",
	})
	mFanoutDur = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "relay_fanout_duration_seconds", Help: "Time to complete one broadcast fan-out",
		Buckets: prometheus.DefBuckets,
	})
)

type BroadcastConfig struct {
	// MaxInFlight caps concurrent delivery attempts; 0 means unbounded.
	MaxInFlight int `mapstructure:"max_inflight"`
	// PruneGone removes subscriptions the transport reported gone.
	// When false the gone set is only reported and logged.
	PruneGone bool `mapstructure:"prune_gone"`
}

// Report aggregates one broadcast. Per-target failures never fail the
// broadcast itself; the contract is best effort, report counts.
type Report struct {
	Sent   int      `json:"sent"`
	Failed int      `json:"failed"`
	Total  int      `json:"total"`
	Pruned int      `json:"pruned"`
	Gone   []string `json:"-"`
}

func (r Report) Add(o Report) Report {
	return Report{
		Sent:   r.Sent + o.Sent,
		Failed: r.Failed + o.Failed,
		Total:  r.Total + o.Total,
		Pruned: r.Pruned + o.Pruned,
		Gone:   append(r.Gone, o.Gone...),
	}
}

// Broadcaster fans one payload out to a registry snapshot. Each target
// gets exactly one delivery attempt per call.
type Broadcaster struct {
	log    *zap.Logger
	sender notification.Sender
	subs   subscription.Repo
	cfg    BroadcastConfig
}

func NewBroadcaster(log *zap.Logger, sender notification.Sender, subs subscription.Repo, cfg BroadcastConfig) *Broadcaster {
	return &Broadcaster{
		log:    log.With(zap.String("component", "relay.broadcast")),
		sender: sender,
		subs:   subs,
		cfg:    cfg,
	}
}

func (b *Broadcaster) Broadcast(ctx context.Context, payload notification.Payload, targets []*subscription.Subscription) Report {
	tr := otel.Tracer("relay.broadcast")
	ctx, span := tr.Start(ctx, "relay.broadcast")
	defer span.End()

	rep := Report{Total: len(targets)}
	if len(targets) == 0 {
		span.SetAttributes(attribute.Int("broadcast.targets", 0))
		return rep
	}

	body, err := payload.Encode()
	if err != nil {
		// Payload shapes are our own; an unmarshalable one is a bug.
		b.log.Error("payload encode", zap.Error(err))
		rep.Failed = len(targets)
		return rep
	}

	start := time.Now()

	var sem chan struct{}
	if b.cfg.MaxInFlight > 0 {
		sem = make(chan struct{}, b.cfg.MaxInFlight)
	}

	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		gone []string
	)
	for _, t := range targets {
		wg.Add(1)
		go func(sub *subscription.Subscription) {
			defer wg.Done()
			if sem != nil {
				sem <- struct{}{}
				defer func() { <-sem }()
			}
			mInFlight.Inc()
			defer mInFlight.Dec()

			out := b.sender.Send(ctx, sub, body)

			mu.Lock()
			defer mu.Unlock()
			if out.Delivered {
				rep.Sent++
				mDelivered.Inc()
				return
			}
			rep.Failed++
			mFailed.Inc()
			if out.Gone {
				gone = append(gone, sub.Endpoint)
			}
		}(t)
	}
	wg.Wait()

	rep.Gone = gone
	if b.cfg.PruneGone {
		for _, ep := range gone {
			if _, err := b.subs.Remove(ctx, ep); err == nil {
				rep.Pruned++
				mPruned.Inc()
			}
		}
	} else if len(gone) > 0 {
		b.log.Info("gone subscriptions left in registry (prune disabled)", zap.Int("count", len(gone)))
	}

	mFanoutDur.Observe(time.Since(start).Seconds())
	span.SetAttributes(
		attribute.Int("broadcast.targets", rep.Total),
		attribute.Int("broadcast.sent", rep.Sent),
		attribute.Int("broadcast.failed", rep.Failed),
		attribute.Int("broadcast.pruned", rep.Pruned),
	)
	b.log.Debug("broadcast done",
		zap.Int("total", rep.Total),
		zap.Int("sent", rep.Sent),
		zap.Int("failed", rep.Failed),
		zap.Int("pruned", rep.Pruned),
	)
	return rep
}
