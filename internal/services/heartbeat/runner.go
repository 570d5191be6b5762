package heartbeat

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	config "github.com/NordCoder/Beacon/internal/config/heartbeat"
)

var (
	mBeats = promauto.NewCounter(prometheus.CounterOpts{
		Name: "heartbeat_beats_total", Help: "Heartbeat events published",
	})
	mErr = promauto.NewCounter(prometheus.CounterOpts{
		Name: "heartbeat_errors_total", Help: "Errors in heartbeat loop",
	})
	mLoopDur = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "heartbeat_loop_duration_seconds", Help: "Heartbeat tick duration",
		Buckets: prometheus.DefBuckets,
	})
)

type Runner struct {
	Log *zap.Logger
	UC  *Usecase
	Cfg *config.BeatCfg
}

func New(log *zap.Logger, uc *Usecase, cfg *config.BeatCfg) *Runner {
	return &Runner{Log: log, UC: uc, Cfg: cfg}
}

func (r *Runner) tick(ctx context.Context) {
	start := time.Now()
	if err := r.UC.Beat(ctx); err != nil {
		mErr.Inc()
		r.Log.Warn("beat error", zap.Error(err))
	} else {
		mBeats.Inc()
		r.Log.Debug("heartbeat published")
	}
	mLoopDur.Observe(time.Since(start).Seconds())
}

func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.Cfg.Interval)
	defer ticker.Stop()

	r.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}
