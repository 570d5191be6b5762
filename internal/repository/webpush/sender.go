package webpush

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"

	"github.com/NordCoder/Beacon/internal/domain/notification"
	"github.com/NordCoder/Beacon/internal/domain/subscription"
)

var _ notification.Sender = (*Sender)(nil)

type Config struct {
	Subject        string        `mapstructure:"subject"`
	PublicKey      string        `mapstructure:"public_key"`
	PrivateKey     string        `mapstructure:"private_key"`
	TTL            time.Duration `mapstructure:"ttl"`
	AttemptTimeout time.Duration `mapstructure:"attempt_timeout"`
}

// Sender delivers payloads over the Web Push protocol with VAPID
// authentication.
type Sender struct {
	cfg Config
	log *zap.Logger
}

func New(cfg Config) *Sender {
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = 10 * time.Second
	}
	return &Sender{
		cfg: cfg,
		log: zap.L().With(zap.String("component", "webpush.sender")),
	}
}

func (s *Sender) WithLogger(l *zap.Logger) *Sender {
	if l == nil {
		return s
	}
	cp := *s
	cp.log = l.With(zap.String("component", "webpush.sender"))
	return &cp
}

func (s *Sender) Send(ctx context.Context, sub *subscription.Subscription, payload []byte) notification.Outcome {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.AttemptTimeout)
	defer cancel()

	resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.Keys.P256dh,
			Auth:   sub.Keys.Auth,
		},
	}, &webpush.Options{
		Subscriber:      s.cfg.Subject, // webpush-go adds mailto: itself
		VAPIDPublicKey:  s.cfg.PublicKey,
		VAPIDPrivateKey: s.cfg.PrivateKey,
		TTL:             int(s.cfg.TTL / time.Second),
	})
	if err != nil {
		s.log.Debug("push send failed", zap.String("endpoint", truncate(sub.Endpoint)), zap.Error(err))
		return notification.Outcome{Err: err}
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return notification.Outcome{Delivered: true}
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		s.log.Debug("subscription gone", zap.String("endpoint", truncate(sub.Endpoint)), zap.Int("status", resp.StatusCode))
		return notification.Outcome{Gone: true, Err: fmt.Errorf("webpush: subscription gone (status %d)", resp.StatusCode)}
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		s.log.Debug("unexpected push status",
			zap.String("endpoint", truncate(sub.Endpoint)),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", body),
		)
		return notification.Outcome{Err: fmt.Errorf("webpush: unexpected status %d", resp.StatusCode)}
	}
}

func truncate(endpoint string) string {
	if len(endpoint) > 50 {
		return endpoint[:50]
	}
	return endpoint
}
